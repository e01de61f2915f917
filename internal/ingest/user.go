package ingest

import (
	"encoding/json"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

// RegisterUser stores a participant on first contact. Later registrations
// for the same user_id are acknowledged without touching the stored row.
func (d *Dispatcher) RegisterUser(gw Gateway, body []byte) Result {
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		d.log.Warn("malformed user payload", "error", err)
		return Failure("error saving user: invalid payload")
	}
	if user.UserID == "" {
		return Failure("error saving user: " + ErrNoUserID.Error())
	}

	exists, err := gw.UserExists(user.UserID)
	if err != nil {
		return Failure("error saving user")
	}
	if exists {
		d.log.Debug("user already registered", "user_id", user.UserID)
		return Success("User already saved.")
	}
	if err := gw.Insert(&user); err != nil {
		return Failure("error saving user")
	}
	d.log.Info("saved new user", "user_id", user.UserID, "browser", user.Browser, "version", user.Version)
	return Success("Saved user.")
}

package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/vincentbai/browsetrace-server/internal/logger"
	"github.com/vincentbai/browsetrace-server/internal/models"
)

// Session is the request-scoped persistence gateway.
type Session struct {
	tx  *gorm.DB
	log *logger.Logger
}

// Insert writes one record. Failures are logged with full detail here and
// returned; callers only report them.
func (s *Session) Insert(record any) error {
	if err := s.tx.Create(record).Error; err != nil {
		s.log.Error("failed to save record", "table", tableName(record), "error", err)
		return fmt.Errorf("failed to insert into %s: %w", tableName(record), err)
	}
	return nil
}

// VisitKeys returns every composite visit key already stored for userID.
func (s *Session) VisitKeys(userID string) (map[string]struct{}, error) {
	var keys []string
	if err := s.tx.Model(&models.BrowserHistoryVisit{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("hv_id", &keys).Error; err != nil {
		s.log.Error("failed to load existing history visits", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load visit keys: %w", err)
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}

func (s *Session) UserExists(userID string) (bool, error) {
	var count int64
	if err := s.tx.Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		s.log.Error("failed to look up user", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return count > 0, nil
}

func tableName(record any) string {
	if t, ok := record.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", record)
}

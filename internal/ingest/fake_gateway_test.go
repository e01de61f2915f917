package ingest

import (
	"errors"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

// memoryGateway keeps inserted records in memory for dispatcher tests.
type memoryGateway struct {
	records  []any
	failNext int
}

var errInsert = errors.New("insert failed")

func (g *memoryGateway) Insert(record any) error {
	if g.failNext > 0 {
		g.failNext--
		return errInsert
	}
	g.records = append(g.records, record)
	return nil
}

func (g *memoryGateway) VisitKeys(userID string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	for _, v := range g.visits() {
		if v.UserID == userID {
			keys[v.HVID] = struct{}{}
		}
	}
	return keys, nil
}

func (g *memoryGateway) UserExists(userID string) (bool, error) {
	for _, r := range g.records {
		if u, ok := r.(*models.User); ok && u.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (g *memoryGateway) visits() []*models.BrowserHistoryVisit {
	var out []*models.BrowserHistoryVisit
	for _, r := range g.records {
		if v, ok := r.(*models.BrowserHistoryVisit); ok {
			out = append(out, v)
		}
	}
	return out
}

package ingest

import (
	"fmt"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

// saveBrowserHistory inserts every visit not yet stored for the user. The
// existing keys are read once up front and nothing locks them between the
// read and the inserts, so two concurrent requests for the same user can both
// insert a visit neither has committed yet.
func (d *Dispatcher) saveBrowserHistory(gw Gateway, req *Request) Result {
	var items []models.HistoryItem
	if err := req.decodeData(&items); err != nil {
		return d.rejectData(req, err)
	}

	existing, err := gw.VisitKeys(req.Meta.UserID)
	if err != nil {
		return d.saveFailed(req)
	}
	filter := NewVisitFilter(existing)
	d.log.Debug("loaded existing history visits", "user_id", req.Meta.UserID, "existing", len(existing))

	var received, inserted, skipped, failed int
	for _, item := range items {
		for _, visit := range item.Visits {
			received++
			row, err := BuildVisit(item, visit, req.Meta)
			if err != nil {
				d.log.Warn("dropping malformed history visit", "url", item.URL, "error", err)
				failed++
				continue
			}
			if !filter.Admit(row.HVID) {
				skipped++
				continue
			}
			if err := gw.Insert(&row); err != nil {
				failed++
				continue
			}
			inserted++
		}
	}

	d.log.Info("saved browser history",
		"user_id", req.Meta.UserID,
		"items", len(items),
		"visits", received,
		"inserted", inserted,
		"skipped", skipped,
		"failed", failed,
	)
	if failed > 0 {
		return Failure(fmt.Sprintf("[%s] error saving %d of %d visits", req.API, failed, received))
	}
	return Success(fmt.Sprintf("[%s] received visits", req.API))
}

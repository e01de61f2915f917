package ingest

import (
	"errors"
	"fmt"

	"github.com/vincentbai/browsetrace-server/internal/logger"
	"github.com/vincentbai/browsetrace-server/internal/models"
)

// ParticipationEnded is returned to participants of a closed cohort.
const ParticipationEnded = "data not saved, participation for your group has ended, please uninstall the extension"

type handlerFunc func(gw Gateway, req *Request) Result

// Dispatcher routes decoded payloads to the handler for their kind.
type Dispatcher struct {
	log      *logger.Logger
	closed   map[Cohort]bool
	handlers map[Kind]handlerFunc
}

// NewDispatcher builds a dispatcher that rejects the named cohorts.
func NewDispatcher(log *logger.Logger, closedCohorts []string) *Dispatcher {
	d := &Dispatcher{
		log:    log.With("component", "Dispatcher"),
		closed: cohortSet(closedCohorts),
	}
	d.handlers = map[Kind]handlerFunc{
		KindUnrecognized:      d.saveGeneric,
		KindBrowserHistory:    d.saveBrowserHistory,
		KindWebsiteHistory:    d.saveWebsiteHistory,
		KindPeriodicSnapshots: d.saveSnapshot,
		KindActivity:          d.saveActivity,
	}
	return d
}

func (d *Dispatcher) Dispatch(gw Gateway, req *Request) Result {
	if cohort := CohortOf(req.Meta.UserID); d.closed[cohort] {
		d.log.Info("rejected payload from closed cohort", "cohort", cohort, "api", req.API, "user_id", req.Meta.UserID)
		return Failure(ParticipationEnded)
	}
	handler, ok := d.handlers[req.Kind]
	if !ok {
		handler = d.saveGeneric
	}
	return handler(gw, req)
}

func (d *Dispatcher) saveGeneric(gw Gateway, req *Request) Result {
	encoded, err := EncodeOpaque(req.Data)
	if err != nil {
		d.log.Error("failed to encode generic payload", "api", req.API, "error", err)
		return d.saveFailed(req)
	}
	record := &models.GenericRecord{
		API:      req.API,
		Data:     models.LongText(encoded),
		Metadata: req.Meta,
	}
	if err := gw.Insert(record); err != nil {
		return d.saveFailed(req)
	}
	return Success(fmt.Sprintf("[%s] saved as generic", req.API))
}

func (d *Dispatcher) saveWebsiteHistory(gw Gateway, req *Request) Result {
	var record models.WebsiteHistory
	nested, err := req.decodeRecord(&record)
	if err != nil {
		return d.rejectData(req, err)
	}
	record.Metadata = req.Metadata(nested)
	if err := gw.Insert(&record); err != nil {
		return d.saveFailed(req)
	}
	return Success(fmt.Sprintf("[%s] saved", req.API))
}

func (d *Dispatcher) saveSnapshot(gw Gateway, req *Request) Result {
	var record models.Snapshot
	nested, err := req.decodeRecord(&record)
	if err != nil {
		return d.rejectData(req, err)
	}
	record.Metadata = req.Metadata(nested)
	if err := gw.Insert(&record); err != nil {
		return d.saveFailed(req)
	}
	return Success(fmt.Sprintf("[%s] saved", req.API))
}

func (d *Dispatcher) saveActivity(gw Gateway, req *Request) Result {
	var payload models.ActivityPayload
	nested, err := req.decodeRecord(&payload)
	if err != nil {
		return d.rejectData(req, err)
	}
	record, err := NormalizeActivity(payload, req.Metadata(nested))
	if err != nil {
		return d.rejectData(req, err)
	}
	if err := gw.Insert(&record); err != nil {
		return d.saveFailed(req)
	}
	return Success(fmt.Sprintf("[%s] saved", req.API))
}

func (d *Dispatcher) rejectData(req *Request, err error) Result {
	if errors.Is(err, ErrNoData) {
		return Failure(fmt.Sprintf("[%s] %s", req.API, ErrNoData))
	}
	d.log.Warn("malformed payload data", "api", req.API, "user_id", req.Meta.UserID, "error", err)
	return Failure(fmt.Sprintf("[%s] malformed data: %v", req.API, err))
}

func (d *Dispatcher) saveFailed(req *Request) Result {
	return Failure(fmt.Sprintf("[%s] error saving data", req.API))
}

package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

// VisitKey is the composite dedup key of a history visit.
func VisitKey(itemID, visitID string) string {
	return itemID + "-" + visitID
}

// VisitFilter tracks which composite visit keys are already stored for one
// user. It is built from a snapshot taken at the start of the request and is
// not shared across requests.
type VisitFilter struct {
	seen map[string]struct{}
}

func NewVisitFilter(existing map[string]struct{}) *VisitFilter {
	if existing == nil {
		existing = make(map[string]struct{})
	}
	return &VisitFilter{seen: existing}
}

// Admit reports whether key is new and marks it seen.
func (f *VisitFilter) Admit(key string) bool {
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}

// TruncateVisitTime drops everything after the decimal point, keeping the
// integer part in whatever unit the browser supplied.
func TruncateVisitTime(t json.Number) (int64, error) {
	s := strings.TrimSpace(t.String())
	if s == "" {
		return 0, fmt.Errorf("missing visitTime")
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse visitTime %q: %w", s, err)
		}
		return int64(math.Trunc(f)), nil
	}
	whole, _, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse visitTime %q: %w", s, err)
	}
	return n, nil
}

// BuildVisit prepares one browser_history row. The visit's own item id is
// preferred; the parent item's id fills in when the browser omits it.
func BuildVisit(item models.HistoryItem, visit models.HistoryVisit, request models.Metadata) (models.BrowserHistoryVisit, error) {
	visitTime, err := TruncateVisitTime(visit.VisitTime)
	if err != nil {
		return models.BrowserHistoryVisit{}, err
	}
	itemID := visit.ID.String()
	if itemID == "" {
		itemID = item.ID.String()
	}
	return models.BrowserHistoryVisit{
		HVID:             VisitKey(itemID, visit.VisitID.String()),
		ItemID:           itemID,
		VisitID:          visit.VisitID.String(),
		URL:              item.URL,
		VisitTime:        visitTime,
		ReferringVisitID: visit.ReferringVisitID.String(),
		Transition:       visit.Transition,
		Metadata:         request,
	}, nil
}

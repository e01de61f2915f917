package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexibleID accepts either a JSON string or a JSON number. Browser history
// ids are strings in Chrome but some forks send numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*f = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string { return string(f) }

// HistoryItem is one entry of a browser_history batch with its visits.
type HistoryItem struct {
	ID     FlexibleID     `json:"id"`
	URL    string         `json:"url"`
	Title  string         `json:"title"`
	Visits []HistoryVisit `json:"visits"`
}

type HistoryVisit struct {
	ID               FlexibleID  `json:"id"`
	VisitID          FlexibleID  `json:"visitId"`
	VisitTime        json.Number `json:"visitTime"`
	ReferringVisitID FlexibleID  `json:"referringVisitId"`
	Transition       string      `json:"transition"`
}

// ActivityPayload is the body of an activity event before normalization.
// The raw fields may hold lists or nested objects. Metadata keys nested in the
// body are handled separately by the decoder.
type ActivityPayload struct {
	Wintab         string          `json:"wintab"`
	LastWintab     string          `json:"lastwt"`
	Type           string          `json:"type"`
	URL            string          `json:"url"`
	HTML           json.RawMessage `json:"html"`
	Links          json.RawMessage `json:"links"`
	TweetIDs       json.RawMessage `json:"tweet_ids"`
	YoutubeIframes json.RawMessage `json:"youtube_iframes"`
}

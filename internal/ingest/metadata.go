package ingest

import (
	"bytes"
	"encoding/json"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

// MetadataFields is the set of metadata keys a payload carried.
type MetadataFields uint8

const (
	FieldUserID MetadataFields = 1 << iota
	FieldWorkerID
	FieldTimestamp
	FieldVersion
	FieldBrowser
)

func (f MetadataFields) Has(field MetadataFields) bool { return f&field != 0 }

var metadataKeys = []struct {
	key   string
	field MetadataFields
	ptr   func(*models.Metadata) *string
}{
	{"user_id", FieldUserID, func(m *models.Metadata) *string { return &m.UserID }},
	{"worker_id", FieldWorkerID, func(m *models.Metadata) *string { return &m.WorkerID }},
	{"timestamp", FieldTimestamp, func(m *models.Metadata) *string { return &m.Timestamp }},
	{"version", FieldVersion, func(m *models.Metadata) *string { return &m.Version }},
	{"browser", FieldBrowser, func(m *models.Metadata) *string { return &m.Browser }},
}

// MergeMetadata returns nested with every field present in the request copied
// over it, empty values included. Nested values survive only for keys the
// request did not carry.
func MergeMetadata(nested, request models.Metadata, present MetadataFields) models.Metadata {
	out := nested
	for _, k := range metadataKeys {
		if present.Has(k.field) {
			*k.ptr(&out) = *k.ptr(&request)
		}
	}
	return out
}

// extractMetadata removes the metadata keys from fields and returns their
// values as text. Any JSON scalar is accepted: the extension stamps nested
// records with a numeric timestamp.
func extractMetadata(fields map[string]json.RawMessage) (models.Metadata, MetadataFields) {
	var meta models.Metadata
	var present MetadataFields
	for _, k := range metadataKeys {
		raw, ok := fields[k.key]
		if !ok {
			continue
		}
		delete(fields, k.key)
		present |= k.field
		*k.ptr(&meta) = scalarText(raw)
	}
	return meta, present
}

// scalarText renders a JSON value as text: strings unquoted, null as empty,
// anything else in its compact JSON form.
func scalarText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

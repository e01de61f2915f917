package ingest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

// MissingDataSentinel replaces the opaque blob when a generic payload has no
// data field.
const MissingDataSentinel = "error: no data received"

// EncodeOpaque serializes a generic payload body as base64url(JSON). A nil
// body yields MissingDataSentinel.
func EncodeOpaque(data json.RawMessage) (string, error) {
	if data == nil {
		return MissingDataSentinel, nil
	}
	text, err := reencode(data)
	if err != nil {
		return "", fmt.Errorf("encode opaque data: %w", err)
	}
	return base64.URLEncoding.EncodeToString([]byte(text)), nil
}

// NormalizeActivity flattens the list-valued fields of an activity event
// into JSON text and stamps the record with meta.
func NormalizeActivity(p models.ActivityPayload, meta models.Metadata) (models.Activity, error) {
	activity := models.Activity{
		Wintab:     p.Wintab,
		LastWintab: p.LastWintab,
		Type:       p.Type,
		URL:        p.URL,
		Metadata:   meta,
	}

	var links string
	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{"links", p.Links, &links},
		{"tweet_ids", p.TweetIDs, &activity.TweetIDs},
		{"youtube_iframes", p.YoutubeIframes, &activity.YoutubeIframes},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		text, err := reencode(f.raw)
		if err != nil {
			return models.Activity{}, fmt.Errorf("encode %s: %w", f.name, err)
		}
		*f.dst = text
	}
	activity.Links = models.MediumText(links)

	html, err := normalizeHTML(p.HTML)
	if err != nil {
		return models.Activity{}, fmt.Errorf("encode html: %w", err)
	}
	activity.HTML = models.LongText(html)
	return activity, nil
}

// normalizeHTML keeps a string as is. A sequence of captures (infinite
// scroll mutations) becomes one JSON array string.
func normalizeHTML(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return reencode(trimmed)
}

// reencode parses raw JSON and writes it back in canonical compact form:
// sorted object keys, numbers verbatim, no HTML escaping.
func reencode(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	return encodeJSON(v)
}

func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vincentbai/browsetrace-server/internal/models"
)

var (
	ErrNoUserID = errors.New("missing user_id")
	ErrNoData   = errors.New("no data received")
)

// Request is a decoded save_data payload. Data is nil when the payload had no
// data field at all or sent it as null.
type Request struct {
	API     string
	Kind    Kind
	Meta    models.Metadata
	Present MetadataFields // metadata keys the payload carried, even if empty
	Data    json.RawMessage
}

// DecodeRequest splits a payload into its api, data and metadata parts. Every
// top-level field other than api and data is metadata. Keys match exactly.
func DecodeRequest(body []byte) (*Request, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	meta, present := extractMetadata(fields)
	if meta.UserID == "" {
		return nil, ErrNoUserID
	}

	api := scalarText(fields["api"])
	data := fields["data"]
	if isNull(data) {
		data = nil
	}
	return &Request{
		API:     api,
		Kind:    ParseKind(api),
		Meta:    meta,
		Present: present,
		Data:    data,
	}, nil
}

// Metadata merges the request's metadata over metadata found nested in the
// payload body.
func (r *Request) Metadata(nested models.Metadata) models.Metadata {
	return MergeMetadata(nested, r.Meta, r.Present)
}

// decodeData unmarshals the payload body into dst.
func (r *Request) decodeData(dst any) error {
	if isNull(r.Data) {
		return ErrNoData
	}
	if err := json.Unmarshal(r.Data, dst); err != nil {
		return fmt.Errorf("decode %s data: %w", r.Kind, err)
	}
	return nil
}

// decodeRecord unmarshals a single-object payload body into dst. Metadata
// keys nested in the body are taken out first and returned, so their JSON
// type never fails the decode.
func (r *Request) decodeRecord(dst any) (models.Metadata, error) {
	if isNull(r.Data) {
		return models.Metadata{}, ErrNoData
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &fields); err != nil {
		return models.Metadata{}, fmt.Errorf("decode %s data: %w", r.Kind, err)
	}
	nested, _ := extractMetadata(fields)
	rest, err := json.Marshal(fields)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("decode %s data: %w", r.Kind, err)
	}
	if err := json.Unmarshal(rest, dst); err != nil {
		return models.Metadata{}, fmt.Errorf("decode %s data: %w", r.Kind, err)
	}
	return nested, nil
}

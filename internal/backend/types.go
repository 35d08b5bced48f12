package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nhle/notifybell/internal/model"
)

// RawNotification is a notification record as the backend sends it.
// Every field is optional on the wire.
type RawNotification struct {
	ID        json.RawMessage `json:"id"`
	Title     *string         `json:"title"`
	Message   *string         `json:"message"`
	Data      map[string]any  `json:"data"`
	IsRead    any             `json:"is_read"`
	CreatedAt *string         `json:"created_at"`
}

// resultsBody is the nested object of the paginated list envelope.
type resultsBody struct {
	UnseenCount   any               `json:"unseen_count"`
	Notifications []RawNotification `json:"notifications"`
}

// ShapeKind tags the decoded list response variant.
type ShapeKind int

const (
	// Unrecognized is any JSON value that matches no known shape.
	Unrecognized ShapeKind = iota

	// RawArray is a bare JSON array of records.
	RawArray

	// EnvelopeWithResults is {count, next, previous, results: {unseen_count, notifications}}.
	EnvelopeWithResults

	// EnvelopeWithNotifications is {notifications: [...]}.
	EnvelopeWithNotifications
)

func (k ShapeKind) String() string {
	switch k {
	case RawArray:
		return "raw-array"
	case EnvelopeWithResults:
		return "envelope-with-results"
	case EnvelopeWithNotifications:
		return "envelope-with-notifications"
	default:
		return "unrecognized"
	}
}

// ListResult is the normalized list response: a flat, already mapped
// item sequence plus the server unread tally when one was supplied.
type ListResult struct {
	Shape       ShapeKind
	Items       []model.Notification
	UnseenCount *int
}

// NormalizeList decodes a list response body. It is the only place that
// distinguishes the accepted envelope shapes. Bodies that are valid JSON
// but match no shape yield an empty result rather than an error.
func NormalizeList(body []byte) (*ListResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &ListResult{Shape: Unrecognized, Items: []model.Notification{}}, nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decoding notification list: %w", err)
	}

	result := &ListResult{Shape: Unrecognized}
	var records []RawNotification

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding notification array: %w", err)
		}
		result.Shape = RawArray

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decoding notification envelope: %w", err)
		}

		if rawResults, ok := envelope["results"]; ok && isObject(rawResults) {
			var results resultsBody
			if err := json.Unmarshal(rawResults, &results); err != nil {
				return nil, fmt.Errorf("decoding notification results: %w", err)
			}
			records = results.Notifications
			if n, ok := model.AsCount(results.UnseenCount); ok {
				result.UnseenCount = &n
			}
			result.Shape = EnvelopeWithResults
		} else if rawList, ok := envelope["notifications"]; ok && isArray(rawList) {
			if err := json.Unmarshal(rawList, &records); err != nil {
				return nil, fmt.Errorf("decoding notifications: %w", err)
			}
			result.Shape = EnvelopeWithNotifications
		}
	}

	result.Items = make([]model.Notification, 0, len(records))
	for _, r := range records {
		result.Items = append(result.Items, r.ToNotification())
	}
	return result, nil
}

// ToNotification applies the ingestion mapping to a raw record.
func (r RawNotification) ToNotification() model.Notification {
	n := model.Notification{
		ID:    model.ParseID(rawIDString(r.ID)),
		Type:  "notification",
		Title: "Notification",
		Data:  r.Data,
		Read:  truthy(r.IsRead),
	}
	if r.Title != nil {
		n.Type = *r.Title
		n.Title = *r.Title
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}

	switch {
	case n.Data["message"] != nil:
		n.Body = n.DataString("message")
	case r.Message != nil:
		n.Body = *r.Message
	}

	if r.CreatedAt != nil {
		n.CreatedAt = *r.CreatedAt
	}
	return n
}

// rawIDString stringifies a JSON id that may be a string or a number.
func rawIDString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// truthy mirrors loose boolean coercion of is_read.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return b != ""
	default:
		return true
	}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

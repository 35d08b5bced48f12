package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/notifybell/internal/ident"
)

// TypeUnseenCount is the reserved notification type used by the backend
// to push a fresh unread tally. Records of this type are control
// messages and never appear in the notification list.
const TypeUnseenCount = "unseen_notifications"

// IDKind distinguishes backend-issued ids from client placeholders.
type IDKind int

const (
	// ClientID is a synthetic id created locally (summary markers,
	// temporary ids, mailbox items). It is never sent to the backend.
	ClientID IDKind = iota

	// ServerID is an all-digit or canonical UUID id issued by the backend.
	ServerID
)

// ID is a notification identifier classified once at ingestion time.
type ID struct {
	value string
	kind  IDKind
}

// ParseID classifies raw as a server or client id.
func ParseID(raw string) ID {
	kind := ClientID
	if ident.IsServerID(raw) {
		kind = ServerID
	}
	return ID{value: raw, kind: kind}
}

// String returns the raw identifier.
func (id ID) String() string { return id.value }

// Kind returns the classification of the id.
func (id ID) Kind() IDKind { return id.kind }

// IsServer reports whether the id may be used in backend requests.
func (id ID) IsServer() bool { return id.kind == ServerID }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id.value == "" }

// MarshalJSON encodes the id as its plain string form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ParseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding notification id %s: %w", string(data), err)
	}
	*id = ParseID(n.String())
	return nil
}

// Notification is a single alert shown in the bell dropdown and the
// notifications page.
type Notification struct {
	// ID identifies the notification; see ParseID.
	ID ID `json:"id"`

	// Type is a free-text kind. TypeUnseenCount is reserved.
	Type string `json:"type"`

	// Title is the display heading.
	Title string `json:"title"`

	// Body is the display text used when Data carries no message.
	Body string `json:"body"`

	// Data is the open attribute bag sent by the backend
	// (message, name, email, phone, url, redirect, count, created_at).
	Data map[string]any `json:"data"`

	// Read flips from false to true through the read operations only.
	Read bool `json:"read"`

	// CreatedAt is an optional ISO-8601 timestamp used for display and
	// ordering, never for identity.
	CreatedAt string `json:"created_at,omitempty"`
}

// Clone returns a copy that shares no mutable state with n.
func (n Notification) Clone() Notification {
	c := n
	if n.Data != nil {
		c.Data = maps.Clone(n.Data)
	}
	return c
}

// Message returns data.message when present, falling back to Body.
func (n Notification) Message() string {
	if msg := n.DataString("message"); msg != "" {
		return msg
	}
	return n.Body
}

// DataString returns the string form of a data attribute, or "" when
// the key is absent or null.
func (n Notification) DataString(key string) string {
	v, ok := n.Data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Target returns the navigation target carried in data.url or
// data.redirect, url taking precedence.
func (n Notification) Target() (string, bool) {
	for _, key := range []string{"url", "redirect"} {
		if t := strings.TrimSpace(n.DataString(key)); t != "" {
			return t, true
		}
	}
	return "", false
}

// Count returns data.count as a non-negative integer. Numeric strings
// are accepted; fractional or negative values are rejected.
func (n Notification) Count() (int, bool) {
	v, ok := n.Data["count"]
	if !ok || v == nil {
		return 0, false
	}
	return AsCount(v)
}

// AsCount converts a decoded JSON value to a non-negative integer.
func AsCount(v any) (int, bool) {
	var f float64
	switch c := v.(type) {
	case int:
		f = float64(c)
	case int64:
		f = float64(c)
	case float64:
		f = c
	case json.Number:
		parsed, err := c.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// CreatedTime parses CreatedAt, falling back to data.created_at.
func (n Notification) CreatedTime() (time.Time, bool) {
	for _, raw := range []string{n.CreatedAt, n.DataString("created_at")} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

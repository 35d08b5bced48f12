package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	assert.True(t, ParseID("42").IsServer())
	assert.True(t, ParseID("a1b2c3d4-e5f6-47a8-b9c0-d1e2f3a4b5c6").IsServer())
	assert.Equal(t, ClientID, ParseID("summary-99").Kind())
	assert.Equal(t, "summary-99", ParseID("summary-99").String())
	assert.True(t, ParseID("").IsZero())
	assert.False(t, ParseID("").IsServer())
}

func TestID_JSON(t *testing.T) {
	var fromNumber, fromString ID
	require.NoError(t, json.Unmarshal([]byte(`17`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`"notif-1-a"`), &fromString))

	assert.Equal(t, "17", fromNumber.String())
	assert.True(t, fromNumber.IsServer())
	assert.False(t, fromString.IsServer())

	out, err := json.Marshal(fromNumber)
	require.NoError(t, err)
	assert.JSONEq(t, `"17"`, string(out))

	var bad ID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
}

func TestNotification_Target(t *testing.T) {
	n := Notification{Data: map[string]any{"redirect": "/villas/3"}}
	target, ok := n.Target()
	assert.True(t, ok)
	assert.Equal(t, "/villas/3", target)

	n.Data["url"] = "https://example.com/villas/3"
	target, ok = n.Target()
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/villas/3", target)

	_, ok = Notification{Data: map[string]any{"url": "  "}}.Target()
	assert.False(t, ok)
	_, ok = Notification{}.Target()
	assert.False(t, ok)
}

func TestNotification_Count(t *testing.T) {
	testCases := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{"float", float64(7), 7, true},
		{"int", 3, 3, true},
		{"string", "12", 12, true},
		{"json number", json.Number("4"), 4, true},
		{"zero", float64(0), 0, true},
		{"negative", float64(-1), 0, false},
		{"fraction", 2.5, 0, false},
		{"garbage", "lots", 0, false},
		{"null", nil, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := Notification{Data: map[string]any{"count": tc.value}}
			got, ok := n.Count()
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := Notification{}.Count()
	assert.False(t, ok)
}

func TestNotification_MessageAndClone(t *testing.T) {
	n := Notification{Body: "fallback", Data: map[string]any{"message": "from data"}}
	assert.Equal(t, "from data", n.Message())

	c := n.Clone()
	c.Data["message"] = "changed"
	assert.Equal(t, "from data", n.Data["message"])

	assert.Equal(t, "fallback", Notification{Body: "fallback"}.Message())
}

func TestNotification_CreatedTime(t *testing.T) {
	ts, ok := Notification{CreatedAt: "2024-01-01T00:00:00Z"}.CreatedTime()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	ts, ok = Notification{Data: map[string]any{"created_at": "2024-02-03"}}.CreatedTime()
	require.True(t, ok)
	assert.Equal(t, 3, ts.Day())

	_, ok = Notification{CreatedAt: "yesterday"}.CreatedTime()
	assert.False(t, ok)
}

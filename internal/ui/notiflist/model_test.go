package notiflist

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
)

func snapshot() notify.Snapshot {
	return notify.Snapshot{
		Items: []model.Notification{
			{ID: model.ParseID("1"), Type: "booking", Title: "Old", CreatedAt: "2026-01-01T00:00:00Z"},
			{ID: model.ParseID("2"), Type: "inquiry", Title: "New", CreatedAt: "2026-02-01T00:00:00Z"},
			{ID: model.ParseID("3"), Type: "payment", Title: "Read", CreatedAt: "2026-01-15T00:00:00Z", Read: true},
		},
		UnreadCount: 2,
	}
}

func TestSetSnapshot_NewestFirst(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetSnapshot(snapshot())

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "2", sel.ID.String())
}

func TestUnreadOnlyToggle(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetSnapshot(snapshot())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	assert.True(t, m.UnreadOnly())
	assert.Len(t, m.list.Items(), 2)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	assert.False(t, m.UnreadOnly())
	assert.Len(t, m.list.Items(), 3)
}

func TestActionMessages(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetSnapshot(snapshot())

	tests := []struct {
		key    tea.KeyMsg
		action Action
	}{
		{tea.KeyMsg{Type: tea.KeyEnter}, ActionOpen},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")}, ActionMarkRead},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")}, ActionRemove},
	}
	for _, tt := range tests {
		_, cmd := m.Update(tt.key)
		require.NotNil(t, cmd)
		msg, ok := cmd().(ActionMsg)
		require.True(t, ok)
		assert.Equal(t, tt.action, msg.Action)
		assert.Equal(t, "2", msg.ID.String())
	}
}

func TestSetSnapshot_KeepsCursor(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetSnapshot(snapshot())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})

	sel, _ := m.Selected()
	require.Equal(t, "3", sel.ID.String())

	next := snapshot()
	next.Items = append(next.Items, model.Notification{
		ID: model.ParseID("4"), Type: "booking", Title: "Newest", CreatedAt: "2026-03-01T00:00:00Z",
	})
	m.SetSnapshot(next)

	sel, _ = m.Selected()
	assert.Equal(t, "3", sel.ID.String())
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "", relativeTime(time.Time{}))
	assert.Equal(t, "just now", relativeTime(now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute)))
	assert.Equal(t, "1h ago", relativeTime(now.Add(-61*time.Minute)))
	assert.Equal(t, "2d ago", relativeTime(now.Add(-49*time.Hour)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

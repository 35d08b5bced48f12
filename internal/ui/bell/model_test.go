package bell

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
)

func item(id string, day int, read bool) model.Notification {
	return model.Notification{
		ID:        model.ParseID(id),
		Type:      "booking",
		Title:     "Booking " + id,
		Read:      read,
		CreatedAt: fmt.Sprintf("2026-03-%02dT10:00:00Z", day),
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSetSnapshot_LatestUnreadOnly(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 2, 80, 24)
	m.SetSnapshot(notify.Snapshot{
		Items: []model.Notification{
			item("1", 1, false),
			item("2", 5, true),
			item("3", 3, false),
			item("4", 4, false),
		},
		UnreadCount: 3,
	})

	got := m.Items()
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID.String())
	assert.Equal(t, "3", got[1].ID.String())
	assert.Equal(t, 3, m.Unread())
}

func TestNew_DefaultSize(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 0, 80, 24)

	var items []model.Notification
	for i := 1; i <= 10; i++ {
		items = append(items, item(fmt.Sprint(i), i, false))
	}
	m.SetSnapshot(notify.Snapshot{Items: items, UnreadCount: 10})

	assert.Len(t, m.Items(), DefaultSize)
}

func TestUpdate_OpenSelected(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 6, 80, 24)
	m.SetSnapshot(notify.Snapshot{
		Items:       []model.Notification{item("7", 1, false), item("8", 2, false)},
		UnreadCount: 2,
	})

	m, _ = m.Update(keyMsg("j"))
	_, cmd := m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)

	msg, ok := cmd().(OpenMsg)
	require.True(t, ok)
	assert.Equal(t, "7", msg.ID.String())
}

func TestUpdate_Commands(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 6, 80, 24)

	_, cmd := m.Update(keyMsg("esc"))
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())

	_, cmd = m.Update(keyMsg("A"))
	require.NotNil(t, cmd)
	assert.IsType(t, ReadAllMsg{}, cmd())

	_, cmd = m.Update(keyMsg("v"))
	require.NotNil(t, cmd)
	assert.IsType(t, ViewAllMsg{}, cmd())

	// Nothing to open in an empty dropdown.
	_, cmd = m.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
}

func TestView_EmptyState(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 6, 80, 24)
	assert.Contains(t, m.View(), "No unread notifications")
}

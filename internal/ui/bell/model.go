// Package bell renders the header dropdown: the unread counter and the
// latest few unread notifications.
package bell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
	"github.com/nhle/notifybell/internal/theme"
)

// DefaultSize is how many unread notifications the dropdown lists.
const DefaultSize = 6

// OpenMsg asks the parent to open a notification from the dropdown.
type OpenMsg struct {
	ID model.ID
}

// ReadAllMsg asks the parent to mark everything read.
type ReadAllMsg struct{}

// CloseMsg asks the parent to hide the dropdown.
type CloseMsg struct{}

// ViewAllMsg asks the parent to switch to the notifications page.
type ViewAllMsg struct{}

// Model is the bell dropdown.
type Model struct {
	keys   *keys.KeyMap
	size   int
	items  []model.Notification
	unread int
	cursor int
	width  int
	height int
}

// New creates a dropdown listing at most size unread notifications.
func New(k *keys.KeyMap, size, width, height int) Model {
	if size <= 0 {
		size = DefaultSize
	}
	return Model{
		keys:   k,
		size:   size,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSnapshot refreshes the dropdown from the store.
func (m *Model) SetSnapshot(s notify.Snapshot) {
	m.items = notify.LatestUnread(s.Items, m.size)
	m.unread = s.UnreadCount
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

// Items returns the notifications currently listed.
func (m Model) Items() []model.Notification { return m.items }

// Unread returns the counter shown on the badge.
func (m Model) Unread() int { return m.unread }

// Update handles messages for the dropdown.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(kmsg, m.keys.Back), key.Matches(kmsg, m.keys.Bell):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(kmsg, m.keys.Down):
		if len(m.items) > 0 {
			m.cursor = (m.cursor + 1) % len(m.items)
		}

	case key.Matches(kmsg, m.keys.Up):
		if len(m.items) > 0 {
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(m.items) - 1
			}
		}

	case key.Matches(kmsg, m.keys.Open):
		if len(m.items) == 0 {
			return m, nil
		}
		id := m.items[m.cursor].ID
		return m, func() tea.Msg { return OpenMsg{ID: id} }

	case key.Matches(kmsg, m.keys.MarkAllRead):
		return m, func() tea.Msg { return ReadAllMsg{} }

	case kmsg.String() == "v":
		return m, func() tea.Msg { return ViewAllMsg{} }
	}
	return m, nil
}

// View renders the dropdown panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	header := titleStyle.Render("Notifications") + "  " + theme.BellLabel(m.unread)

	var lines []string
	lines = append(lines, header, "")

	if len(m.items) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("No unread notifications"))
	}
	for i, n := range m.items {
		line := fmt.Sprintf("%s %s", theme.UnreadMarkStyle.Render("●"), n.Title)
		if msg := strings.TrimSpace(n.Message()); msg != "" {
			line += theme.DimmedStyle.Render("  " + clip(msg, m.width/2))
		}
		if i == m.cursor {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", theme.HelpStyle.Render("enter open · A mark all read · v view all · esc close"))

	width := min(m.width-4, 72)
	return theme.BellPanelStyle.
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the dropdown dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n < 8 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package notiflist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
	"github.com/nhle/notifybell/internal/theme"
)

// Action identifies what the user asked to do with the selected item.
type Action int

const (
	ActionOpen Action = iota
	ActionMarkRead
	ActionRemove
)

// ActionMsg asks the parent to run an action on one notification.
type ActionMsg struct {
	Action Action
	ID     model.ID
}

// Model is the notifications page: every notification, newest first.
type Model struct {
	list       list.Model
	keys       *keys.KeyMap
	snapshot   notify.Snapshot
	unreadOnly bool
	width      int
	height     int
}

// New creates a new notification list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("notification", "notifications")
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSnapshot replaces the rendered items with the store's current state,
// keeping the cursor on the same notification when it is still present.
func (m *Model) SetSnapshot(s notify.Snapshot) tea.Cmd {
	m.snapshot = s
	return m.refresh()
}

func (m *Model) refresh() tea.Cmd {
	var selected model.ID
	if it, ok := m.list.SelectedItem().(Item); ok {
		selected = it.Notification.ID
	}

	visible := notify.NewestFirst(m.snapshot.Items)
	if m.unreadOnly {
		visible = notify.Unread(visible)
	}

	items := make([]list.Item, len(visible))
	cursor := -1
	for i, n := range visible {
		items[i] = Item{Notification: n}
		if !selected.IsZero() && n.ID == selected {
			cursor = i
		}
	}
	cmd := m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
	return cmd
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// UnreadOnly reports whether read notifications are hidden.
func (m Model) UnreadOnly() bool { return m.unreadOnly }

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Open):
			return m, m.emit(ActionOpen)

		case key.Matches(msg, m.keys.MarkRead):
			return m, m.emit(ActionMarkRead)

		case key.Matches(msg, m.keys.Remove):
			return m, m.emit(ActionRemove)

		case key.Matches(msg, m.keys.UnreadOnly):
			m.unreadOnly = !m.unreadOnly
			if m.unreadOnly {
				m.list.Title = "Unread notifications"
			} else {
				m.list.Title = "Notifications"
			}
			return m, m.refresh()
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) emit(action Action) tea.Cmd {
	n, ok := m.Selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return ActionMsg{Action: action, ID: n.ID}
	}
}

// View renders the notification list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when nothing is visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.unreadOnly && len(m.snapshot.Items) > 0 {
		return style.Render("You're all caught up.\nPress u to show read notifications.")
	}

	return style.Render(
		"No notifications yet.\n\n" +
			"Press r to refresh or c to set up the connection.",
	)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

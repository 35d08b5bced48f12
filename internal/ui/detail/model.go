package detail

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// ActionMsg signals the parent to execute an action on the shown
// notification.
type ActionMsg struct {
	Action string
	ID     model.ID
}

// Detail actions.
const (
	ActionFollow   = "follow"
	ActionMarkRead = "mark_read"
	ActionRemove   = "remove"
)

// contactFields are rendered first, in this order, when present.
var contactFields = []string{"name", "email", "phone"}

// hiddenFields are shown elsewhere in the view or carry no display value.
var hiddenFields = []string{"message", "url", "redirect", "created_at", "count"}

// Model is the notification detail view component.
type Model struct {
	notification *model.Notification
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Open):
			return m, m.action(ActionFollow)

		case key.Matches(msg, m.keys.MarkRead):
			return m, m.action(ActionMarkRead)

		case key.Matches(msg, m.keys.Remove):
			return m, m.action(ActionRemove)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.notification == nil {
		return nil
	}
	id := m.notification.ID
	return func() tea.Msg {
		return ActionMsg{Action: name, ID: id}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No notification selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}

	n := m.notification
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(n.Title))

	state := "UNREAD"
	stateStyle := theme.UnreadMarkStyle
	if n.Read {
		state = "READ"
		stateStyle = theme.DimmedStyle
	}
	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.TypeStyle(n.Type).Render(strings.ToUpper(n.Type)),
		"  ",
		stateStyle.Render(state),
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-9s", label+":")), valStyle.Render(value))
	}

	sections = append(sections, row("ID", n.ID.String()))
	if t, ok := n.CreatedTime(); ok {
		sections = append(sections, row("Created", t.Local().Format("2006-01-02 15:04")))
	}
	if target, ok := n.Target(); ok {
		sections = append(sections, row("Link", target))
	}
	for _, k := range contactFields {
		if v := n.DataString(k); v != "" {
			sections = append(sections, row(capitalize(k), v))
		}
	}
	for _, k := range extraFields(n.Data) {
		sections = append(sections, row(k, n.DataString(k)))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(1, min(m.width-4, 80))))
	sections = append(sections, "", separator, "")

	body := n.Message()
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No message")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(20, m.width-4)).Render(body))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// extraFields returns the remaining data keys in a stable order.
func extraFields(data map[string]any) []string {
	var out []string
	for k, v := range data {
		if v == nil || slices.Contains(contactFields, k) || slices.Contains(hiddenFields, k) {
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SetNotification updates the notification being displayed.
func (m *Model) SetNotification(n model.Notification) {
	c := n.Clone()
	m.notification = &c
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders the shown notification from a newer copy, keeping
// the scroll position. It reports false when n is a different item.
func (m *Model) Refresh(n model.Notification) bool {
	if m.notification == nil || m.notification.ID != n.ID {
		return false
	}
	c := n.Clone()
	m.notification = &c
	m.viewport.SetContent(m.renderContent())
	return true
}

// Current returns the notification on screen.
func (m Model) Current() (model.Notification, bool) {
	if m.notification == nil {
		return model.Notification{}, false
	}
	return *m.notification, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.notification != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

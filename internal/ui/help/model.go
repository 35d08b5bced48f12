package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifybell/internal/keys"
	"github.com/nhle/notifybell/internal/theme"
	"github.com/nhle/notifybell/internal/ui/command"
)

// legendTypes are the notification kinds with a dedicated badge color.
var legendTypes = []string{"booking", "inquiry", "payment", "cancellation", "maintenance"}

// Model is the help overlay: key bindings, palette commands and a legend
// of the list markers.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	h.Width = width - 4
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	sections := []string{
		heading("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		heading("Commands"),
	}
	sections = append(sections, commandLines()...)
	sections = append(sections, "", heading("Legend"), legend())

	return theme.DetailPanelStyle.
		Width(max(0, m.width-4)).
		Height(max(0, m.height-4)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func heading(s string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render(s)
}

func commandLines() []string {
	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Width(12)
	lines := make([]string, 0, len(command.Commands))
	for _, c := range command.Commands {
		lines = append(lines, nameStyle.Render(":"+c.Name)+theme.HelpStyle.Render(c.Description))
	}
	return lines
}

func legend() string {
	parts := []string{theme.UnreadMarkStyle.Render("●") + theme.HelpStyle.Render(" unread  ")}
	for _, t := range legendTypes {
		parts = append(parts, theme.TypeStyle(t).Render(t), " ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

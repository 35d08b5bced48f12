package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notifybell/internal/theme"
)

// Layout splits the terminal into a navbar, a content area and a status
// bar, mirroring the dashboard page: the bell sits at the right end of
// the navbar and its dropdown opens beneath it.
type Layout struct {
	Width  int
	Height int
}

const (
	navbarHeight    = 1
	statusBarHeight = 1
)

// NewLayout creates a Layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left between the navbar and the status bar.
func (l Layout) ContentHeight() int {
	return max(0, l.Height-navbarHeight-statusBarHeight)
}

// Navbar renders the title on the left and the sync state followed by
// the bell on the right.
func (l Layout) Navbar(title, syncStatus, bell string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(syncStatus + "  " + bell)
	return l.spread(theme.HeaderStyle, left, right)
}

// StatusBar renders keyboard hints, or a failure message when alert is set.
func (l Layout) StatusBar(text string, alert bool) string {
	style := theme.StatusBarStyle
	if alert {
		style = style.Foreground(theme.ErrorStyle.GetForeground())
	}
	return l.spread(style, style.Render(text), "")
}

// Dropdown anchors a panel to the top right corner of the content area.
func (l Layout) Dropdown(panel string) string {
	return lipgloss.Place(
		l.ContentWidth(),
		l.ContentHeight(),
		lipgloss.Right,
		lipgloss.Top,
		panel,
	)
}

// Frame stacks navbar, content and status bar.
func (l Layout) Frame(navbar, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, navbar, content, statusBar)
}

// spread pads the gap between left and right with the bar background.
func (l Layout) spread(bar lipgloss.Style, left, right string) string {
	gap := max(0, l.Width-lipgloss.Width(left)-lipgloss.Width(right))
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(bar.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

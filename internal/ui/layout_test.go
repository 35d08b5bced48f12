package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestContentHeight(t *testing.T) {
	assert.Equal(t, 22, NewLayout(80, 24).ContentHeight())
	assert.Equal(t, 0, NewLayout(80, 1).ContentHeight())
}

func TestNavbar_BellOnTheRight(t *testing.T) {
	l := NewLayout(60, 10)
	bar := l.Navbar("Villa Notifications", "synced 10:00", "[bell 3]")

	assert.Equal(t, 60, lipgloss.Width(bar))
	assert.True(t, strings.HasSuffix(strings.TrimRight(bar, " "), "[bell 3]"))
	assert.True(t, strings.Index(bar, "Villa") < strings.Index(bar, "synced"))
}

func TestDropdown_AnchoredTopRight(t *testing.T) {
	l := NewLayout(40, 6)
	out := l.Dropdown("panel")

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, l.ContentHeight())
	assert.True(t, strings.HasSuffix(lines[0], "panel"))
	assert.Equal(t, 40, lipgloss.Width(lines[0]))
}

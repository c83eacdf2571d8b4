// Package tui holds the building blocks of the cookiesweep terminal UI.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Component is the interface for all TUI components.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Component, tea.Cmd)
	View() string

	// SetSize sets the component dimensions.
	SetSize(width, height int)
	Width() int
	Height() int
}

// Messages

// RefreshMsg is sent when the cookie cache finished a coalesced refresh.
// It carries nothing; receivers re-query the cache.
type RefreshMsg struct{}

// CopyMsg asks the view to put Content on the clipboard.
type CopyMsg struct {
	Content string
}

// Colors shared by the components.
const (
	ColorAccent    = lipgloss.Color("62")
	ColorKey       = lipgloss.Color("214")
	ColorText      = lipgloss.Color("252")
	ColorDim       = lipgloss.Color("243")
	ColorBorder    = lipgloss.Color("240")
	ColorOK        = lipgloss.Color("34")
	ColorError     = lipgloss.Color("160")
	ColorHighlight = lipgloss.Color("229")
	ColorBar       = lipgloss.Color("236")
)

// RenderTitle renders a full-width title bar.
func RenderTitle(title string, width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Bold(true).
		Foreground(ColorHighlight).
		Background(ColorAccent).
		Padding(0, 1).
		Render(title)
}

// RenderBorder renders content inside a rounded border.
func RenderBorder(content string, width, height int, focused bool) string {
	color := ColorBorder
	if focused {
		color = ColorAccent
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Render(content)
}

// Truncate shortens s to width cells, ending with "..." when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// PadRight pads or cuts s to exactly width cells.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w >= width {
		return Truncate(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}

// PadLeft right-aligns s in width cells.
func PadLeft(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}

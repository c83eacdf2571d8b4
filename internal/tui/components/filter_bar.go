package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/cookiesweep/internal/tui"
)

// FilterBar edits the domain substring filter.
type FilterBar struct {
	value   string
	editing bool
	width   int
	matches int
	total   int
}

// NewFilterBar creates an empty filter bar.
func NewFilterBar() *FilterBar {
	return &FilterBar{}
}

// Value returns the filter text.
func (f *FilterBar) Value() string {
	return f.value
}

// SetValue replaces the filter text.
func (f *FilterBar) SetValue(v string) {
	f.value = v
}

// Editing reports whether the bar is taking input.
func (f *FilterBar) Editing() bool {
	return f.editing
}

// Start begins editing.
func (f *FilterBar) Start() {
	f.editing = true
}

// Stop ends editing and keeps the filter.
func (f *FilterBar) Stop() {
	f.editing = false
}

// Reset clears the filter and ends editing.
func (f *FilterBar) Reset() {
	f.value = ""
	f.editing = false
}

// SetCounts sets the match feedback shown next to the filter.
func (f *FilterBar) SetCounts(matches, total int) {
	f.matches = matches
	f.total = total
}

// SetWidth sets the rendered width.
func (f *FilterBar) SetWidth(width int) {
	f.width = width
}

// HandleKey applies an editing key and reports whether the value changed.
func (f *FilterBar) HandleKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace:
		if f.value == "" {
			return false
		}
		runes := []rune(f.value)
		f.value = string(runes[:len(runes)-1])
		return true
	case tea.KeyCtrlU:
		if f.value == "" {
			return false
		}
		f.value = ""
		return true
	case tea.KeySpace:
		f.value += " "
		return true
	case tea.KeyRunes:
		f.value += string(msg.Runes)
		return true
	}
	return false
}

// View renders the bar.
func (f *FilterBar) View() string {
	style := lipgloss.NewStyle().Foreground(tui.ColorDim)
	if f.editing {
		style = lipgloss.NewStyle().Foreground(tui.ColorKey).Bold(true)
	}

	content := "/ " + f.value
	switch {
	case f.editing:
		content += "▌"
	case f.value == "":
		content += lipgloss.NewStyle().Foreground(tui.ColorDim).Render("filter domains...")
	}

	counts := fmt.Sprintf(" %d/%d domains", f.matches, f.total)
	countStyle := lipgloss.NewStyle().Foreground(tui.ColorOK)
	if f.matches == 0 && f.value != "" {
		countStyle = countStyle.Foreground(tui.ColorError)
	}

	line := style.Render(content) + countStyle.Render(counts)
	if f.width > 0 {
		line = lipgloss.NewStyle().Width(f.width).MaxWidth(f.width).Render(line)
	}
	return line
}

package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/cookiesweep/internal/tui"
)

// Row is one domain in the table.
type Row struct {
	Domain    string
	Site      string
	Count     int
	Protected bool
}

// DomainTable lists cached domains with their cookie counts.
type DomainTable struct {
	rows     []Row
	cursor   int
	offset   int
	width    int
	height   int
	gPressed bool
}

// NewDomainTable creates an empty table.
func NewDomainTable() *DomainTable {
	return &DomainTable{}
}

// Init implements tui.Component.
func (t *DomainTable) Init() tea.Cmd {
	return nil
}

// SetRows replaces the rows. The cursor stays on the same domain when it is
// still listed, otherwise it is clamped to the new length.
func (t *DomainTable) SetRows(rows []Row) {
	selected, hadSelection := t.Selected()
	t.rows = rows

	if hadSelection {
		for i, r := range rows {
			if r.Domain == selected.Domain {
				t.cursor = i
				t.offset = AdjustOffset(t.cursor, t.offset, t.visibleRows())
				return
			}
		}
	}
	t.cursor = MoveCursor(t.cursor, 0, len(rows))
	t.offset = AdjustOffset(t.cursor, min(t.offset, t.cursor), t.visibleRows())
}

// Rows returns the current rows.
func (t *DomainTable) Rows() []Row {
	return t.rows
}

// Selected returns the row under the cursor.
func (t *DomainTable) Selected() (Row, bool) {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return Row{}, false
	}
	return t.rows[t.cursor], true
}

// Cursor returns the cursor index.
func (t *DomainTable) Cursor() int {
	return t.cursor
}

// Update handles navigation keys.
func (t *DomainTable) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		t.move(-1)
	case tea.KeyDown:
		t.move(1)
	case tea.KeyCtrlU, tea.KeyPgUp:
		t.move(-max(t.visibleRows()/2, 1))
	case tea.KeyCtrlD, tea.KeyPgDown:
		t.move(max(t.visibleRows()/2, 1))
	case tea.KeyHome:
		t.move(-len(t.rows))
	case tea.KeyEnd:
		t.move(len(t.rows))
	case tea.KeyRunes:
		switch string(keyMsg.Runes) {
		case "k":
			t.move(-1)
		case "j":
			t.move(1)
		case "G":
			t.move(len(t.rows))
		case "g":
			if t.gPressed {
				t.move(-len(t.rows))
				t.gPressed = false
				return t, nil
			}
			t.gPressed = true
			return t, nil
		}
	}

	t.gPressed = false
	return t, nil
}

func (t *DomainTable) move(delta int) {
	t.cursor = MoveCursor(t.cursor, delta, len(t.rows))
	t.offset = AdjustOffset(t.cursor, t.offset, t.visibleRows())
}

// visibleRows is the number of data rows that fit below the header.
func (t *DomainTable) visibleRows() int {
	return max(t.height-1, 1)
}

// View renders the header and the visible rows.
func (t *DomainTable) View() string {
	if t.width <= 0 {
		return ""
	}

	countWidth := 7
	siteWidth := min(24, t.width/3)
	domainWidth := max(t.width-countWidth-siteWidth-4, 8)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(tui.ColorDim)
	header := headerStyle.Render(
		"  " + tui.PadRight("DOMAIN", domainWidth) + " " +
			tui.PadRight("SITE", siteWidth) + " " +
			tui.PadLeft("COOKIES", countWidth),
	)

	lines := []string{header}
	if len(t.rows) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(tui.ColorDim).Render("  no cookies"))
		return strings.Join(lines, "\n")
	}

	end := min(t.offset+t.visibleRows(), len(t.rows))
	for i := t.offset; i < end; i++ {
		lines = append(lines, t.renderRow(t.rows[i], i == t.cursor, domainWidth, siteWidth, countWidth))
	}
	return strings.Join(lines, "\n")
}

func (t *DomainTable) renderRow(r Row, selected bool, domainWidth, siteWidth, countWidth int) string {
	marker := "  "
	if r.Protected {
		marker = "● "
	}

	line := marker +
		tui.PadRight(r.Domain, domainWidth) + " " +
		tui.PadRight(r.Site, siteWidth) + " " +
		tui.PadLeft(fmt.Sprintf("%d", r.Count), countWidth)

	style := lipgloss.NewStyle().Foreground(tui.ColorText)
	if r.Protected {
		style = style.Foreground(tui.ColorOK)
	}
	if selected {
		style = style.Background(tui.ColorAccent).Foreground(tui.ColorHighlight).Bold(true)
	}
	return style.Render(line)
}

// SetSize implements tui.Component.
func (t *DomainTable) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.offset = AdjustOffset(t.cursor, t.offset, t.visibleRows())
}

// Width implements tui.Component.
func (t *DomainTable) Width() int {
	return t.width
}

// Height implements tui.Component.
func (t *DomainTable) Height() int {
	return t.height
}

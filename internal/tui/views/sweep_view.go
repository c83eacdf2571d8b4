// Package views holds the top-level screens of the terminal UI.
package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/cookies"
	"github.com/artpar/cookiesweep/internal/tui"
	"github.com/artpar/cookiesweep/internal/tui/components"
)

// Source is the cookie cache the view renders and deletes from.
type Source interface {
	Domains(filter string) []string
	CookieCount(domain string) int
	IsProtected(domain string) bool
	Stats() cache.Stats
	DeleteDomain(ctx context.Context, domain string) (cache.Result, error)
	DeleteFiltered(ctx context.Context, filter string) (cache.Result, error)
	DeleteAllExceptProtected(ctx context.Context) (cache.Result, error)
	Resync(ctx context.Context) error
}

// Delete scopes reported in DeleteDoneMsg.
const (
	ScopeDomain   = "domain"
	ScopeFiltered = "filtered"
	ScopeAll      = "all"
)

// DeleteDomainMsg requests deletion of every cookie under Domain.
type DeleteDomainMsg struct {
	Domain string
}

// DeleteFilteredMsg requests deletion of every cookie under the domains matching Filter.
type DeleteFilteredMsg struct {
	Filter string
}

// DeleteAllMsg requests deletion of every cookie outside protected domains.
type DeleteAllMsg struct{}

// DeleteDoneMsg reports that the removal requests were issued. The table
// changes later, when the store's notifications trigger a refresh.
type DeleteDoneMsg struct {
	Scope  string
	Target string
	Result cache.Result
	Err    error
}

type resyncDoneMsg struct {
	err error
}

type clearNotificationMsg struct{}

// SweepView is the main screen: a filterable domain table with deletion commands.
type SweepView struct {
	ctx    context.Context
	source Source

	table  *components.DomainTable
	filter *components.FilterBar
	mode   tui.Mode

	stats    cache.Stats
	pending  tea.Msg // deletion waiting for confirmation
	prompt   string
	showHelp bool

	notification string
	width        int
	height       int

	copy func(string) error
}

// NewSweepView creates the view. ctx bounds the deletion requests it issues.
func NewSweepView(ctx context.Context, source Source) *SweepView {
	v := &SweepView{
		ctx:    ctx,
		source: source,
		table:  components.NewDomainTable(),
		filter: components.NewFilterBar(),
		mode:   tui.ModeNormal,
		copy:   clipboard.WriteAll,
	}
	v.reload()
	return v
}

// Init implements tui.Component.
func (v *SweepView) Init() tea.Cmd {
	return nil
}

// Update implements tui.Component.
func (v *SweepView) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)
		return v, nil

	case tui.RefreshMsg:
		v.reload()
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case DeleteDomainMsg:
		return v, v.deleteCmd(ScopeDomain, msg.Domain, func(ctx context.Context) (cache.Result, error) {
			return v.source.DeleteDomain(ctx, msg.Domain)
		})

	case DeleteFilteredMsg:
		return v, v.deleteCmd(ScopeFiltered, msg.Filter, func(ctx context.Context) (cache.Result, error) {
			return v.source.DeleteFiltered(ctx, msg.Filter)
		})

	case DeleteAllMsg:
		return v, v.deleteCmd(ScopeAll, "", v.source.DeleteAllExceptProtected)

	case DeleteDoneMsg:
		return v, v.notify(describeDelete(msg))

	case resyncDoneMsg:
		if msg.err != nil {
			return v, v.notify("✗ Resync failed")
		}
		return v, v.notify("✓ Resynced")

	case tui.CopyMsg:
		if err := v.copy(msg.Content); err != nil {
			return v, v.notify("✗ Copy failed")
		}
		return v, v.notify("✓ Copied " + msg.Content)

	case clearNotificationMsg:
		v.notification = ""
		return v, nil
	}

	return v, nil
}

func (v *SweepView) handleKeyMsg(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return v, tea.Quit
	}

	if v.showHelp {
		if msg.Type == tea.KeyEsc || string(msg.Runes) == "?" {
			v.showHelp = false
		}
		return v, nil
	}

	switch v.mode {
	case tui.ModeFilter:
		return v.handleFilterKey(msg)
	case tui.ModeConfirm:
		return v.handleConfirmKey(msg)
	}

	switch msg.Type {
	case tea.KeyEsc:
		v.resetFilter()
		return v, nil
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			return v, tea.Quit
		case "?":
			v.showHelp = true
			return v, nil
		case "/":
			v.mode = tui.ModeFilter
			v.filter.Start()
			return v, nil
		case "d", "x":
			row, ok := v.table.Selected()
			if !ok {
				return v, nil
			}
			return v, emit(DeleteDomainMsg{Domain: row.Domain})
		case "D":
			filter := v.filter.Value()
			matches := len(v.table.Rows())
			v.confirm(DeleteFilteredMsg{Filter: filter},
				fmt.Sprintf("Delete cookies of %d domains matching %q?", matches, filter))
			return v, nil
		case "X":
			v.confirm(DeleteAllMsg{},
				fmt.Sprintf("Delete all cookies except protected domains (%s)?", v.protectedSummary()))
			return v, nil
		case "y":
			row, ok := v.table.Selected()
			if !ok {
				return v, nil
			}
			return v, emit(tui.CopyMsg{Content: row.Domain})
		case "r":
			return v, v.resyncCmd()
		}
	}

	_, cmd := v.table.Update(msg)
	return v, cmd
}

func (v *SweepView) handleFilterKey(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.resetFilter()
		return v, nil
	case tea.KeyEnter:
		v.filter.Stop()
		v.mode = tui.ModeNormal
		return v, nil
	}

	if v.filter.HandleKey(msg) {
		v.reload()
	}
	return v, nil
}

func (v *SweepView) handleConfirmKey(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	pending := v.pending
	v.pending = nil
	v.prompt = ""
	v.mode = tui.ModeNormal

	if msg.Type == tea.KeyEnter || string(msg.Runes) == "y" || string(msg.Runes) == "Y" {
		return v, emit(pending)
	}
	return v, v.notify("Cancelled")
}

func (v *SweepView) confirm(msg tea.Msg, prompt string) {
	v.pending = msg
	v.prompt = prompt
	v.mode = tui.ModeConfirm
}

// resetFilter clears the filter and shows every domain again.
func (v *SweepView) resetFilter() {
	v.filter.Reset()
	v.mode = tui.ModeNormal
	v.reload()
}

// reload re-reads the cache into the table.
func (v *SweepView) reload() {
	domains := v.source.Domains(v.filter.Value())
	rows := make([]components.Row, 0, len(domains))
	for _, d := range domains {
		rows = append(rows, components.Row{
			Domain:    d,
			Site:      cookies.Site(d),
			Count:     v.source.CookieCount(d),
			Protected: v.source.IsProtected(d),
		})
	}
	v.table.SetRows(rows)
	v.stats = v.source.Stats()
	v.filter.SetCounts(len(rows), v.stats.Domains)
}

func (v *SweepView) deleteCmd(scope, target string, run func(ctx context.Context) (cache.Result, error)) tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		result, err := run(ctx)
		return DeleteDoneMsg{Scope: scope, Target: target, Result: result, Err: err}
	}
}

func (v *SweepView) resyncCmd() tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		return resyncDoneMsg{err: v.source.Resync(ctx)}
	}
}

func (v *SweepView) notify(text string) tea.Cmd {
	v.notification = text
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

func (v *SweepView) protectedSummary() string {
	kept := 0
	for _, d := range v.source.Domains("") {
		if v.source.IsProtected(d) {
			kept++
		}
	}
	if kept == 0 {
		return "none cached"
	}
	return fmt.Sprintf("%d kept", kept)
}

func describeDelete(msg DeleteDoneMsg) string {
	what := "cookies"
	switch msg.Scope {
	case ScopeDomain:
		what = msg.Target
	case ScopeFiltered:
		if msg.Target != "" {
			what = fmt.Sprintf("domains matching %q", msg.Target)
		}
	case ScopeAll:
		what = "unprotected domains"
	}

	if msg.Result.Failed > 0 {
		return fmt.Sprintf("✗ %d of %d removals failed for %s", msg.Result.Failed, msg.Result.Requested, what)
	}
	if msg.Err != nil {
		return "✗ Delete interrupted: " + msg.Err.Error()
	}
	return fmt.Sprintf("✓ Requested %d removals for %s", msg.Result.Requested, what)
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View implements tui.Component.
func (v *SweepView) View() string {
	if v.width == 0 || v.height == 0 {
		return ""
	}
	if v.showHelp {
		return v.renderHelp()
	}

	title := tui.RenderTitle(fmt.Sprintf("cookiesweep  %d cookies in %d domains", v.stats.Cookies, v.stats.Domains), v.width)
	body := tui.RenderBorder(v.table.View(), v.width-2, v.tableHeight(), true)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		v.filter.View(),
		body,
		v.renderHelpBar(),
		v.renderStatusBar(),
	)
}

// tableHeight leaves room for the title, filter, help and status bars and the border.
func (v *SweepView) tableHeight() int {
	return max(v.height-6, 1)
}

func (v *SweepView) renderHelpBar() string {
	keyStyle := lipgloss.NewStyle().Foreground(tui.ColorKey).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(tui.ColorText)
	sep := lipgloss.NewStyle().Foreground(tui.ColorBorder).Render(" │ ")

	hint := func(key, desc string) string {
		return keyStyle.Render(key) + descStyle.Render(" "+desc)
	}

	var hints []string
	switch v.mode {
	case tui.ModeFilter:
		hints = []string{hint("Enter", "Apply"), hint("Esc", "Reset"), hint("Ctrl+U", "Clear")}
	case tui.ModeConfirm:
		hints = []string{hint("y", "Confirm"), hint("any", "Cancel")}
	default:
		hints = []string{
			hint("j/k", "Navigate"),
			hint("/", "Filter"),
			hint("d", "Delete domain"),
			hint("D", "Delete filtered"),
			hint("X", "Delete all"),
			hint("y", "Copy"),
			hint("?", "Help"),
			hint("q", "Quit"),
		}
	}

	return lipgloss.NewStyle().
		Width(v.width).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Render(strings.Join(hints, sep))
}

func (v *SweepView) renderStatusBar() string {
	modeStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch v.mode {
	case tui.ModeFilter:
		modeStyle = modeStyle.Background(tui.ColorKey).Foreground(lipgloss.Color("0"))
	case tui.ModeConfirm:
		modeStyle = modeStyle.Background(tui.ColorError).Foreground(lipgloss.Color("255"))
	default:
		modeStyle = modeStyle.Background(tui.ColorOK).Foreground(lipgloss.Color("255"))
	}
	items := []string{modeStyle.Render(v.mode.String())}

	if v.prompt != "" {
		items = append(items, lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(v.prompt))
	}

	if v.notification != "" {
		notifyStyle := lipgloss.NewStyle().Foreground(tui.ColorOK).Bold(true).Padding(0, 1)
		if strings.HasPrefix(v.notification, "✗") {
			notifyStyle = notifyStyle.Foreground(tui.ColorError)
		}
		items = append(items, notifyStyle.Render(v.notification))
	}

	return lipgloss.NewStyle().
		Width(v.width).
		Background(tui.ColorBar).
		Render(strings.Join(items, " "))
}

func (v *SweepView) renderHelp() string {
	help := []string{
		"╭──────────────── cookiesweep help ────────────────╮",
		"│                                                  │",
		"│  j / k, ↑ / ↓      Move down/up                  │",
		"│  gg / G            Go to top/bottom              │",
		"│  Ctrl+D / Ctrl+U   Half page down/up             │",
		"│                                                  │",
		"│  /                 Filter domains                │",
		"│  Esc               Reset filter                  │",
		"│                                                  │",
		"│  d / x             Delete selected domain        │",
		"│  D                 Delete all filtered domains   │",
		"│  X                 Delete all but protected      │",
		"│  y                 Copy domain                   │",
		"│  r                 Reload from the store         │",
		"│                                                  │",
		"│  ?                 Toggle this help              │",
		"│  q / Ctrl+C        Quit                          │",
		"╰──────────────────────────────────────────────────╯",
	}

	return lipgloss.NewStyle().
		Width(v.width).
		Height(v.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(help, "\n"))
}

// SetSize implements tui.Component.
func (v *SweepView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.filter.SetWidth(width)
	v.table.SetSize(width-4, v.tableHeight())
}

// Width implements tui.Component.
func (v *SweepView) Width() int {
	return v.width
}

// Height implements tui.Component.
func (v *SweepView) Height() int {
	return v.height
}

// Mode returns the input mode.
func (v *SweepView) Mode() tui.Mode {
	return v.mode
}

// Filter returns the active filter.
func (v *SweepView) Filter() string {
	return v.filter.Value()
}

// Table returns the domain table.
func (v *SweepView) Table() *components.DomainTable {
	return v.table
}

// Notification returns the status bar notification.
func (v *SweepView) Notification() string {
	return v.notification
}

// Prompt returns the pending confirmation question.
func (v *SweepView) Prompt() string {
	return v.prompt
}

// ShowingHelp reports whether the help overlay is shown.
func (v *SweepView) ShowingHelp() bool {
	return v.showHelp
}

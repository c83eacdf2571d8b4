package harness

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/cookies"
	"github.com/artpar/cookiesweep/internal/cookies/sqlite"
	"github.com/artpar/cookiesweep/internal/tui"
	"github.com/artpar/cookiesweep/internal/tui/views"
)

// cmdWait bounds how long a command may take to produce its message.
// Notification ticks take seconds and are dropped.
const cmdWait = 200 * time.Millisecond

// TUIRunner provides TUI testing capabilities.
type TUIRunner struct {
	harness *E2EHarness
}

// TUISession drives a SweepView over the harness store without a terminal.
// Refreshes requested by the cache are delivered as tui.RefreshMsg on the
// next key press or output poll.
type TUISession struct {
	runner  *TUIRunner
	model   *views.SweepView
	t       *testing.T
	store   *sqlite.Store
	manager *cache.Manager

	refreshes atomic.Int32
	quit      bool
}

// Start starts a new TUI session.
func (r *TUIRunner) Start(t *testing.T) *TUISession {
	return r.StartWithSize(t, 120, 40)
}

// StartWithSize starts a TUI session with custom dimensions.
func (r *TUIRunner) StartWithSize(t *testing.T, width, height int) *TUISession {
	t.Helper()

	store, err := sqlite.New(r.harness.StorePath())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &TUISession{
		runner: r,
		t:      t,
		store:  store,
	}
	s.manager = cache.New(store,
		cache.WithProtected(r.harness.protected...),
		cache.WithRefreshDelay(20*time.Millisecond),
		cache.WithRefreshFunc(func() { s.refreshes.Add(1) }),
	)
	if err := s.manager.Start(ctx); err != nil {
		cancel()
		store.Close()
		t.Fatalf("failed to start cache: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		s.manager.Stop()
		store.Close()
	})

	s.model = views.NewSweepView(ctx, s.manager)
	s.update(tea.WindowSizeMsg{Width: width, Height: height})
	return s
}

func (s *TUISession) update(msg tea.Msg) {
	updated, cmd := s.model.Update(msg)
	s.model = updated.(*views.SweepView)
	s.executeCmd(cmd)
}

// executeCmd executes a tea.Cmd and processes the resulting message.
func (s *TUISession) executeCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}

	out := make(chan tea.Msg, 1)
	go func() {
		out <- cmd()
	}()

	var msg tea.Msg
	select {
	case msg = <-out:
	case <-time.After(cmdWait):
		return
	}

	switch msg.(type) {
	case nil:
		return
	case tea.QuitMsg:
		s.quit = true
		return
	}

	// Feed the message back into Update, which may chain further commands.
	s.update(msg)
}

// deliverRefreshes feeds pending cache refreshes into the view.
func (s *TUISession) deliverRefreshes() {
	if s.refreshes.Swap(0) > 0 {
		s.update(tui.RefreshMsg{})
	}
}

// SendKey sends a key press.
func (s *TUISession) SendKey(key string) *TUISession {
	s.deliverRefreshes()
	s.update(parseKeyMsg(key))
	return s
}

// SendKeys sends multiple key presses.
func (s *TUISession) SendKeys(keys ...string) *TUISession {
	for _, key := range keys {
		s.SendKey(key)
	}
	return s
}

// Type sends a sequence of rune keys.
func (s *TUISession) Type(text string) *TUISession {
	for _, r := range text {
		s.deliverRefreshes()
		s.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return s
}

// SetCookie writes a cookie to the store while the session is running.
func (s *TUISession) SetCookie(c *cookies.Cookie) *TUISession {
	if err := s.store.Set(context.Background(), c); err != nil {
		s.t.Fatalf("failed to set cookie: %v", err)
	}
	return s
}

// WaitForOutput waits for specific text in output.
func (s *TUISession) WaitForOutput(text string) error {
	return s.waitFor(text, true)
}

// WaitForOutputGone waits until text disappears from the output.
func (s *TUISession) WaitForOutputGone(text string) error {
	return s.waitFor(text, false)
}

func (s *TUISession) waitFor(text string, present bool) error {
	timeout := s.runner.harness.timeout
	deadline := time.Now().Add(timeout)
	pollInterval := 10 * time.Millisecond

	for time.Now().Before(deadline) {
		s.deliverRefreshes()
		if strings.Contains(s.Output(), text) == present {
			return nil
		}
		time.Sleep(pollInterval)
	}

	return &TimeoutError{text: text, timeout: timeout}
}

// Output returns the current TUI output.
func (s *TUISession) Output() string {
	return s.model.View()
}

// Quitting reports whether the view asked the program to exit.
func (s *TUISession) Quitting() bool {
	return s.quit
}

// Model returns the underlying SweepView for direct assertions.
func (s *TUISession) Model() *views.SweepView {
	return s.model
}

// Domains returns the domains currently listed.
func (s *TUISession) Domains() []string {
	var out []string
	for _, row := range s.model.Table().Rows() {
		out = append(out, row.Domain)
	}
	return out
}

// ShowingHelp returns true if help overlay is visible.
func (s *TUISession) ShowingHelp() bool {
	return s.model.ShowingHelp()
}

// TimeoutError represents a timeout waiting for output.
type TimeoutError struct {
	text    string
	timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "timeout after " + e.timeout.String() + " waiting for: " + e.text
}

// parseKeyMsg converts key string to tea.KeyMsg.
func parseKeyMsg(key string) tea.KeyMsg {
	switch strings.ToLower(key) {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc", "escape":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

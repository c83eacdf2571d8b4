package views

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/tui"
)

type fakeSource struct {
	counts    map[string]int
	protected []string
	deleted   []string
	resyncs   int
	failed    int
	resyncErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		counts: map[string]int{
			".ads.example.com": 3,
			"example.com":      2,
			"github.com":       1,
			"news.org":         4,
		},
		protected: []string{"github"},
	}
}

func (f *fakeSource) Domains(filter string) []string {
	var out []string
	for d := range f.counts {
		if strings.Contains(d, filter) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

func (f *fakeSource) CookieCount(domain string) int {
	return f.counts[domain]
}

func (f *fakeSource) IsProtected(domain string) bool {
	for _, kw := range f.protected {
		if strings.Contains(domain, kw) {
			return true
		}
	}
	return false
}

func (f *fakeSource) Stats() cache.Stats {
	total := 0
	for _, n := range f.counts {
		total += n
	}
	return cache.Stats{Domains: len(f.counts), Cookies: total}
}

func (f *fakeSource) DeleteDomain(_ context.Context, domain string) (cache.Result, error) {
	f.deleted = append(f.deleted, domain)
	return cache.Result{Requested: f.counts[domain], Failed: f.failed}, nil
}

func (f *fakeSource) DeleteFiltered(_ context.Context, filter string) (cache.Result, error) {
	var r cache.Result
	for _, d := range f.Domains(filter) {
		f.deleted = append(f.deleted, d)
		r.Requested += f.counts[d]
	}
	return r, nil
}

func (f *fakeSource) DeleteAllExceptProtected(_ context.Context) (cache.Result, error) {
	var r cache.Result
	for _, d := range f.Domains("") {
		if f.IsProtected(d) {
			continue
		}
		f.deleted = append(f.deleted, d)
		r.Requested += f.counts[d]
	}
	return r, nil
}

func (f *fakeSource) Resync(context.Context) error {
	f.resyncs++
	return f.resyncErr
}

func newTestView(t *testing.T, src *fakeSource) *SweepView {
	t.Helper()
	v := NewSweepView(context.Background(), src)
	v.SetSize(100, 30)
	return v
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs the returned command, if any.
func press(t *testing.T, v *SweepView, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := v.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func domainsOf(v *SweepView) []string {
	var out []string
	for _, r := range v.Table().Rows() {
		out = append(out, r.Domain)
	}
	return out
}

func TestSweepView_LoadsDomains(t *testing.T) {
	v := newTestView(t, newFakeSource())

	assert.Equal(t, []string{".ads.example.com", "example.com", "github.com", "news.org"}, domainsOf(v))
	rows := v.Table().Rows()
	assert.Equal(t, "example.com", rows[0].Site)
	assert.Equal(t, 3, rows[0].Count)
	assert.True(t, rows[2].Protected)
	assert.False(t, rows[3].Protected)
	assert.Equal(t, tui.ModeNormal, v.Mode())
}

func TestSweepView_Filter(t *testing.T) {
	t.Run("typing narrows the list", func(t *testing.T) {
		v := newTestView(t, newFakeSource())

		v.Update(key("/"))
		assert.Equal(t, tui.ModeFilter, v.Mode())

		v.Update(key("e"))
		v.Update(key("x"))
		assert.Equal(t, "ex", v.Filter())
		assert.Equal(t, []string{".ads.example.com", "example.com"}, domainsOf(v))

		v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, tui.ModeNormal, v.Mode())
		assert.Equal(t, "ex", v.Filter())
	})

	t.Run("escape resets the filter", func(t *testing.T) {
		v := newTestView(t, newFakeSource())

		v.Update(key("/"))
		v.Update(key("n"))
		v.Update(key("e"))
		v.Update(key("w"))
		assert.Equal(t, []string{"news.org"}, domainsOf(v))

		v.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Equal(t, tui.ModeNormal, v.Mode())
		assert.Empty(t, v.Filter())
		assert.Len(t, domainsOf(v), 4)
	})

	t.Run("escape in normal mode clears an applied filter", func(t *testing.T) {
		v := newTestView(t, newFakeSource())

		v.Update(key("/"))
		v.Update(key("hub"))
		v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, []string{"github.com"}, domainsOf(v))

		v.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Len(t, domainsOf(v), 4)
	})

	t.Run("q is typed while filtering", func(t *testing.T) {
		v := newTestView(t, newFakeSource())

		v.Update(key("/"))
		_, cmd := v.Update(key("q"))
		assert.Nil(t, cmd)
		assert.Equal(t, "q", v.Filter())
	})
}

func TestSweepView_DeleteDomain(t *testing.T) {
	src := newFakeSource()
	v := newTestView(t, src)

	v.Update(key("j"))
	msg := press(t, v, key("d"))
	require.Equal(t, DeleteDomainMsg{Domain: "example.com"}, msg)

	done := press(t, v, msg)
	require.IsType(t, DeleteDoneMsg{}, done)
	assert.Equal(t, []string{"example.com"}, src.deleted)

	v.Update(done)
	assert.Contains(t, v.Notification(), "Requested 2 removals for example.com")

	// The table only changes when the cache reports a refresh.
	assert.Len(t, domainsOf(v), 4)
	delete(src.counts, "example.com")
	v.Update(tui.RefreshMsg{})
	assert.Equal(t, []string{".ads.example.com", "github.com", "news.org"}, domainsOf(v))
}

func TestSweepView_DeleteReportsFailures(t *testing.T) {
	src := newFakeSource()
	src.failed = 1
	v := newTestView(t, src)

	msg := press(t, v, key("d"))
	done := press(t, v, msg)
	v.Update(done)

	assert.True(t, strings.HasPrefix(v.Notification(), "✗"))
	assert.Contains(t, v.Notification(), "1 of 3 removals failed")
}

func TestSweepView_DeleteFilteredNeedsConfirmation(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		src := newFakeSource()
		v := newTestView(t, src)

		v.Update(key("/"))
		v.Update(key("e"))
		v.Update(key("x"))
		v.Update(tea.KeyMsg{Type: tea.KeyEnter})

		_, cmd := v.Update(key("D"))
		assert.Nil(t, cmd)
		assert.Equal(t, tui.ModeConfirm, v.Mode())
		assert.Contains(t, v.Prompt(), `2 domains matching "ex"`)
		assert.Empty(t, src.deleted)

		msg := press(t, v, key("y"))
		require.Equal(t, DeleteFilteredMsg{Filter: "ex"}, msg)
		assert.Equal(t, tui.ModeNormal, v.Mode())

		press(t, v, msg)
		assert.Equal(t, []string{".ads.example.com", "example.com"}, src.deleted)
	})

	t.Run("cancelled", func(t *testing.T) {
		src := newFakeSource()
		v := newTestView(t, src)

		v.Update(key("D"))
		require.Equal(t, tui.ModeConfirm, v.Mode())

		_, cmd := v.Update(key("n"))
		require.NotNil(t, cmd)
		assert.Equal(t, tui.ModeNormal, v.Mode())
		assert.Empty(t, v.Prompt())
		assert.Equal(t, "Cancelled", v.Notification())
		assert.Empty(t, src.deleted)
	})
}

func TestSweepView_DeleteAllExceptProtected(t *testing.T) {
	src := newFakeSource()
	v := newTestView(t, src)

	v.Update(key("X"))
	require.Equal(t, tui.ModeConfirm, v.Mode())
	assert.Contains(t, v.Prompt(), "1 kept")

	msg := press(t, v, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, DeleteAllMsg{}, msg)

	done := press(t, v, msg)
	assert.Equal(t, []string{".ads.example.com", "example.com", "news.org"}, src.deleted)

	v.Update(done)
	assert.Contains(t, v.Notification(), "Requested 9 removals for unprotected domains")
}

func TestSweepView_Copy(t *testing.T) {
	v := newTestView(t, newFakeSource())
	var copied string
	v.copy = func(s string) error {
		copied = s
		return nil
	}

	msg := press(t, v, key("y"))
	require.Equal(t, tui.CopyMsg{Content: ".ads.example.com"}, msg)

	v.Update(msg)
	assert.Equal(t, ".ads.example.com", copied)
	assert.Equal(t, "✓ Copied .ads.example.com", v.Notification())

	v.copy = func(string) error { return errors.New("no clipboard") }
	v.Update(msg)
	assert.Equal(t, "✗ Copy failed", v.Notification())

	v.Update(clearNotificationMsg{})
	assert.Empty(t, v.Notification())
}

func TestSweepView_Resync(t *testing.T) {
	src := newFakeSource()
	v := newTestView(t, src)

	done := press(t, v, key("r"))
	assert.Equal(t, 1, src.resyncs)
	v.Update(done)
	assert.Equal(t, "✓ Resynced", v.Notification())

	src.resyncErr = errors.New("store gone")
	v.Update(press(t, v, key("r")))
	assert.Equal(t, "✗ Resync failed", v.Notification())
}

func TestSweepView_Help(t *testing.T) {
	v := newTestView(t, newFakeSource())

	v.Update(key("?"))
	assert.True(t, v.ShowingHelp())
	assert.Contains(t, v.View(), "cookiesweep help")

	// Keys other than close are swallowed.
	v.Update(key("d"))
	assert.True(t, v.ShowingHelp())

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.ShowingHelp())
}

func TestSweepView_Quit(t *testing.T) {
	v := newTestView(t, newFakeSource())

	_, cmd := v.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSweepView_View(t *testing.T) {
	t.Run("empty before sizing", func(t *testing.T) {
		v := NewSweepView(context.Background(), newFakeSource())
		assert.Empty(t, v.View())
	})

	t.Run("renders counts table and mode", func(t *testing.T) {
		v := newTestView(t, newFakeSource())
		out := v.View()

		assert.Contains(t, out, "10 cookies in 4 domains")
		assert.Contains(t, out, "news.org")
		assert.Contains(t, out, "NORMAL")
		assert.Contains(t, out, "Delete domain")
	})

	t.Run("shows the confirmation prompt", func(t *testing.T) {
		v := newTestView(t, newFakeSource())
		v.Update(key("X"))
		out := v.View()

		assert.Contains(t, out, "CONFIRM")
		assert.Contains(t, out, "Confirm")
	})

	t.Run("resizes with the window", func(t *testing.T) {
		v := newTestView(t, newFakeSource())
		v.Update(tea.WindowSizeMsg{Width: 60, Height: 12})

		assert.Equal(t, 60, v.Width())
		assert.Equal(t, 12, v.Height())
		assert.Equal(t, 56, v.Table().Width())
	})
}

package harness

import (
	"slices"
	"strings"
	"testing"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// Assertions provides E2E-specific assertions.
type Assertions struct {
	t *testing.T
}

// NewAssertions creates an assertions helper.
func NewAssertions(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// OutputContains asserts the output contains all given strings.
func (a *Assertions) OutputContains(output string, expected ...string) {
	a.t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			a.t.Errorf("expected output to contain %q, got:\n%s", exp, truncate(output, 500))
		}
	}
}

// OutputNotContains asserts the output does not contain any of the given strings.
func (a *Assertions) OutputNotContains(output string, unexpected ...string) {
	a.t.Helper()
	for _, unexp := range unexpected {
		if strings.Contains(output, unexp) {
			a.t.Errorf("expected output NOT to contain %q, got:\n%s", unexp, truncate(output, 500))
		}
	}
}

// HelpVisible asserts the help overlay is visible.
func (a *Assertions) HelpVisible(output string) {
	a.t.Helper()
	if !strings.Contains(output, "cookiesweep help") {
		a.t.Errorf("help overlay not visible in output:\n%s", truncate(output, 500))
	}
}

// HelpNotVisible asserts the help overlay is not visible.
func (a *Assertions) HelpNotVisible(output string) {
	a.t.Helper()
	if strings.Contains(output, "cookiesweep help") {
		a.t.Errorf("help overlay should not be visible, but found 'cookiesweep help' in output")
	}
}

// ModeVisible asserts the status bar shows mode.
func (a *Assertions) ModeVisible(output string, mode string) {
	a.t.Helper()
	if !strings.Contains(output, mode) {
		a.t.Errorf("expected mode %q in output:\n%s", mode, truncate(output, 500))
	}
}

// NoError asserts the output doesn't contain error indicators.
func (a *Assertions) NoError(output string) {
	a.t.Helper()
	errorIndicators := []string{"Error:", "error:", "panic:", "✗"}
	for _, ind := range errorIndicators {
		if strings.Contains(output, ind) {
			a.t.Errorf("unexpected error in output: found %q in:\n%s", ind, truncate(output, 500))
			return
		}
	}
}

// StoreHolds asserts the store contains exactly the given domain/name pairs.
func (a *Assertions) StoreHolds(stored []*cookies.Cookie, expected ...string) {
	a.t.Helper()
	got := make([]string, 0, len(stored))
	for _, c := range stored {
		got = append(got, c.Domain+"/"+c.Name)
	}
	slices.Sort(got)
	want := slices.Clone(expected)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		a.t.Errorf("store holds %v, want %v", got, want)
	}
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}

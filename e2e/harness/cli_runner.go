package harness

import (
	"bytes"
	"context"
	"time"

	"github.com/artpar/cookiesweep/internal/cli"
)

// CLIResult holds CLI execution results.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CLIRunner executes CLI commands against the harness store.
type CLIRunner struct {
	harness *E2EHarness
}

// Run executes a CLI command with the given arguments.
func (r *CLIRunner) Run(args ...string) (*CLIResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.harness.timeout)
	defer cancel()

	start := time.Now()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	args = append(args, "--config", r.harness.ConfigPath(), "--store", r.harness.StorePath())
	for _, kw := range r.harness.protected {
		args = append(args, "--protected", kw)
	}

	cmd := cli.NewRootCommand("test")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	result := &CLIResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = 1
	}

	return result, err
}

// List runs the list command.
func (r *CLIRunner) List(opts ...string) (*CLIResult, error) {
	return r.Run(append([]string{"list"}, opts...)...)
}

// DeleteDomain deletes the cookies of one domain.
func (r *CLIRunner) DeleteDomain(domain string) (*CLIResult, error) {
	return r.Run("delete", "--domain", domain)
}

// DeleteFiltered deletes the cookies of every domain matching filter.
func (r *CLIRunner) DeleteFiltered(filter string) (*CLIResult, error) {
	return r.Run("delete", "--filter", filter)
}

// DeleteAll deletes every cookie outside protected domains.
func (r *CLIRunner) DeleteAll() (*CLIResult, error) {
	return r.Run("delete", "--all")
}

// Import imports a browser cookie file.
func (r *CLIRunner) Import(path string, opts ...string) (*CLIResult, error) {
	return r.Run(append([]string{"import", path}, opts...)...)
}

// Fetch fetches url with the stored cookies.
func (r *CLIRunner) Fetch(url string) (*CLIResult, error) {
	return r.Run("fetch", url)
}

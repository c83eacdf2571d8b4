package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// FetchOptions holds options for the fetch command.
type FetchOptions struct {
	Timeout time.Duration
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(root *RootOptions) *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a URL and keep the cookies it sets",
		Long: `Send a GET request with the stored cookies and save every cookie the
server sets, redirects included.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Request timeout")

	return cmd
}

func runFetch(cmd *cobra.Command, root *RootOptions, opts *FetchOptions, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid URL: %s", rawURL)
	}

	e, err := root.load(cmd)
	if err != nil {
		return err
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	jar, err := cookies.NewJar(ctx, store, e.logger)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	client := &http.Client{Jar: jar, Timeout: opts.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", resp.Status)
	for _, c := range resp.Cookies() {
		fmt.Fprintf(out, "  set %s\n", c.Name)
	}
	fmt.Fprintf(out, "%d cookies now sent to %s\n", len(jar.Cookies(u)), u.Host)
	return nil
}

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/cookiesweep/internal/server"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Addr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(root *RootOptions) *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print refresh summaries from a running server",
		Long: `Connect to the event stream of a running "cookiesweep serve" and print a
summary every time the cache finishes a refresh. Bursts of cookie changes are
coalesced into one refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Server address (default server.listen from the config)")

	return cmd
}

func runWatch(cmd *cobra.Command, root *RootOptions, opts *WatchOptions) error {
	e, err := root.load(cmd)
	if err != nil {
		return err
	}

	addr := opts.Addr
	if addr == "" {
		addr = e.config.Server.Listen
	}
	eventsURL, err := server.EventsURL(addr)
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	e.logger.Debug("watching", "url", eventsURL)
	return server.Watch(ctx, eventsURL, func(ev server.Event) {
		fmt.Fprintf(out, "%s: %d domains, %d cookies (refresh #%d)\n",
			ev.Type, ev.Stats.Domains, ev.Stats.Cookies, ev.Stats.Refreshes)
	})
}

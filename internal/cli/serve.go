package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/cookiesweep/internal/cookies/sqlite"
	"github.com/artpar/cookiesweep/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Listen         string
	AllowedOrigins []string
	PurgeInterval  time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(root *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cookie cache over HTTP",
		Long: `Serve the domain list and deletion commands over a local HTTP API, with a
websocket stream of refresh events at /api/events.

Examples:
  cookiesweep serve
  cookiesweep serve --listen 127.0.0.1:9000 --origin http://localhost:3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "Listen address (default server.listen from the config)")
	cmd.Flags().StringArrayVar(&opts.AllowedOrigins, "origin", nil, "Allowed websocket origin (repeatable)")
	cmd.Flags().DurationVar(&opts.PurgeInterval, "purge-interval", time.Hour, "How often expired cookies are purged (0 disables)")

	return cmd
}

func runServe(cmd *cobra.Command, root *RootOptions, opts *ServeOptions) error {
	e, err := root.load(cmd)
	if err != nil {
		return err
	}

	listen := opts.Listen
	if listen == "" {
		listen = e.config.Server.Listen
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	purgeExpired(ctx, store, e)

	mgr := e.newManager(store)
	srv := server.New(mgr,
		server.WithListenAddr(listen),
		server.WithAllowedOrigins(opts.AllowedOrigins...),
		server.WithLogger(e.logger),
	)
	mgr.OnRefresh(srv.Refresh)

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API listening on http://%s\n", srv.ListenAddr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mgr.Run(gctx)
	})
	if opts.PurgeInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(opts.PurgeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					purgeExpired(gctx, store, e)
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	return g.Wait()
}

// purgeExpired deletes expired cookies; the store reports each removal to the cache.
func purgeExpired(ctx context.Context, store *sqlite.Store, e *env) {
	n, err := store.DeleteExpired(ctx)
	if err != nil {
		e.logger.Warn("failed to purge expired cookies", "error", err)
		return
	}
	if n > 0 {
		e.logger.Info("purged expired cookies", "count", n)
	}
}

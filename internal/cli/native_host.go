package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/cookiesweep/internal/nativehost"
)

// NewNativeHostCommand creates the native-host command.
func NewNativeHostCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "native-host [ORIGIN]",
		Short: "Run as a browser native messaging host",
		Long: `Mirror the browser's cookie store over the native messaging protocol on
stdin and stdout. The browser extension starts this command; it exits when the
browser closes the pipe. Logs go to stderr.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := root.load(cmd)
			if err != nil {
				return err
			}
			return runNativeHost(cmd.Context(), e, os.Stdin, os.Stdout)
		},
	}

	return cmd
}

// runNativeHost serves one browser connection until it is closed.
func runNativeHost(ctx context.Context, e *env, r io.Reader, w io.Writer) error {
	conn := nativehost.NewConn(r, w, e.logger)
	store := nativehost.NewBrowserStore(conn)
	defer store.Close()

	mgr := e.newManager(store)
	host := nativehost.NewHost(conn, store, mgr, e.logger)
	mgr.OnRefresh(host.Refresh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return conn.Serve(gctx, host)
	})
	g.Go(func() error {
		if err := mgr.Start(gctx); err != nil {
			if gctx.Err() != nil || errors.Is(err, nativehost.ErrClosed) {
				return nil
			}
			return err
		}
		defer mgr.Stop()
		return mgr.Run(gctx)
	})

	err := g.Wait()
	e.logger.Info("browser disconnected", "cookies", mgr.TotalCookies())
	return err
}

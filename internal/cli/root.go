package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/config"
	"github.com/artpar/cookiesweep/internal/cookies"
	"github.com/artpar/cookiesweep/internal/cookies/sqlite"
	"github.com/artpar/cookiesweep/internal/logging"
	"github.com/artpar/cookiesweep/internal/tui"
	"github.com/artpar/cookiesweep/internal/tui/views"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	ConfigPath string
	StorePath  string
	LogLevel   string
	LogFormat  string
	Protected  []string
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cookiesweep",
		Short: "cookiesweep - browse and delete cookies by domain",
		Long: `cookiesweep mirrors a cookie store in memory, grouped by domain, and deletes
cookies per domain, per filter, or everywhere except protected domains.

Without a subcommand it opens the terminal UI over the local cookie store.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", config.DefaultPath(), "Config file")
	flags.StringVar(&opts.StorePath, "store", "", "Cookie database (overrides store.path)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log format: text or json")
	flags.StringArrayVar(&opts.Protected, "protected", nil, "Protected domain keyword (repeatable, replaces the configured list)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewNativeHostCommand(opts))

	return cmd
}

// env is the configuration and logger a command runs with.
type env struct {
	config config.Config
	logger *slog.Logger
}

// load reads the config file and applies flag overrides.
func (o *RootOptions) load(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if len(o.Protected) > 0 {
		cfg.Protected = o.Protected
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	return &env{config: cfg, logger: logger}, nil
}

// openStore opens the sqlite cookie store, creating its directory.
func (e *env) openStore() (*sqlite.Store, error) {
	path := e.config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie store: %w", err)
	}
	return store, nil
}

// newManager builds a cache over store using the configured protection list.
func (e *env) newManager(store cookies.Store, opts ...cache.Option) *cache.Manager {
	base := []cache.Option{
		cache.WithLogger(e.logger),
		cache.WithProtected(e.config.Protected...),
		cache.WithResyncInterval(e.config.ResyncInterval),
	}
	return cache.New(store, append(base, opts...)...)
}

// tuiModel wraps the SweepView for bubbletea
type tuiModel struct {
	view *views.SweepView
}

func (m tuiModel) Init() tea.Cmd {
	return m.view.Init()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.view.Update(msg)
	m.view = updated.(*views.SweepView)
	return m, cmd
}

func (m tuiModel) View() string {
	return m.view.View()
}

// runTUI starts the TUI application
func runTUI(cmd *cobra.Command, opts *RootOptions) error {
	e, err := opts.load(cmd)
	if err != nil {
		return err
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Log lines would corrupt the alternate screen.
	e.logger = logging.Nop()
	mgr := e.newManager(store)
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Stop()

	model := tuiModel{
		view: views.NewSweepView(ctx, mgr),
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	mgr.OnRefresh(func() {
		p.Send(tui.RefreshMsg{})
	})
	go mgr.Run(ctx)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	return nil
}

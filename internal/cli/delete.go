package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/cookiesweep/internal/cache"
)

// DeleteOptions holds options for the delete command.
type DeleteOptions struct {
	Domain string
	Filter string
	All    bool
}

// scopes reports how many deletion scopes were selected.
func (o *DeleteOptions) scopes() int {
	n := 0
	if o.Domain != "" {
		n++
	}
	if o.Filter != "" {
		n++
	}
	if o.All {
		n++
	}
	return n
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(root *RootOptions) *cobra.Command {
	opts := &DeleteOptions{}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete cookies by domain, by filter, or all but protected",
		Long: `Delete cookies from the store. Exactly one scope must be given.

Examples:
  # One domain, exactly as listed
  cookiesweep delete --domain .example.com

  # Every domain containing "tracker"
  cookiesweep delete --filter tracker

  # Everything except domains matching a protected keyword
  cookiesweep delete --all --protected google --protected github`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.scopes() != 1 {
				return errors.New("exactly one of --domain, --filter or --all is required")
			}
			return runDelete(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Domain, "domain", "", "Delete the cookies of this domain")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Delete the cookies of every domain containing this text")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Delete every cookie outside protected domains")

	return cmd
}

func runDelete(cmd *cobra.Command, root *RootOptions, opts *DeleteOptions) error {
	e, err := root.load(cmd)
	if err != nil {
		return err
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := e.newManager(store)
	ctx := cmd.Context()
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Stop()

	var (
		result cache.Result
		what   string
	)
	switch {
	case opts.Domain != "":
		what = opts.Domain
		result, err = mgr.DeleteDomain(ctx, opts.Domain)
	case opts.Filter != "":
		what = fmt.Sprintf("domains matching %q", opts.Filter)
		result, err = mgr.DeleteFiltered(ctx, opts.Filter)
	default:
		what = "all domains"
		if kw := mgr.Protected(); len(kw) > 0 {
			what += " except " + strings.Join(kw, ", ")
		}
		result, err = mgr.DeleteAllExceptProtected(ctx)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Deleted %d cookies from %s\n", result.Requested-result.Failed, what)
	if result.Failed > 0 {
		fmt.Fprintf(out, "%d removals failed\n", result.Failed)
	}
	return err
}

package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/cookiesweep/internal/cookies"
	"github.com/artpar/cookiesweep/internal/server"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Filter string
	JSON   bool
}

// NewListCommand creates the list command.
func NewListCommand(root *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cookie domains with their cookie counts",
		Long: `List every domain that has cookies in the store, sorted by name.

Examples:
  # All domains
  cookiesweep list

  # Domains containing "google"
  cookiesweep list --filter google

  # Machine-readable output
  cookiesweep list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "Only domains containing this text (case-sensitive)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func runList(cmd *cobra.Command, root *RootOptions, opts *ListOptions) error {
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
	if err := mgr.Start(cmd.Context()); err != nil {
		return err
	}
	defer mgr.Stop()

	resp := server.DomainsResponse{
		Filter:  opts.Filter,
		Domains: []server.DomainEntry{},
	}
	for _, d := range mgr.Domains(opts.Filter) {
		resp.Domains = append(resp.Domains, server.DomainEntry{
			Domain:    d,
			Site:      cookies.Site(d),
			Count:     mgr.CookieCount(d),
			Protected: mgr.IsProtected(d),
		})
	}
	resp.Total = mgr.TotalDomains()

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tSITE\tCOOKIES\tPROTECTED")
	for _, d := range resp.Domains {
		protected := ""
		if d.Protected {
			protected = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Domain, d.Site, d.Count, protected)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d domains, %d cookies total\n", len(resp.Domains), resp.Total, mgr.TotalCookies())
	return nil
}

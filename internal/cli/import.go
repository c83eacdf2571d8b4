package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/cookiesweep/internal/cookies/browser"
)

// ImportOptions holds options for the import command.
type ImportOptions struct {
	Domain string
}

// NewImportCommand creates the import command.
func NewImportCommand(root *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import PATH",
		Short: "Import cookies from a browser cookie file",
		Long: `Import cookies into the store from a Firefox cookies.sqlite, an unencrypted
Chrome Cookies database, or a Netscape cookies.txt file. The format is detected
from the file contents. Expired cookies are skipped.

Examples:
  cookiesweep import ~/.mozilla/firefox/abc.default/cookies.sqlite
  cookiesweep import cookies.txt --domain example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Domain, "domain", "", "Only import cookies for this domain and its subdomains")

	return cmd
}

func runImport(cmd *cobra.Command, root *RootOptions, opts *ImportOptions, path string) error {
	e, err := root.load(cmd)
	if err != nil {
		return err
	}

	imported, src, err := browser.Import(path, opts.Domain, e.logger)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	stored := 0
	for _, c := range imported {
		if err := store.Set(ctx, c); err != nil {
			e.logger.Warn("failed to store cookie", "domain", c.Domain, "name", c.Name, "error", err)
			continue
		}
		stored++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d cookies from %s (%s)\n", stored, len(imported), src.Path, src.Format)
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := openIndexer()
			if err != nil {
				return err
			}
			defer func() { _ = ix.Close() }()

			if err := ix.Reload(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cfg := ix.Config()
			location := cfg.Path
			if location == "" {
				location = "(in-memory)"
			}
			fmt.Fprintf(out, "Index:     %s\n", location)
			fmt.Fprintf(out, "Documents: %d\n", ix.NumDocs())
			fmt.Fprintf(out, "Language:  %s\n", cfg.Language)
			fmt.Fprintf(out, "Reload:    %s\n", cfg.Reload)
			fmt.Fprintln(out, "Fields:")
			for _, f := range ix.Schema().Fields() {
				attrs := ""
				if f.Stored {
					attrs += " stored"
				}
				if f.Indexed {
					attrs += " indexed"
				}
				if f.Tokenized {
					attrs += " tokenized"
				}
				if f.Fast {
					attrs += " fast"
				}
				fmt.Fprintf(out, "  %-12s %s%s\n", f.Name, f.Type, attrs)
			}
			return nil
		},
	}
}

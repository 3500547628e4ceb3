package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	fields []string
	limit  int
	offset int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a ranked multi-field search",
		Long: `Search the index, scoring the query across the given fields.

Examples:
  docdex search "turing machine" --fields title,content
  docdex search history --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.fields, "fields", "f", nil, "Fields to score across (default: all indexed)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of leading results to skip")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ix, err := openIndexer()
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	hits, err := ix.Search(query, opts.fields, opts.limit, opts.offset)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	for i, hit := range hits {
		fmt.Fprintf(out, "%2d. score=%.4f id=%s\n", opts.offset+i+1, hit.Score, hit.ID)
		for _, f := range ix.Schema().Fields() {
			if v, ok := hit.Fields[f.Name]; ok {
				fmt.Fprintf(out, "    %s: %v\n", f.Name, v)
			}
		}
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docdex/internal/input"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	inputType string
	renames   []string
	converts  []string
	add       bool
	clear     bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <files...>",
		Short: "Ingest documents into the index",
		Long: `Ingest one or more input files into the index.

Each file is parsed per its declared format, mapped onto the schema via
the given rename and conversion rules, and written as an update batch:
documents carrying the id field replace any previous version. The batch
is committed and the snapshot reloaded before the command exits.

Examples:
  docdex index posts.json
  docdex index wiki.xml --rename '$value=content' --convert id:string:number
  docdex index data.yaml --add`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.inputType, "type", "t", "", "Input format: json, yaml, xml (default: by extension)")
	cmd.Flags().StringArrayVar(&opts.renames, "rename", nil, "Rename rule source=target (repeatable, ordered)")
	cmd.Flags().StringArrayVar(&opts.converts, "convert", nil, "Conversion rule field:from:to (repeatable)")
	cmd.Flags().BoolVar(&opts.add, "add", false, "Plain insert, no update-by-id dedup")
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Clear the index before ingesting")

	return cmd
}

func runIndex(cmd *cobra.Command, files []string, opts indexOptions) error {
	renames, err := parseRenames(opts.renames)
	if err != nil {
		return err
	}
	conversions, err := parseConversions(opts.converts)
	if err != nil {
		return err
	}

	ix, err := openIndexer()
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	updater, err := ix.Updater()
	if err != nil {
		return err
	}
	defer func() { _ = updater.Close() }()

	if opts.clear {
		if err := updater.Clear(); err != nil {
			return err
		}
	}

	for _, file := range files {
		t, err := inferInputType(file, opts.inputType)
		if err != nil {
			return err
		}
		data, err := readInputFile(file)
		if err != nil {
			return err
		}
		cfg := input.NewConfig(t, renames, conversions)
		if opts.add {
			err = updater.Add(data, cfg)
		} else {
			err = updater.Update(data, cfg)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	pending := updater.Pending()
	if err := updater.Commit(); err != nil {
		return err
	}
	if err := ix.Reload(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Committed %d operations; index now holds %d documents\n",
		pending, ix.NumDocs())
	return nil
}

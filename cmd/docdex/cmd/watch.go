package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docdex/internal/indexer"
	"github.com/Aman-CERP/docdex/internal/input"
	"github.com/Aman-CERP/docdex/internal/watcher"
)

// watchOptions holds CLI flags for watch.
type watchOptions struct {
	inputType string
	renames   []string
	converts  []string
	debounce  time.Duration
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <files...>",
		Short: "Re-ingest input files whenever they change",
		Long: `Watch input files and re-ingest each one on change, using
update-by-id semantics so edited documents replace their previous
versions. Runs until interrupted.

Example:
  docdex watch posts.json --convert id:string:number`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.inputType, "type", "t", "", "Input format: json, yaml, xml (default: by extension)")
	cmd.Flags().StringArrayVar(&opts.renames, "rename", nil, "Rename rule source=target (repeatable, ordered)")
	cmd.Flags().StringArrayVar(&opts.converts, "convert", nil, "Conversion rule field:from:to (repeatable)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 200*time.Millisecond, "Quiet period before re-ingesting")

	return cmd
}

func runWatch(cmd *cobra.Command, files []string, opts watchOptions) error {
	renames, err := parseRenames(opts.renames)
	if err != nil {
		return err
	}
	conversions, err := parseConversions(opts.converts)
	if err != nil {
		return err
	}
	// Fail on un-inferable types before anything is opened. Keyed by
	// absolute path to match watcher events.
	types := make(map[string]input.Type, len(files))
	for _, f := range files {
		t, err := inferInputType(f, opts.inputType)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		types[abs] = t
	}

	ix, err := openIndexer()
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	w, err := watcher.New(files, watcher.Options{DebounceWindow: opts.debounce}, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d files (ctrl-c to stop)\n", len(files))
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return <-done
			}
			if ev.Removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s removed; leaving indexed documents in place\n", ev.Path)
				continue
			}
			cfg := input.NewConfig(types[ev.Path], renames, conversions)
			if err := ingestFile(ix, ev.Path, cfg); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "re-ingest %s failed: %v\n", ev.Path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "re-ingested %s; %d documents\n", ev.Path, ix.NumDocs())
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// ingestFile updates the index from one changed file: extract, commit,
// reload, so the change is immediately searchable.
func ingestFile(ix *indexer.Indexer, path string, cfg input.Config) error {
	data, err := readInputFile(path)
	if err != nil {
		return err
	}
	updater, err := ix.Updater()
	if err != nil {
		return err
	}
	defer func() { _ = updater.Close() }()

	if err := updater.Update(data, cfg); err != nil {
		return err
	}
	if err := updater.Commit(); err != nil {
		return err
	}
	return ix.Reload()
}

// Package cmd implements the docdex command tree.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docdex/internal/indexer"
	"github.com/Aman-CERP/docdex/internal/input"
	"github.com/Aman-CERP/docdex/internal/logging"
	"github.com/Aman-CERP/docdex/internal/schema"
	"github.com/Aman-CERP/docdex/internal/value"
)

// rootOptions holds global CLI flags.
type rootOptions struct {
	configPath string
	logLevel   string
}

var rootOpts rootOptions

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Schema-driven document indexing and search",
		Long: `docdex ingests structured documents (JSON, YAML, XML), normalizes
them against a declared schema, and indexes them for ranked full-text
search.

The index is declared in a YAML config file (see configs/docdex.yaml)
listing the typed fields, the storage path, and the reload policy.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logCfg := logging.DefaultConfig()
			logCfg.Level = rootOpts.logLevel
			_, err := logging.SetupDefault(logCfg)
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(&rootOpts.configPath, "config", "c", "docdex.yaml", "Index config file")
	cmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// openIndexer loads the index config and opens the index.
func openIndexer() (*indexer.Indexer, error) {
	cfg, err := schema.LoadConfig(rootOpts.configPath)
	if err != nil {
		return nil, err
	}
	return indexer.OpenOrCreate(cfg)
}

// inferInputType guesses the input format from a file extension when the
// --type flag is not given.
func inferInputType(path, flagValue string) (input.Type, error) {
	if flagValue != "" {
		return input.ParseInputType(flagValue)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return input.TypeJSON, nil
	case ".yaml", ".yml":
		return input.TypeYAML, nil
	case ".xml":
		return input.TypeXML, nil
	default:
		return "", fmt.Errorf("cannot infer input type of %s; use --type", path)
	}
}

// parseRenames parses repeated --rename src=dst flags, keeping order.
func parseRenames(specs []string) ([]input.Rename, error) {
	renames := make([]input.Rename, 0, len(specs))
	for _, spec := range specs {
		src, dst, ok := strings.Cut(spec, "=")
		if !ok || src == "" || dst == "" {
			return nil, fmt.Errorf("invalid rename %q, want source=target", spec)
		}
		renames = append(renames, input.Rename{Source: src, Target: dst})
	}
	return renames, nil
}

// parseConversions parses repeated --convert field:from:to flags.
func parseConversions(specs []string) ([]input.Conversion, error) {
	convs := make([]input.Conversion, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid conversion %q, want field:from:to", spec)
		}
		from, err := value.ParseType(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid conversion %q: %w", spec, err)
		}
		to, err := value.ParseType(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid conversion %q: %w", spec, err)
		}
		convs = append(convs, input.Conversion{Field: parts[0], From: from, To: to})
	}
	return convs, nil
}

func readInputFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

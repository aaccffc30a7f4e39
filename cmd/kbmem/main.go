package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/am"
	"github.com/teranos/kbmem/cmd/kbmem/commands"
	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
)

var rootCmd = &cobra.Command{
	Use:   "kbmem",
	Short: "kbmem - path-addressed knowledge base store",
	Long: `kbmem - Hierarchical, path-addressed knowledge bases.

Knowledge bases are trees of dot-separated paths (kb.label.name...) with a
JSON value at each node. kbmem builds them from YAML plans, stores them in
SQLite or Postgres, and queries them with wildcard patterns, word
predicates and ancestor/descendant operators.

Available commands:
  build  - Build knowledge bases from a YAML plan and export them
  query  - Query stored paths by pattern, word predicate or operator
  find   - Narrow entries by knowledge base, label, name and properties
  stats  - Show store statistics and recent sync runs
  dump   - Print every entry as YAML or JSON
  sync   - Sync the configured table with another table
  config - Show or initialize configuration
  version - Show version information

Examples:
  kbmem build plan.yaml
  kbmem query 'animals.*.mammals.**'
  kbmem query --op '<@' animals.class
  kbmem find --kb animals --label species --key legs
  kbmem config show`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs := false
		if cfg, err := am.Load(); err == nil {
			jsonLogs = cfg.Log.JSON
		}
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.BuildCmd)
	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.FindCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.DumpCmd)
	rootCmd.AddCommand(commands.SyncCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Errorw("Command failed", logger.FieldError, err)
		logger.Cleanup()
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/pathstore"
	"github.com/teranos/kbmem/storage"
)

// SyncCmd syncs the configured table with another table
var SyncCmd = &cobra.Command{
	Use:   "sync --table <other>",
	Short: "Sync the configured table with another table",
	Long: `Load the configured table into memory, then sync it with --table:
  import  merge --table into memory and report what was read
  export  write the configured table's entries into --table
  both    merge --table into memory, then write the union back to --table

Every run is recorded in sync_runs and shown by 'kbmem stats'.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var (
	syncDirection string
	syncTable     string
)

func init() {
	SyncCmd.Flags().StringVar(&syncDirection, "direction", pathstore.DirectionBoth, "import, export or both")
	SyncCmd.Flags().StringVar(&syncTable, "table", "", "Table to sync with")
	SyncCmd.MarkFlagRequired("table")
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := storage.ValidateTable(syncTable); err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := s.loadStore(ctx)
	if err != nil {
		return err
	}

	stats, err := s.syncLog.RunSync(ctx, store, s.backend, syncTable, syncDirection, s.exportOptions())
	if err != nil {
		return errors.Wrapf(err, "sync %s with %s", s.cfg.Store.Table, syncTable)
	}

	pterm.Success.Printf("Synced %s with %s: %d imported, %d exported\n",
		s.cfg.Store.Table, syncTable, stats.Imported, stats.Exported)
	return writeStorageMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer)
}

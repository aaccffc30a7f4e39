package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/search"
)

// StatsCmd shows store statistics
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics, storage operations and recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsLimit int

func init() {
	StatsCmd.Flags().IntVar(&statsLimit, "limit", 5, "Number of recent sync runs to show")
}

func runStats(cmd *cobra.Command, args []string) error {
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
	st := store.Stats()
	idx := search.New(store, logger.Logger).Stats()

	pterm.DefaultSection.Println("Knowledge base store")
	data := pterm.TableData{
		{"Driver", s.dialect.String()},
		{"Table", s.cfg.Store.Table},
		{"Entries", fmt.Sprint(st.Total)},
		{"Roots", fmt.Sprint(st.RootCount)},
		{"Leaves", fmt.Sprint(st.LeafCount)},
		{"Max depth", fmt.Sprint(st.MaxDepth)},
		{"Avg depth", fmt.Sprintf("%.2f", st.AvgDepth)},
		{"Knowledge bases", fmt.Sprint(idx.KBs)},
		{"Labels", fmt.Sprint(idx.Labels)},
		{"Names", fmt.Sprint(idx.Names)},
	}
	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Storage operations")
	if err := writeStorageMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer); err != nil {
		return err
	}

	runs, err := s.syncLog.Recent(ctx, s.cfg.Store.Table, statsLimit)
	if err != nil {
		s.log.Warnw("Failed to read sync runs", logger.FieldError, err)
		return nil
	}

	pterm.DefaultSection.Println("Recent sync runs")
	if len(runs) == 0 {
		pterm.Info.Println("No sync runs recorded yet")
		return nil
	}
	rows := pterm.TableData{{"STARTED", "DIRECTION", "IMPORTED", "EXPORTED", "ERROR"}}
	for _, r := range runs {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		rows = append(rows, []string{
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Direction,
			fmt.Sprint(r.Stats.Imported),
			fmt.Sprint(r.Stats.Exported),
			errText,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

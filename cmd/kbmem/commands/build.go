package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/construct"
	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/pathstore"
	"github.com/teranos/kbmem/storage"
)

// BuildCmd builds knowledge bases from a YAML plan
var BuildCmd = &cobra.Command{
	Use:   "build <plan.yaml>",
	Short: "Build knowledge bases from a YAML plan and export them",
	Long: `Build knowledge bases from a YAML plan.

Every knowledge base in the plan is built in memory with balanced header
scopes, then exported to the configured table. Knowledge base descriptions,
link mounts and links are recorded in <table>_info, <table>_link_mount and
<table>_link. Registry rows of the knowledge bases named by the plan are
replaced, so the same plan can be built again.

With --dry-run the plan is built and checked but nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var buildDryRun bool

func init() {
	BuildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Build and check the plan without writing to the database")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to open plan %s", args[0])
	}
	defer f.Close()

	plan, err := construct.LoadPlan(f)
	if err != nil {
		return errors.Wrapf(err, "failed to load plan %s", args[0])
	}

	store := pathstore.New(logger.Logger)

	if buildDryRun {
		b := construct.NewBuilder(store, nil, logger.Logger)
		if err := plan.Apply(ctx, b); err != nil {
			return err
		}
		printBuildSummary(b)
		pterm.Info.Println("Dry run: nothing written")
		return nil
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	registry, err := storage.NewSQLRegistry(s.db, s.dialect, s.cfg.Store.Table, logger.Logger)
	if err != nil {
		return err
	}
	if err := registry.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := plan.Reset(ctx, registry); err != nil {
		return err
	}

	b := construct.NewBuilder(store, registry, logger.Logger)
	if err := plan.Apply(ctx, b); err != nil {
		return err
	}

	stats, err := s.syncLog.RunSync(ctx, store, s.backend, s.cfg.Store.Table, pathstore.DirectionExport, s.exportOptions())
	if err != nil {
		return errors.Wrap(err, "failed to export built knowledge bases")
	}

	printBuildSummary(b)
	pterm.Success.Printf("Exported %d entries to %s\n", stats.Exported, s.cfg.Store.Table)
	return nil
}

func printBuildSummary(b *construct.Builder) {
	for _, name := range b.KBNames() {
		st, err := b.KBStats(name)
		if err != nil {
			continue
		}
		pterm.Printf("  %s %s: %s entries\n", pterm.Gray("→"), pterm.LightCyan(name), pterm.Green(st.Entries))
	}
}

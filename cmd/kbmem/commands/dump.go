package commands

import (
	"github.com/spf13/cobra"
)

// DumpCmd prints every stored entry
var DumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every entry as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

var dumpFormat string

func init() {
	DumpCmd.Flags().StringVar(&dumpFormat, "format", formatYAML, "Output format: yaml or json")
}

func runDump(cmd *cobra.Command, args []string) error {
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
	return writeEntries(cmd.OutOrStdout(), store.Entries(), dumpFormat)
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/am"
	"github.com/teranos/kbmem/errors"
)

// ConfigCmd manages configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
	Long: `Configuration is merged from, lowest precedence first:
  /etc/kbmem/am.toml
  ~/.kbmem/am.toml
  am.toml in the working directory or the nearest parent
  KBMEM_* environment variables (KBMEM_STORE_TABLE, KBMEM_DATABASE_DSN, ...)`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings and where they came from",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default am.toml",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var (
	configShowJSON bool
	configForce    bool
)

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "Print settings as JSON")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file (previous versions are kept as .back1-3)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings, err := am.Introspect()
	if err != nil {
		return err
	}

	if configShowJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	}

	rows := pterm.TableData{{"KEY", "VALUE", "SOURCE", "FROM"}}
	for _, s := range settings {
		rows = append(rows, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := am.ProjectConfigName
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return errors.WithHint(errors.Newf("%s already exists", path), "use --force to overwrite it")
	}

	if err := am.WriteFile(path, am.Default()); err != nil {
		return err
	}
	pterm.Success.Printf("Wrote %s\n", path)
	return nil
}

package commands

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/pathstore"
	"github.com/teranos/kbmem/search"
)

// FindCmd narrows entries with chained search predicates
var FindCmd = &cobra.Command{
	Use:   "find",
	Short: "Narrow entries by knowledge base, label, name and properties",
	Long: `Narrow the stored entries with chained predicates. Each flag keeps only
entries that also passed the flags before it, in this order:
  --kb, --label, --name, --from, --key, --value, --op/--operand

Paths need at least three labels (kb.label.name) to be found by --kb,
--label or --name.

--value takes key=value; value is parsed as JSON when possible, so
legs=4 matches the number 4 and sound=woof matches the string "woof".`,
	Args: cobra.NoArgs,
	RunE: runFind,
}

var (
	findKB      string
	findLabel   string
	findName    string
	findFrom    string
	findKey     string
	findValue   string
	findOp      string
	findOperand string
	findFormat  string
	findKeys    bool
)

func init() {
	FindCmd.Flags().StringVar(&findKB, "kb", "", "Knowledge base (first label)")
	FindCmd.Flags().StringVar(&findLabel, "label", "", "Label (second to last label)")
	FindCmd.Flags().StringVar(&findName, "name", "", "Name (last label)")
	FindCmd.Flags().StringVar(&findFrom, "from", "", "Keep this path and its descendants")
	FindCmd.Flags().StringVar(&findKey, "key", "", "Value must hold this property key")
	FindCmd.Flags().StringVar(&findValue, "value", "", "Value must hold key=value")
	FindCmd.Flags().StringVar(&findOp, "op", "", "Path operator (@>, <@, ~, @@, ?)")
	FindCmd.Flags().StringVar(&findOperand, "operand", "", "Operand for --op")
	FindCmd.Flags().StringVar(&findFormat, "format", formatTable, "Output format: table, json or yaml")
	FindCmd.Flags().BoolVar(&findKeys, "keys", false, "Print matching paths only")
}

func runFind(cmd *cobra.Command, args []string) error {
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

	p, err := findPipeline(search.New(store, logger.Logger))
	if err != nil {
		return err
	}

	if findKeys {
		keys, err := p.Keys()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, k := range keys {
			if _, err := out.Write([]byte(k + "\n")); err != nil {
				return err
			}
		}
		return nil
	}

	entries, err := p.Results()
	if err != nil {
		return err
	}
	return writeEntries(cmd.OutOrStdout(), entries, findFormat)
}

// findPipeline chains the predicates selected by flags.
func findPipeline(idx *search.Index) (search.Pipeline, error) {
	p := search.NewPipeline(idx)
	if findKB != "" {
		p = p.KB(findKB)
	}
	if findLabel != "" {
		p = p.Label(findLabel)
	}
	if findName != "" {
		p = p.Name(findName)
	}
	if findFrom != "" {
		p = p.StartingPath(findFrom)
	}
	if findKey != "" {
		p = p.PropertyKey(findKey)
	}
	if findValue != "" {
		key, value, err := parseKeyValue(findValue)
		if err != nil {
			return p, err
		}
		p = p.PropertyValue(key, value)
	}
	if findOp != "" {
		p = p.Path(pathstore.Operator(findOp), findOperand)
	}
	return p, p.Err()
}

// parseKeyValue splits key=value, decoding value as JSON and falling back
// to the raw string.
func parseKeyValue(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", nil, errors.Newf("expected key=value, got %q", s)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return key, raw, nil
	}
	return key, value, nil
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/pathstore"
)

// QueryCmd queries stored paths
var QueryCmd = &cobra.Command{
	Use:   "query <pattern>",
	Short: "Query stored paths by pattern, word predicate or operator",
	Long: `Query the configured table.

By default the argument is a wildcard pattern:
  *        exactly one label
  **       any run of labels
  *{2}     exactly two labels (also {n,}, {,m}, {n,m})
  {a,b}    either label

With --word the argument is a word predicate over labels: "a", "a&b" or
"a|b". With --op the argument is the operand of an operator:
  @>   stored ancestors of the path
  <@   stored descendants of the path
  ~    wildcard pattern
  @@   word predicate
  ?    any of several "|"-separated patterns`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var (
	queryWord   bool
	queryOp     string
	queryLimit  int
	queryFormat string
)

func init() {
	QueryCmd.Flags().BoolVar(&queryWord, "word", false, "Treat the argument as a word predicate")
	QueryCmd.Flags().StringVar(&queryOp, "op", "", "Query operator (@>, <@, ~, @@, ?)")
	QueryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum number of results (0 for all)")
	QueryCmd.Flags().StringVar(&queryFormat, "format", formatTable, "Output format: table, json or yaml")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryWord && queryOp != "" {
		return errors.New("--word and --op are mutually exclusive")
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

	entries, err := runStoreQuery(store, args[0], queryWord, queryOp)
	if err != nil {
		return err
	}
	return writeEntries(cmd.OutOrStdout(), limitEntries(entries, queryLimit), queryFormat)
}

// runStoreQuery picks the query entry point the flags ask for.
func runStoreQuery(store *pathstore.Store, arg string, word bool, op string) ([]pathstore.Entry, error) {
	switch {
	case op != "":
		return store.QueryByOperator(pathstore.Operator(op), arg)
	case word:
		return store.QueryWord(arg), nil
	default:
		return store.Query(arg)
	}
}

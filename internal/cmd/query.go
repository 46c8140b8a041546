package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/tablecat/internal/query"
	"github.com/harrison/tablecat/internal/rangeval"
	"github.com/harrison/tablecat/internal/reader"
	"github.com/harrison/tablecat/internal/sink"
)

// NewQueryCommand creates the query command, which runs one query
// against a dataset's published catalog and prints the result as a
// simple columnar table.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <datasetId>",
		Short: "Run a query against a dataset's published catalog",
		Long: `query runs one query against a dataset's most recently published
catalog snapshot and prints the matching rows.

Examples:
  tablecat query buoys --columns temp,station_id --where "temp>=5" --where "time<=1700000000000"
  tablecat query buoys --columns station_id --distinct`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0])
		},
	}

	cmd.Flags().String("columns", "", "comma-separated columns to return")
	cmd.Flags().StringArray("where", nil, `a predicate, e.g. "temp>=5" or "station_id=42"`)
	cmd.Flags().Bool("distinct", false, "return only distinct rows")

	return cmd
}

func runQuery(cmd *cobra.Command, datasetID string) error {
	columnsFlag, err := cmd.Flags().GetString("columns")
	if err != nil {
		return err
	}
	wheres, err := cmd.Flags().GetStringArray("where")
	if err != nil {
		return err
	}
	distinct, err := cmd.Flags().GetBool("distinct")
	if err != nil {
		return err
	}
	if columnsFlag == "" {
		return fmt.Errorf("--columns is required")
	}

	predicates := make([]query.Predicate, 0, len(wheres))
	for _, raw := range wheres {
		p, err := parsePredicate(raw)
		if err != nil {
			return err
		}
		predicates = append(predicates, p)
	}

	mgr, auditStore, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer auditStore.Close()
	defer mgr.Close()

	ds, ok := mgr.Get(datasetID)
	if !ok {
		return fmt.Errorf("unknown dataset %q", datasetID)
	}

	q := query.Query{
		Columns:    strings.Split(columnsFlag, ","),
		Predicates: predicates,
		Distinct:   distinct,
	}

	s := sink.NewMemory()
	_, err = ds.Query(cmd.Context(), q, s)
	if err != nil {
		return err
	}

	printTables(cmd, q.Columns, s.Chunks)
	return nil
}

// predicateOps is checked in this order so that multi-character
// operators are matched before the single-character operators that
// are their prefix or suffix (">=" before ">", "!=" before "=").
var predicateOps = []rangeval.Op{
	rangeval.OpGE, rangeval.OpLE, rangeval.OpNE, rangeval.OpEQ,
	rangeval.OpGT, rangeval.OpLT, rangeval.OpRegex,
}

func parsePredicate(raw string) (query.Predicate, error) {
	for _, op := range predicateOps {
		idx := strings.Index(raw, string(op))
		if idx < 0 {
			continue
		}
		if idx == 0 {
			return query.Predicate{}, fmt.Errorf("invalid predicate %q", raw)
		}
		return query.Predicate{
			Column: strings.TrimSpace(raw[:idx]),
			Op:     op,
			Value:  strings.TrimSpace(raw[idx+len(op):]),
		}, nil
	}
	return query.Predicate{}, fmt.Errorf("invalid predicate %q", raw)
}

func printTables(cmd *cobra.Command, columns []string, chunks []reader.Table) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, chunk := range chunks {
		for row := 0; row < chunk.NumRows(); row++ {
			cells := make([]string, len(columns))
			for i, col := range columns {
				if v, ok := chunk.Numeric[col]; ok {
					cells[i] = fmt.Sprintf("%v", v[row])
				} else if v, ok := chunk.Text[col]; ok {
					cells[i] = v[row]
				}
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphdb/pkg/cypher"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a Cypher statement against a graphdb data directory",
	Long: `Query opens the configured backend, runs a single Cypher statement
(MATCH/CREATE/MERGE/SET/DELETE/RETURN, transaction statements, or a UNION
of these), prints the result, and exits.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringP("cypher", "c", "", "Cypher statement to execute (required)")
	_ = queryCmd.MarkFlagRequired("cypher")
}

func runQuery(cmd *cobra.Command, args []string) error {
	statement, _ := cmd.Flags().GetString("cypher")

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	result, err := cypher.NewExecutor(db).Execute(statement)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printResult(result)
	return nil
}

func printResult(r *cypher.Result) {
	switch r.Kind {
	case cypher.KindCreated:
		fmt.Printf("✓ created %d node(s), %d relationship(s)\n", len(r.Created.Nodes), len(r.Created.Rels))
	case cypher.KindUpdated:
		fmt.Printf("✓ updated %d node(s)\n", len(r.Updated.Nodes))
	case cypher.KindDeleted:
		fmt.Printf("✓ deleted %d node(s), %d relationship(s)\n", len(r.Deleted.Nodes), len(r.Deleted.Rels))
	case cypher.KindTxStarted:
		fmt.Println("✓ transaction started")
	case cypher.KindTxCommitted:
		fmt.Println("✓ transaction committed")
	case cypher.KindTxRolledBack:
		fmt.Println("✓ transaction rolled back")
	default:
		printRows(r.Columns, r.Rows)
	}
}

func printRows(columns []string, rows []cypher.Row) {
	if len(columns) == 0 {
		fmt.Println("(no columns)")
		return
	}
	fmt.Println(strings.Join(columns, " | "))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = row[col].String()
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	fmt.Printf("(%d row(s))\n", len(rows))
}

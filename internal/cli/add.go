package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <table> [file]",
	Short: "Add rows to a table",
	Long: `Add rows to a table from a JSON array or JSON lines.

Rows are read from the file, or piped from stdin. Vector columns left out
of a row are computed by the table's embedding functions.

Examples:
  vecdb add docs rows.jsonl
  echo '{"text": "hello world"}' | vecdb add docs`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) == 2 {
		source = args[1]
	} else if err := checkPiped(os.Stdin); err != nil {
		return err
	}

	rows, err := readRowsFrom(source)
	if err != nil {
		return err
	}

	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	table, err := engine.OpenTable(ctx, args[0])
	if err != nil {
		return err
	}
	if err := table.Add(ctx, rows); err != nil {
		return fmt.Errorf("failed to add rows: %w", err)
	}

	total, err := table.CountRows(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added %d rows to %s (%d total)\n", len(rows), table.Name(), total)
	return nil
}

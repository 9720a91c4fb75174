package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:     "tables",
	Aliases: []string{"list"},
	Short:   "List tables",
	Long: `List all tables with their row counts.

Examples:
  vecdb tables
  vecdb tables -v`,
	RunE: runTables,
}

func runTables(cmd *cobra.Command, args []string) error {
	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	tables, err := engine.Tables(ctx)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if len(tables) == 0 {
		fmt.Println("No tables found.")
		return nil
	}

	if verbose {
		printJSON(tables)
		return nil
	}

	// Table header
	fmt.Printf("%-24s %-8s %-10s %-12s\n", "NAME", "COLUMNS", "ROWS", "CREATED")
	fmt.Println(strings.Repeat("-", 60))

	for _, t := range tables {
		rows, err := engine.CountRowsOf(ctx, t.Name)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %-8d %-10d %-12s\n", truncate(t.Name, 24), len(t.Schema.Fields), rows, formatTimeAgo(t.CreatedAt))
	}

	fmt.Printf("\nTotal: %d tables\n", len(tables))
	return nil
}

func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

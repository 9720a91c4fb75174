package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long: `Show statistics about the vecdb database.

Examples:
  vecdb stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, cfg, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	names, err := engine.TableNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	stats := map[string]int{"tables": len(names)}
	for _, name := range names {
		n, err := engine.CountRowsOf(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		stats["rows"] += n
	}

	if verbose {
		printJSON(stats)
	} else {
		fmt.Println("vecdb Statistics")
		fmt.Println("────────────────")
		fmt.Printf("Database: %s\n", cfg.DB.Path)
		fmt.Printf("Tables:   %d\n", stats["tables"])
		fmt.Printf("Rows:     %d\n", stats["rows"])
	}

	return nil
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var dropCmd = &cobra.Command{
	Use:   "drop <table>",
	Short: "Drop a table",
	Long: `Drop a table and all of its rows.

Examples:
  vecdb drop docs
  vecdb drop docs --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDrop,
}

var dropForce bool

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "Skip confirmation")
}

func runDrop(cmd *cobra.Command, args []string) error {
	name := args[0]

	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	rows, err := engine.CountRowsOf(ctx, name)
	if err != nil {
		return err
	}

	// Confirm deletion
	if !dropForce {
		fmt.Printf("Table to drop: %s (%d rows)\n", name, rows)
		fmt.Print("\nAre you sure? (y/N): ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := engine.DropTable(ctx, name); err != nil {
		return fmt.Errorf("failed to drop: %w", err)
	}

	fmt.Printf("✓ Dropped table: %s\n", name)
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/constantino-dev/vecdb/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:     "schema <table>",
	Aliases: []string{"show"},
	Short:   "Show the schema of a table",
	Long: `Show the columns of a table and the embedding functions bound to them.

The stored schema is shown as is; the providers do not need to be
available.

Examples:
  vecdb schema docs
  vecdb schema docs -v`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	name := args[0]

	engine, _, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	info, err := engine.TableInfo(ctx, name)
	if err != nil {
		return err
	}

	if verbose {
		printJSON(info)
		return nil
	}

	rows, err := engine.CountRowsOf(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("┌─────────────────────────────────────────────────────────────┐\n")
	fmt.Printf("│ %s\n", info.Name)
	fmt.Printf("├─────────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Created:  %s\n", info.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("│ Rows:     %d\n", rows)
	fmt.Printf("├─────────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Columns:\n")
	for _, f := range info.Schema.Fields {
		nullable := ""
		if !f.Nullable {
			nullable = " not null"
		}
		fmt.Printf("│   %s%s\n", f.String(), nullable)
	}

	configs, err := schema.EmbeddingConfigs(info.Schema)
	if err != nil {
		return err
	}
	if len(configs) > 0 {
		fmt.Printf("├─────────────────────────────────────────────────────────────┤\n")
		fmt.Printf("│ Embeddings:\n")
		for _, c := range configs {
			fmt.Printf("│   %s -> %s via %s", c.SourceColumn, c.VectorColumn, c.Name)
			if model, ok := c.Params["model"]; ok {
				fmt.Printf(" (%v)", model)
			}
			fmt.Println()
		}
	}
	fmt.Printf("└─────────────────────────────────────────────────────────────┘\n")

	return nil
}

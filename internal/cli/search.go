package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <table> [query]",
	Short: "Search a table by similarity",
	Long: `Search a table for the rows nearest to a query.

A text query is embedded with the embedding function of the searched
column. Use --vector to search with a raw vector instead.

Examples:
  vecdb search docs "how to handle async errors"
  vecdb search docs "react hooks" --limit 3
  vecdb search posts "title words" --column title_vec
  vecdb search raw --vector 0.1,0.2,0.3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchLimit  int
	searchColumn string
	searchVector string
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results to return")
	searchCmd.Flags().StringVarP(&searchColumn, "column", "c", "", "Vector column to search")
	searchCmd.Flags().StringVar(&searchVector, "vector", "", "Comma-separated query vector")
}

func runSearch(cmd *cobra.Command, args []string) error {
	var query any
	if searchVector != "" {
		vec, err := parseVector(searchVector)
		if err != nil {
			return err
		}
		query = vec
	} else {
		text := strings.Join(args[1:], " ")
		if text == "" {
			return fmt.Errorf("no query provided. Usage: vecdb search <table> \"your query\"")
		}
		query = text
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

	q := table.Search(query).Limit(searchLimit)
	if searchColumn != "" {
		q = q.Column(searchColumn)
	}
	results, err := q.Execute(ctx)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No rows found.")
		return nil
	}

	if verbose {
		printJSON(results)
		return nil
	}

	names := table.Schema().FieldNames()
	for i, r := range results {
		fmt.Printf("\n[%d] distance %.4f\n", i+1, r.Distance)
		for _, name := range names {
			fmt.Printf("    %s: %s\n", name, formatValue(r.Row[name]))
		}
	}
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/constantino-dev/vecdb/internal/config"
	"github.com/constantino-dev/vecdb/internal/core"
	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

var createCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create a table",
	Long: `Create a table whose vector column is filled by an embedding function.

The provider and model default to the ones in the config. Extra provider
params are passed with --param key=value.

Examples:
  vecdb create docs
  vecdb create docs --model text-embedding-3-small --param dim=256
  vecdb create docs --provider fixed --param dims=3 --source body --vector embedding
  vecdb create docs --data rows.jsonl --overwrite
  vecdb create raw --no-embedding --data vectors.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

var (
	createProvider    string
	createModel       string
	createParams      []string
	createSource      string
	createVector      string
	createData        string
	createOverwrite   bool
	createNoEmbedding bool
)

func init() {
	createCmd.Flags().StringVar(&createProvider, "provider", "", "Embedding provider (default: from config)")
	createCmd.Flags().StringVar(&createModel, "model", "", "Embedding model (default: from config)")
	createCmd.Flags().StringArrayVar(&createParams, "param", nil, "Provider param as key=value (repeatable)")
	createCmd.Flags().StringVar(&createSource, "source", core.DefaultSourceColumn, "Text column fed to the embedding function")
	createCmd.Flags().StringVar(&createVector, "vector", core.DefaultVectorColumn, "Vector column filled by the embedding function")
	createCmd.Flags().StringVarP(&createData, "data", "d", "", "Initial rows, JSON array or JSON lines ('-' for stdin)")
	createCmd.Flags().BoolVar(&createOverwrite, "overwrite", false, "Replace an existing table")
	createCmd.Flags().BoolVar(&createNoEmbedding, "no-embedding", false, "Create a plain table from --data without an embedding function")
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	engine, cfg, err := getEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := core.CreateOptions{Mode: types.ModeCreate}
	if createOverwrite {
		opts.Mode = types.ModeOverwrite
	}

	if createData != "" {
		rows, err := readRowsFrom(createData)
		if err != nil {
			return err
		}
		opts.Data = rows
	}

	if !createNoEmbedding {
		fn, err := newFunction(cfg, createProvider, createModel, createParams)
		if err != nil {
			return err
		}
		opts.Function = fn
		opts.SourceColumn = createSource
		opts.VectorColumn = createVector
	}

	table, err := engine.CreateTable(context.Background(), name, opts)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if verbose {
		printJSON(table.Schema().Schema)
		return nil
	}

	fmt.Printf("✓ Created table: %s\n", table.Name())
	for _, b := range table.Schema().Bindings {
		fmt.Printf("  Embedding: %s -> %s (%s, %d dims)\n", b.SourceColumn, b.VectorColumn, b.Function.Name(), b.Function.Ndims())
	}
	if len(opts.Data) > 0 {
		fmt.Printf("  Rows: %d\n", len(opts.Data))
	}
	return nil
}

// newFunction creates an embedding function. Config params apply only when
// the provider is the configured one.
func newFunction(cfg *config.Config, provider, model string, rawParams []string) (embeddings.Function, error) {
	params := embeddings.Params{}
	if provider == "" || provider == cfg.Embedding.Provider {
		provider = cfg.Embedding.Provider
		params = cfg.EmbeddingParams()
	}
	if model != "" {
		params["model"] = model
	}

	extra, err := parseParams(rawParams)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		params[k] = v
	}

	return embeddings.Create(provider, params)
}

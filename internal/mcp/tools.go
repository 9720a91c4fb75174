package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/constantino-dev/vecdb/internal/schema"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// ===== list_tables =====

type listTablesInput struct{}

type tableSummary struct {
	Name       string                  `json:"name" jsonschema:"Table name"`
	Columns    []string                `json:"columns" jsonschema:"Column names with types"`
	Rows       int                     `json:"rows" jsonschema:"Number of stored rows"`
	Embeddings []types.EmbeddingConfig `json:"embeddings,omitempty" jsonschema:"Embedding functions bound to vector columns"`
}

type listTablesOutput struct {
	Tables []tableSummary `json:"tables" jsonschema:"Tables in the database"`
}

// listTables reads the stored catalog only, so tables whose provider is not
// registered here are still listed
func (s *Server) listTables(ctx context.Context, req *mcp.CallToolRequest, args listTablesInput) (*mcp.CallToolResult, listTablesOutput, error) {
	tables, err := s.engine.Tables(ctx)
	if err != nil {
		return nil, listTablesOutput{}, fmt.Errorf("list tables failed: %w", err)
	}

	out := listTablesOutput{Tables: make([]tableSummary, 0, len(tables))}
	for _, info := range tables {
		rows, err := s.engine.CountRowsOf(ctx, info.Name)
		if err != nil {
			return nil, listTablesOutput{}, fmt.Errorf("count rows of %s: %w", info.Name, err)
		}
		configs, err := schema.EmbeddingConfigs(info.Schema)
		if err != nil {
			return nil, listTablesOutput{}, fmt.Errorf("table %s: %w", info.Name, err)
		}

		summary := tableSummary{Name: info.Name, Rows: rows, Embeddings: configs}
		for _, f := range info.Schema.Fields {
			summary.Columns = append(summary.Columns, f.String())
		}
		out.Tables = append(out.Tables, summary)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Found %d tables", len(out.Tables))},
		},
	}, out, nil
}

// ===== search_table =====

type searchTableInput struct {
	Table  string    `json:"table" jsonschema:"Table to search"`
	Query  string    `json:"query,omitempty" jsonschema:"Text query, embedded with the column's embedding function"`
	Vector []float32 `json:"vector,omitempty" jsonschema:"Raw query vector, used instead of query"`
	Column string    `json:"column,omitempty" jsonschema:"Vector column to search; required when the table has several"`
	Limit  int       `json:"limit,omitempty" jsonschema:"Maximum results (default: 10)"`
}

type searchTableOutput struct {
	Results []types.Result `json:"results" jsonschema:"Matching rows ordered by distance"`
	Count   int            `json:"count" jsonschema:"Number of results"`
}

func (s *Server) searchTable(ctx context.Context, req *mcp.CallToolRequest, args searchTableInput) (*mcp.CallToolResult, searchTableOutput, error) {
	if args.Table == "" {
		return nil, searchTableOutput{}, fmt.Errorf("table is required")
	}
	if args.Query == "" && len(args.Vector) == 0 {
		return nil, searchTableOutput{}, fmt.Errorf("query or vector is required")
	}

	t, err := s.engine.OpenTable(ctx, args.Table)
	if err != nil {
		return nil, searchTableOutput{}, err
	}

	var q any = args.Query
	if len(args.Vector) > 0 {
		q = args.Vector
	}
	query := t.Search(q)
	if args.Column != "" {
		query = query.Column(args.Column)
	}
	if args.Limit > 0 {
		query = query.Limit(args.Limit)
	}

	results, err := query.Execute(ctx)
	if err != nil {
		return nil, searchTableOutput{}, fmt.Errorf("search failed: %w", err)
	}
	if results == nil {
		results = []types.Result{}
	}

	s.logger.Debug("mcp search", zap.String("table", args.Table), zap.Int("results", len(results)))

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Found %d results in %s", len(results), args.Table)},
		},
	}, searchTableOutput{Results: results, Count: len(results)}, nil
}

// ===== add_rows =====

type addRowsInput struct {
	Table string      `json:"table" jsonschema:"Table to insert into"`
	Rows  []types.Row `json:"rows" jsonschema:"Rows keyed by column name"`
}

type addRowsOutput struct {
	Added int `json:"added" jsonschema:"Number of inserted rows"`
	Total int `json:"total" jsonschema:"Row count after the insert"`
}

func (s *Server) addRows(ctx context.Context, req *mcp.CallToolRequest, args addRowsInput) (*mcp.CallToolResult, addRowsOutput, error) {
	if args.Table == "" {
		return nil, addRowsOutput{}, fmt.Errorf("table is required")
	}
	if len(args.Rows) == 0 {
		return nil, addRowsOutput{}, fmt.Errorf("rows are required")
	}

	t, err := s.engine.OpenTable(ctx, args.Table)
	if err != nil {
		return nil, addRowsOutput{}, err
	}
	if err := t.Add(ctx, args.Rows); err != nil {
		return nil, addRowsOutput{}, fmt.Errorf("add rows failed: %w", err)
	}
	total, err := t.CountRows(ctx)
	if err != nil {
		return nil, addRowsOutput{}, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Added %d rows to %s", len(args.Rows), args.Table)},
		},
	}, addRowsOutput{Added: len(args.Rows), Total: total}, nil
}

// ===== list_providers =====

type listProvidersInput struct{}

type listProvidersOutput struct {
	Providers []string `json:"providers" jsonschema:"Registered embedding provider names"`
}

func (s *Server) listProviders(ctx context.Context, req *mcp.CallToolRequest, args listProvidersInput) (*mcp.CallToolResult, listProvidersOutput, error) {
	names := s.engine.Registry().Names()
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d providers registered", len(names))},
		},
	}, listProvidersOutput{Providers: names}, nil
}

package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/constantino-dev/vecdb/internal/schema"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// Table is an open table with its live embedding bindings
type Table struct {
	engine *Engine
	name   string
	schema *schema.Schema
}

// Name returns the table name
func (t *Table) Name() string { return t.name }

// Schema returns the table schema and its bindings
func (t *Table) Schema() *schema.Schema { return t.schema }

// CountRows returns the number of stored rows
func (t *Table) CountRows(ctx context.Context) (int, error) {
	return t.engine.store.CountRows(ctx, t.name)
}

// Rows returns up to limit rows in insertion order; limit <= 0 returns all
func (t *Table) Rows(ctx context.Context, limit int) ([]types.Row, error) {
	return t.engine.store.Scan(ctx, t.name, t.schema.Schema, limit)
}

// Add inserts rows. Vector columns that rows leave empty are filled by the
// bound embedding functions first. Either all rows are stored or none.
func (t *Table) Add(ctx context.Context, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	normalized, err := t.prepareRows(ctx, rows)
	if err != nil {
		return err
	}

	if err := t.engine.store.Insert(ctx, t.name, t.schema.Schema, normalized); err != nil {
		return fmt.Errorf("failed to insert rows: %w", err)
	}

	t.engine.logger.Debug("rows added", zap.String("table", t.name), zap.Int("rows", len(rows)))
	return nil
}

// prepareRows fills missing vectors and normalizes every row
func (t *Table) prepareRows(ctx context.Context, rows []types.Row) ([]types.Row, error) {
	embedded, err := t.embedRows(ctx, rows)
	if err != nil {
		return nil, err
	}

	normalized := make([]types.Row, len(embedded))
	for i, row := range embedded {
		n, err := t.schema.Normalize(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		normalized[i] = n
	}
	return normalized, nil
}

// Search starts a nearest-neighbour query. query is either a raw vector
// ([]float32 or []float64) or a value handed to the column's embedding
// function, usually a string.
func (t *Table) Search(query any) *Query {
	return &Query{table: t, query: query, limit: DefaultLimit}
}

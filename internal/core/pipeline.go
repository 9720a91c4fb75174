package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/internal/schema"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// columnVectors holds computed vectors for one binding, keyed by row position
type columnVectors struct {
	column  string
	rows    []int
	vectors [][]float32
}

// embedRows returns copies of rows with every empty bound vector column
// filled. Each binding issues one provider call for the whole batch.
func (t *Table) embedRows(ctx context.Context, rows []types.Row) ([]types.Row, error) {
	results := make([]*columnVectors, len(t.schema.Bindings))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range t.schema.Bindings {
		var missing []int
		for n, row := range rows {
			if row[b.VectorColumn] == nil {
				missing = append(missing, n)
			}
		}
		if len(missing) == 0 {
			continue
		}

		g.Go(func() error {
			vectors, err := t.engine.computeSource(gctx, b, rows, missing)
			if err != nil {
				return err
			}
			results[i] = &columnVectors{column: b.VectorColumn, rows: missing, vectors: vectors}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.Row, len(rows))
	for n, row := range rows {
		out[n] = row.Clone()
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		for k, n := range res.rows {
			out[n][res.column] = res.vectors[k]
		}
	}
	return out, nil
}

// computeSource embeds the source values of the given rows and checks the
// provider output against the batch and the function's dimensionality
func (e *Engine) computeSource(ctx context.Context, b schema.Binding, rows []types.Row, idx []int) ([][]float32, error) {
	texts := make([]string, len(idx))
	for k, n := range idx {
		s, ok := rows[n][b.SourceColumn].(string)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: source column %q must hold text, got %T",
				embeddings.ErrConfiguration, n, b.SourceColumn, rows[n][b.SourceColumn])
		}
		texts[k] = s
	}

	fn := b.Function
	e.logger.Debug("computing source embeddings",
		zap.String("provider", fn.Name()),
		zap.String("column", b.VectorColumn),
		zap.Int("batch", len(texts)))

	start := time.Now()
	vectors, err := fn.ComputeSourceEmbeddings(ctx, texts)
	if err == nil {
		err = checkVectors(fn, vectors, len(texts))
	}
	e.metrics.RecordEmbedding(ctx, fn, "source", time.Since(start), len(texts), err)
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", b.VectorColumn, err)
	}
	return vectors, nil
}

// computeQuery embeds a query value with the binding's function
func (e *Engine) computeQuery(ctx context.Context, b schema.Binding, query any) ([]float32, error) {
	fn := b.Function
	start := time.Now()
	vec, err := fn.ComputeQueryEmbeddings(ctx, query)
	if err == nil && len(vec) != fn.Ndims() {
		err = fmt.Errorf("%w: %s returned a query vector of length %d, expected %d",
			embeddings.ErrPipeline, fn.Name(), len(vec), fn.Ndims())
	}
	e.metrics.RecordEmbedding(ctx, fn, "query", time.Since(start), 1, err)
	if err != nil {
		return nil, fmt.Errorf("embedding query for %q: %w", b.VectorColumn, err)
	}
	return vec, nil
}

func checkVectors(fn embeddings.Function, vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: %s returned %d vectors for %d inputs",
			embeddings.ErrPipeline, fn.Name(), len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != fn.Ndims() {
			return fmt.Errorf("%w: %s returned a vector of length %d at position %d, expected %d",
				embeddings.ErrPipeline, fn.Name(), len(v), i, fn.Ndims())
		}
	}
	return nil
}

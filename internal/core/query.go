package core

import (
	"context"
	"fmt"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/internal/schema"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// DefaultLimit is the number of results returned when no limit is set
const DefaultLimit = 10

// Query is a nearest-neighbour search against one vector column
type Query struct {
	table  *Table
	query  any
	column string
	limit  int
}

// Column selects the vector column to search. Required when the table has
// more than one vector column.
func (q *Query) Column(name string) *Query {
	q.column = name
	return q
}

// Limit sets the maximum number of results
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Execute runs the query. Results are ordered by ascending distance.
func (q *Query) Execute(ctx context.Context) ([]types.Result, error) {
	if q.limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", embeddings.ErrConfiguration, q.limit)
	}

	field, binding, err := q.target()
	if err != nil {
		return nil, err
	}

	var probe []float32
	if raw, ok := rawVector(q.query); ok {
		if len(raw) != field.Dims {
			return nil, fmt.Errorf("%w: query vector has %d dims, column %q has %d",
				embeddings.ErrConfiguration, len(raw), field.Name, field.Dims)
		}
		probe = raw
	} else {
		if binding == nil {
			return nil, fmt.Errorf("%w: column %q has no embedding function, pass a vector query",
				embeddings.ErrConfiguration, field.Name)
		}
		probe, err = q.table.engine.computeQuery(ctx, *binding, q.query)
		if err != nil {
			return nil, err
		}
	}

	t := q.table
	results, err := t.engine.store.VectorSearch(ctx, t.name, t.schema.Schema, field.Name, probe, q.limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}

// target resolves the searched column and its binding, if any
func (q *Query) target() (types.Field, *schema.Binding, error) {
	s := q.table.schema

	name := q.column
	if name == "" {
		var vectors []string
		for _, f := range s.Fields {
			if f.IsVector() {
				vectors = append(vectors, f.Name)
			}
		}
		switch {
		case len(s.Bindings) == 1:
			name = s.Bindings[0].VectorColumn
		case len(vectors) == 1:
			name = vectors[0]
		case len(vectors) == 0:
			return types.Field{}, nil, fmt.Errorf("%w: table %s has no vector column", embeddings.ErrConfiguration, q.table.name)
		default:
			return types.Field{}, nil, fmt.Errorf("%w: table %s has several vector columns %v, select one with Column",
				embeddings.ErrConfiguration, q.table.name, vectors)
		}
	}

	field, ok := s.Field(name)
	if !ok || !field.IsVector() {
		return types.Field{}, nil, fmt.Errorf("%w: %q is not a vector column of %s", embeddings.ErrConfiguration, name, q.table.name)
	}
	if b, ok := s.Binding(name); ok {
		return field, &b, nil
	}
	return field, nil, nil
}

func rawVector(q any) ([]float32, bool) {
	switch v := q.(type) {
	case []float32:
		return v, true
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}

// Package fixed provides a placeholder embedding function that returns the
// same vector for every input. It needs no credentials or network and is
// useful for wiring tests and offline demos.
package fixed

import (
	"context"
	"fmt"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// Name is the registry key of this provider
const Name = "fixed"

func init() {
	embeddings.MustRegister(Name, func(p embeddings.Params) (embeddings.Function, error) {
		return New(p)
	})
}

var _ embeddings.Function = (*Embedder)(nil)

// Embedder returns a constant vector
type Embedder struct {
	vector []float32
	params embeddings.Params
}

// New builds the function from either a "vector" param, or "dims" plus an
// optional "value" (default 1).
func New(params embeddings.Params) (*Embedder, error) {
	vector, err := params.Floats("vector")
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		dims, err := params.Int("dims")
		if err != nil {
			return nil, err
		}
		if dims <= 0 {
			return nil, fmt.Errorf("%w: fixed: dims must be positive", embeddings.ErrConfiguration)
		}
		value, err := params.Float("value", 1)
		if err != nil {
			return nil, err
		}
		vector = make([]float32, dims)
		for i := range vector {
			vector[i] = float32(value)
		}
	}
	return &Embedder{vector: vector, params: pick(params, "vector", "dims", "value")}, nil
}

func (e *Embedder) Name() string { return Name }

func (e *Embedder) Ndims() int { return len(e.vector) }

func (e *Embedder) EmbeddingDataType() types.DataType { return types.Float32 }

func (e *Embedder) SourceField(base types.DataType) embeddings.FieldSpec {
	return embeddings.NewSourceField(e, base)
}

func (e *Embedder) VectorField() embeddings.FieldSpec {
	return embeddings.NewVectorField(e)
}

func (e *Embedder) Params() embeddings.Params { return e.params.Clone() }

// ComputeSourceEmbeddings returns one copy of the vector per input
func (e *Embedder) ComputeSourceEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), e.vector...)
	}
	return out, nil
}

// ComputeQueryEmbeddings returns the vector for any text query
func (e *Embedder) ComputeQueryEmbeddings(_ context.Context, query any) ([]float32, error) {
	if _, err := embeddings.QueryText(query); err != nil {
		return nil, err
	}
	return append([]float32(nil), e.vector...), nil
}

// pick copies only the keys the fixed provider understands
func pick(params embeddings.Params, keys ...string) embeddings.Params {
	out := embeddings.Params{}
	for _, k := range keys {
		if v, ok := params[k]; ok {
			out[k] = v
		}
	}
	return out
}

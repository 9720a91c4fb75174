// Package mock provides a test double for embeddings.Function.
//
// Use Function to return pre-canned vectors without a live provider and to
// verify which texts were submitted:
//
//	fn := &mock.Function{NdimsValue: 3}
//	vectors, _ := fn.ComputeSourceEmbeddings(ctx, []string{"a", "b"})
package mock

import (
	"context"
	"sync"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// Function is a mock implementation of embeddings.Function
type Function struct {
	mu sync.Mutex

	// NameValue is returned by Name. Defaults to "mock".
	NameValue string

	// NdimsValue is returned by Ndims
	NdimsValue int

	// DataType is returned by EmbeddingDataType. Defaults to float32.
	DataType types.DataType

	// SourceResult, if non-nil, is returned by ComputeSourceEmbeddings as is.
	// Otherwise one vector of NdimsValue entries is generated per input, with
	// every entry equal to the input position.
	SourceResult [][]float32

	// SourceErr, if non-nil, is returned by ComputeSourceEmbeddings
	SourceErr error

	// QueryResult, if non-nil, is returned by ComputeQueryEmbeddings. Otherwise
	// a vector of NdimsValue zeros is returned.
	QueryResult []float32

	// QueryErr, if non-nil, is returned by ComputeQueryEmbeddings
	QueryErr error

	// ParamsValue is returned by Params
	ParamsValue embeddings.Params

	// SourceCalls records the texts of every ComputeSourceEmbeddings call
	SourceCalls [][]string

	// QueryCalls records every ComputeQueryEmbeddings argument
	QueryCalls []any
}

var _ embeddings.Function = (*Function)(nil)

func (f *Function) Name() string {
	if f.NameValue == "" {
		return "mock"
	}
	return f.NameValue
}

func (f *Function) Ndims() int { return f.NdimsValue }

func (f *Function) EmbeddingDataType() types.DataType {
	if f.DataType == "" {
		return types.Float32
	}
	return f.DataType
}

func (f *Function) SourceField(base types.DataType) embeddings.FieldSpec {
	return embeddings.NewSourceField(f, base)
}

func (f *Function) VectorField() embeddings.FieldSpec {
	return embeddings.NewVectorField(f)
}

func (f *Function) Params() embeddings.Params {
	return f.ParamsValue.Clone()
}

// ComputeSourceEmbeddings records the call and returns SourceResult, SourceErr
func (f *Function) ComputeSourceEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SourceCalls = append(f.SourceCalls, append([]string(nil), texts...))

	if f.SourceErr != nil {
		return nil, f.SourceErr
	}
	if f.SourceResult != nil {
		return f.SourceResult, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.NdimsValue)
		for j := range v {
			v[j] = float32(i)
		}
		out[i] = v
	}
	return out, nil
}

// ComputeQueryEmbeddings records the call and returns QueryResult, QueryErr.
// Non-string queries fail like a text-only provider would.
func (f *Function) ComputeQueryEmbeddings(_ context.Context, query any) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryCalls = append(f.QueryCalls, query)

	if _, err := embeddings.QueryText(query); err != nil {
		return nil, err
	}
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	if f.QueryResult != nil {
		return f.QueryResult, nil
	}
	return make([]float32, f.NdimsValue), nil
}

// SourceCallCount returns the number of ComputeSourceEmbeddings calls
func (f *Function) SourceCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SourceCalls)
}

// QueryCallCount returns the number of ComputeQueryEmbeddings calls
func (f *Function) QueryCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.QueryCalls)
}

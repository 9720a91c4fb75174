// Package embeddings defines the embedding-function contract, the provider
// registry and the errors shared by every provider.
//
// A Function turns text into fixed-length vectors. Tables use it twice: on
// insert, the values of the bound source column are embedded in one batch and
// written to the vector column; on search, a text query is embedded into the
// probe vector.
package embeddings

import (
	"context"
	"fmt"

	"github.com/constantino-dev/vecdb/pkg/types"
)

// Function defines the interface every embedding provider implements
type Function interface {
	// Name returns the registry name the function was created under
	Name() string

	// ComputeSourceEmbeddings embeds a batch of source values. It returns
	// exactly len(texts) vectors in input order, or an error and no vectors.
	ComputeSourceEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// ComputeQueryEmbeddings embeds a single search query. Non-text queries
	// fail with ErrConfiguration before any remote call.
	ComputeQueryEmbeddings(ctx context.Context, query any) ([]float32, error)

	// Ndims returns the vector length, fixed for the lifetime of the instance
	Ndims() int

	// EmbeddingDataType returns the vector element type
	EmbeddingDataType() types.DataType

	// SourceField marks a column of the given base type as the embedding source
	SourceField(base types.DataType) FieldSpec

	// VectorField marks a column as receiving this function's vectors
	VectorField() FieldSpec

	// Params returns the configuration needed to recreate the function through
	// the registry. Credentials are never included.
	Params() Params
}

// Role tells the schema builder how a column relates to an embedding function
type Role int

const (
	RolePlain  Role = iota // Regular column
	RoleSource             // Text fed into the function
	RoleVector             // Vectors produced by the function
)

// FieldSpec is a column definition waiting for a name. It is produced by
// Plain, PlainVector or a Function's marker methods.
type FieldSpec struct {
	Field    types.Field
	Function Function
	Role     Role
}

// Plain returns a spec for a column not tied to any embedding function
func Plain(t types.DataType) FieldSpec {
	return FieldSpec{Field: types.Field{Type: t, Nullable: true}}
}

// PlainVector returns a spec for a vector column filled by the caller
func PlainVector(element types.DataType, dims int) FieldSpec {
	return FieldSpec{Field: types.Field{
		Type:     types.FixedSizeList,
		Element:  element,
		Dims:     dims,
		Nullable: true,
	}}
}

// NewSourceField implements Function.SourceField for any provider
func NewSourceField(fn Function, base types.DataType) FieldSpec {
	return FieldSpec{
		Field:    types.Field{Type: base, Nullable: true},
		Function: fn,
		Role:     RoleSource,
	}
}

// NewVectorField implements Function.VectorField for any provider
func NewVectorField(fn Function) FieldSpec {
	return FieldSpec{
		Field: types.Field{
			Type:     types.FixedSizeList,
			Element:  fn.EmbeddingDataType(),
			Dims:     fn.Ndims(),
			Nullable: true,
		},
		Function: fn,
		Role:     RoleVector,
	}
}

// QueryText extracts the text of a query for text-only providers
func QueryText(query any) (string, error) {
	q, ok := query.(string)
	if !ok {
		return "", fmt.Errorf("%w: query must be a string, got %T", ErrConfiguration, query)
	}
	return q, nil
}

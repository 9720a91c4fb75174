// Package types defines the core data structures for vecdb
package types

import (
	"fmt"
	"time"
)

// DataType names the logical type of a column or vector element
type DataType string

const (
	Utf8          DataType = "utf8"            // Text
	Int64         DataType = "int64"           // Signed integer
	Float32       DataType = "float32"         // Single precision
	Float64       DataType = "float64"         // Double precision
	Bool          DataType = "bool"            // Boolean
	FixedSizeList DataType = "fixed_size_list" // Vector of Element with Dims entries
)

// Field describes a single column of a table schema
type Field struct {
	Name     string            `json:"name"`
	Type     DataType          `json:"type"`
	Element  DataType          `json:"element,omitempty"` // Only for fixed_size_list
	Dims     int               `json:"dims,omitempty"`    // Only for fixed_size_list
	Nullable bool              `json:"nullable"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsVector reports whether the field holds fixed-size vectors
func (f Field) IsVector() bool {
	return f.Type == FixedSizeList
}

// String renders the field type in a compact form, e.g. fixed_size_list<float32>[3]
func (f Field) String() string {
	if f.IsVector() {
		return fmt.Sprintf("%s: %s<%s>[%d]", f.Name, f.Type, f.Element, f.Dims)
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Type)
}

// Schema is an ordered list of fields plus schema-level metadata
type Schema struct {
	Fields   []Field           `json:"fields"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Field returns the field with the given name
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the column names in schema order
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// EmbeddingConfig is the persisted form of an embedding binding.
// Params must never contain credentials.
type EmbeddingConfig struct {
	Name         string         `json:"name"`          // Registered provider name
	SourceColumn string         `json:"source_column"` // Text column feeding the provider
	VectorColumn string         `json:"vector_column"` // Column receiving the vectors
	Params       map[string]any `json:"params,omitempty"`
}

// Row is a single table row keyed by column name
type Row map[string]any

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Result wraps a row returned by a similarity search
type Result struct {
	Row      Row     `json:"row"`
	Distance float64 `json:"_distance"`
}

// TableInfo describes a stored table
type TableInfo struct {
	Name      string    `json:"name"`
	Schema    Schema    `json:"schema"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMode controls what happens when a table already exists
type CreateMode string

const (
	ModeCreate    CreateMode = "create"    // Fail if the table exists
	ModeOverwrite CreateMode = "overwrite" // Drop and recreate
)

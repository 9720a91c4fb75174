// Package schema derives table schemas from embedding-function markers and
// keeps track of which function feeds which vector column.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// Metadata keys written by the builder
const (
	MetaFunction           = "embedding.function"
	MetaVectorColumn       = "embedding.vector_column"
	MetaSourceColumn       = "embedding.source_column"
	MetaEmbeddingFunctions = "embedding_functions"
)

// ErrInvalidRow indicates a row whose values do not fit the schema
var ErrInvalidRow = errors.New("row does not match schema")

// Binding connects an embedding function to its source and vector columns
type Binding struct {
	Function     embeddings.Function
	SourceColumn string
	VectorColumn string
}

// Config returns the persistable, secret-free form of the binding
func (b Binding) Config() types.EmbeddingConfig {
	return types.EmbeddingConfig{
		Name:         b.Function.Name(),
		SourceColumn: b.SourceColumn,
		VectorColumn: b.VectorColumn,
		Params:       b.Function.Params().WithoutSecrets(),
	}
}

// Schema is a table schema together with its live embedding bindings
type Schema struct {
	types.Schema
	Bindings []Binding
}

// Binding returns the binding writing to vectorColumn
func (s *Schema) Binding(vectorColumn string) (Binding, bool) {
	for _, b := range s.Bindings {
		if b.VectorColumn == vectorColumn {
			return b, true
		}
	}
	return Binding{}, false
}

// ColumnDef pairs a column name with its spec
type ColumnDef struct {
	Name string
	Spec embeddings.FieldSpec
}

// Col names a field spec
func Col(name string, spec embeddings.FieldSpec) ColumnDef {
	return ColumnDef{Name: name, Spec: spec}
}

type markerPair struct {
	fn     embeddings.Function
	source []string
	vector []string
}

// Build turns column definitions into a schema. Each embedding function used
// in the definitions must mark exactly one source and one vector column; the
// function instance is what pairs them. Functions must therefore be
// comparable, which holds for the usual pointer implementations.
func Build(cols ...ColumnDef) (*Schema, error) {
	fields := make([]types.Field, 0, len(cols))
	var pairs []*markerPair

	for _, c := range cols {
		f := c.Spec.Field
		f.Name = c.Name
		fields = append(fields, f)

		if c.Spec.Role == embeddings.RolePlain {
			continue
		}
		if c.Spec.Function == nil {
			return nil, fmt.Errorf("%w: column %q is marked without a function", embeddings.ErrConfiguration, c.Name)
		}

		var pair *markerPair
		for _, p := range pairs {
			if p.fn == c.Spec.Function {
				pair = p
				break
			}
		}
		if pair == nil {
			pair = &markerPair{fn: c.Spec.Function}
			pairs = append(pairs, pair)
		}
		switch c.Spec.Role {
		case embeddings.RoleSource:
			pair.source = append(pair.source, c.Name)
		case embeddings.RoleVector:
			pair.vector = append(pair.vector, c.Name)
		}
	}

	bindings := make([]Binding, 0, len(pairs))
	for _, p := range pairs {
		if len(p.source) != 1 || len(p.vector) != 1 {
			return nil, fmt.Errorf("%w: function %q needs exactly one source and one vector column, got %d and %d",
				embeddings.ErrConfiguration, p.fn.Name(), len(p.source), len(p.vector))
		}
		bindings = append(bindings, Binding{
			Function:     p.fn,
			SourceColumn: p.source[0],
			VectorColumn: p.vector[0],
		})
	}

	return New(fields, bindings...)
}

// New validates fields and bindings and stamps the embedding metadata
func New(fields []types.Field, bindings ...Binding) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: schema has no fields", embeddings.ErrConfiguration)
	}

	out := &Schema{
		Schema: types.Schema{
			Fields:   make([]types.Field, len(fields)),
			Metadata: map[string]string{},
		},
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", embeddings.ErrConfiguration, i)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", embeddings.ErrConfiguration, f.Name)
		}
		if err := checkType(f); err != nil {
			return nil, err
		}
		index[f.Name] = i
		f.Metadata = copyMeta(f.Metadata)
		out.Fields[i] = f
	}

	usedVectors := make(map[string]bool)
	configs := make([]types.EmbeddingConfig, 0, len(bindings))
	for _, b := range bindings {
		if err := checkBinding(out.Fields, index, b); err != nil {
			return nil, err
		}
		if usedVectors[b.VectorColumn] {
			return nil, fmt.Errorf("%w: vector column %q is bound twice", embeddings.ErrConfiguration, b.VectorColumn)
		}
		usedVectors[b.VectorColumn] = true

		src := &out.Fields[index[b.SourceColumn]]
		src.Metadata[MetaFunction] = b.Function.Name()
		src.Metadata[MetaVectorColumn] = b.VectorColumn
		vec := &out.Fields[index[b.VectorColumn]]
		vec.Metadata[MetaFunction] = b.Function.Name()
		vec.Metadata[MetaSourceColumn] = b.SourceColumn

		configs = append(configs, b.Config())
	}
	out.Bindings = append([]Binding(nil), bindings...)

	if len(configs) > 0 {
		data, err := json.Marshal(configs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode embedding metadata: %w", err)
		}
		out.Metadata[MetaEmbeddingFunctions] = string(data)
	}

	return out, nil
}

func checkType(f types.Field) error {
	switch f.Type {
	case types.Utf8, types.Int64, types.Float64, types.Bool:
		return nil
	case types.FixedSizeList:
		if f.Element != types.Float32 {
			return fmt.Errorf("%w: vector column %q has element type %q, vectors are stored as float32", embeddings.ErrConfiguration, f.Name, f.Element)
		}
		if f.Dims <= 0 {
			return fmt.Errorf("%w: vector column %q needs positive dims, got %d", embeddings.ErrConfiguration, f.Name, f.Dims)
		}
		return nil
	default:
		return fmt.Errorf("%w: column %q has unsupported type %q", embeddings.ErrConfiguration, f.Name, f.Type)
	}
}

func checkBinding(fields []types.Field, index map[string]int, b Binding) error {
	if b.Function == nil {
		return fmt.Errorf("%w: binding for %q has no function", embeddings.ErrConfiguration, b.VectorColumn)
	}
	si, ok := index[b.SourceColumn]
	if !ok {
		return fmt.Errorf("%w: source column %q not in schema", embeddings.ErrConfiguration, b.SourceColumn)
	}
	if fields[si].Type != types.Utf8 {
		return fmt.Errorf("%w: source column %q must be %s, got %s", embeddings.ErrConfiguration, b.SourceColumn, types.Utf8, fields[si].Type)
	}
	vi, ok := index[b.VectorColumn]
	if !ok {
		return fmt.Errorf("%w: vector column %q not in schema", embeddings.ErrConfiguration, b.VectorColumn)
	}
	vf := fields[vi]
	if !vf.IsVector() {
		return fmt.Errorf("%w: column %q is not a vector column", embeddings.ErrConfiguration, b.VectorColumn)
	}
	if n := b.Function.Ndims(); n <= 0 || vf.Dims != n {
		return fmt.Errorf("%w: vector column %q has %d dims, function %q produces %d",
			embeddings.ErrConfiguration, b.VectorColumn, vf.Dims, b.Function.Name(), n)
	}
	if vf.Element != b.Function.EmbeddingDataType() {
		return fmt.Errorf("%w: vector column %q holds %s, function %q produces %s",
			embeddings.ErrConfiguration, b.VectorColumn, vf.Element, b.Function.Name(), b.Function.EmbeddingDataType())
	}
	return nil
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Infer derives a schema from sample rows. Column types come from the first
// non-nil value of each column; columns are ordered by name. Vector columns
// of the bindings that the rows do not carry are added from the functions.
func Infer(rows []types.Row, bindings ...Binding) (*Schema, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: cannot infer a schema without rows", embeddings.ErrConfiguration)
	}

	kinds := make(map[string]types.Field)
	var names []string
	for _, row := range rows {
		for name, v := range row {
			f, seen := kinds[name]
			if !seen {
				names = append(names, name)
			}
			if seen && f.Type != "" {
				continue
			}
			kinds[name] = inferField(name, v)
		}
	}
	sort.Strings(names)

	fields := make([]types.Field, 0, len(names)+len(bindings))
	for _, name := range names {
		f := kinds[name]
		if f.Type == "" {
			return nil, fmt.Errorf("%w: cannot infer type of column %q", embeddings.ErrConfiguration, name)
		}
		fields = append(fields, f)
	}

	for _, b := range bindings {
		if _, ok := kinds[b.VectorColumn]; ok {
			continue
		}
		vf := embeddings.NewVectorField(b.Function).Field
		vf.Name = b.VectorColumn
		fields = append(fields, vf)
	}

	return New(fields, bindings...)
}

func inferField(name string, v any) types.Field {
	f := types.Field{Name: name, Nullable: true}
	switch x := v.(type) {
	case string:
		f.Type = types.Utf8
	case bool:
		f.Type = types.Bool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		f.Type = types.Int64
	case float32, float64:
		f.Type = types.Float64
	case []float32:
		f.Type, f.Element, f.Dims = types.FixedSizeList, types.Float32, len(x)
	case []float64:
		f.Type, f.Element, f.Dims = types.FixedSizeList, types.Float32, len(x)
	case []any:
		// decoded JSON arrays
		if _, ok := toFloat32s(x); ok && len(x) > 0 {
			f.Type, f.Element, f.Dims = types.FixedSizeList, types.Float32, len(x)
		}
	}
	return f
}

// Decode rebuilds the bindings of a stored schema by creating each recorded
// function through the registry
func Decode(s types.Schema, reg *embeddings.Registry) (*Schema, error) {
	return DecodeWithParams(s, reg, nil)
}

// DecodeWithParams is Decode with extra parameters per provider name. Extra
// values only fill keys the stored parameters lack, which is how credentials
// kept out of the schema reach the restored function.
func DecodeWithParams(s types.Schema, reg *embeddings.Registry, extra map[string]embeddings.Params) (*Schema, error) {
	configs, err := EmbeddingConfigs(s)
	if err != nil {
		return nil, err
	}

	bindings := make([]Binding, 0, len(configs))
	for _, cfg := range configs {
		params := embeddings.Params(cfg.Params).Clone()
		for k, v := range extra[cfg.Name] {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}
		fn, err := reg.Create(cfg.Name, params)
		if err != nil {
			return nil, fmt.Errorf("failed to restore embedding function for %q: %w", cfg.VectorColumn, err)
		}
		bindings = append(bindings, Binding{
			Function:     fn,
			SourceColumn: cfg.SourceColumn,
			VectorColumn: cfg.VectorColumn,
		})
	}

	return New(s.Fields, bindings...)
}

// EmbeddingConfigs returns the bindings recorded in the schema metadata
func EmbeddingConfigs(s types.Schema) ([]types.EmbeddingConfig, error) {
	var configs []types.EmbeddingConfig
	if raw, ok := s.Metadata[MetaEmbeddingFunctions]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &configs); err != nil {
			return nil, fmt.Errorf("failed to decode embedding metadata: %w", err)
		}
	}
	return configs, nil
}

// Normalize checks row against the schema and converts values to canonical
// Go types: string, int64, float64, bool and []float32. Missing columns become
// nil; unknown columns are rejected.
func (s *Schema) Normalize(row types.Row) (types.Row, error) {
	for name := range row {
		if _, ok := s.Field(name); !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidRow, name)
		}
	}

	out := make(types.Row, len(s.Fields))
	for _, f := range s.Fields {
		v, err := normalizeValue(f, row[f.Name])
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func normalizeValue(f types.Field, v any) (any, error) {
	if v == nil {
		if !f.Nullable {
			return nil, fmt.Errorf("%w: column %q is not nullable", ErrInvalidRow, f.Name)
		}
		return nil, nil
	}

	mismatch := func() error {
		return fmt.Errorf("%w: column %q expects %s, got %T", ErrInvalidRow, f.Name, f.Type, v)
	}

	switch f.Type {
	case types.Utf8:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case types.Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case types.Int64:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		}
	case types.Float64:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case types.FixedSizeList:
		vec, ok := toFloat32s(v)
		if !ok {
			return nil, mismatch()
		}
		if len(vec) != f.Dims {
			return nil, fmt.Errorf("%w: column %q expects %d dims, got %d", ErrInvalidRow, f.Name, f.Dims, len(vec))
		}
		return vec, nil
	}
	return nil, mismatch()
}

func toFloat32s(v any) ([]float32, bool) {
	switch x := v.(type) {
	case []float32:
		return x, true
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(x))
		for i, item := range x {
			switch n := item.(type) {
			case float64:
				out[i] = float32(n)
			case float32:
				out[i] = n
			case int:
				out[i] = float32(n)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/internal/embeddings/mock"
	"github.com/constantino-dev/vecdb/pkg/types"
)

func newMock(dims int) *mock.Function {
	return &mock.Function{
		NameValue:   "mock",
		NdimsValue:  dims,
		ParamsValue: embeddings.Params{"dims": dims},
	}
}

func TestBuild_VectorField(t *testing.T) {
	fn := newMock(3)

	s, err := Build(
		Col("text", fn.SourceField(types.Utf8)),
		Col("vector", fn.VectorField()),
	)
	require.NoError(t, err)

	vf, ok := s.Field("vector")
	require.True(t, ok)
	assert.Equal(t, types.FixedSizeList, vf.Type)
	assert.Equal(t, types.Float32, vf.Element)
	assert.Equal(t, 3, vf.Dims)
	assert.Equal(t, "text", vf.Metadata[MetaSourceColumn])

	sf, ok := s.Field("text")
	require.True(t, ok)
	assert.Equal(t, types.Utf8, sf.Type)
	assert.Equal(t, "mock", sf.Metadata[MetaFunction])
	assert.Equal(t, "vector", sf.Metadata[MetaVectorColumn])

	require.Len(t, s.Bindings, 1)
	assert.Equal(t, "text", s.Bindings[0].SourceColumn)
	assert.Equal(t, "vector", s.Bindings[0].VectorColumn)

	var configs []types.EmbeddingConfig
	require.NoError(t, json.Unmarshal([]byte(s.Metadata[MetaEmbeddingFunctions]), &configs))
	require.Len(t, configs, 1)
	assert.Equal(t, "mock", configs[0].Name)
	assert.Equal(t, float64(3), configs[0].Params["dims"])
}

func TestBuild_KeepsColumnOrderAndPlainColumns(t *testing.T) {
	fn := newMock(2)

	s, err := Build(
		Col("id", embeddings.Plain(types.Int64)),
		Col("vector", fn.VectorField()),
		Col("text", fn.SourceField(types.Utf8)),
		Col("raw", embeddings.PlainVector(types.Float32, 4)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "vector", "text", "raw"}, s.FieldNames())
	assert.Len(t, s.Bindings, 1)
}

func TestBuild_MultipleBindings(t *testing.T) {
	a, b := newMock(2), newMock(5)

	s, err := Build(
		Col("title", a.SourceField(types.Utf8)),
		Col("title_vec", a.VectorField()),
		Col("body", b.SourceField(types.Utf8)),
		Col("body_vec", b.VectorField()),
	)
	require.NoError(t, err)
	require.Len(t, s.Bindings, 2)

	bb, ok := s.Binding("body_vec")
	require.True(t, ok)
	assert.Equal(t, "body", bb.SourceColumn)
	assert.Equal(t, 5, bb.Function.Ndims())

	_, ok = s.Binding("nope")
	assert.False(t, ok)
}

func TestBuild_Errors(t *testing.T) {
	fn := newMock(3)
	other := newMock(3)
	zero := newMock(0)

	tests := []struct {
		name string
		cols []ColumnDef
	}{
		{"no columns", nil},
		{"duplicate column", []ColumnDef{
			Col("a", embeddings.Plain(types.Utf8)),
			Col("a", embeddings.Plain(types.Int64)),
		}},
		{"source without vector", []ColumnDef{
			Col("text", fn.SourceField(types.Utf8)),
		}},
		{"two vectors for one function", []ColumnDef{
			Col("text", fn.SourceField(types.Utf8)),
			Col("v1", fn.VectorField()),
			Col("v2", fn.VectorField()),
		}},
		{"markers from different functions", []ColumnDef{
			Col("text", fn.SourceField(types.Utf8)),
			Col("vector", other.VectorField()),
		}},
		{"non text source", []ColumnDef{
			Col("n", fn.SourceField(types.Int64)),
			Col("vector", fn.VectorField()),
		}},
		{"zero dims", []ColumnDef{
			Col("text", zero.SourceField(types.Utf8)),
			Col("vector", zero.VectorField()),
		}},
		{"float64 vector elements", []ColumnDef{
			Col("raw", embeddings.PlainVector(types.Float64, 4)),
		}},
		{"unsupported type", []ColumnDef{
			Col("x", embeddings.Plain(types.DataType("decimal"))),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.cols...)
			assert.ErrorIs(t, err, embeddings.ErrConfiguration)
		})
	}
}

func TestInfer(t *testing.T) {
	fn := newMock(3)
	rows := []types.Row{
		{"text": "pepperoni", "price": 9.5, "id": 1, "note": nil},
		{"text": "pineapple", "price": 8.0, "id": 2, "note": "sweet"},
	}

	s, err := Infer(rows, Binding{Function: fn, SourceColumn: "text", VectorColumn: "vector"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note", "price", "text", "vector"}, s.FieldNames())

	f, _ := s.Field("id")
	assert.Equal(t, types.Int64, f.Type)
	f, _ = s.Field("note")
	assert.Equal(t, types.Utf8, f.Type)
	f, _ = s.Field("vector")
	assert.Equal(t, 3, f.Dims)
	require.Len(t, s.Bindings, 1)
}

func TestInfer_Errors(t *testing.T) {
	_, err := Infer(nil)
	assert.ErrorIs(t, err, embeddings.ErrConfiguration)

	_, err = Infer([]types.Row{{"x": nil}})
	assert.ErrorIs(t, err, embeddings.ErrConfiguration)

	fn := newMock(3)
	_, err = Infer([]types.Row{{"body": "x"}}, Binding{Function: fn, SourceColumn: "text", VectorColumn: "vector"})
	assert.ErrorIs(t, err, embeddings.ErrConfiguration)
}

func TestDecode(t *testing.T) {
	reg := embeddings.NewRegistry()
	require.NoError(t, reg.Register("mock", func(p embeddings.Params) (embeddings.Function, error) {
		dims, err := p.Int("dims")
		if err != nil {
			return nil, err
		}
		return newMock(dims), nil
	}))

	built, err := Build(
		Col("text", newMock(4).SourceField(types.Utf8)),
		Col("vector", newMock(4).VectorField()),
	)
	// Different instances do not pair.
	require.Error(t, err)

	fn := newMock(4)
	built, err = Build(
		Col("text", fn.SourceField(types.Utf8)),
		Col("vector", fn.VectorField()),
	)
	require.NoError(t, err)

	// Simulate persistence.
	data, err := json.Marshal(built.Schema)
	require.NoError(t, err)
	var stored types.Schema
	require.NoError(t, json.Unmarshal(data, &stored))

	restored, err := Decode(stored, reg)
	require.NoError(t, err)
	require.Len(t, restored.Bindings, 1)
	assert.Equal(t, 4, restored.Bindings[0].Function.Ndims())
	assert.Equal(t, built.Metadata, restored.Metadata)
}

func TestDecode_UnknownProvider(t *testing.T) {
	fn := newMock(2)
	built, err := Build(
		Col("text", fn.SourceField(types.Utf8)),
		Col("vector", fn.VectorField()),
	)
	require.NoError(t, err)

	_, err = Decode(built.Schema, embeddings.NewRegistry())
	assert.ErrorIs(t, err, embeddings.ErrNotRegistered)
}

func TestNormalize(t *testing.T) {
	s, err := New([]types.Field{
		{Name: "id", Type: types.Int64, Nullable: true},
		{Name: "text", Type: types.Utf8, Nullable: true},
		{Name: "score", Type: types.Float64, Nullable: true},
		{Name: "ok", Type: types.Bool},
		{Name: "vec", Type: types.FixedSizeList, Element: types.Float32, Dims: 2, Nullable: true},
	})
	require.NoError(t, err)

	row, err := s.Normalize(types.Row{"id": 3, "score": float32(0.5), "ok": true, "vec": []any{1.0, 2.0}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), row["id"])
	assert.Equal(t, 0.5, row["score"])
	assert.Equal(t, []float32{1, 2}, row["vec"])
	assert.Nil(t, row["text"])

	tests := []types.Row{
		{"ok": true, "unknown": 1},
		{"ok": true, "id": "three"},
		{"ok": true, "vec": []float32{1}},
		{"ok": true, "id": 1.5},
		{"id": 1},
	}
	for _, r := range tests {
		_, err := s.Normalize(r)
		assert.ErrorIs(t, err, ErrInvalidRow, "%v", r)
	}
}

func TestEmbeddingConfigs(t *testing.T) {
	fn := newMock(2)
	s, err := Build(
		Col("body", fn.SourceField(types.Utf8)),
		Col("vec", fn.VectorField()),
	)
	require.NoError(t, err)

	configs, err := EmbeddingConfigs(s.Schema)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "mock", configs[0].Name)
	assert.Equal(t, "body", configs[0].SourceColumn)
	assert.Equal(t, "vec", configs[0].VectorColumn)

	none, err := EmbeddingConfigs(types.Schema{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = EmbeddingConfigs(types.Schema{Metadata: map[string]string{MetaEmbeddingFunctions: "{"}})
	assert.Error(t, err)
}

func TestBuild_OmitsSecretParams(t *testing.T) {
	fn := newMock(2)
	fn.ParamsValue = embeddings.Params{"dims": 2, "api_key": "sk-secret"}

	s, err := Build(
		Col("text", fn.SourceField(types.Utf8)),
		Col("vector", fn.VectorField()),
	)
	require.NoError(t, err)
	assert.NotContains(t, s.Metadata[MetaEmbeddingFunctions], "sk-secret")

	configs, err := EmbeddingConfigs(s.Schema)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.NotContains(t, configs[0].Params, "api_key")
	assert.Equal(t, float64(2), configs[0].Params["dims"])
}

func TestDecodeWithParams(t *testing.T) {
	var got embeddings.Params
	reg := embeddings.NewRegistry()
	require.NoError(t, reg.Register("mock", func(p embeddings.Params) (embeddings.Function, error) {
		got = p
		return newMock(2), nil
	}))

	fn := newMock(2)
	fn.ParamsValue = embeddings.Params{"dims": 2, "model": "stored"}
	built, err := Build(
		Col("text", fn.SourceField(types.Utf8)),
		Col("vector", fn.VectorField()),
	)
	require.NoError(t, err)

	_, err = DecodeWithParams(built.Schema, reg, map[string]embeddings.Params{
		"mock":  {"api_key": "sk-test", "model": "override"},
		"other": {"api_key": "unused"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got["api_key"])
	assert.Equal(t, "stored", got["model"])

	_, err = Decode(built.Schema, reg)
	require.NoError(t, err)
	assert.NotContains(t, got, "api_key")
}

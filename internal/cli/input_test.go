package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantino-dev/vecdb/internal/config"
	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

func TestReadRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []types.Row
	}{
		{
			name:  "json array",
			input: `[{"text": "a"}, {"text": "b", "n": 2}]`,
			want:  []types.Row{{"text": "a"}, {"text": "b", "n": float64(2)}},
		},
		{
			name:  "json lines",
			input: "{\"text\": \"a\"}\n\n{\"text\": \"b\"}\n",
			want:  []types.Row{{"text": "a"}, {"text": "b"}},
		},
		{
			name:  "vectors",
			input: `{"vector": [1, 0.5]}`,
			want:  []types.Row{{"vector": []any{float64(1), 0.5}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := readRows(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestReadRowsErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "[{", "{\"a\": 1}\nnot json"} {
		_, err := readRows(strings.NewReader(input))
		assert.Error(t, err, input)
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"dims=3",
		"value=0.5",
		"use_azure=true",
		"model=text-embedding-3-small",
		"vector=[1,2]",
		"base_url=http://localhost:11434/v1",
	})
	require.NoError(t, err)

	assert.Equal(t, embeddings.Params{
		"dims":      3,
		"value":     0.5,
		"use_azure": true,
		"model":     "text-embedding-3-small",
		"vector":    []any{float64(1), float64(2)},
		"base_url":  "http://localhost:11434/v1",
	}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=1"})
	assert.Error(t, err)
}

func TestParseVector(t *testing.T) {
	vec, err := parseVector("0.1, 2,-3")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 2, -3}, vec)

	vec, err = parseVector("[1,2]")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)

	_, err = parseVector("1,x")
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, "<3 dims>", formatValue([]float32{1, 2, 3}))
	assert.Equal(t, "a b", formatValue("a\nb"))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Len(t, formatValue(strings.Repeat("x", 200)), 80)
}

func TestNewFunction(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Embedding.Provider = "fixed"
	cfg.Embedding.Model = ""

	fn, err := newFunction(cfg, "", "", []string{"dims=4"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", fn.Name())
	assert.Equal(t, 4, fn.Ndims())

	_, err = newFunction(cfg, "nope", "", nil)
	assert.ErrorIs(t, err, embeddings.ErrNotRegistered)

	// config params belong to the configured provider only
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = "sk-test"
	fn, err = newFunction(cfg, "", "text-embedding-3-small", []string{"dim=8"})
	require.NoError(t, err)
	assert.Equal(t, 8, fn.Ndims())
	assert.NotContains(t, fn.Params(), "api_key")
}

func TestCheckPiped(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "rows.jsonl"))
	require.NoError(t, err)
	assert.NoError(t, checkPiped(f))

	require.NoError(t, f.Close())
	err = checkPiped(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read stdin")
}

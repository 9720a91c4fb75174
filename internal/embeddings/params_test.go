package embeddings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Int(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"absent", nil, 0, false},
		{"int", 3, 3, false},
		{"int64", int64(4), 4, false},
		{"json float", float64(1536), 1536, false},
		{"json number", json.Number("12"), 12, false},
		{"fraction", 1.5, 0, true},
		{"string", "3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{}
			if tt.value != nil {
				p["k"] = tt.value
			}
			got, err := p.Int("k")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Accessors(t *testing.T) {
	p := Params{"s": "text", "b": true, "f": 2, "l": []any{1, 2.5}}

	s, err := p.String("s")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	_, err = p.String("b")
	assert.ErrorIs(t, err, ErrConfiguration)

	b, err := p.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)

	f, err := p.Float("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	f, err = p.Float("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	l, err := p.Floats("l")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5}, l)
}

func TestParams_Clone(t *testing.T) {
	var p Params
	c := p.Clone()
	require.NotNil(t, c)

	p = Params{"a": 1}
	c = p.Clone()
	c["a"] = 2
	assert.Equal(t, 1, p["a"])
}

func TestQueryText(t *testing.T) {
	q, err := QueryText("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", q)

	_, err = QueryText([]float32{1})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParams_WithoutSecrets(t *testing.T) {
	p := Params{"model": "m", "api_key": "sk-secret"}
	clean := p.WithoutSecrets()
	assert.Equal(t, Params{"model": "m"}, clean)
	assert.Equal(t, "sk-secret", p["api_key"])
}

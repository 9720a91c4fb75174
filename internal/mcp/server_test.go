package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantino-dev/vecdb/internal/core"
	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/internal/embeddings/fixed"
	"github.com/constantino-dev/vecdb/internal/embeddings/mock"
	"github.com/constantino-dev/vecdb/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := embeddings.NewRegistry()
	require.NoError(t, reg.Register(fixed.Name, func(p embeddings.Params) (embeddings.Function, error) {
		return fixed.New(p)
	}))

	engine, err := core.Connect(filepath.Join(t.TempDir(), "vecdb.db"), core.Options{Registry: reg})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	fn, err := reg.Create(fixed.Name, embeddings.Params{"dims": 2})
	require.NoError(t, err)
	_, err = engine.CreateTable(context.Background(), "docs", core.CreateOptions{Function: fn})
	require.NoError(t, err)

	s, err := NewServer(nil, engine)
	require.NoError(t, err)
	return s
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	res, added, err := s.addRows(ctx, nil, addRowsInput{
		Table: "docs",
		Rows:  []types.Row{{"text": "hello"}, {"text": "world"}},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, added.Added)
	assert.Equal(t, 2, added.Total)

	_, found, err := s.searchTable(ctx, nil, searchTableInput{Table: "docs", Query: "hello", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, found.Count)
	assert.InDelta(t, 0, found.Results[0].Distance, 1e-6)

	_, found, err = s.searchTable(ctx, nil, searchTableInput{Table: "docs", Vector: []float32{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, found.Count)
}

func TestSearchValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	_, _, err := s.searchTable(ctx, nil, searchTableInput{Query: "x"})
	assert.Error(t, err)

	_, _, err = s.searchTable(ctx, nil, searchTableInput{Table: "docs"})
	assert.Error(t, err)

	_, _, err = s.searchTable(ctx, nil, searchTableInput{Table: "missing", Query: "x"})
	assert.ErrorIs(t, err, core.ErrTableNotFound)

	_, _, err = s.addRows(ctx, nil, addRowsInput{Table: "docs"})
	assert.Error(t, err)
}

func TestListTablesAndProviders(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	_, tables, err := s.listTables(ctx, nil, listTablesInput{})
	require.NoError(t, err)
	require.Len(t, tables.Tables, 1)
	summary := tables.Tables[0]
	assert.Equal(t, "docs", summary.Name)
	assert.Equal(t, 0, summary.Rows)
	require.Len(t, summary.Embeddings, 1)
	assert.Equal(t, fixed.Name, summary.Embeddings[0].Name)
	assert.Equal(t, "vector", summary.Embeddings[0].VectorColumn)

	_, providers, err := s.listProviders(ctx, nil, listProvidersInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{fixed.Name}, providers.Providers)
}

func TestListTablesWithUnregisteredProvider(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	fn := &mock.Function{NameValue: "elsewhere", NdimsValue: 2}
	_, err := s.engine.CreateTable(ctx, "remote", core.CreateOptions{Function: fn})
	require.NoError(t, err)

	_, _, err = s.searchTable(ctx, nil, searchTableInput{Table: "remote", Query: "x"})
	assert.ErrorIs(t, err, embeddings.ErrNotRegistered)

	_, tables, err := s.listTables(ctx, nil, listTablesInput{})
	require.NoError(t, err)
	require.Len(t, tables.Tables, 2)
	remote := tables.Tables[1]
	assert.Equal(t, "remote", remote.Name)
	require.Len(t, remote.Embeddings, 1)
	assert.Equal(t, "elsewhere", remote.Embeddings[0].Name)
	assert.Len(t, remote.Columns, 2)
}

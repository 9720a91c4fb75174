package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantino-dev/vecdb/internal/config"
	"github.com/constantino-dev/vecdb/internal/core"
	"github.com/constantino-dev/vecdb/internal/schema"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// resetFlags restores every flag to its default, since flag variables are
// package state shared by all runs in a test binary
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestCommandFlow(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, run(t, "init", "-p", dir, "--provider", "fixed"))
	assert.FileExists(t, config.Path(dir))
	assert.Error(t, run(t, "init", "-p", dir, "--provider", "fixed"))

	require.NoError(t, run(t, "create", "docs", "-p", dir, "--param", "dims=3"))

	rowsFile := filepath.Join(dir, "rows.jsonl")
	require.NoError(t, os.WriteFile(rowsFile, []byte("{\"text\": \"hello\"}\n{\"text\": \"world\"}\n"), 0644))
	require.NoError(t, run(t, "add", "docs", rowsFile, "-p", dir))

	require.NoError(t, run(t, "search", "docs", "hello", "-p", dir, "--limit", "1"))
	require.NoError(t, run(t, "tables", "-p", dir))
	require.NoError(t, run(t, "schema", "docs", "-p", dir))
	require.NoError(t, run(t, "stats", "-p", dir))
	require.NoError(t, run(t, "providers"))

	engine, err := core.Connect(filepath.Join(dir, config.Dir, config.DefaultDBFile), core.Options{})
	require.NoError(t, err)
	table, err := engine.OpenTable(context.Background(), "docs")
	require.NoError(t, err)
	count, err := table.CountRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, engine.Close())

	require.NoError(t, run(t, "drop", "docs", "-p", dir, "--force"))
	assert.Error(t, run(t, "schema", "docs", "-p", dir))
}

func TestCommandsRequireInit(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, run(t, "tables", "-p", dir))
}

func TestCreateDoesNotStoreAPIKey(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, run(t, "init", "-p", dir, "--provider", "fixed", "--api-key", "sk-secret"))
	require.NoError(t, run(t, "create", "docs", "-p", dir, "--param", "dims=3"))

	engine, err := core.Connect(filepath.Join(dir, config.Dir, config.DefaultDBFile), core.Options{})
	require.NoError(t, err)
	defer engine.Close()

	info, err := engine.TableInfo(context.Background(), "docs")
	require.NoError(t, err)
	meta := info.Schema.Metadata[schema.MetaEmbeddingFunctions]
	assert.NotEmpty(t, meta)
	assert.NotContains(t, meta, "sk-secret")
	assert.NotContains(t, meta, "api_key")
}

func TestOpenAITableReopensWithConfiguredKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{1, 0, 0, 0}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "text-embedding-3-small"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, run(t, "init", "-p", dir, "--provider", "openai", "--api-key", "sk-test",
		"--model", "text-embedding-3-small", "--base-url", srv.URL+"/v1"))
	require.NoError(t, run(t, "create", "docs", "-p", dir, "--param", "dim=4"))

	rowsFile := filepath.Join(dir, "rows.jsonl")
	require.NoError(t, os.WriteFile(rowsFile, []byte("{\"text\": \"hello\"}\n"), 0644))
	require.NoError(t, run(t, "add", "docs", rowsFile, "-p", dir))
	require.NoError(t, run(t, "search", "docs", "hello", "-p", dir))
	assert.Equal(t, int32(2), calls.Load())
}

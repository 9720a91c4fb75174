// Package core provides the main vecdb engine
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/constantino-dev/vecdb/internal/db"
	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/internal/schema"
	"github.com/constantino-dev/vecdb/pkg/types"
)

var (
	ErrTableExists   = db.ErrTableExists
	ErrTableNotFound = db.ErrTableNotFound
)

// Default column names used when a table is created from a function alone
const (
	DefaultSourceColumn = "text"
	DefaultVectorColumn = "vector"
)

// Options configures an Engine
type Options struct {
	// Logger defaults to a no-op logger
	Logger *zap.Logger

	// Registry resolves embedding functions of reopened tables. Defaults to
	// the process-wide registry.
	Registry *embeddings.Registry

	// Credentials supplies per-provider parameters that are never stored
	// with a table, such as api_key. They fill keys missing from the stored
	// parameters when a table is reopened.
	Credentials map[string]embeddings.Params
}

// Engine is the main vecdb engine that coordinates storage, the embedding
// registry and the insert/query pipeline
type Engine struct {
	store       *db.DB
	registry    *embeddings.Registry
	credentials map[string]embeddings.Params
	logger      *zap.Logger
	metrics     *Metrics
}

// Connect opens (or creates) the database at path
func Connect(path string, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = embeddings.Default()
	}

	// Ensure data directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	opts.Logger.Debug("database opened", zap.String("path", path))

	return &Engine{
		store:       store,
		registry:    opts.Registry,
		credentials: opts.Credentials,
		logger:      opts.Logger,
		metrics:     NewMetrics(opts.Logger),
	}, nil
}

// Close shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Registry returns the registry used to restore embedding functions
func (e *Engine) Registry() *embeddings.Registry {
	return e.registry
}

// CreateOptions describes a new table. Exactly one way of defining the
// schema applies, in this order: Schema, Function (with optional Data to
// infer the remaining columns), Data alone.
type CreateOptions struct {
	Schema *schema.Schema

	Function     embeddings.Function
	SourceColumn string // Defaults to DefaultSourceColumn
	VectorColumn string // Defaults to DefaultVectorColumn

	// Data goes through the regular insert pipeline and is written in the
	// same transaction that creates the table
	Data []types.Row

	Mode types.CreateMode
}

// CreateTable creates a table and inserts the initial data, if any. Creation
// and the initial insert commit together: on failure no new table exists and
// an overwritten table keeps its previous contents.
func (e *Engine) CreateTable(ctx context.Context, name string, opts CreateOptions) (*Table, error) {
	s, err := resolveSchema(opts)
	if err != nil {
		return nil, err
	}

	switch opts.Mode {
	case "", types.ModeCreate, types.ModeOverwrite:
	default:
		return nil, fmt.Errorf("%w: unknown create mode %q", embeddings.ErrConfiguration, opts.Mode)
	}
	overwrite := opts.Mode == types.ModeOverwrite

	// fail before paying for embeddings; the store checks again atomically
	if err := db.ValidateTableName(name); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	if !overwrite {
		existing, err := e.store.GetTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("failed to create table: %w: %s", ErrTableExists, name)
		}
	}

	t := &Table{engine: e, name: name, schema: s}
	var rows []types.Row
	if len(opts.Data) > 0 {
		if rows, err = t.prepareRows(ctx, opts.Data); err != nil {
			return nil, err
		}
	}

	if err := e.store.CreateTableWithRows(ctx, name, s.Schema, overwrite, rows); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	e.logger.Info("table created",
		zap.String("table", name),
		zap.Int("columns", len(s.Fields)),
		zap.Int("bindings", len(s.Bindings)),
		zap.Int("rows", len(rows)))

	return t, nil
}

func resolveSchema(opts CreateOptions) (*schema.Schema, error) {
	switch {
	case opts.Schema != nil:
		if opts.Function != nil {
			return nil, fmt.Errorf("%w: pass either a schema or a function, not both", embeddings.ErrConfiguration)
		}
		return opts.Schema, nil

	case opts.Function != nil:
		b := schema.Binding{
			Function:     opts.Function,
			SourceColumn: opts.SourceColumn,
			VectorColumn: opts.VectorColumn,
		}
		if b.SourceColumn == "" {
			b.SourceColumn = DefaultSourceColumn
		}
		if b.VectorColumn == "" {
			b.VectorColumn = DefaultVectorColumn
		}
		if len(opts.Data) > 0 {
			return schema.Infer(opts.Data, b)
		}
		return schema.Build(
			schema.Col(b.SourceColumn, b.Function.SourceField(types.Utf8)),
			schema.Col(b.VectorColumn, b.Function.VectorField()),
		)

	case len(opts.Data) > 0:
		return schema.Infer(opts.Data)
	}

	return nil, fmt.Errorf("%w: a schema, a function or data is required to create a table", embeddings.ErrConfiguration)
}

// OpenTable opens an existing table and restores its embedding functions
// through the registry
func (e *Engine) OpenTable(ctx context.Context, name string) (*Table, error) {
	info, err := e.store.GetTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	s, err := schema.DecodeWithParams(info.Schema, e.registry, e.credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", name, err)
	}
	return &Table{engine: e, name: name, schema: s}, nil
}

// TableNames returns the names of all tables, sorted
func (e *Engine) TableNames(ctx context.Context) ([]string, error) {
	tables, err := e.store.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names, nil
}

// Tables returns the stored description of all tables
func (e *Engine) Tables(ctx context.Context) ([]types.TableInfo, error) {
	return e.store.ListTables(ctx)
}

// DropTable removes a table
func (e *Engine) DropTable(ctx context.Context, name string) error {
	if err := e.store.DropTable(ctx, name); err != nil {
		return err
	}
	e.logger.Info("table dropped", zap.String("table", name))
	return nil
}

// CountRowsOf returns the row count of a table without restoring its
// embedding functions
func (e *Engine) CountRowsOf(ctx context.Context, name string) (int, error) {
	if _, err := e.TableInfo(ctx, name); err != nil {
		return 0, err
	}
	return e.store.CountRows(ctx, name)
}

// TableInfo returns the stored description of a table
func (e *Engine) TableInfo(ctx context.Context, name string) (*types.TableInfo, error) {
	info, err := e.store.GetTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return info, nil
}

// Package config loads vecdb configuration.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (VECDB_DB_PATH, VECDB_LOG_LEVEL, ...)
//  2. YAML config file (<project>/.vecdb/config.yaml)
//  3. Defaults
//
// Environment variables drop the VECDB_ prefix, are lowercased and split on
// the first underscore:
//
//	VECDB_DB_PATH         -> db.path
//	VECDB_EMBEDDING_MODEL -> embedding.model
//	VECDB_EMBEDDING_API_KEY -> embedding.api_key
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/constantino-dev/vecdb/internal/embeddings"
)

const (
	// Dir is the per-project directory holding config and database
	Dir = ".vecdb"
	// File is the config file name inside Dir
	File = "config.yaml"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "VECDB_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Defaults
const (
	DefaultDBFile    = "vecdb.db"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultProvider  = "openai"
	DefaultModel     = "text-embedding-ada-002"
)

// Config is the top-level configuration
type Config struct {
	DB        DBConfig        `koanf:"db"`
	Log       LogConfig       `koanf:"log"`
	Embedding EmbeddingConfig `koanf:"embedding"`
}

// DBConfig locates the database file
type DBConfig struct {
	Path string `koanf:"path"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console or json
}

// EmbeddingConfig is the default embedding function for new tables
type EmbeddingConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	Dim      int    `koanf:"dim"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`
}

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText implements encoding.TextMarshaler. Always returns redacted value.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Default returns the configuration used when nothing is set
func Default(projectDir string) *Config {
	cfg := &Config{}
	applyDefaults(cfg, projectDir)
	return cfg
}

// Path returns the config file location for a project directory
func Path(projectDir string) string {
	return filepath.Join(projectDir, Dir, File)
}

// Load reads the project's config file, if present, and applies environment
// overrides and defaults. A relative db.path is resolved against projectDir.
func Load(projectDir string) (*Config, error) {
	k := koanf.New(".")

	configPath := Path(projectDir)
	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, projectDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps VECDB_SECTION_FIELD_NAME to section.field_name
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config, projectDir string) {
	if cfg.DB.Path == "" {
		cfg.DB.Path = filepath.Join(Dir, DefaultDBFile)
	}
	if !filepath.IsAbs(cfg.DB.Path) {
		cfg.DB.Path = filepath.Join(projectDir, cfg.DB.Path)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultProvider
	}
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == DefaultProvider {
		cfg.Embedding.Model = DefaultModel
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q, expected console or json", c.Log.Format)
	}
	if c.Embedding.Dim < 0 {
		return fmt.Errorf("embedding.dim must not be negative")
	}
	return nil
}

// EmbeddingParams returns the provider params for the configured default
// embedding function. The api key is included only when set.
func (c *Config) EmbeddingParams() embeddings.Params {
	p := embeddings.Params{}
	if c.Embedding.Model != "" {
		p["model"] = c.Embedding.Model
	}
	if c.Embedding.Dim > 0 {
		p["dim"] = c.Embedding.Dim
	}
	if c.Embedding.BaseURL != "" {
		p["base_url"] = c.Embedding.BaseURL
	}
	if c.Embedding.APIKey.IsSet() {
		p["api_key"] = c.Embedding.APIKey.Value()
	}
	return p
}

// Credentials returns the secret params for the configured provider, keyed by
// provider name. Tables never store them, so they are supplied again when a
// table is reopened.
func (c *Config) Credentials() map[string]embeddings.Params {
	if c.Embedding.Provider == "" || !c.Embedding.APIKey.IsSet() {
		return nil
	}
	return map[string]embeddings.Params{
		c.Embedding.Provider: {"api_key": c.Embedding.APIKey.Value()},
	}
}

// Save writes cfg to the project's config file with owner-only permissions.
// db.path is written relative to projectDir when it lies inside it.
func Save(projectDir string, cfg *Config) error {
	dir := filepath.Join(projectDir, Dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	dbPath := cfg.DB.Path
	if rel, err := filepath.Rel(projectDir, dbPath); err == nil && !strings.HasPrefix(rel, "..") {
		dbPath = rel
	}

	embedding := map[string]any{
		"provider": cfg.Embedding.Provider,
		"model":    cfg.Embedding.Model,
	}
	if cfg.Embedding.Dim > 0 {
		embedding["dim"] = cfg.Embedding.Dim
	}
	if cfg.Embedding.BaseURL != "" {
		embedding["base_url"] = cfg.Embedding.BaseURL
	}
	if cfg.Embedding.APIKey.IsSet() {
		embedding["api_key"] = cfg.Embedding.APIKey.Value()
	}

	data, err := yaml.Parser().Marshal(map[string]any{
		"db":        map[string]any{"path": dbPath},
		"log":       map[string]any{"level": cfg.Log.Level, "format": cfg.Log.Format},
		"embedding": embedding,
	})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(Path(projectDir), data, 0600)
}

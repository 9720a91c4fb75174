// Package cli implements the vecdb command-line interface
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/constantino-dev/vecdb/internal/config"
	"github.com/constantino-dev/vecdb/internal/core"
	"github.com/constantino-dev/vecdb/internal/logging"

	// Built-in embedding providers
	_ "github.com/constantino-dev/vecdb/internal/embeddings/fixed"
	_ "github.com/constantino-dev/vecdb/internal/embeddings/openai"
)

var (
	// Global flags
	projectDir string
	verbose    bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "vecdb",
		Short: "vecdb - Vector tables with pluggable embedding functions",
		Long: `vecdb stores rows in vector tables and keeps their embeddings up to date.

Tables bind a text column to a vector column through an embedding function
(openai, fixed, ...). Rows added without vectors are embedded on insert, and
text queries are embedded with the same function on search.

Use 'vecdb init' to initialize a new database.`,
		SilenceUsage: true,
	}
)

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (JSON results, debug logs)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(mcpCmd)
}

// getProjectDir returns the project directory
func getProjectDir() string {
	if projectDir != "" {
		return projectDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

// loadConfig loads the configuration. An explicit VECDB_DB_PATH makes the
// config file optional.
func loadConfig() (*config.Config, error) {
	dir := getProjectDir()
	if _, err := os.Stat(config.Path(dir)); err != nil && os.Getenv(config.EnvPrefix+"DB_PATH") == "" {
		return nil, fmt.Errorf("config not found. Run 'vecdb init' first")
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// getEngine creates and returns a vecdb engine
func getEngine() (*core.Engine, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("config loaded",
		zap.String("db", cfg.DB.Path),
		zap.String("provider", cfg.Embedding.Provider),
		logging.Secret("api_key", cfg.Embedding.APIKey))

	engine, err := core.Connect(cfg.DB.Path, core.Options{
		Logger:      logger,
		Credentials: cfg.Credentials(),
	})
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

// printJSON prints a value as JSON
func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/constantino-dev/vecdb/internal/config"
	"github.com/constantino-dev/vecdb/internal/embeddings/openai"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vecdb database",
	Long: `Initialize a new vecdb database in the current directory.

This creates a .vecdb directory with configuration and database files.

Examples:
  vecdb init
  vecdb init --model text-embedding-3-small
  vecdb init --provider fixed`,
	RunE: runInit,
}

var (
	initAPIKey   string
	initProvider string
	initModel    string
	initBaseURL  string
)

func init() {
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "Embedding provider API key (default: $OPENAI_API_KEY)")
	initCmd.Flags().StringVar(&initProvider, "provider", config.DefaultProvider, "Default embedding provider (openai, fixed)")
	initCmd.Flags().StringVar(&initModel, "model", "", "Default embedding model")
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "", "Base URL of an OpenAI-compatible API")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := getProjectDir()
	configDir := filepath.Join(dir, config.Dir)

	// Check if already initialized
	if _, err := os.Stat(config.Path(dir)); err == nil {
		return fmt.Errorf("vecdb already initialized in this directory")
	}

	cfg := config.Default(dir)
	cfg.Embedding.Provider = initProvider
	cfg.Embedding.BaseURL = initBaseURL
	if initModel != "" {
		cfg.Embedding.Model = initModel
	} else if initProvider != config.DefaultProvider {
		cfg.Embedding.Model = ""
	}

	// The key is only stored when given explicitly or typed in
	apiKey := initAPIKey
	if initProvider == openai.Name && apiKey == "" && os.Getenv(openai.APIKeyEnv) == "" {
		fmt.Print("Enter OpenAI API key (or set OPENAI_API_KEY env var): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		apiKey = strings.TrimSpace(input)

		if apiKey == "" {
			return fmt.Errorf("OpenAI API key is required")
		}
	}
	cfg.Embedding.APIKey = config.Secret(apiKey)

	// Save config
	if err := config.Save(dir, cfg); err != nil {
		os.RemoveAll(configDir)
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Initialize database by opening engine
	engine, _, err := getEngine()
	if err != nil {
		os.RemoveAll(configDir)
		return fmt.Errorf("failed to initialize: %w", err)
	}
	engine.Close()

	fmt.Println("✓ vecdb initialized successfully")
	fmt.Printf("  Config: %s\n", config.Path(dir))
	fmt.Printf("  Database: %s\n", cfg.DB.Path)

	return nil
}

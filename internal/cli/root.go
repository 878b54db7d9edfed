package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragpipe/config"
	"ragpipe/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Naive RAG pipeline - index documents and answer questions over them",
	Long: `ragpipe indexes local documents into a vector index, retrieves the
chunks most similar to a query and generates answers grounded in them
with an OpenAI-compatible chat model.

Example usage:
  ragpipe index ./docs                   # Chunk and embed documents
  ragpipe query -q "refund policy"       # Retrieval only
  ragpipe ask -q "how do refunds work?"  # Retrieve and answer`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// A .env in the working directory provides API keys during
		// development. Missing files are fine.
		_ = godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(logger)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragpipe.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// commandContext returns the command's context carrying the logger.
func commandContext(cmd *cobra.Command) context.Context {
	return logging.NewContext(cmd.Context(), logger)
}

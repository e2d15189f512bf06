package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
)

var (
	globalEnv    string
	globalConfig config.Config
	globalLogger *zap.Logger

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "semsearch",
	Short: "Tokenize text and find the most similar passages in a static corpus",
	Long: `semsearch embeds every line of a text corpus once, caches the vectors,
and answers free-text queries with the top-k passages by cosine similarity.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		// .env is optional; real environment variables win.
		_ = godotenv.Load()

		globalEnv = config.GetEnv()

		var err error
		if configPath != "" {
			globalConfig, err = config.LoadFile(configPath)
		} else {
			globalConfig, err = config.Load(globalEnv)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		globalLogger, err = logpkg.NewLogger(globalEnv, logpkg.Options{
			Level:  globalConfig.Logging.Level,
			Format: globalConfig.Logging.Format,
		})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if globalLogger != nil {
			_ = globalLogger.Sync()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML config file (default: config/<ENV>.yaml)")
}

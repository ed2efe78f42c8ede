package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/app"
	"docqa/internal/config"
)

var (
	// cfgPath is the YAML config file; empty means ./config.yaml or the user config
	cfgPath string
	// logLevel overrides log.level from the config
	logLevel string

	cfg    *config.AppConfig
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a document",
	Long: `docqa indexes a text, markdown or PDF document and answers questions
about it from the most relevant passages.

Examples:
  # Interactive question answering over a PDF
  docqa ask manual.pdf

  # One-shot query, printing the retrieved context as JSON
  docqa query notes.md "What is the deadline?" --json

  # HTTP API on :5000
  docqa serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		var err error
		if cfgPath == "" {
			cfg, _, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(cfgPath)
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (defaults to ./config.yaml or ~/.config/docqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// setupLogger replaces the package logger; paths redirect output away from stderr.
func setupLogger(paths ...string) error {
	l, err := app.NewLogger(cfg.Log.Level, false, paths...)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

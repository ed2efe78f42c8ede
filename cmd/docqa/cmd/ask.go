package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/app"
	"docqa/internal/extract"
	"docqa/internal/tui"
)

var askLogFile string

var askCmd = &cobra.Command{
	Use:   "ask FILE",
	Short: "Index a document and ask questions interactively",
	Long: `Index a document and open an interactive terminal session for questions.

Examples:
  docqa ask report.pdf
  docqa ask notes.md --log-file /tmp/docqa.log`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLogFile, "log-file", "", "Write logs to this file (logs are discarded otherwise)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the UI, so logs only go to a file
	if askLogFile != "" {
		if err := setupLogger(askLogFile); err != nil {
			return err
		}
	}
	svc, err := app.NewService(cfg, logger)
	if err != nil {
		return err
	}
	doc, err := extract.File(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	fmt.Fprintf(cmd.ErrOrStderr(), "Indexing %s...\n", doc.Source)
	rep, err := svc.IngestDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", args[0], err)
	}
	logger.Info("ready", zap.String("source", rep.Source), zap.Int("chunks", rep.Chunks))

	m := tui.New(ctx, svc, cfg.Retriever.TopK, rep)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

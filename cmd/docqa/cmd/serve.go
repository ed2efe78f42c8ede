package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/app"
	"docqa/internal/extract"
	"docqa/internal/server"
)

var (
	serveAddr    string
	servePreload string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve /upload, /ask, /context, /health and /metrics.

Examples:
  docqa serve --addr :8080
  docqa serve --preload handbook.pdf`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr)")
	serveCmd.Flags().StringVar(&servePreload, "preload", "", "Index this file before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := setupLogger(); err != nil {
		return err
	}
	svc, err := app.NewService(cfg, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if servePreload != "" {
		doc, err := extract.File(servePreload)
		if err != nil {
			return err
		}
		rep, err := svc.IngestDocument(ctx, doc)
		if err != nil {
			return err
		}
		logger.Info("preloaded document", zap.String("source", rep.Source), zap.Uint64("generation", rep.Generation))
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := server.New(svc, server.Config{TopK: cfg.Retriever.TopK, MaxUploadMB: cfg.Server.MaxUploadMB}, logger)
	return srv.Run(ctx, addr)
}

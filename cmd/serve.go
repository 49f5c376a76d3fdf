package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrops-br/inventory-scanner/internal/app/service"
	httpserver "github.com/mrops-br/inventory-scanner/internal/infrastructure/http"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/http/handler"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scanner HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides SERVER_HOST)")
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port (overrides SERVER_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	logger := app.logger

	logger.Info("Starting inventory scanner API")

	sessions := service.NewSessionService(app.pipeline, cfg.Sessions.IdleTimeout, app.tracer, app.meter, logger)
	go sessions.RunJanitor(ctx, cfg.Sessions.SweepInterval)

	server := httpserver.NewServer(&cfg.Server, httpserver.Handlers{
		Sessions:  handler.NewSessionHandler(sessions, logger),
		Inventory: handler.NewInventoryHandler(app.inventory, app.lookup, logger),
		Barcode:   handler.NewBarcodeHandler(app.pipeline.Source, app.pipeline.Decoder, logger),
	}, app.telem.MeterProvider, logger)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case runErr = <-serverErr:
		if runErr != nil {
			logger.Error("Server error", slog.String("error", runErr.Error()))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
	}
	if err := sessions.CloseAll(shutdownCtx); err != nil {
		logger.Error("Error releasing scan sessions", slog.String("error", err.Error()))
	}
	if err := app.close(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
	return runErr
}

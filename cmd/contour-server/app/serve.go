package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/acalcutt/contour-mvt-server/internal/api"
	"github.com/acalcutt/contour-mvt-server/internal/config"
	"github.com/acalcutt/contour-mvt-server/internal/logger"
	"github.com/acalcutt/contour-mvt-server/internal/service"
	"github.com/acalcutt/contour-mvt-server/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the contour tile server",
	Long: `Start the contour tile server to serve elevation contour vector tiles.

The server requires a configuration file (--config) that declares the DEM
sources: where each one lives (pmtiles, mbtiles, or an http tile URL
template), its elevation encoding, and the contour levels or per-zoom
interval thresholds to extract.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 55 * time.Second // contour extraction over remote archives can be slow
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 60 * time.Second // must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML or JSON, required)")

	err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address"))
	if err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	err = viper.BindPFlag("config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	address := viper.GetString("address")
	if address == "" {
		address = fmt.Sprintf(":%d", cfg.Port())
	}

	svc, err := service.NewService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create contour service: %w", err)
	}

	meterProvider, err := telemetry.NewMeterProvider()
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	tileMetrics, err := telemetry.NewTileMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create tile metrics: %w", err)
	}

	router := api.NewServer(svc,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			httpMetrics.Middleware,
			api.LoggingMiddleware,
		),
		api.WithTileMetrics(tileMetrics),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}

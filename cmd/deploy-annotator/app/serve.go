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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stackbound/deploy-annotator/internal/api"
	"github.com/stackbound/deploy-annotator/internal/config"
	"github.com/stackbound/deploy-annotator/internal/coordinator"
	"github.com/stackbound/deploy-annotator/internal/db"
	"github.com/stackbound/deploy-annotator/internal/grafana"
	"github.com/stackbound/deploy-annotator/internal/logger"
	"github.com/stackbound/deploy-annotator/internal/retry"
	"github.com/stackbound/deploy-annotator/internal/store"
	"github.com/stackbound/deploy-annotator/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deploy annotator server",
	Long: `Start the HTTP server that accepts deployment start and end events,
creates the matching Grafana annotations, and records the correlation
between each deployment and its annotation.

The server requires a configuration file (--config) that specifies:
- The Grafana base URL and bearer token
- The record storage backend (local or postgres)
- Retry and metrics settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	serverRequestTimeout   = 25 * time.Second // Must cover the full annotation retry budget
	serverReadTimeout      = 10 * time.Second // Enough for headers and small requests
	serverWriteTimeout     = 30 * time.Second // Must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // Keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	address := viper.GetString("address")

	logger.Infof("Starting deploy annotator server on %s", address)

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (grafana: %s, storage: %s)",
		configPath, cfg.Grafana.URL, cfg.Storage.GetType())

	tel, err := telemetry.New(cfg.MetricsEnabled())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Failed to shut down telemetry: %v", err)
		}
	}()

	var pool *pgxpool.Pool
	if cfg.Storage.GetType() == config.StorageTypePostgres {
		pool, err = db.NewPool(ctx, cfg.Storage.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
	}

	records, err := store.NewStore(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to create record store: %w", err)
	}

	client, err := buildGrafanaClient(cfg)
	if err != nil {
		return err
	}

	coord, err := buildCoordinator(cfg, client, records, tel)
	if err != nil {
		return err
	}

	metricsMiddleware, err := telemetry.MetricsMiddleware(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create metrics middleware: %w", err)
	}

	router := api.NewServer(coord, records,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			metricsMiddleware,
			api.LoggingMiddleware,
		),
		api.WithMetricsHandler(tel.MetricsHandler()),
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

	// Wait for interrupt signal to gracefully shutdown the server
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

func buildGrafanaClient(cfg *config.Config) (*grafana.HTTPClient, error) {
	token, err := cfg.Grafana.GetToken()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Grafana token: %w", err)
	}

	opts := []grafana.ClientOption{
		grafana.WithDashboard(cfg.Grafana.DashboardID, cfg.Grafana.PanelID),
	}
	timeout, err := cfg.Grafana.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid Grafana timeout: %w", err)
	}
	if timeout > 0 {
		opts = append(opts, grafana.WithTimeout(timeout))
	}

	return grafana.NewClient(cfg.Grafana.URL, token, opts...), nil
}

func buildCoordinator(
	cfg *config.Config,
	client grafana.Client,
	records store.Store,
	tel *telemetry.Telemetry,
) (*coordinator.Coordinator, error) {
	initialDelay, err := cfg.Retry.GetInitialDelay()
	if err != nil {
		return nil, fmt.Errorf("invalid retry delay: %w", err)
	}
	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.GetMaxAttempts(),
		InitialDelay: initialDelay,
	}

	deploymentMetrics, err := telemetry.NewDeploymentMetrics(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment metrics: %w", err)
	}

	return coordinator.New(client, records,
		coordinator.WithRetryPolicy(policy),
		coordinator.WithMetrics(deploymentMetrics),
	), nil
}

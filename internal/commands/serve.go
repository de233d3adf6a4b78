package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/buildwatch/internal/alert"
	"github.com/dwsmith1983/buildwatch/internal/integrator"
	"github.com/dwsmith1983/buildwatch/internal/provider"
	"github.com/dwsmith1983/buildwatch/internal/provider/redis"
	"github.com/dwsmith1983/buildwatch/internal/server"
	"github.com/dwsmith1983/buildwatch/internal/server/handlers"
	"github.com/dwsmith1983/buildwatch/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	addConfigFlag(cmd, &configPath)
	return cmd
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx := context.Background()

	// Telemetry
	otelProviders, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	ws, err := newWorkspace(cfg, logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	// Status store
	var store provider.StatusStore
	if cfg.StatusStore != "" {
		rs, err := redis.NewStatusStore(cfg.StatusStore)
		if err != nil {
			return fmt.Errorf("creating status store: %w", err)
		}
		if err := rs.Start(ctx); err != nil {
			return fmt.Errorf("connecting to status store: %w", err)
		}
		store = rs
	}

	// Alerts
	dispatcher, err := alert.NewDispatcher(cfg.Alerts, logger)
	if err != nil {
		return fmt.Errorf("creating alert dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("closing alert sinks", "error", err)
		}
	}()

	opts := integratorOptions{
		publishers: []integrator.StatusPublisher{dispatcher},
		tracer:     otelProviders.TracerProvider,
		meter:      otelProviders.MeterProvider,
	}
	if store != nil {
		opts.publishers = append(opts.publishers, store)
	}
	its, err := ws.buildIntegrators(opts)
	if err != nil {
		return err
	}
	sched, err := integrator.NewScheduler(*cfg.Watcher, logger, its...)
	if err != nil {
		return err
	}

	var pinger handlers.Pinger
	if store != nil {
		pinger = store
	}
	srv := server.New(cfg.Server.Addr, sched, pinger, cfg.Server.APIKey, 0, logger)

	sched.Start(ctx)

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	if store != nil {
		_ = store.Stop(shutdownCtx)
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", "error", err)
	}
	if serveErr != nil {
		return serveErr
	}
	color.Green("Server stopped gracefully")
	return nil
}

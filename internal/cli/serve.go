package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/aretw0/wayfinder/internal/config"
	"github.com/aretw0/wayfinder/pkg/adapters/http"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/observability"
)

// shutdownTimeout bounds graceful shutdown of the servers.
const shutdownTimeout = 5 * time.Second

// NewHTTPHandler builds the HTTP API for cfg.
func NewHTTPHandler(ctx context.Context, cfg config.Config, logger *slog.Logger) (nethttp.Handler, func() error, error) {
	hooks := observability.LoggingHooks(logger)
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		hooks = hooks.Merge(metrics.Hooks())
	}

	engine, err := BuildEngine(ctx, cfg, logger, hooks)
	if err != nil {
		return nil, nil, err
	}
	manager, closeStore, err := BuildSessionManager(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []http.Option{
		http.WithSessionManager(manager),
		http.WithLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, http.WithMetricsHandler(metrics.Handler()))
	}
	return http.NewHandler(engine, opts...), closeStore, nil
}

// Serve runs the HTTP API until ctx is done.
func Serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	handler, closeStore, err := NewHTTPHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := &nethttp.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting Wayfinder Server", "address", srv.Addr, "graph", cfg.Graph)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		logger.Info("Wayfinder Server stopped gracefully")
		return nil
	}
}

// hooksFor returns logging hooks in debug mode and nothing otherwise.
func hooksFor(debug bool, logger *slog.Logger) domain.LifecycleHooks {
	if debug {
		return observability.LoggingHooks(logger)
	}
	return domain.LifecycleHooks{}
}

package changelogservice

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/matoous/changelog/internal/api"
	"github.com/matoous/changelog/internal/config"
	"github.com/matoous/changelog/internal/factory"
	"github.com/matoous/changelog/internal/health"
	"github.com/matoous/changelog/internal/logger"
	"github.com/matoous/changelog/internal/services"
	"github.com/matoous/changelog/internal/store"
)

const serviceName = "changelog-service"

// Run starts the changelog HTTP server and blocks until shutdown or error.
// A non-empty buildTarget overrides BUILD_TARGET.
func Run(buildTarget string) error {
	cfg, err := config.Load(buildTarget)
	if err != nil {
		bootLog := logger.New(serviceName, false)
		bootLog.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log := logger.New(serviceName, cfg.Debug)
	zlog.Logger = log

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Str("http_addr", cfg.GetHTTPAddr()).
		Str("api_prefix", cfg.APIPrefix).
		Str("id_strategy", cfg.IDStrategy).
		Bool("empty_as_not_found", cfg.EmptyAsNotFound).
		Msg("Changelog service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	ln, err := net.Listen("tcp", cfg.GetHTTPAddr())
	if err != nil {
		log.Error().Stack().Err(err).Msg("HTTP listen failed")
		return err
	}
	return Serve(ctx, cfg, log, ln)
}

// Serve runs the service on ln until ctx is cancelled or the server fails.
// ln is closed on return.
func Serve(ctx context.Context, cfg *config.Config, log zerolog.Logger, ln net.Listener) error {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		_ = ln.Close()
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}()

	// Start health checkers and block startup until dependencies report healthy
	svcHealth := startHealthCheckers(ctx, cfg, log, st)
	if err := svcHealth.WaitUntilHealthy(ctx, startupHealthTimeout(cfg.HealthInterval)); err != nil {
		_ = ln.Close()
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	router := api.NewRouter(api.RouterConfig{
		Service:         services.NewChangelogService(st),
		Prefix:          cfg.APIPrefix,
		EmptyAsNotFound: cfg.EmptyAsNotFound,
		Ready:           svcHealth.IsHealthy,
		Log:             log,
	})

	server := newHTTPServer(ctx, router)
	errCh := serveHTTP(server, ln, log)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// startHealthCheckers starts the store checker and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	storeChecker := store.NewStoreHealthChecker(st, log, cfg.HealthProbeTimeout)
	go storeChecker.Start(ctx, cfg.HealthInterval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, cfg.HealthInterval)
	return svcHealth
}

// newHTTPServer derives request contexts from ctx without its cancellation so
// in-flight requests can finish during Shutdown.
func newHTTPServer(ctx context.Context, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
}

func serveHTTP(server *http.Server, ln net.Listener, log zerolog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server starting")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// startupHealthTimeout is twice the probe interval, at least one minute.
func startupHealthTimeout(interval time.Duration) time.Duration {
	timeout := interval * 2
	if timeout < time.Minute {
		return time.Minute
	}
	return timeout
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

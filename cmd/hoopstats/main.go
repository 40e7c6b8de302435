package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/hoopvision/internal/adapters/archive"
	"github.com/okian/hoopvision/internal/adapters/http/api"
	app "github.com/okian/hoopvision/internal/app"
	"github.com/okian/hoopvision/internal/config"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeArchive, err := newService(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		return 1
	}
	defer closeArchive()

	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return 1
	}

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	code := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			code = 1
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	// Live sessions are archived before the archive is closed.
	svc.Stop(shutdownCtx)

	log.Info(shutdownCtx, "server stopped")
	return code
}

// newService builds the service from cfg. The returned func closes the
// archive, if one was opened.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithCalibration(cfg.Calibration()),
		app.WithCooldown(cfg.CooldownFrames),
		app.WithReboundWindow(cfg.ReboundWindowFrames),
		app.WithConfidenceThreshold(cfg.OCRConfidenceThreshold),
		app.WithDetectionFilters(cfg.PlayerMinConfidence, cfg.BallMinConfidence),
		app.WithDedupeSize(cfg.DedupeSize),
	}
	closeArchive := func() {}
	if cfg.ArchivePath != "" {
		a, err := archive.Open(ctx, cfg.ArchivePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, app.WithArchive(a))
		closeArchive = func() {
			if err := a.Close(); err != nil {
				log.Error(context.Background(), "failed to close archive", logger.Error(err))
			}
		}
		log.Info(ctx, "session archive enabled", logger.String("path", cfg.ArchivePath))
	}
	return app.New(opts...), closeArchive, nil
}

// startSystemMetricsUpdater periodically records memory and goroutine gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

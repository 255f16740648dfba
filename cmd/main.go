package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/evaldash/internal/adapters/evalapi"
	"github.com/okian/evaldash/internal/adapters/http/api"
	"github.com/okian/evaldash/internal/adapters/repository"
	app "github.com/okian/evaldash/internal/app"
	"github.com/okian/evaldash/internal/config"
	"github.com/okian/evaldash/pkg/logger"
	"github.com/okian/evaldash/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	mediumConnectTimeout      = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	metrics.Init(metricsOptions(cfg)...)

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "evaldash exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the audit medium, the evaluation client and the service, then
// serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	medium, closeMedium, err := openAuditMedium(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMedium(); err != nil {
			log.Warn(context.Background(), "closing audit medium failed", logger.Error(err))
		}
	}()

	svc, err := buildService(cfg, medium, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	if metrics.Enabled() {
		go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
		go startServiceMetricsUpdater(ctx, svc, metrics.RefreshInterval())
	}

	apiServer := api.NewServer(svc,
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithLogger(log.Named("http")),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("audit_medium", cfg.Audit.Medium),
			logger.String("collaborator", cfg.Collaborator.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// openAuditMedium connects the configured durable medium. The returned
// closer is always non-nil.
func openAuditMedium(ctx context.Context, cfg *config.Config) (repository.Medium, func() error, error) {
	noop := func() error { return nil }
	a := cfg.Audit

	switch a.Medium {
	case config.MediumMemory:
		var opts []repository.MemoryOption
		if a.QuotaBytes > 0 {
			opts = append(opts, repository.WithQuota(a.QuotaBytes))
		}
		return repository.NewMemoryMedium(opts...), noop, nil

	case config.MediumFile:
		m, err := repository.NewFileMedium(a.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("open file medium: %w", err)
		}
		return m, noop, nil

	case config.MediumRedis:
		dialCtx, cancel := context.WithTimeout(ctx, mediumConnectTimeout)
		defer cancel()
		var opts []repository.RedisOption
		if a.QuotaBytes > 0 {
			opts = append(opts, repository.WithMaxValueBytes(a.QuotaBytes))
		}
		m, err := repository.DialRedis(dialCtx, a.Redis.Addr, a.Redis.Password, a.Redis.DB, opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("open redis medium: %w", err)
		}
		return m, m.Close, nil

	case config.MediumPostgres:
		dialCtx, cancel := context.WithTimeout(ctx, mediumConnectTimeout)
		defer cancel()
		m, err := repository.NewPostgresMedium(dialCtx, repository.PostgresConfig{
			DSN:      a.Postgres.DSN,
			Table:    a.Postgres.Table,
			MaxConns: int32(a.Postgres.MaxConns),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres medium: %w", err)
		}
		return m, m.Close, nil
	}
	return nil, noop, fmt.Errorf("%w: unknown audit medium %q", config.ErrInvalidConfig, a.Medium)
}

// buildService assembles the audit store, the evaluation client and the service.
func buildService(cfg *config.Config, medium repository.Medium, log logger.Logger) (*app.Service, error) {
	store := repository.NewAuditStore(medium,
		repository.WithKey(cfg.Audit.Key),
		repository.WithMaxEvents(cfg.Audit.MaxEvents),
		repository.WithFallbackKeep(cfg.Audit.FallbackKeep),
		repository.WithDefaultListLimit(cfg.Audit.DefaultListLimit),
		repository.WithLogger(log.Named("audit")),
	)

	client, err := evalapi.New(cfg.Collaborator.BaseURL,
		evalapi.WithTimeout(cfg.CollaboratorTimeout()),
		evalapi.WithLogger(log.Named("evalapi")),
	)
	if err != nil {
		return nil, fmt.Errorf("evaluation client: %w", err)
	}

	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithAuditStore(store),
		app.WithEvaluationSource(client),
		app.WithSnapshotTTL(cfg.SnapshotTTL()),
		app.WithIdempotencyCapacity(cfg.IdempotencyCapacity),
		app.WithDisplayLocation(cfg.Location()),
	), nil
}

// metricsOptions maps the metrics section of cfg onto manager options.
func metricsOptions(cfg *config.Config) []metrics.Option {
	m := cfg.Metrics
	return []metrics.Option{
		metrics.WithMetricsEnabled(m.Enabled),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval()),
		metrics.WithNamespace(m.Namespace),
		metrics.WithSubsystem(m.Subsystem),
		metrics.WithMetricPrefix(m.Prefix),
		metrics.WithCustomLabels(m.ConstLabels),
		metrics.WithHistogramBuckets(m.HistogramBuckets),
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// startServiceMetricsUpdater starts a background goroutine that refreshes
// the gauges GetStats maintains.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

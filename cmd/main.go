package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/driftwatch/internal/adapters/http/api"
	"github.com/okian/driftwatch/internal/adapters/repository"
	"github.com/okian/driftwatch/internal/adapters/repository/sqlite"
	service "github.com/okian/driftwatch/internal/app"
	"github.com/okian/driftwatch/internal/config"
	"github.com/okian/driftwatch/pkg/logger"
	"github.com/okian/driftwatch/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("driftwatch: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registerRuntimeCollectors()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startServiceMetricsUpdater(ctx, svc)
	if cfg.SweepIntervalMinutes > 0 {
		go runSweeps(ctx, svc, time.Duration(cfg.SweepIntervalMinutes)*time.Minute, log)
	}

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore opens the sqlite database when a path is configured and falls back
// to the in-memory store otherwise.
func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.DBPath == "" {
		return repository.NewMemStore(), nil
	}
	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	return st, nil
}

func newService(cfg *config.Config, store repository.Store, log logger.Logger) *service.Service {
	return service.New(store,
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithCheckpointSize(cfg.CheckpointSize),
		service.WithWindowDays(cfg.WindowDays),
		service.WithPeriodDays(cfg.PeriodDays),
		service.WithHistoryRetention(cfg.HistoryRetentionDays, cfg.HistoryMaxEntries),
		service.WithThresholds(cfg.Thresholds),
		service.WithPillarWeights(cfg.PillarWeights),
		service.WithEnergyWeights(cfg.EnergyWeights),
	)
}

// registerRuntimeCollectors adds Go runtime and process metrics to the
// registry served on /healthz.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// runSweeps drives detection then scoring on every tick. Each tick sweeps under
// its own cycle so rows that arrived since the previous tick are picked up.
// The completed-team checkpoint is in memory, so a restart repeats the current
// cycle; drift keys and composite upserts make that repeat harmless.
func runSweeps(ctx context.Context, svc *service.Service, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	at := time.Now()
	for {
		sweepOnce(ctx, svc, tickCycle(at, every), log)
		select {
		case <-ctx.Done():
			return
		case at = <-ticker.C:
		}
	}
}

// tickCycle labels the sweep interval containing t.
func tickCycle(t time.Time, every time.Duration) string {
	return t.UTC().Truncate(every).Format(time.RFC3339)
}

func sweepOnce(ctx context.Context, svc *service.Service, cycle string, log logger.Logger) {
	if _, err := svc.DetectDriftForAllTeams(ctx, service.DetectOptions{Cycle: cycle}); err != nil {
		log.Error(ctx, "drift sweep failed", logger.String("cycle", cycle), logger.Error(err))
	}
	if _, err := svc.ScoreAllTeams(ctx, service.SweepScoreOptions{Cycle: cycle}); err != nil {
		log.Error(ctx, "scoring sweep failed", logger.String("cycle", cycle), logger.Error(err))
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}

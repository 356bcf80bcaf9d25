// Package app provides the shared entry point for the chime daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chime/internal/config"
	"chime/internal/engine"
	"chime/internal/eventbus"
	"chime/internal/gateway"
	"chime/internal/history"
	"chime/internal/job"
	"chime/internal/maintenance"
	"chime/internal/scheduler"
	"chime/internal/storage/sqlite"
	"chime/internal/telemetry"
)

const stopTimeout = 15 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string
}

// Run loads configuration, starts the scheduler and gateway, and blocks
// until a shutdown signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := NewLogger(cfg.LogLevel)
	logger.Info("starting chime",
		"version", params.Version,
		"config", cfgPath,
		"scan_period", cfg.Scheduler.ScanPeriod.Std(),
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing.Endpoint, params.Version)
	if err != nil {
		return err
	}

	store := job.NewStore()
	hist := history.NewLog(cfg.Scheduler.HistorySize)
	bus := eventbus.New()

	// Durable storage is optional; without it everything lives in memory.
	var durable *sqlite.Store
	if cfg.Storage.Path != "" {
		durable, err = sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		if err := Seed(ctx, durable, store, hist, cfg.Scheduler.HistorySize); err != nil {
			return err
		}
		logger.Info("durable storage opened", "path", cfg.Storage.Path, "jobs", store.Len())
	}

	engCfg := engine.Config{
		Store:   store,
		History: hist,
		Bus:     bus,
		Logger:  logger,
	}
	var persister scheduler.Persister
	if durable != nil {
		engCfg.Durable = durable
		persister = durable
	}
	eng := engine.New(engCfg)

	registry := prometheus.NewRegistry()
	metrics := scheduler.NewMetrics(registry)

	provider := scheduler.CommandProvider{
		Commands: cfg.Commands,
		Fallback: scheduler.LogProvider{Logger: logger},
	}
	executor := scheduler.NewExecutor(provider, cfg.Scheduler.RunTimeout.Std())

	loop := scheduler.NewLoop(scheduler.LoopConfig{
		Store:      store,
		History:    hist,
		Executor:   executor,
		Persister:  persister,
		Bus:        bus,
		Metrics:    metrics,
		Logger:     logger,
		ScanPeriod: cfg.Scheduler.ScanPeriod.Std(),
	})

	gw := gateway.New(gateway.Config{
		Bind:         cfg.Gateway.Bind,
		ReadTimeout:  cfg.Gateway.ReadTimeout.Std(),
		WriteTimeout: cfg.Gateway.WriteTimeout.Std(),
		Engine:       eng,
		Loop:         loop,
		Bus:          bus,
		Registry:     registry,
		Logger:       logger,
	})

	var maint *maintenance.Scheduler
	if durable != nil && *cfg.Maintenance.Enabled {
		maint = maintenance.NewScheduler(logger)
		tasks := []maintenance.Task{
			&maintenance.PruneTask{
				Store:        durable,
				Retention:    cfg.Maintenance.DBRetention.Std(),
				Logger:       logger,
				ScheduleExpr: cfg.Maintenance.PruneSchedule,
			},
			&maintenance.CheckpointTask{
				Store:        durable,
				Logger:       logger,
				ScheduleExpr: cfg.Maintenance.CheckpointSchedule,
			},
		}
		for _, t := range tasks {
			if err := maint.Register(t); err != nil {
				return err
			}
		}
	}

	if err := loop.Start(ctx); err != nil {
		return err
	}
	if err := gw.Start(ctx); err != nil {
		stopLoop(loop, logger)
		return err
	}
	if maint != nil {
		if err := maint.Start(); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := gw.Stop(stopCtx); err != nil {
		logger.Error("gateway stop", "error", err)
	}
	stopLoop(loop, logger)
	if maint != nil {
		if err := maint.Stop(stopCtx); err != nil {
			logger.Error("maintenance stop", "error", err)
		}
	}
	if err := shutdownTracing(stopCtx); err != nil {
		logger.Error("tracing shutdown", "error", err)
	}
	if durable != nil {
		if err := durable.Close(); err != nil {
			logger.Error("storage close", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func stopLoop(loop *scheduler.Loop, logger *slog.Logger) {
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := loop.Stop(stopCtx); err != nil {
		logger.Error("loop stop", "error", err)
	}
}

// Seed loads persisted jobs and recent executions into the in-memory
// stores. Jobs keep their persisted NextRun, so ones that became overdue
// while the daemon was down fire on the first scan.
func Seed(ctx context.Context, durable *sqlite.Store, store *job.Store, hist *history.Log, limit int) error {
	jobs, err := durable.LoadJobs(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if err := store.Insert(j); err != nil {
			return fmt.Errorf("app: seeding job %s: %w", j.ID, err)
		}
	}

	records, err := durable.LoadExecutions(ctx, limit)
	if err != nil {
		return err
	}
	// LoadExecutions returns newest-first; append oldest-first so the log
	// ends up in the same order.
	for i := len(records) - 1; i >= 0; i-- {
		hist.Append(records[i])
	}
	return nil
}

// NewLogger builds the process logger at the given level.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/chime/chime.yaml → ~/.config/chime/chime.yaml → ./chime.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "chime", "chime.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "chime", "chime.yaml"))
	}

	candidates = append(candidates, "chime.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/chime if set, otherwise ~/.local/share/chime per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "chime")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "chime")
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rapo-engine/rapo/internal/config"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/health"
	"github.com/rapo-engine/rapo/internal/lifecycle"
	internallog "github.com/rapo-engine/rapo/internal/log"
	"github.com/rapo-engine/rapo/internal/metrics"
	"github.com/rapo-engine/rapo/internal/scheduler"
	"github.com/rapo-engine/rapo/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to rapo.ini (defaults to $RAPO_CONFIG or ~/.rapo/rapo.ini)")
	flag.Parse()

	bootLogger := internallog.New("local", slog.LevelInfo)

	cfg, err := config.Load(*configPath, bootLogger)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := internallog.New(cfg.Logging.Env, internallog.Level(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := gateway.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	gw := gateway.New(pool)

	logger.Info("database connected", "vendor", cfg.Database.VendorName)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	st := store.New(gw)
	lc := lifecycle.New(st, gw, logger)
	sched := scheduler.New(st, gw, lc, cfg.Scheduler, logger)

	metricsSrv := metrics.NewServer(":"+cfg.Scheduler.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.Scheduler.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	runErr := sched.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	if runErr != nil {
		logger.Error("scheduler exited with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("scheduler shut down")
}

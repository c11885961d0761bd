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
	"github.com/rapo-engine/rapo/internal/httpapi"
	"github.com/rapo-engine/rapo/internal/lifecycle"
	internallog "github.com/rapo-engine/rapo/internal/log"
	"github.com/rapo-engine/rapo/internal/metrics"
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

	pid := os.Getpid()
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = "unknown"
	}

	st := store.New(gw)
	if err := st.AcquireWebAPI(ctx, hostname, username, pid); err != nil {
		log.Fatalf("acquire web api singleton: %v", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.ReleaseWebAPI(releaseCtx, pid); err != nil {
			logger.Error("release web api singleton failed", "error", err)
		}
	}()

	lc := lifecycle.New(st, gw, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	router := httpapi.NewRouter(st, gw, lc, logger, cfg.API.Token)
	apiSrv := &http.Server{Addr: cfg.API.Host + ":" + cfg.API.Port, Handler: router}

	metricsSrv := metrics.NewServer(":"+cfg.API.MetricsPort, checker)

	go func() {
		logger.Info("metrics server started", "port", cfg.API.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	go func() {
		logger.Info("web api started", "addr", apiSrv.Addr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web api server", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("web api shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	logger.Info("web api shut down")
}

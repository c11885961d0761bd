// Package scheduler is the Scheduler (C7): a 1 Hz tick loop that walks
// the in-memory schedule snapshot, a dispatch queue, a fixed worker pool
// that runs matched controls through the lifecycle, and a maintainer
// goroutine that sweeps outdated results and checkpoints. At most one
// scheduler instance may hold the rapo_scheduler singleton row at a time
// (§4.7, §5).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rapo-engine/rapo/internal/config"
	"github.com/rapo-engine/rapo/internal/gateway"
	"github.com/rapo-engine/rapo/internal/lifecycle"
	"github.com/rapo-engine/rapo/internal/metrics"
	"github.com/rapo-engine/rapo/internal/store"
)

// workItem is one dispatch queue entry: a matched control plus the wall
// clock moment it fired at, used to resolve the run's date window.
type workItem struct {
	cfg     entry
	trigger time.Time
}

// Scheduler owns the tick loop, dispatch queue, worker pool, and
// maintainer for one process.
type Scheduler struct {
	store     *store.Store
	gw        *gateway.Gateway
	lifecycle *lifecycle.Control
	logger    *slog.Logger
	cfg       config.Scheduler

	queue       chan workItem
	maintenance chan struct{}

	pid      int
	hostname string

	schedule   []entry
	scheduleMu sync.RWMutex
}

func New(st *store.Store, gw *gateway.Gateway, lc *lifecycle.Control, cfg config.Scheduler, logger *slog.Logger) *Scheduler {
	hostname, _ := os.Hostname()
	return &Scheduler{
		store:       st,
		gw:          gw,
		lifecycle:   lc,
		logger:      logger.With("component", "scheduler"),
		cfg:         cfg,
		queue:       make(chan workItem, 1000),
		maintenance: make(chan struct{}, 1),
		pid:         os.Getpid(),
		hostname:    hostname,
	}
}

// Run acquires the singleton row, starts the worker pool and maintainer,
// then blocks in the tick loop until ctx is cancelled (SIGINT/SIGTERM in
// cmd/scheduler). It always releases the singleton row on the way out.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.store.AcquireScheduler(ctx, s.hostname, currentUsername(), s.pid); err != nil {
		return fmt.Errorf("acquire scheduler singleton: %w", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.ReleaseScheduler(releaseCtx, s.pid); err != nil {
			s.logger.Error("scheduler: release singleton failed", "error", err)
		}
	}()

	entries, err := s.loadSchedule(ctx)
	if err != nil {
		return fmt.Errorf("initial schedule load: %w", err)
	}
	s.setSchedule(entries)
	metrics.ScheduleRefreshTotal.Inc()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.ControlParallelism; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.runWorker(ctx, workerID)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runMaintainer(ctx)
	}()

	s.logger.Info("scheduler started",
		"pid", s.pid, "control_parallelism", s.cfg.ControlParallelism,
		"refresh_interval", s.cfg.RefreshIntervalSec, "maintenance_interval", s.cfg.MaintenanceIntervalSec)

	s.tickLoop(ctx)
	wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) setSchedule(entries []entry) {
	s.scheduleMu.Lock()
	s.schedule = entries
	s.scheduleMu.Unlock()
}

func (s *Scheduler) snapshotSchedule() []entry {
	s.scheduleMu.RLock()
	defer s.scheduleMu.RUnlock()
	out := make([]entry, len(s.schedule))
	copy(out, s.schedule)
	return out
}

func currentUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

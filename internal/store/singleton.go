package store

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
)

// IsProcessAlive reports whether pid still refers to a running process,
// by sending it signal 0 (no-op, delivery-check only per kill(2)).
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	// EPERM means the process exists but belongs to another user.
	return err == nil || err == syscall.EPERM
}

// AcquireScheduler claims the rapo_scheduler singleton row for this
// process, or returns ErrSchedulerRunning if another live pid already
// holds it (§5: exactly one scheduler instance may run at a time). A row
// left behind by a pid that is no longer alive is reclaimed rather than
// blocking forever.
func (s *Store) AcquireScheduler(ctx context.Context, server, username string, pid int) error {
	return s.acquireSingleton(ctx, "rapo_scheduler", domain.ErrSchedulerRunning, server, username, pid)
}

// ReleaseScheduler marks the scheduler singleton stopped.
func (s *Store) ReleaseScheduler(ctx context.Context, pid int) error {
	return s.releaseSingleton(ctx, "rapo_scheduler", pid)
}

// AcquireWebAPI and ReleaseWebAPI are the rapo_web_api equivalents.
func (s *Store) AcquireWebAPI(ctx context.Context, server, username string, pid int) error {
	return s.acquireSingleton(ctx, "rapo_web_api", domain.ErrWebAPIRunning, server, username, pid)
}

func (s *Store) ReleaseWebAPI(ctx context.Context, pid int) error {
	return s.releaseSingleton(ctx, "rapo_web_api", pid)
}

func (s *Store) acquireSingleton(ctx context.Context, table string, running error, server, username string, pid int) error {
	var current domain.SchedulerRecord
	err := s.gw.DB.GetContext(ctx, &current,
		fmt.Sprintf(`SELECT * FROM %s WHERE status = 'Y' ORDER BY start_date DESC %s`, table, s.gw.LimitClause(1)))
	switch {
	case err == nil:
		if IsProcessAlive(current.PID) {
			return running
		}
		if _, err := s.gw.Execute(ctx,
			fmt.Sprintf(`UPDATE %s SET status = 'N', stop_date = ? WHERE id = ?`, table),
			time.Now(), current.ID); err != nil {
			return fmt.Errorf("acquire %s: reclaim stale row: %w", table, err)
		}
	case isNotFound(err):
		// no prior owner
	default:
		return fmt.Errorf("acquire %s: %w", table, err)
	}

	_, err = s.gw.Execute(ctx,
		fmt.Sprintf(`INSERT INTO %s (server, username, pid, start_date, status) VALUES (?, ?, ?, ?, 'Y')`, table),
		server, username, pid, time.Now())
	if err != nil {
		return fmt.Errorf("acquire %s: insert: %w", table, err)
	}
	return nil
}

func (s *Store) releaseSingleton(ctx context.Context, table string, pid int) error {
	_, err := s.gw.Execute(ctx,
		fmt.Sprintf(`UPDATE %s SET status = 'N', stop_date = ? WHERE pid = ? AND status = 'Y'`, table),
		time.Now(), pid)
	if err != nil {
		return fmt.Errorf("release %s: %w", table, err)
	}
	return nil
}

package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cleanup sweeps rapo_checkpoint for entries older than retention, purges
// the dangling rapo_temp_* scratch tables those entries point at, and
// removes the checkpoint rows. Checkpoints exist because a run that dies
// mid-execution (crashed process, killed container) leaves its temp
// tables behind with no run-scoped goroutine left to drop them; the
// maintainer goroutine calls this on its own cadence so they don't
// accumulate forever.
func (g *Gateway) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)

	type row struct {
		ControlID int64 `db:"control_id"`
		ProcessID int64 `db:"process_id"`
	}
	var stale []row
	err := g.DB.SelectContext(ctx, &stale,
		g.DB.Rebind(`SELECT control_id, process_id FROM rapo_checkpoint WHERE added < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup: select checkpoints: %w", err)
	}

	swept := 0
	for _, s := range stale {
		tables, err := g.scratchTablesFor(ctx, s.ProcessID)
		if err != nil {
			return swept, err
		}
		for _, t := range tables {
			if err := g.Purge(ctx, t); err != nil {
				return swept, fmt.Errorf("cleanup: purge %s: %w", t, err)
			}
		}
		if _, err := g.Execute(ctx,
			`DELETE FROM rapo_checkpoint WHERE control_id = ? AND process_id = ?`,
			s.ControlID, s.ProcessID); err != nil {
			return swept, fmt.Errorf("cleanup: delete checkpoint: %w", err)
		}
		swept++
	}
	return swept, nil
}

// scratchTablesFor finds every rapo_temp_* table stamped with processID,
// reflecting the schema rather than enumerating suffixes since the exact
// set a run creates varies by control kind (fd/err/res, each optionally
// split _a/_b).
func (g *Gateway) scratchTablesFor(ctx context.Context, processID int64) ([]string, error) {
	var candidates []string
	switch g.Vendor {
	case "sqlite":
		if err := g.DB.SelectContext(ctx, &candidates,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'rapo\_temp\_%' ESCAPE '\'`); err != nil {
			return nil, fmt.Errorf("scratchTablesFor: %w", err)
		}
	case "oracle":
		if err := g.DB.SelectContext(ctx, &candidates,
			`SELECT object_name FROM all_objects WHERE object_type = 'TABLE' AND object_name LIKE 'RAPO\_TEMP\_%' ESCAPE '\'`); err != nil {
			return nil, fmt.Errorf("scratchTablesFor: %w", err)
		}
	default:
		return nil, fmt.Errorf("scratchTablesFor: unsupported vendor %q", g.Vendor)
	}

	suffix := "_" + strconv.FormatInt(processID, 10)
	var tables []string
	for _, t := range candidates {
		if strings.HasSuffix(t, suffix) {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

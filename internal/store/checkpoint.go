package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
)

// SaveCheckpoint records that controlID/processID now owns a set of
// in-progress temp tables, so a dead process's scratch tables can be
// swept later by gateway.Cleanup.
func (s *Store) SaveCheckpoint(ctx context.Context, controlID, processID int64) error {
	_, err := s.gw.Execute(ctx,
		`INSERT INTO rapo_checkpoint (control_id, process_id, added) VALUES (?, ?, ?)`,
		controlID, processID, time.Now())
	if err != nil {
		return fmt.Errorf("save checkpoint %d/%d: %w", controlID, processID, err)
	}
	return nil
}

// ClearCheckpoint removes a checkpoint once a run reaches a terminal
// status and has cleaned up its own temp tables.
func (s *Store) ClearCheckpoint(ctx context.Context, controlID, processID int64) error {
	_, err := s.gw.Execute(ctx,
		`DELETE FROM rapo_checkpoint WHERE control_id = ? AND process_id = ?`, controlID, processID)
	if err != nil {
		return fmt.Errorf("clear checkpoint %d/%d: %w", controlID, processID, err)
	}
	return nil
}

// ListCheckpoints returns every outstanding checkpoint, oldest first.
func (s *Store) ListCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	var out []domain.Checkpoint
	if err := s.gw.DB.SelectContext(ctx, &out, `SELECT * FROM rapo_checkpoint ORDER BY added`); err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return out, nil
}

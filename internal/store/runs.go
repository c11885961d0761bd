package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
)

// InsertRun creates the rapo_log row for a new run, status I (§4.3).
func (s *Store) InsertRun(ctx context.Context, run *domain.ControlRun) error {
	_, err := s.gw.DB.NamedExecContext(ctx, `
		INSERT INTO rapo_log (
			process_id, control_id, added, status, date_from, date_to, updated
		) VALUES (
			:process_id, :control_id, :added, :status, :date_from, :date_to, :updated
		)`, run)
	if err != nil {
		return fmt.Errorf("insert run %d: %w", run.ProcessID, err)
	}
	return nil
}

// UpdateRun persists a run's full row, used on every lifecycle
// transition (§4.3 I->S->P->F->D/E/C/X).
func (s *Store) UpdateRun(ctx context.Context, run *domain.ControlRun) error {
	_, err := s.gw.DB.NamedExecContext(ctx, `
		UPDATE rapo_log SET
			status = :status, start_date = :start_date, end_date = :end_date, updated = :updated,
			fetched_number = :fetched_number, fetched_number_a = :fetched_number_a, fetched_number_b = :fetched_number_b,
			success_number = :success_number, success_number_a = :success_number_a, success_number_b = :success_number_b,
			error_number = :error_number, error_number_a = :error_number_a, error_number_b = :error_number_b,
			error_level = :error_level, error_level_a = :error_level_a, error_level_b = :error_level_b,
			prerequisite_value = :prerequisite_value,
			text_log = :text_log, text_error = :text_error, text_message = :text_message
		WHERE process_id = :process_id`, run)
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ProcessID, err)
	}
	return nil
}

// GetRun fetches a single run by its process id.
func (s *Store) GetRun(ctx context.Context, processID int64) (*domain.ControlRun, error) {
	var run domain.ControlRun
	err := s.gw.DB.GetContext(ctx, &run, s.gw.Rebind(`SELECT * FROM rapo_log WHERE process_id = ?`), processID)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", processID, wrapNotFound(err, domain.ErrRunNotFound))
	}
	return &run, nil
}

// ListRuns returns up to limit runs for a control (100 when limit is not
// positive), most recent first (§6.2 get-control-runs).
func (s *Store) ListRuns(ctx context.Context, controlID int64, limit int) ([]domain.ControlRun, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.ControlRun
	query := fmt.Sprintf("SELECT * FROM rapo_log WHERE control_id = ? ORDER BY added DESC %s", s.gw.LimitClause(limit))
	err := s.gw.DB.SelectContext(ctx, &out, s.gw.Rebind(query), controlID)
	if err != nil {
		return nil, fmt.Errorf("list runs %d: %w", controlID, err)
	}
	return out, nil
}

// ListRunningRuns returns every run not yet in a terminal status (§6.2
// get-running-controls).
func (s *Store) ListRunningRuns(ctx context.Context) ([]domain.ControlRun, error) {
	var out []domain.ControlRun
	err := s.gw.DB.SelectContext(ctx, &out,
		`SELECT * FROM rapo_log WHERE status IN ('I','S','P','F') ORDER BY added`)
	if err != nil {
		return nil, fmt.Errorf("list running runs: %w", err)
	}
	return out, nil
}

// ListRecentRuns returns the most recent runs across every control (§6.2
// get-control-runs when no control_id is given).
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]domain.ControlRun, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.ControlRun
	query := fmt.Sprintf("SELECT * FROM rapo_log ORDER BY added DESC %s", s.gw.LimitClause(limit))
	err := s.gw.DB.SelectContext(ctx, &out, query)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return out, nil
}

// ListRunsSince returns a control's runs added within the last window
// (§6.2 read-control-logs).
func (s *Store) ListRunsSince(ctx context.Context, controlID int64, since time.Time) ([]domain.ControlRun, error) {
	var out []domain.ControlRun
	err := s.gw.DB.SelectContext(ctx, &out,
		s.gw.Rebind(`SELECT * FROM rapo_log WHERE control_id = ? AND added >= ? ORDER BY added DESC`), controlID, since)
	if err != nil {
		return nil, fmt.Errorf("list runs since %d: %w", controlID, err)
	}
	return out, nil
}

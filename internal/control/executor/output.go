package executor

import (
	"context"
	"fmt"

	"github.com/rapo-engine/rapo/internal/domain"
)

// PrepareOutputTable implements prepare_output_table[_a/_b] (§4.4): if the
// table is absent, create it from the shape of sourceTable with no rows
// plus a rapo_process_id column; honor with_deletion (truncate) and
// with_drop (drop then recreate) on an existing table before reuse.
func (e *Executor) PrepareOutputTable(ctx context.Context, cfg *domain.ControlConfig, outputTable, sourceTable string) error {
	exists, err := e.gw.Exists(ctx, outputTable)
	if err != nil {
		return fmt.Errorf("prepare output table %s: %w", outputTable, err)
	}

	if exists {
		switch {
		case cfg.WithDrop.Bool():
			if err := e.gw.Drop(ctx, outputTable); err != nil {
				return fmt.Errorf("prepare output table %s: drop: %w", outputTable, err)
			}
			exists = false
		case cfg.WithDeletion.Bool():
			if err := e.gw.Truncate(ctx, outputTable); err != nil {
				return fmt.Errorf("prepare output table %s: truncate: %w", outputTable, err)
			}
		}
	}

	if exists {
		return nil
	}

	selectShape := fmt.Sprintf("SELECT *, CAST(NULL AS BIGINT) AS rapo_process_id FROM %s WHERE 1 = 0",
		e.gw.QuoteIdent(sourceTable))
	if err := e.gw.CTAS(ctx, outputTable, selectShape); err != nil {
		return fmt.Errorf("prepare output table %s: %w", outputTable, err)
	}
	if _, err := e.gw.Execute(ctx, fmt.Sprintf(
		"CREATE INDEX %s ON %s (rapo_process_id)",
		e.gw.QuoteIdent("ix_"+outputTable+"_process_id"), e.gw.QuoteIdent(outputTable))); err != nil {
		return fmt.Errorf("prepare output table %s: index: %w", outputTable, err)
	}
	return nil
}

// SaveRows implements save_errors/save_results: insert every row of
// sourceTable into outputTable, stamped with processID.
func (e *Executor) SaveRows(ctx context.Context, sourceTable, outputTable string, processID int64) error {
	stmt := fmt.Sprintf("INSERT INTO %s SELECT t.*, %d AS rapo_process_id FROM %s t",
		e.gw.QuoteIdent(outputTable), processID, e.gw.QuoteIdent(sourceTable))
	if _, err := e.gw.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("save rows %s -> %s: %w", sourceTable, outputTable, err)
	}
	return nil
}

// DeleteOutputRecords implements delete_output_records: truncate the
// whole output table when with_deletion is set, otherwise delete just
// this run's rows by rapo_process_id — used on a cancelled or revoked
// run.
func (e *Executor) DeleteOutputRecords(ctx context.Context, cfg *domain.ControlConfig, outputTable string, processID int64) error {
	if cfg.WithDeletion.Bool() {
		return e.gw.Truncate(ctx, outputTable)
	}
	_, err := e.gw.Execute(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE rapo_process_id = ?", e.gw.QuoteIdent(outputTable)), processID)
	if err != nil {
		return fmt.Errorf("delete output records %s: %w", outputTable, err)
	}
	return nil
}

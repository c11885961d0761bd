package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/rapo-engine/rapo/internal/domain"
	"github.com/rapo-engine/rapo/internal/gateway"
)

// OutdatedProcessIDs returns the process_ids in rapo_log that are both
// older than today minus days_retention and still present in table's
// rapo_process_id column (§4.5). The maintainer goroutine purges those
// rows via delete_output_records before the log rows themselves age out.
func OutdatedProcessIDs(ctx context.Context, gw *gateway.Gateway, cfg *domain.ControlConfig, table string, now time.Time) ([]int64, error) {
	cutoff := now.AddDate(0, 0, -cfg.DaysRetention)

	var ids []int64
	err := gw.DB.SelectContext(ctx, &ids, fmt.Sprintf(`
		SELECT DISTINCT l.process_id
		FROM rapo_log l
		JOIN %s t ON t.rapo_process_id = l.process_id
		WHERE l.control_id = ? AND l.added < ?`, gw.QuoteIdent(table)),
		cfg.ControlID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("outdated process ids %s: %w", table, err)
	}
	return ids, nil
}

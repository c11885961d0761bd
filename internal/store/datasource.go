package store

import (
	"context"
	"fmt"

	"github.com/rapo-engine/rapo/internal/gateway"
)

// ListDatasources returns the distinct source_name values referenced
// across every control's source_name/source_name_a/source_name_b columns
// (§6.2 get-datasources): the set of external tables/views a control
// author is allowed to reference.
func (s *Store) ListDatasources(ctx context.Context) ([]string, error) {
	var out []string
	err := s.gw.DB.SelectContext(ctx, &out, `
		SELECT DISTINCT source_name FROM rapo_config WHERE source_name IS NOT NULL
		UNION
		SELECT DISTINCT source_name_a FROM rapo_config WHERE source_name_a IS NOT NULL
		UNION
		SELECT DISTINCT source_name_b FROM rapo_config WHERE source_name_b IS NOT NULL
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list datasources: %w", err)
	}
	return out, nil
}

// DatasourceColumns reflects a datasource's column set directly from the
// database catalog (§6.2 get-datasource-columns).
func (s *Store) DatasourceColumns(ctx context.Context, name string) ([]gateway.ColumnInfo, error) {
	cols, err := s.gw.Columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("datasource columns %q: %w", name, err)
	}
	return cols, nil
}

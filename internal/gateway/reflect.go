package gateway

import (
	"context"
	"fmt"
)

// ColumnInfo describes one column of a reflected table, enough to drive
// the case/result-column synthesis of the control parser.
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
}

// Exists reports whether name is a table, view, or materialized view
// reachable in the current schema.
func (g *Gateway) Exists(ctx context.Context, name string) (bool, error) {
	switch g.Vendor {
	case "sqlite":
		var n int
		err := g.DB.GetContext(ctx, &n,
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, name)
		if err != nil {
			return false, fmt.Errorf("exists %s: %w", name, err)
		}
		return n > 0, nil
	case "oracle":
		var n int
		err := g.DB.GetContext(ctx, &n,
			`SELECT count(*) FROM all_objects WHERE object_type IN ('TABLE','VIEW','MATERIALIZED VIEW') AND object_name = :1`,
			g.fmt.QuoteIdent(name))
		if err != nil {
			return false, fmt.Errorf("exists %s: %w", name, err)
		}
		return n > 0, nil
	default:
		return false, fmt.Errorf("exists: unsupported vendor %q", g.Vendor)
	}
}

// IsTable, IsView, IsMaterializedView narrow Exists to a specific kind.
// On sqlite, IsView and IsMaterializedView both check for a view.
func (g *Gateway) IsTable(ctx context.Context, name string) (bool, error) {
	return g.objectIs(ctx, name, "TABLE")
}

func (g *Gateway) IsView(ctx context.Context, name string) (bool, error) {
	return g.objectIs(ctx, name, "VIEW")
}

func (g *Gateway) IsMaterializedView(ctx context.Context, name string) (bool, error) {
	return g.objectIs(ctx, name, "MATERIALIZED VIEW")
}

func (g *Gateway) objectIs(ctx context.Context, name, kind string) (bool, error) {
	switch g.Vendor {
	case "sqlite":
		want := "table"
		if kind != "TABLE" {
			want = "view"
		}
		var n int
		err := g.DB.GetContext(ctx, &n,
			`SELECT count(*) FROM sqlite_master WHERE type = ? AND name = ?`, want, name)
		if err != nil {
			return false, fmt.Errorf("%s %s: %w", kind, name, err)
		}
		return n > 0, nil
	case "oracle":
		var n int
		err := g.DB.GetContext(ctx, &n,
			`SELECT count(*) FROM all_objects WHERE object_type = :1 AND object_name = :2`,
			kind, g.fmt.QuoteIdent(name))
		if err != nil {
			return false, fmt.Errorf("%s %s: %w", kind, name, err)
		}
		return n > 0, nil
	default:
		return false, fmt.Errorf("objectIs: unsupported vendor %q", g.Vendor)
	}
}

// Columns reflects a table's column set.
func (g *Gateway) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	switch g.Vendor {
	case "sqlite":
		rows, err := g.DB.QueryxContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, g.fmt.QuoteIdent(table)))
		if err != nil {
			return nil, fmt.Errorf("columns %s: %w", table, err)
		}
		defer rows.Close()

		var out []ColumnInfo
		for rows.Next() {
			var cid int
			var name, ctype string
			var notnull int
			var dflt any
			var pk int
			if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
				return nil, fmt.Errorf("columns %s: scan: %w", table, err)
			}
			out = append(out, ColumnInfo{Name: name, DataType: ctype, Nullable: notnull == 0})
		}
		return out, rows.Err()
	case "oracle":
		var out []ColumnInfo
		err := g.DB.SelectContext(ctx, &out, `
			SELECT column_name AS name, data_type AS data_type,
			       CASE WHEN nullable = 'Y' THEN 1 ELSE 0 END AS nullable
			FROM all_tab_columns WHERE table_name = :1 ORDER BY column_id`,
			g.fmt.QuoteIdent(table))
		if err != nil {
			return nil, fmt.Errorf("columns %s: %w", table, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("columns: unsupported vendor %q", g.Vendor)
	}
}

// CTAS is the universal materialization primitive every control kind
// uses to stage fetched, matched, mismatched, and reconciled rows: create
// table as select. The target is dropped first if it already exists, so
// CTAS is idempotent across retried runs.
func (g *Gateway) CTAS(ctx context.Context, table, selectSQL string) error {
	if exists, err := g.Exists(ctx, table); err != nil {
		return err
	} else if exists {
		if err := g.Drop(ctx, table); err != nil {
			return err
		}
	}
	query := fmt.Sprintf("CREATE TABLE %s AS %s", g.fmt.QuoteIdent(table), selectSQL)
	_, err := g.Execute(ctx, query)
	return err
}

// Drop removes a table unconditionally; it issues DROP TABLE, so it does
// not remove a view.
func (g *Gateway) Drop(ctx context.Context, table string) error {
	_, err := g.Execute(ctx, fmt.Sprintf("DROP TABLE %s", g.fmt.QuoteIdent(table)))
	return err
}

// Truncate empties a table without dropping it, used when an output
// table slot is reused across runs rather than recreated.
func (g *Gateway) Truncate(ctx context.Context, table string) error {
	_, err := g.Execute(ctx, fmt.Sprintf("DELETE FROM %s", g.fmt.QuoteIdent(table)))
	return err
}

// Purge drops table if it exists, swallowing the not-exists case so
// callers can call it unconditionally during cleanup sweeps.
func (g *Gateway) Purge(ctx context.Context, table string) error {
	exists, err := g.Exists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return g.Drop(ctx, table)
}

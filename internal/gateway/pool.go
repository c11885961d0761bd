// Package gateway is the Database Gateway (C2): connection pooling,
// the execute/execute_many/parallelize surface, a statement formatter,
// table reflection, and the checkpoint cleanup sweep. Two vendors are
// supported, selected by config: a file-backed SQLite pool for local/dev
// use and a networked Oracle-family pool for production, mirroring the
// source's SQLAlchemy engine-URL split without carrying SQLAlchemy's
// full dialect zoo.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/godror/godror"
	_ "modernc.org/sqlite"

	"github.com/rapo-engine/rapo/internal/config"
)

// Pool wraps a vendor-selected *sqlx.DB with the pool parameters of
// §6.1's DATABASE section. It updates no metrics itself; its Stats feed
// the in-use connections gauge.
type Pool struct {
	DB     *sqlx.DB
	Vendor string
	logger *slog.Logger
}

// Open builds the pool for cfg.Database.VendorName. SQLite URLs are file
// paths; Oracle URLs are assembled from host/port/service_name (or sid).
func Open(ctx context.Context, cfg config.Database, logger *slog.Logger) (*Pool, error) {
	var (
		driverName string
		dsn        string
	)

	switch cfg.VendorName {
	case "sqlite":
		driverName = "sqlite"
		dsn = cfg.Path
		if dsn == "" {
			dsn = "rapo.db"
		}
	case "oracle":
		driverName = "godror"
		dsn = oracleDSN(cfg)
	default:
		return nil, fmt.Errorf("unsupported database vendor %q", cfg.VendorName)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.VendorName, err)
	}

	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	if cfg.PoolRecycleSec > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.PoolRecycleSec) * time.Second)
	}
	if cfg.PoolTimeoutSec > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.PoolTimeoutSec) * time.Second)
	}

	if cfg.PoolPrePing {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("ping %s: %w", cfg.VendorName, err)
		}
	}

	return &Pool{
		DB:     sqlx.NewDb(sqlDB, driverName),
		Vendor: cfg.VendorName,
		logger: logger.With("component", "gateway"),
	}, nil
}

func oracleDSN(cfg config.Database) string {
	connectString := cfg.SID
	if cfg.ServiceName != "" {
		connectString = fmt.Sprintf(`(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(SERVICE_NAME=%s)))`,
			cfg.Host, cfg.Port, cfg.ServiceName)
	}
	return fmt.Sprintf(`user="%s" password="%s" connectString="%s"`, cfg.Username, cfg.Password, connectString)
}

// Ping satisfies internal/health.Pinger.
func (p *Pool) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// Close releases the pool.
func (p *Pool) Close() error {
	return p.DB.Close()
}

// Stats reports the pool's current in-use connection count, for the
// database_report_interval log line (§4.7) and the GatewayPoolInUse gauge.
func (p *Pool) Stats() sql.DBStats {
	return p.DB.Stats()
}

// NewForTest builds a Gateway around an already-open *sqlx.DB (typically
// sqlmock-backed) for tests in other packages that need a Gateway without
// dialing a real database.
func NewForTest(db *sqlx.DB, vendor string) *Gateway {
	return New(&Pool{DB: db, Vendor: vendor, logger: slog.Default()})
}

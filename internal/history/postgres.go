package history

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// DefaultTable stores history rows when no table is configured.
const DefaultTable = "price_history"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used for history rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresLog writes history rows into Postgres.
type PostgresLog struct {
	pool  execCloser
	table string
}

// NewPostgresLog connects to Postgres and ensures the history table exists.
func NewPostgresLog(ctx context.Context, cfg PostgresConfig) (*PostgresLog, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	l, err := NewPostgresLogWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := l.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// NewPostgresLogWithPool constructs a log from an existing pool.
func NewPostgresLogWithPool(pool execCloser, table string) (*PostgresLog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresLog{pool: pool, table: table}, nil
}

// EnsureSchema creates the history table when it does not exist.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	recorded_at TEXT NOT NULL,
	product_name TEXT NOT NULL,
	old_price TEXT NOT NULL,
	new_price TEXT NOT NULL,
	url TEXT NOT NULL
)`, l.table)
	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

// Append inserts one history row.
func (l *PostgresLog) Append(ctx context.Context, record monitor.HistoryRecord) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	recorded_at,
	product_name,
	old_price,
	new_price,
	url
) VALUES ($1,$2,$3,$4,$5)`, l.table)

	if _, err := l.pool.Exec(ctx, query,
		record.Timestamp,
		record.ProductName,
		record.OldPrice,
		record.NewPrice,
		record.URL,
	); err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (l *PostgresLog) Close() error {
	if l == nil || l.pool == nil {
		return nil
	}
	l.pool.Close()
	return nil
}

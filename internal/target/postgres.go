package target

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds Postgres sink configuration.
type PostgresConfig struct {
	DSN   string // connection string for pgxpool
	Table string // target table name, optionally schema-qualified
}

// Postgres loads rows into a Postgres table via COPY. Its CopyFrom method
// satisfies CopyFn.
type Postgres struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgres connects a pool and returns the sink plus a close function for
// cleanup.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Postgres{pool: pool, cfg: cfg}, closeFn, nil
}

// CopyFrom bulk-inserts rows with the COPY protocol.
func (s *Postgres) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ident := pgx.Identifier(strings.Split(s.cfg.Table, "."))
	n, err := s.pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy into %s: %s (%s)", s.cfg.Table, pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("copy into %s: %w", s.cfg.Table, err)
	}
	return n, nil
}

// Exec runs an arbitrary statement, typically DDL to create the target table.
func (s *Postgres) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

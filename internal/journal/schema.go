package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const createTable = `
CREATE TABLE IF NOT EXISTS submissions (
	quote_id       TEXT PRIMARY KEY,
	asset_contract TEXT NOT NULL,
	pair           TEXT NOT NULL,
	destination    TEXT NOT NULL,
	value          NUMERIC NOT NULL,
	quote_ts       BIGINT NOT NULL,
	trigger        TEXT NOT NULL,
	status         TEXT NOT NULL,
	tx_hash        TEXT,
	block_number   BIGINT,
	gas_used       BIGINT,
	error          TEXT,
	submitted_at   TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL
)`

const createIndex = `
CREATE INDEX IF NOT EXISTS submissions_asset_submitted_at
	ON submissions (asset_contract, submitted_at DESC)`

// EnsureSchema creates the submissions table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range []string{createTable, createIndex} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}

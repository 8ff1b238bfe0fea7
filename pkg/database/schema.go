package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Amounts are NUMERIC(20,0) so the full uint64 range fits.
var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		team_key   TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		team_id    NUMERIC(20,0) NOT NULL,
		record     JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		account    TEXT PRIMARY KEY,
		balance    NUMERIC(20,0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_transfers (
		id           UUID PRIMARY KEY,
		from_account TEXT NOT NULL,
		to_account   TEXT NOT NULL,
		amount       NUMERIC(20,0) NOT NULL CHECK (amount > 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transfers_from ON ledger_transfers(from_account)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transfers_to ON ledger_transfers(to_account)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS ledger_transfers CASCADE`,
	`DROP TABLE IF EXISTS ledger_accounts CASCADE`,
	`DROP TABLE IF EXISTS teams CASCADE`,
}

// CreateSchema creates every table the service needs. It is idempotent.
func CreateSchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, createStatements)
}

// DropSchema removes every table created by CreateSchema
func DropSchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, dropStatements)
}

func execAll(ctx context.Context, db Execer, statements []string) error {
	for _, query := range statements {
		if _, err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}
	return nil
}

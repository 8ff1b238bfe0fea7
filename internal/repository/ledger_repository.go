package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/pkg/database"
)

// PostgresLedger keeps account balances and an idempotency log of transfers
type PostgresLedger struct {
	db     *database.PostgresDB
	logger *zap.Logger
}

func NewPostgresLedger(db *database.PostgresDB, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{db: db, logger: logger}
}

// Transfer applies one movement atomically. A transfer id seen before is
// reported as success without moving value again. Called with a context
// from PostgresTeamStore.Mutate, it joins the team transaction.
func (l *PostgresLedger) Transfer(ctx context.Context, t domain.Transfer) error {
	if t.Amount == 0 {
		return domain.ErrInvalidAmount
	}
	amount := strconv.FormatUint(t.Amount, 10)

	return l.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO ledger_transfers (id, from_account, to_account, amount)
			VALUES ($1::uuid, $2, $3, $4::numeric)
			ON CONFLICT (id) DO NOTHING
		`, t.ID.String(), t.From, t.To, amount)
		if err != nil {
			return fmt.Errorf("failed to record transfer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			l.logger.Info("Transfer already applied", zap.String("transfer_id", t.ID.String()))
			return nil
		}

		tag, err = tx.Exec(ctx, `
			UPDATE ledger_accounts
			SET balance = balance - $2::numeric, updated_at = NOW()
			WHERE account = $1 AND balance >= $2::numeric
		`, t.From, amount)
		if err != nil {
			return fmt.Errorf("failed to debit account: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return l.debitFailure(ctx, tx, t.From)
		}

		if err := credit(ctx, tx, t.To, amount); err != nil {
			return err
		}

		l.logger.Info("Transfer applied",
			zap.String("transfer_id", t.ID.String()),
			zap.String("from", t.From),
			zap.Uint64("amount", t.Amount))
		return nil
	})
}

// Balance returns the current balance of account
func (l *PostgresLedger) Balance(ctx context.Context, account string) (uint64, error) {
	var balance string
	err := l.db.Pool.QueryRow(ctx,
		`SELECT balance::text FROM ledger_accounts WHERE account = $1`, account,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	v, err := strconv.ParseUint(balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance %q: %w", balance, err)
	}
	return v, nil
}

// Deposit credits account
func (l *PostgresLedger) Deposit(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		return domain.ErrInvalidAmount
	}
	if err := credit(ctx, l.db.Pool, account, strconv.FormatUint(amount, 10)); err != nil {
		return err
	}
	l.logger.Info("Deposit applied", zap.String("account", account), zap.Uint64("amount", amount))
	return nil
}

func credit(ctx context.Context, db database.Execer, account, amount string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO ledger_accounts (account, balance)
		VALUES ($1, $2::numeric)
		ON CONFLICT (account) DO UPDATE
		SET balance = ledger_accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`, account, amount)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

func (l *PostgresLedger) debitFailure(ctx context.Context, tx pgx.Tx, account string) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_accounts WHERE account = $1)`, account).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return domain.ErrAccountMissing
	}
	return domain.ErrInsufficientFunds
}

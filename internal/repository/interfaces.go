package repository

import (
	"context"

	"team-governance/internal/domain"
)

// MutateFunc changes a loaded team record. Returning an error discards the
// change.
type MutateFunc func(ctx context.Context, team *domain.Team) error

// TeamStore defines the interface for team record persistence. One record
// lives under each team key.
type TeamStore interface {
	// Create stores a new record and fails with domain.ErrDuplicateTeam if the key is taken
	Create(ctx context.Context, team *domain.Team) error

	// Get loads the record or fails with domain.ErrTeamNotFound
	Get(ctx context.Context, key domain.TeamKey) (*domain.Team, error)

	// Mutate loads the record, applies fn and persists the result. Concurrent
	// Mutate calls for the same key are serialized, and nothing is written
	// when fn fails.
	Mutate(ctx context.Context, key domain.TeamKey, fn MutateFunc) (*domain.Team, error)
}

// Ledger defines the interface for value movements
type Ledger interface {
	// Transfer moves Amount from From to To. Replaying a transfer id that
	// was already applied is a no-op success.
	Transfer(ctx context.Context, transfer domain.Transfer) error

	// Balance returns the balance of account, zero for unknown accounts
	Balance(ctx context.Context, account string) (uint64, error)

	// Deposit credits account, creating it on first use
	Deposit(ctx context.Context, account string, amount uint64) error
}

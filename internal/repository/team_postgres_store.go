package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/pkg/database"
)

// PostgresTeamStore keeps each team as a JSONB row. Mutations hold a row
// lock for the length of one transaction.
type PostgresTeamStore struct {
	db     *database.PostgresDB
	logger *zap.Logger
}

func NewPostgresTeamStore(db *database.PostgresDB, logger *zap.Logger) *PostgresTeamStore {
	return &PostgresTeamStore{db: db, logger: logger}
}

// Create inserts a new team row
func (s *PostgresTeamStore) Create(ctx context.Context, team *domain.Team) error {
	record, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("failed to encode team: %w", err)
	}

	query := `
		INSERT INTO teams (team_key, name, team_id, record)
		VALUES ($1, $2, $3::numeric, $4)
	`
	_, err = s.db.Pool.Exec(ctx, query, team.Key().String(), team.Name, strconv.FormatUint(team.ID, 10), record)
	if database.IsUniqueViolation(err) {
		return domain.ErrDuplicateTeam
	}
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// Get loads a team row
func (s *PostgresTeamStore) Get(ctx context.Context, key domain.TeamKey) (*domain.Team, error) {
	return s.load(ctx, s.db.Pool, key, `SELECT record FROM teams WHERE team_key = $1`)
}

// Mutate applies fn under SELECT ... FOR UPDATE and writes the row back in
// the same transaction. The context handed to fn carries that transaction,
// so ledger writes made from fn commit or roll back with the team row.
func (s *PostgresTeamStore) Mutate(ctx context.Context, key domain.TeamKey, fn MutateFunc) (*domain.Team, error) {
	var result *domain.Team

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		team, err := s.load(ctx, tx, key, `SELECT record FROM teams WHERE team_key = $1 FOR UPDATE`)
		if err != nil {
			return err
		}

		if err := fn(database.ContextWithTx(ctx, tx), team); err != nil {
			return err
		}

		record, err := json.Marshal(team)
		if err != nil {
			return fmt.Errorf("failed to encode team: %w", err)
		}

		query := `UPDATE teams SET record = $2, updated_at = NOW() WHERE team_key = $1`
		if _, err := tx.Exec(ctx, query, key.String(), record); err != nil {
			return fmt.Errorf("failed to save team: %w", err)
		}

		result = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresTeamStore) load(ctx context.Context, q rowQuerier, key domain.TeamKey, query string) (*domain.Team, error) {
	var record []byte
	err := q.QueryRow(ctx, query, key.String()).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	var team domain.Team
	if err := json.Unmarshal(record, &team); err != nil {
		s.logger.Error("Corrupt team record", zap.String("team", key.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to decode team: %w", err)
	}
	return &team, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/pkg/redis"
)

// LockOptions tunes the per-team mutation lock
type LockOptions struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// DefaultLockOptions returns the lock settings used when none are configured
func DefaultLockOptions() LockOptions {
	return LockOptions{
		TTL:        redis.TTLTeamLock,
		Retries:    20,
		RetryDelay: 25 * time.Millisecond,
	}
}

// RedisTeamStore keeps each team as a JSON document in Redis
type RedisTeamStore struct {
	client *redis.Client
	lock   LockOptions
	logger *zap.Logger
}

func NewRedisTeamStore(client *redis.Client, lock LockOptions, logger *zap.Logger) *RedisTeamStore {
	if lock.TTL <= 0 {
		lock.TTL = redis.TTLTeamLock
	}
	if lock.RetryDelay <= 0 {
		lock.RetryDelay = DefaultLockOptions().RetryDelay
	}
	return &RedisTeamStore{client: client, lock: lock, logger: logger}
}

// Create stores a new team record
func (s *RedisTeamStore) Create(ctx context.Context, team *domain.Team) error {
	payload, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("failed to encode team: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.client.KeyBuilder.KeyTeam(team.Name, team.ID), payload, 0)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	if !created {
		return domain.ErrDuplicateTeam
	}
	return nil
}

// Get loads a team record
func (s *RedisTeamStore) Get(ctx context.Context, key domain.TeamKey) (*domain.Team, error) {
	return s.load(ctx, s.client.KeyBuilder.KeyTeam(key.Name, key.ID))
}

// Mutate applies fn to the record while holding the team lock. The write is
// fenced on the lock token, so a holder whose lock expired mid-call cannot
// overwrite a newer record.
func (s *RedisTeamStore) Mutate(ctx context.Context, key domain.TeamKey, fn MutateFunc) (*domain.Team, error) {
	recordKey := s.client.KeyBuilder.KeyTeam(key.Name, key.ID)
	lockKey := s.client.KeyBuilder.KeyTeamLock(key.Name, key.ID)
	token := uuid.NewString()

	if err := s.acquire(ctx, lockKey, token); err != nil {
		return nil, err
	}
	defer s.release(lockKey, token)

	team, err := s.load(ctx, recordKey)
	if err != nil {
		return nil, err
	}

	if err := fn(ctx, team); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(team)
	if err != nil {
		return nil, fmt.Errorf("failed to encode team: %w", err)
	}

	written, err := s.client.SetIfLocked(ctx, lockKey, token, recordKey, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}
	if !written {
		s.logger.Warn("Team lock expired before write",
			zap.String("team", key.String()),
			zap.Duration("lock_ttl", s.lock.TTL))
		return nil, domain.ErrTeamBusy
	}
	return team, nil
}

func (s *RedisTeamStore) load(ctx context.Context, recordKey string) (*domain.Team, error) {
	raw, err := s.client.Get(ctx, recordKey)
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	var team domain.Team
	if err := json.Unmarshal([]byte(raw), &team); err != nil {
		return nil, fmt.Errorf("failed to decode team: %w", err)
	}
	return &team, nil
}

func (s *RedisTeamStore) acquire(ctx context.Context, lockKey, token string) error {
	for attempt := 0; ; attempt++ {
		ok, err := s.client.AcquireLock(ctx, lockKey, token, s.lock.TTL)
		if err != nil {
			return fmt.Errorf("failed to acquire team lock: %w", err)
		}
		if ok {
			return nil
		}
		if attempt >= s.lock.Retries {
			return domain.ErrTeamBusy
		}

		timer := time.NewTimer(s.lock.RetryDelay * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *RedisTeamStore) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.client.ReleaseLock(ctx, lockKey, token); err != nil {
		s.logger.Warn("Failed to release team lock", zap.Error(err))
	}
}

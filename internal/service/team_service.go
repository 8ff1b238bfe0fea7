package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/internal/governance"
	"team-governance/internal/repository"
)

// TeamService runs each governance operation as one atomic step against the
// team store
type TeamService struct {
	store  repository.TeamStore
	ledger repository.Ledger
	cache  *TeamCache
	rules  governance.Rules
	logger *zap.Logger
	now    func() time.Time
}

var _ TeamOperations = (*TeamService)(nil)

// TeamServiceOption customises a TeamService
type TeamServiceOption func(*TeamService)

// WithCache serves GetTeam through a read cache
func WithCache(cache *TeamCache) TeamServiceOption {
	return func(s *TeamService) { s.cache = cache }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) TeamServiceOption {
	return func(s *TeamService) { s.now = now }
}

// NewTeamService wires the store and ledger. ledger may be nil, in which case
// ClaimReward fails with domain.ErrLedgerUnavailable.
func NewTeamService(store repository.TeamStore, ledger repository.Ledger, rules governance.Rules, logger *zap.Logger, opts ...TeamServiceOption) *TeamService {
	s := &TeamService{
		store:  store,
		ledger: ledger,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTeam registers a new team with caller as its captain
func (s *TeamService) CreateTeam(ctx context.Context, caller domain.Identity, key domain.TeamKey) (*domain.TeamView, error) {
	team, err := governance.NewTeam(key, caller, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, team); err != nil {
		s.logResult("create_team", key, caller, time.Time{}, err)
		return nil, err
	}
	s.logger.Info("Team created",
		zap.String("team", key.String()),
		zap.String("captain", caller))
	return governance.View(team), nil
}

// GetTeam returns the current team state
func (s *TeamService) GetTeam(ctx context.Context, key domain.TeamKey) (*domain.TeamView, error) {
	var (
		team *domain.Team
		err  error
	)
	if s.cache != nil {
		team, err = s.cache.GetTeam(ctx, key, s.store.Get)
	} else {
		team, err = s.store.Get(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if team.IsDisbanded() {
		return nil, domain.ErrTeamDisbanded
	}
	return governance.View(team), nil
}

func (s *TeamService) AddMember(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error) {
	return s.mutateView(ctx, "add_member", caller, key, func(team *domain.Team) error {
		return governance.AddMember(team, caller, member)
	})
}

func (s *TeamService) RemoveMember(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error) {
	return s.mutateView(ctx, "remove_member", caller, key, func(team *domain.Team) error {
		return governance.RemoveMember(team, caller, member, s.rules)
	})
}

func (s *TeamService) TransferCaptain(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error) {
	return s.mutateView(ctx, "transfer_captain", caller, key, func(team *domain.Team) error {
		return governance.TransferCaptain(team, caller, member)
	})
}

// LeaveTeam removes the caller. The team is disbanded when the last member leaves.
func (s *TeamService) LeaveTeam(ctx context.Context, caller domain.Identity, key domain.TeamKey) error {
	_, err := s.mutate(ctx, "leave_team", caller, key, func(_ context.Context, team *domain.Team) error {
		return governance.LeaveTeam(team, caller)
	})
	return err
}

func (s *TeamService) InitEvent(ctx context.Context, caller domain.Identity, key domain.TeamKey, eventID string, prize uint64) (*domain.TeamView, error) {
	return s.mutateView(ctx, "init_event", caller, key, func(team *domain.Team) error {
		return governance.InitEvent(team, caller, eventID, prize)
	})
}

func (s *TeamService) VoteForEvent(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error) {
	return s.vote(ctx, "vote_for_event", caller, key, choice, governance.VoteForEvent)
}

func (s *TeamService) VoteToLeaveEvent(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error) {
	return s.vote(ctx, "vote_to_leave_event", caller, key, choice, governance.VoteToLeaveEvent)
}

func (s *TeamService) ProposePercentages(ctx context.Context, caller domain.Identity, key domain.TeamKey, percentages []uint8) (*domain.TeamView, error) {
	return s.mutateView(ctx, "propose_percentages", caller, key, func(team *domain.Team) error {
		return governance.ProposePercentages(team, caller, percentages)
	})
}

func (s *TeamService) VoteOnDistribution(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error) {
	return s.vote(ctx, "vote_on_distribution", caller, key, choice, governance.VoteOnDistribution)
}

// CanJoinTournament recomputes and persists the eligibility flag
func (s *TeamService) CanJoinTournament(ctx context.Context, key domain.TeamKey) (bool, error) {
	var eligible bool
	_, err := s.mutate(ctx, "can_join_tournament", "", key, func(_ context.Context, team *domain.Team) error {
		var err error
		eligible, err = governance.CanJoinTournament(team)
		return err
	})
	if err != nil {
		return false, err
	}
	return eligible, nil
}

// ClaimReward pays amount from the team prize pool to caller. The ledger
// transfer runs inside the team's exclusive section so two claims by the
// same member cannot both pass the cap check. With the Postgres store the
// transfer joins the team transaction and commits with the claim record.
//
// A store that loses its lock after the transfer reports domain.ErrTeamBusy.
// The payout has then been made, so the claim is recorded without a second
// authorization, retrying until it lands or ctx ends.
func (s *TeamService) ClaimReward(ctx context.Context, caller domain.Identity, key domain.TeamKey, amount uint64) (*domain.ClaimResult, error) {
	if s.ledger == nil {
		return nil, domain.ErrLedgerUnavailable
	}

	transfer := domain.Transfer{
		ID:     uuid.New(),
		From:   key.PoolAccount(),
		To:     caller,
		Amount: amount,
	}
	result := &domain.ClaimResult{
		TransferID: transfer.ID,
		Claimant:   caller,
		Amount:     amount,
	}

	var (
		event       string
		transferred bool
		replayed    bool
	)
	_, err := s.mutate(ctx, "claim_reward", caller, key, func(ctx context.Context, team *domain.Team) error {
		limit, err := governance.AuthorizeClaim(team, caller, amount)
		if err != nil {
			return err
		}
		if err := s.ledger.Transfer(ctx, transfer); err != nil {
			return fmt.Errorf("reward transfer failed: %w", err)
		}
		event, transferred = team.ActiveEvent, true
		result.Cap = limit
		result.Claimed = governance.RecordClaim(team, caller, amount)
		return nil
	})

	for errors.Is(err, domain.ErrTeamBusy) && transferred && ctx.Err() == nil {
		replayed = true
		s.logger.Warn("Claim not recorded after transfer, replaying",
			zap.String("team", key.String()),
			zap.String("transfer_id", transfer.ID.String()))
		_, err = s.mutate(ctx, "record_claim", caller, key, func(_ context.Context, team *domain.Team) error {
			result.Claimed = amount
			// event totals were cleared by a rollback in between
			if team.ActiveEvent != event || !team.IsMember(caller) {
				s.logger.Warn("Paid claim outlived its event",
					zap.String("team", key.String()),
					zap.String("transfer_id", transfer.ID.String()),
					zap.String("event", event))
				return nil
			}
			result.Claimed = governance.RecordClaim(team, caller, amount)
			return nil
		})
	}
	if err != nil {
		if transferred && (replayed || errors.Is(err, domain.ErrTeamBusy)) {
			s.logger.Error("Reward paid but claim not recorded",
				zap.String("team", key.String()),
				zap.String("transfer_id", transfer.ID.String()),
				zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

func (s *TeamService) vote(ctx context.Context, op string, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice,
	cast func(*domain.Team, domain.Identity, domain.VoteChoice) (bool, error)) (*domain.VoteOutcome, error) {
	var approved bool
	team, err := s.mutate(ctx, op, caller, key, func(_ context.Context, team *domain.Team) error {
		var err error
		approved, err = cast(team, caller, choice)
		return err
	})
	if err != nil {
		return nil, err
	}
	if approved {
		s.logger.Info("Vote round approved",
			zap.String("operation", op),
			zap.String("team", key.String()))
	}
	return &domain.VoteOutcome{Approved: approved, Team: governance.View(team)}, nil
}

func (s *TeamService) mutateView(ctx context.Context, op string, caller domain.Identity, key domain.TeamKey, apply func(*domain.Team) error) (*domain.TeamView, error) {
	team, err := s.mutate(ctx, op, caller, key, func(_ context.Context, team *domain.Team) error {
		return apply(team)
	})
	if err != nil {
		return nil, err
	}
	return governance.View(team), nil
}

// mutate runs fn under the store's per-team exclusive section. A disbanded
// record rejects every operation.
func (s *TeamService) mutate(ctx context.Context, op string, caller domain.Identity, key domain.TeamKey, fn repository.MutateFunc) (*domain.Team, error) {
	start := time.Now()
	team, err := s.store.Mutate(ctx, key, func(ctx context.Context, team *domain.Team) error {
		if team.IsDisbanded() {
			return domain.ErrTeamDisbanded
		}
		if err := fn(ctx, team); err != nil {
			return err
		}
		if team.IsDisbanded() {
			// keep the record addressable after the last member left
			team.Name, team.ID = key.Name, key.ID
		}
		team.UpdatedAt = s.now().UTC()
		return nil
	})

	s.logResult(op, key, caller, start, err)
	if s.cache != nil && err == nil {
		s.cache.Invalidate(ctx, key)
	}
	return team, err
}

func (s *TeamService) logResult(op string, key domain.TeamKey, caller domain.Identity, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("team", key.String()),
		zap.String("caller", caller),
	}
	if !start.IsZero() {
		fields = append(fields, zap.Duration("duration", time.Since(start)))
	}

	if err == nil {
		s.logger.Debug("Team operation applied", fields...)
		return
	}
	if ge, ok := domain.AsGovernanceError(err); ok {
		s.logger.Info("Team operation rejected", append(fields, zap.String("code", ge.Code))...)
		return
	}
	s.logger.Error("Team operation failed", append(fields, zap.Error(err))...)
}

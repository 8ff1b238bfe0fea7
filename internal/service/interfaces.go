package service

import (
	"context"

	"team-governance/internal/domain"
)

// IdentityProvider turns a bearer credential into a verified principal
type IdentityProvider interface {
	// Verify validates token and returns the principal it was issued to
	Verify(ctx context.Context, token string) (*domain.Principal, error)
}

// TeamOperations is the governance surface exposed to transports. Every
// mutating call is atomic per team.
type TeamOperations interface {
	CreateTeam(ctx context.Context, caller domain.Identity, key domain.TeamKey) (*domain.TeamView, error)
	GetTeam(ctx context.Context, key domain.TeamKey) (*domain.TeamView, error)

	AddMember(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error)
	RemoveMember(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error)
	TransferCaptain(ctx context.Context, caller domain.Identity, key domain.TeamKey, member domain.Identity) (*domain.TeamView, error)
	LeaveTeam(ctx context.Context, caller domain.Identity, key domain.TeamKey) error

	InitEvent(ctx context.Context, caller domain.Identity, key domain.TeamKey, eventID string, prize uint64) (*domain.TeamView, error)
	VoteForEvent(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error)
	VoteToLeaveEvent(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error)

	ProposePercentages(ctx context.Context, caller domain.Identity, key domain.TeamKey, percentages []uint8) (*domain.TeamView, error)
	VoteOnDistribution(ctx context.Context, caller domain.Identity, key domain.TeamKey, choice domain.VoteChoice) (*domain.VoteOutcome, error)
	CanJoinTournament(ctx context.Context, key domain.TeamKey) (bool, error)
	ClaimReward(ctx context.Context, caller domain.Identity, key domain.TeamKey, amount uint64) (*domain.ClaimResult, error)
}

// Services aggregates all service interfaces
type Services struct {
	Identity IdentityProvider
	Teams    TeamOperations
}

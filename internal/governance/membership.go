// Package governance holds the team rules: membership, threshold voting,
// the event lifecycle and reward distribution. Every function validates all
// of its preconditions before it touches the team, so a returned error means
// the record is unchanged.
package governance

import (
	"slices"
	"time"

	"team-governance/internal/domain"
)

// Rules carries the policy switches that the history of the rules left open
type Rules struct {
	// RemoveRequiresCaptain restricts RemoveMember to the captain
	RemoveRequiresCaptain bool
}

// DefaultRules returns the captain-gated policy
func DefaultRules() Rules {
	return Rules{RemoveRequiresCaptain: true}
}

// NewTeam creates a team whose only member and captain is the creator
func NewTeam(key domain.TeamKey, creator domain.Identity, now time.Time) (*domain.Team, error) {
	if key.Name == "" || creator == "" {
		return nil, domain.ErrInvalidTeam
	}
	return &domain.Team{
		Name:      key.Name,
		ID:        key.ID,
		Captain:   creator,
		Members:   []domain.Identity{creator},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddMember appends member to the roster. Captain only.
func AddMember(team *domain.Team, caller, member domain.Identity) error {
	if !team.IsCaptain(caller) {
		return domain.ErrNotCaptain
	}
	if len(team.Members) >= domain.MaxSeats {
		return domain.ErrTeamCapacityFull
	}
	if team.IsMember(member) {
		return domain.ErrMemberAlreadyInTeam
	}
	team.Members = append(team.Members, member)
	return nil
}

// RemoveMember drops target from the roster. The captain can never be removed
// this way, only replaced through TransferCaptain or LeaveTeam.
func RemoveMember(team *domain.Team, caller, target domain.Identity, rules Rules) error {
	if len(team.Members) <= 1 {
		return domain.ErrTeamCapacityLow
	}
	if rules.RemoveRequiresCaptain && !team.IsCaptain(caller) {
		return domain.ErrNotCaptain
	}
	if team.Captain == target {
		return domain.ErrNotCaptain
	}
	if !team.IsMember(target) {
		return domain.ErrMemberNotInTeam
	}
	team.Members = removeIdentity(team.Members, target)
	withdrawBallots(team, target)
	return nil
}

// TransferCaptain hands the captain role to another member
func TransferCaptain(team *domain.Team, caller, member domain.Identity) error {
	if !team.IsCaptain(caller) {
		return domain.ErrNotCaptain
	}
	if !team.IsMember(member) {
		return domain.ErrMemberNotInTeam
	}
	team.Captain = member
	return nil
}

// LeaveTeam removes the caller. The last member leaving resets the record to
// its zero state. A departing captain is succeeded by the member in the
// second roster slot; when that slot is the captain itself the first slot is
// used instead, so the captain stays on the roster.
func LeaveTeam(team *domain.Team, caller domain.Identity) error {
	if !team.IsMember(caller) {
		return domain.ErrMemberNotInTeam
	}

	if len(team.Members) == 1 {
		*team = domain.Team{}
		return nil
	}

	if team.IsCaptain(caller) {
		successor := team.Members[1]
		// captain holds slot 1 after a TransferCaptain; slot 0 takes over
		if successor == caller {
			successor = team.Members[0]
		}
		team.Captain = successor
	}

	team.Members = removeIdentity(team.Members, caller)
	withdrawBallots(team, caller)
	return nil
}

// withdrawBallots takes a departed member's ballots out of every open round.
// A distribution approval that loses its third yes vote is revoked.
func withdrawBallots(team *domain.Team, id domain.Identity) {
	team.JoinVote.Withdraw(id)
	team.LeaveVote.Withdraw(id)
	if team.DistributionVote.Withdraw(id) && !team.DistributionVote.Approved() {
		team.DistributionApproved = false
	}
}

func removeIdentity(members []domain.Identity, id domain.Identity) []domain.Identity {
	return slices.DeleteFunc(slices.Clone(members), func(m domain.Identity) bool {
		return m == id
	})
}

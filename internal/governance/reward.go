package governance

import (
	"math/bits"
	"slices"

	"team-governance/internal/domain"
)

// ProposePercentages stores a new distribution table, one share per roster
// slot. A new table invalidates any earlier distribution vote.
func ProposePercentages(team *domain.Team, caller domain.Identity, percentages []uint8) error {
	if !team.IsCaptain(caller) {
		return domain.ErrNotCaptain
	}
	if !team.HasActiveEvent() {
		return domain.ErrNoActiveEvent
	}
	if err := ValidatePercentages(percentages, len(team.Members)); err != nil {
		return err
	}
	team.DistributionPercentages = slices.Clone(percentages)
	ResetRound(&team.DistributionVote)
	team.DistributionApproved = false
	return nil
}

// ValidatePercentages checks shape and sum of a distribution table
func ValidatePercentages(percentages []uint8, members int) error {
	if len(percentages) == 0 || len(percentages) != members {
		return domain.ErrInvalidPercentage
	}
	sum := 0
	for _, p := range percentages {
		if p > domain.FullPercentage {
			return domain.ErrInvalidPercentage
		}
		sum += int(p)
	}
	if sum != domain.FullPercentage {
		return domain.ErrInvalidPercentage
	}
	return nil
}

// VoteOnDistribution casts a ballot on the current table. Once three ballots
// are in, DistributionApproved follows the yes tally: approved with three
// yes votes, explicitly rejected otherwise.
func VoteOnDistribution(team *domain.Team, caller domain.Identity, choice domain.VoteChoice) (bool, error) {
	if !team.HasActiveEvent() {
		return false, domain.ErrNoActiveEvent
	}
	if len(team.DistributionPercentages) == 0 {
		return false, domain.ErrNoDistributionProposal
	}
	if _, err := CastBallot(&team.DistributionVote, caller, team.Members, choice); err != nil {
		return false, err
	}
	round := &team.DistributionVote
	if round.Ballots() >= domain.ApprovalThreshold {
		team.DistributionApproved = round.YesCount >= domain.ApprovalThreshold
	}
	return team.DistributionApproved, nil
}

// RewardCap is floor(prize * share / 100) for member's roster slot.
// A slot without a share has a cap of zero.
func RewardCap(team *domain.Team, member domain.Identity) (uint64, error) {
	idx := team.MemberIndex(member)
	if idx < 0 {
		return 0, domain.ErrMemberNotInTeam
	}
	if idx >= len(team.DistributionPercentages) {
		return 0, nil
	}
	return shareOf(team.EventPrize, team.DistributionPercentages[idx]), nil
}

func shareOf(prize uint64, percentage uint8) uint64 {
	hi, lo := bits.Mul64(prize, uint64(percentage))
	q, _ := bits.Div64(hi, lo, domain.FullPercentage)
	return q
}

// AuthorizeClaim checks that claimant may be paid amount now and returns the
// claimant's cap. Amounts already paid for the event count against the cap.
func AuthorizeClaim(team *domain.Team, claimant domain.Identity, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, domain.ErrInvalidAmount
	}
	if !team.IsMember(claimant) {
		return 0, domain.ErrMemberNotInTeam
	}
	if !team.HasActiveEvent() {
		return 0, domain.ErrNoActiveEvent
	}
	if !team.DistributionApproved {
		return 0, domain.ErrDistributionNotApproved
	}
	limit, err := RewardCap(team, claimant)
	if err != nil {
		return 0, err
	}
	claimed := team.ClaimedRewards[claimant]
	if claimed > limit || amount > limit-claimed {
		return limit, domain.ErrExceedsCap
	}
	return limit, nil
}

// RecordClaim adds a paid amount to claimant's running total
func RecordClaim(team *domain.Team, claimant domain.Identity, amount uint64) uint64 {
	if team.ClaimedRewards == nil {
		team.ClaimedRewards = make(map[domain.Identity]uint64)
	}
	team.ClaimedRewards[claimant] += amount
	return team.ClaimedRewards[claimant]
}

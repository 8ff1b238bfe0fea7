package governance

import (
	"slices"

	"team-governance/internal/domain"
)

// CastBallot records caller's ballot in round. It reports true only for the
// ballot that lifts the yes tally onto the approval threshold.
func CastBallot(round *domain.VoteRound, caller domain.Identity, members []domain.Identity, choice domain.VoteChoice) (bool, error) {
	if !choice.Valid() {
		return false, domain.ErrInvalidVote
	}
	if !slices.Contains(members, caller) {
		return false, domain.ErrMemberNotInTeam
	}
	if round.HasVoted(caller) {
		return false, domain.ErrAlreadyVoted
	}
	if round.Closed() {
		return false, domain.ErrVoteClosed
	}

	round.Voters = append(round.Voters, caller)
	if choice == domain.VoteYes {
		round.YesVoters = append(round.YesVoters, caller)
		round.YesCount++
		return round.YesCount == domain.ApprovalThreshold, nil
	}
	return false, nil
}

// ResetRound discards every ballot of round
func ResetRound(round *domain.VoteRound) {
	round.Reset()
}

package governance

import (
	"strings"

	"team-governance/internal/domain"
)

// StageOf derives where the team sits in the event lifecycle. An assigned
// event counts as VotingToJoin until the join round has approved it.
func StageOf(team *domain.Team) domain.Stage {
	switch {
	case !team.HasActiveEvent():
		return domain.StageIdle
	case team.LeaveVote.Ballots() > 0:
		return domain.StageVotingToLeave
	case !team.VotingResult:
		return domain.StageVotingToJoin
	default:
		return domain.StageActive
	}
}

// View builds the read model of team
func View(team *domain.Team) *domain.TeamView {
	return &domain.TeamView{
		Team:           team,
		Stage:          StageOf(team),
		MemberCount:    len(team.Members),
		SeatsAvailable: domain.MaxSeats - len(team.Members),
	}
}

// InitEvent assigns the event and its prize. Captain only. Whether the team
// actually wants to take part is decided separately by VoteForEvent.
func InitEvent(team *domain.Team, caller domain.Identity, eventID string, prize uint64) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domain.ErrInvalidEvent
	}
	if !team.IsCaptain(caller) {
		return domain.ErrNotCaptain
	}
	if team.HasActiveEvent() {
		return domain.ErrAlreadyActiveEvent
	}
	team.ActiveEvent = eventID
	team.EventPrize = prize
	return nil
}

// VoteForEvent casts a ballot in the join round. Reaching the threshold sets
// VotingResult and opens a fresh join round. Returns whether this ballot
// approved the round.
func VoteForEvent(team *domain.Team, caller domain.Identity, choice domain.VoteChoice) (bool, error) {
	if !team.HasActiveEvent() {
		return false, domain.ErrNoActiveEvent
	}
	approved, err := CastBallot(&team.JoinVote, caller, team.Members, choice)
	if err != nil {
		return false, err
	}
	if approved {
		team.VotingResult = true
		ResetRound(&team.JoinVote)
	}
	return approved, nil
}

// VoteToLeaveEvent casts a ballot in the leave round. Reaching the threshold
// rolls the team back to idle.
func VoteToLeaveEvent(team *domain.Team, caller domain.Identity, choice domain.VoteChoice) (bool, error) {
	if !team.HasActiveEvent() {
		return false, domain.ErrNoActiveEvent
	}
	approved, err := CastBallot(&team.LeaveVote, caller, team.Members, choice)
	if err != nil {
		return false, err
	}
	if approved {
		leaveEvent(team)
	}
	return approved, nil
}

// leaveEvent clears every piece of event state
func leaveEvent(team *domain.Team) {
	team.ActiveEvent = ""
	team.EventPrize = 0
	ResetRound(&team.LeaveVote)
	ResetRound(&team.JoinVote)
	team.VotingResult = false
	ResetRound(&team.DistributionVote)
	team.DistributionApproved = false
	team.DistributionPercentages = nil
	team.EligibleToJoin = false
	team.ClaimedRewards = nil
}

// CanJoinTournament recomputes and stores EligibleToJoin
func CanJoinTournament(team *domain.Team) (bool, error) {
	if len(team.Members) != domain.MaxSeats {
		return false, domain.ErrNotEnoughPlayers
	}
	if !team.HasActiveEvent() {
		return false, domain.ErrNoActiveEvent
	}
	team.EligibleToJoin = team.VotingResult && team.DistributionVote.YesCount >= domain.ApprovalThreshold
	return team.EligibleToJoin, nil
}

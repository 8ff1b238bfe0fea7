package domain

import (
	"fmt"
	"slices"
	"time"
)

const (
	// MaxSeats is the roster cap of a team
	MaxSeats = 5
	// ApprovalThreshold is the number of "yes" ballots that approves a round.
	// It is fixed against MaxSeats and does not shrink with the roster.
	ApprovalThreshold = 3
	// FullPercentage is the required sum of a distribution table
	FullPercentage = 100
)

// Identity is a verified principal id supplied by the identity provider
type Identity = string

// TeamKey addresses one team record in the store
type TeamKey struct {
	Name string `json:"name"`
	ID   uint64 `json:"id"`
}

func (k TeamKey) String() string {
	return fmt.Sprintf("%s:%d", k.Name, k.ID)
}

// PoolAccount is the ledger account that funds this team's prize payouts
func (k TeamKey) PoolAccount() string {
	return fmt.Sprintf("pool:%s:%d", k.Name, k.ID)
}

// Team is the governance record of one team
type Team struct {
	Name    string     `json:"name"`
	ID      uint64     `json:"id"`
	Captain Identity   `json:"captain"`
	Members []Identity `json:"members"`

	ActiveEvent string `json:"active_event,omitempty"`
	EventPrize  uint64 `json:"event_prize"`

	JoinVote     VoteRound `json:"join_vote"`
	LeaveVote    VoteRound `json:"leave_vote"`
	VotingResult bool      `json:"voting_result"`

	DistributionPercentages Percentages `json:"distribution_percentages,omitempty"`
	DistributionVote        VoteRound `json:"distribution_vote"`
	DistributionApproved    bool      `json:"distribution_approved"`
	EligibleToJoin          bool      `json:"eligible_to_join"`

	// ClaimedRewards accumulates paid amounts per member for the active event
	ClaimedRewards map[Identity]uint64 `json:"claimed_rewards,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the store key of the team
func (t *Team) Key() TeamKey {
	return TeamKey{Name: t.Name, ID: t.ID}
}

// IsMember reports whether id is on the roster
func (t *Team) IsMember(id Identity) bool {
	return slices.Contains(t.Members, id)
}

// MemberIndex returns the roster position of id, or -1
func (t *Team) MemberIndex(id Identity) int {
	return slices.Index(t.Members, id)
}

// IsCaptain reports whether id holds the captain role
func (t *Team) IsCaptain(id Identity) bool {
	return t.Captain != "" && t.Captain == id
}

// HasActiveEvent reports whether an event is currently assigned
func (t *Team) HasActiveEvent() bool {
	return t.ActiveEvent != ""
}

// IsDisbanded reports whether the record was reset by its last member leaving
func (t *Team) IsDisbanded() bool {
	return len(t.Members) == 0
}

// Clone returns a deep copy so callers can mutate without aliasing the original
func (t *Team) Clone() *Team {
	c := *t
	c.Members = slices.Clone(t.Members)
	c.JoinVote = t.JoinVote.Clone()
	c.LeaveVote = t.LeaveVote.Clone()
	c.DistributionVote = t.DistributionVote.Clone()
	c.DistributionPercentages = slices.Clone(t.DistributionPercentages)
	if t.ClaimedRewards != nil {
		c.ClaimedRewards = make(map[Identity]uint64, len(t.ClaimedRewards))
		for k, v := range t.ClaimedRewards {
			c.ClaimedRewards[k] = v
		}
	}
	return &c
}

// Stage is the derived position of a team in the event lifecycle
type Stage string

const (
	StageIdle          Stage = "idle"
	StageVotingToJoin  Stage = "voting_to_join"
	StageActive        Stage = "active"
	StageVotingToLeave Stage = "voting_to_leave"
)

// TeamView is the read model returned to clients
type TeamView struct {
	*Team
	Stage          Stage `json:"stage"`
	MemberCount    int   `json:"member_count"`
	SeatsAvailable int   `json:"seats_available"`
}

// VoteOutcome reports whether a ballot approved its round and the team state after it
type VoteOutcome struct {
	Approved bool      `json:"approved"`
	Team     *TeamView `json:"team"`
}

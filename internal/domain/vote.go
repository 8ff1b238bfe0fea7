package domain

import (
	"fmt"
	"slices"
	"strings"
)

// VoteChoice is a single ballot value
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// Valid reports whether the choice is one of the two known variants
func (c VoteChoice) Valid() bool {
	return c == VoteYes || c == VoteNo
}

// UnmarshalText accepts "yes"/"no" in any case
func (c *VoteChoice) UnmarshalText(text []byte) error {
	v := VoteChoice(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid vote choice %q", string(text))
	}
	*c = v
	return nil
}

// VoteRound collects the ballots of one decision between resets.
// YesVoters is the subset of Voters that voted yes.
type VoteRound struct {
	Voters    []Identity `json:"voters"`
	YesVoters []Identity `json:"yes_voters,omitempty"`
	YesCount  int        `json:"yes_count"`
}

// HasVoted reports whether id already cast a ballot in this round
func (r *VoteRound) HasVoted(id Identity) bool {
	return slices.Contains(r.Voters, id)
}

// Ballots is the total number of ballots cast
func (r *VoteRound) Ballots() int {
	return len(r.Voters)
}

// Approved reports whether the yes tally reached the threshold
func (r *VoteRound) Approved() bool {
	return r.YesCount >= ApprovalThreshold
}

// Closed reports whether the round accepts no more ballots
func (r *VoteRound) Closed() bool {
	return r.Approved() || r.Ballots() >= MaxSeats
}

// Open reports whether at least one ballot is pending a decision
func (r *VoteRound) Open() bool {
	return r.Ballots() > 0 && !r.Closed()
}

// Withdraw drops the ballot of id, taking its yes vote off the tally.
// It reports whether id had voted.
func (r *VoteRound) Withdraw(id Identity) bool {
	i := slices.Index(r.Voters, id)
	if i < 0 {
		return false
	}
	r.Voters = slices.Delete(slices.Clone(r.Voters), i, i+1)

	if j := slices.Index(r.YesVoters, id); j >= 0 {
		r.YesVoters = slices.Delete(slices.Clone(r.YesVoters), j, j+1)
		r.YesCount--
	}
	r.YesCount = min(r.YesCount, len(r.Voters))
	if len(r.Voters) == 0 {
		r.Reset()
	}
	return true
}

// Reset clears the round for a fresh decision
func (r *VoteRound) Reset() {
	r.Voters = nil
	r.YesVoters = nil
	r.YesCount = 0
}

// Clone returns a copy that does not share the voter slices
func (r VoteRound) Clone() VoteRound {
	return VoteRound{
		Voters:    slices.Clone(r.Voters),
		YesVoters: slices.Clone(r.YesVoters),
		YesCount:  r.YesCount,
	}
}

package governance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"team-governance/internal/domain"
)

var testKey = domain.TeamKey{Name: "falcons", ID: 7}

// newTestTeam builds a team of size members named m1..mN with m1 as captain
func newTestTeam(t *testing.T, size int) *domain.Team {
	t.Helper()
	team, err := NewTeam(testKey, "m1", time.Unix(0, 0))
	require.NoError(t, err)
	for i := 2; i <= size; i++ {
		require.NoError(t, AddMember(team, "m1", fmt.Sprintf("m%d", i)))
	}
	return team
}

// newEventTeam builds a full team with an active event worth prize
func newEventTeam(t *testing.T, prize uint64) *domain.Team {
	t.Helper()
	team := newTestTeam(t, domain.MaxSeats)
	require.NoError(t, InitEvent(team, "m1", "cup-2024", prize))
	return team
}

// requireInvariants checks the roster invariants that must hold at rest
func requireInvariants(t *testing.T, team *domain.Team) {
	t.Helper()
	if team.IsDisbanded() {
		require.Empty(t, team.Captain)
		return
	}
	require.GreaterOrEqual(t, len(team.Members), 1)
	require.LessOrEqual(t, len(team.Members), domain.MaxSeats)
	require.Contains(t, team.Members, team.Captain)

	seen := map[domain.Identity]bool{}
	for _, m := range team.Members {
		require.False(t, seen[m], "duplicate member %s", m)
		seen[m] = true
	}
	for _, round := range []domain.VoteRound{team.JoinVote, team.LeaveVote, team.DistributionVote} {
		require.LessOrEqual(t, round.YesCount, round.Ballots())
		require.LessOrEqual(t, round.Ballots(), domain.MaxSeats)
		require.LessOrEqual(t, round.Ballots(), len(team.Members))
		require.Len(t, round.YesVoters, round.YesCount)
		for _, v := range round.Voters {
			require.True(t, team.IsMember(v), "ballot from departed member %s", v)
		}
	}
}

package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-governance/internal/domain"
)

var fullRoster = []domain.Identity{"m1", "m2", "m3", "m4", "m5"}

func TestCastBallot_ApprovesOnThirdYes(t *testing.T) {
	var round domain.VoteRound

	approved, err := CastBallot(&round, "m1", fullRoster, domain.VoteYes)
	require.NoError(t, err)
	assert.False(t, approved)

	approved, err = CastBallot(&round, "m2", fullRoster, domain.VoteNo)
	require.NoError(t, err)
	assert.False(t, approved)

	approved, err = CastBallot(&round, "m3", fullRoster, domain.VoteYes)
	require.NoError(t, err)
	assert.False(t, approved)

	approved, err = CastBallot(&round, "m4", fullRoster, domain.VoteYes)
	require.NoError(t, err)
	assert.True(t, approved, "the ballot taking yes from 2 to 3 approves")

	assert.Equal(t, 3, round.YesCount)
	assert.Equal(t, 4, round.Ballots())
	assert.True(t, round.Closed())

	_, err = CastBallot(&round, "m5", fullRoster, domain.VoteYes)
	assert.ErrorIs(t, err, domain.ErrVoteClosed)
}

func TestCastBallot_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		round   domain.VoteRound
		caller  domain.Identity
		choice  domain.VoteChoice
		wantErr error
	}{
		{
			name:    "outsider",
			caller:  "x",
			choice:  domain.VoteYes,
			wantErr: domain.ErrMemberNotInTeam,
		},
		{
			name:    "double vote",
			round:   domain.VoteRound{Voters: []domain.Identity{"m1"}, YesCount: 1},
			caller:  "m1",
			choice:  domain.VoteNo,
			wantErr: domain.ErrAlreadyVoted,
		},
		{
			name:    "full round reports earlier voter first",
			round:   domain.VoteRound{Voters: fullRoster[:5], YesCount: 2},
			caller:  "m1",
			choice:  domain.VoteYes,
			wantErr: domain.ErrAlreadyVoted,
		},
		{
			name:    "five ballots close the round",
			round:   domain.VoteRound{Voters: []domain.Identity{"m1", "m2", "m3", "m4", "gone"}, YesCount: 2},
			caller:  "m5",
			choice:  domain.VoteYes,
			wantErr: domain.ErrVoteClosed,
		},
		{
			name:    "round approved",
			round:   domain.VoteRound{Voters: []domain.Identity{"m1", "m2", "m3"}, YesCount: 3},
			caller:  "m4",
			choice:  domain.VoteNo,
			wantErr: domain.ErrVoteClosed,
		},
		{
			name:    "unknown choice",
			caller:  "m1",
			choice:  domain.VoteChoice("maybe"),
			wantErr: domain.ErrInvalidVote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round := tt.round.Clone()
			before := round.Clone()

			approved, err := CastBallot(&round, tt.caller, fullRoster, tt.choice)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, approved)
			assert.Equal(t, before, round)
		})
	}
}

func TestCastBallot_ThresholdIgnoresRosterSize(t *testing.T) {
	roster := []domain.Identity{"m1", "m2"}
	var round domain.VoteRound

	for _, m := range roster {
		approved, err := CastBallot(&round, m, roster, domain.VoteYes)
		require.NoError(t, err)
		assert.False(t, approved, "two yes votes never approve, even from a two member team")
	}
	assert.Equal(t, 2, round.YesCount)
	assert.False(t, round.Approved())
}

func TestCastBallot_VoterAppearsOncePerRound(t *testing.T) {
	var round domain.VoteRound
	for _, m := range fullRoster {
		_, err := CastBallot(&round, m, fullRoster, domain.VoteNo)
		require.NoError(t, err)
		_, err = CastBallot(&round, m, fullRoster, domain.VoteYes)
		require.Error(t, err)
	}

	seen := map[domain.Identity]int{}
	for _, v := range round.Voters {
		seen[v]++
	}
	for _, m := range fullRoster {
		assert.Equal(t, 1, seen[m])
	}
	assert.Zero(t, round.YesCount)
	assert.True(t, round.Closed(), "five ballots close the round")
}

func TestResetRound(t *testing.T) {
	round := domain.VoteRound{Voters: []domain.Identity{"m1", "m2"}, YesCount: 2}

	ResetRound(&round)

	assert.Empty(t, round.Voters)
	assert.Zero(t, round.YesCount)

	approved, err := CastBallot(&round, "m1", fullRoster, domain.VoteYes)
	require.NoError(t, err, "a reset round accepts earlier voters again")
	assert.False(t, approved)
}

func TestVoteChoice_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.VoteChoice
		wantErr bool
	}{
		{in: "yes", want: domain.VoteYes},
		{in: " NO ", want: domain.VoteNo},
		{in: "Yes", want: domain.VoteYes},
		{in: "abstain", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c domain.VoteChoice
			err := c.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}
}

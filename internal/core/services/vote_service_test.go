package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

func TestCastVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contest := env.activeContest(t)
	candidate := contest.Candidates[1].ID

	participant := env.joinAndVote(t, contest, candidate)

	p, err := env.votes.MyVote(ctx, contest.ID, participant)
	require.NoError(t, err)
	assert.True(t, p.HasVoted)
	require.NotNil(t, p.VotedCandidateID)
	assert.Equal(t, candidate, *p.VotedCandidateID)
	require.NotNil(t, p.VotedAt)
	assert.Equal(t, midWindow, *p.VotedAt)

	stored, err := env.repo.GetByID(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Candidates[0].VoteCount)
	assert.Equal(t, int64(1), stored.Candidates[1].VoteCount)
	env.requireTallyMatchesLedger(t, contest.ID)
}

func TestCastVoteTwiceCountsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	contest := env.activeContest(t)

	participant := env.joinAndVote(t, contest, contest.Candidates[0].ID)

	err := env.votes.CastVote(ctx, ports.VoteInput{
		ContestID:     contest.ID,
		ParticipantID: participant,
		CandidateID:   contest.Candidates[1].ID,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	stored, err := env.repo.GetByID(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Candidates[0].VoteCount)
	assert.Equal(t, int64(0), stored.Candidates[1].VoteCount)
	assert.Equal(t, contest.Candidates[0].ID, *stored.Participants[participant].VotedCandidateID)
}

func TestCastVoteRejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, env *testEnv, c *domain.Contest, participant uuid.UUID) ports.VoteInput
		wantErr error
	}{
		{
			name: "not joined",
			prepare: func(_ *testing.T, _ *testEnv, c *domain.Contest, participant uuid.UUID) ports.VoteInput {
				return ports.VoteInput{ContestID: c.ID, ParticipantID: participant, CandidateID: c.Candidates[0].ID}
			},
			wantErr: domain.ErrNotJoined,
		},
		{
			name: "unknown candidate",
			prepare: func(t *testing.T, env *testEnv, c *domain.Contest, participant uuid.UUID) ports.VoteInput {
				join(t, env, c, participant)
				return ports.VoteInput{ContestID: c.ID, ParticipantID: participant, CandidateID: uuid.New()}
			},
			wantErr: domain.ErrUnknownCandidate,
		},
		{
			name: "unknown contest",
			prepare: func(t *testing.T, env *testEnv, c *domain.Contest, participant uuid.UUID) ports.VoteInput {
				join(t, env, c, participant)
				return ports.VoteInput{ContestID: uuid.New(), ParticipantID: participant, CandidateID: c.Candidates[0].ID}
			},
			wantErr: domain.ErrContestNotFound,
		},
		{
			name: "deactivated after join",
			prepare: func(t *testing.T, env *testEnv, c *domain.Contest, participant uuid.UUID) ports.VoteInput {
				join(t, env, c, participant)
				_, err := env.contests.Deactivate(context.Background(), c.ID)
				require.NoError(t, err)
				return ports.VoteInput{ContestID: c.ID, ParticipantID: participant, CandidateID: c.Candidates[0].ID}
			},
			wantErr: domain.ErrContestInactive,
		},
		{
			name: "window closed after join",
			prepare: func(t *testing.T, env *testEnv, c *domain.Contest, participant uuid.UUID) ports.VoteInput {
				join(t, env, c, participant)
				env.clock.t = windowEnd.Add(time.Minute)
				return ports.VoteInput{ContestID: c.ID, ParticipantID: participant, CandidateID: c.Candidates[0].ID}
			},
			wantErr: domain.ErrContestInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			contest := env.activeContest(t)
			participant := uuid.New()
			input := tt.prepare(t, env, contest, participant)

			err := env.votes.CastVote(context.Background(), input)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := env.repo.GetByID(context.Background(), contest.ID)
			require.NoError(t, err)
			assert.Zero(t, stored.TotalVotes())
			for _, p := range stored.Participants {
				assert.False(t, p.HasVoted)
				assert.Nil(t, p.VotedCandidateID)
			}
		})
	}
}

func TestMyVoteBeforeJoining(t *testing.T) {
	env := newTestEnv(t)
	contest := env.activeContest(t)

	_, err := env.votes.MyVote(context.Background(), contest.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotJoined)

	_, err = env.votes.MyVote(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrContestNotFound)
}

func TestConcurrentVotesFromSameParticipant(t *testing.T) {
	env := newTestEnv(t)
	contest := env.activeContest(t)
	participant := uuid.New()
	join(t, env, contest, participant)

	const attempts = 50
	var (
		wg           sync.WaitGroup
		successes    atomic.Int32
		alreadyVoted atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := env.votes.CastVote(context.Background(), ports.VoteInput{
				ContestID:     contest.ID,
				ParticipantID: participant,
				CandidateID:   contest.Candidates[i%2].ID,
			})
			switch {
			case err == nil:
				successes.Add(1)
			case assert.ErrorIs(t, err, domain.ErrAlreadyVoted):
				alreadyVoted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(attempts-1), alreadyVoted.Load())

	stored, err := env.repo.GetByID(context.Background(), contest.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.TotalVotes())
	env.requireTallyMatchesLedger(t, contest.ID)
}

func TestConcurrentVotesAcrossParticipants(t *testing.T) {
	env := newTestEnv(t, "CODE0001", "CODE0002")
	first := env.activeContest(t, "A", "B", "C")
	second := env.activeContest(t, "X", "Y")

	const voters = 40
	participants := make([]uuid.UUID, voters)
	for i := range participants {
		participants[i] = uuid.New()
		join(t, env, first, participants[i])
		join(t, env, second, participants[i])
	}

	var wg sync.WaitGroup
	for i, participant := range participants {
		for _, c := range []*domain.Contest{first, second} {
			wg.Add(1)
			go func(c *domain.Contest, participant uuid.UUID, i int) {
				defer wg.Done()
				err := env.votes.CastVote(context.Background(), ports.VoteInput{
					ContestID:     c.ID,
					ParticipantID: participant,
					CandidateID:   c.Candidates[i%len(c.Candidates)].ID,
				})
				assert.NoError(t, err)
			}(c, participant, i)
		}
	}
	wg.Wait()

	for _, c := range []*domain.Contest{first, second} {
		stored, err := env.repo.GetByID(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(voters), stored.TotalVotes())
		env.requireTallyMatchesLedger(t, c.ID)
	}
}

func join(t *testing.T, env *testEnv, c *domain.Contest, participant uuid.UUID) {
	t.Helper()
	_, _, err := env.access.Join(context.Background(), ports.JoinInput{Code: c.AccessCode, ParticipantID: participant})
	require.NoError(t, err)
}

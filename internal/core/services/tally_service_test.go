package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

func TestGetResultsWithoutVotes(t *testing.T) {
	env := newTestEnv(t)
	contest := env.activeContest(t, "A", "B", "C")

	results, err := env.tally.GetResults(context.Background(), contest.ID)
	require.NoError(t, err)

	assert.Equal(t, contest.ID, results.ContestID)
	assert.Zero(t, results.TotalVotes)
	assert.Equal(t, midWindow, results.GeneratedAt)
	require.Len(t, results.Candidates, 3)
	for _, r := range results.Candidates {
		assert.Zero(t, r.VoteCount)
		assert.Zero(t, r.Percentage)
	}
}

func TestGetResultsKeepsInsertionOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contest, err := env.contests.Create(ctx, validInput("Zoe", "Adam", "Maya"))
	require.NoError(t, err)
	_, err = env.contests.AddCandidate(ctx, contest.ID, ports.CandidateInput{Name: "Late"})
	require.NoError(t, err)
	contest, err = env.contests.Activate(ctx, contest.ID)
	require.NoError(t, err)
	env.joinAndVote(t, contest, contest.Candidates[2].ID)

	results, err := env.tally.GetResults(ctx, contest.ID)
	require.NoError(t, err)

	var names []string
	for _, r := range results.Candidates {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Zoe", "Adam", "Maya", "Late"}, names)
	assert.Equal(t, 100, results.Candidates[2].Percentage)
}

func TestGetResultsTwoCandidateScenario(t *testing.T) {
	env := newTestEnv(t)
	contest := env.activeContest(t, "A", "B")
	a, b := contest.Candidates[0].ID, contest.Candidates[1].ID

	env.joinAndVote(t, contest, a)

	results, err := env.tally.GetResults(context.Background(), contest.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.TotalVotes)
	assert.Equal(t, int64(1), results.Candidates[0].VoteCount)
	assert.Equal(t, 100, results.Candidates[0].Percentage)
	assert.Equal(t, int64(0), results.Candidates[1].VoteCount)
	assert.Equal(t, 0, results.Candidates[1].Percentage)

	env.joinAndVote(t, contest, b)

	results, err = env.tally.GetResults(context.Background(), contest.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), results.TotalVotes)
	assert.Equal(t, 2, results.TotalParticipants)
	assert.Equal(t, 50, results.Candidates[0].Percentage)
	assert.Equal(t, 50, results.Candidates[1].Percentage)
}

func TestGetResultsPercentagesSumToAboutHundred(t *testing.T) {
	tests := []struct {
		name  string
		votes []int
		want  []int
	}{
		{name: "thirds", votes: []int{1, 1, 1}, want: []int{33, 33, 33}},
		{name: "two to one", votes: []int{2, 1}, want: []int{67, 33}},
		{name: "uneven", votes: []int{5, 3, 0, 1}, want: []int{56, 33, 0, 11}},
		{name: "single", votes: []int{0, 4}, want: []int{0, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			names := make([]string, len(tt.votes))
			for i := range names {
				names[i] = string(rune('A' + i))
			}
			contest := env.activeContest(t, names...)
			for i, n := range tt.votes {
				for j := 0; j < n; j++ {
					env.joinAndVote(t, contest, contest.Candidates[i].ID)
				}
			}

			results, err := env.tally.GetResults(context.Background(), contest.ID)
			require.NoError(t, err)

			sum := 0
			for i, r := range results.Candidates {
				assert.Equal(t, tt.want[i], r.Percentage, r.Name)
				sum += r.Percentage
			}
			assert.InDelta(t, 100, sum, float64(len(tt.votes)))
		})
	}
}

func TestGetResultsUnknownContest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tally.GetResults(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrContestNotFound)
}

func TestRecordVoteUnknownCandidate(t *testing.T) {
	env := newTestEnv(t)
	contest := env.activeContest(t)

	err := env.tally.recordVote(contest, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnknownCandidate)
	assert.Zero(t, contest.TotalVotes())
}

func TestAuditReportsEveryContest(t *testing.T) {
	env := newTestEnv(t, "AUDIT001", "AUDIT002", "AUDIT003")
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		contest := env.activeContest(t)
		for j := 0; j <= i; j++ {
			env.joinAndVote(t, contest, contest.Candidates[j%2].ID)
		}
		ids = append(ids, contest.ID)
	}

	reports, err := env.tally.Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	seen := make(map[uuid.UUID]domain.AuditReport)
	for _, r := range reports {
		assert.True(t, r.Consistent(), r.ContestID)
		seen[r.ContestID] = r
	}
	for i, id := range ids {
		assert.Equal(t, int64(i+1), seen[id].TotalVotes)
	}
}

func TestAuditDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	contest := env.activeContest(t)
	env.joinAndVote(t, contest, contest.Candidates[0].ID)

	_, err := env.repo.Update(context.Background(), contest.ID, func(c *domain.Contest) error {
		c.Candidates[1].VoteCount = 3
		return nil
	})
	require.NoError(t, err)

	reports, err := env.tally.Audit(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Consistent())
	assert.Equal(t, int64(4), reports[0].TotalVotes)
	assert.Equal(t, int64(1), reports[0].Voted)
}

func TestAuditCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.activeContest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.tally.Audit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

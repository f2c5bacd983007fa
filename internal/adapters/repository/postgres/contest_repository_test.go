package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vncsmyrnk/contestvote/internal/adapters/accesscode"
	"github.com/vncsmyrnk/contestvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"github.com/vncsmyrnk/contestvote/internal/core/services"
)

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, applyMigrations(db))
	return db
}

func applyMigrations(db *sql.DB) error {
	files, err := filepath.Glob(filepath.Join("migrations", "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}
	return nil
}

func newContest(code string) *domain.Contest {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Contest{
		ID:            uuid.New(),
		Title:         "Best Teacher Award",
		Description:   "Vote for the teacher of the year",
		Type:          domain.ContestTypeTeacherAward,
		Venue:         "Auditorium",
		OrganizerID:   uuid.New(),
		OrganizerName: "Principal",
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		AccessCode:    code,
		Candidates: []domain.Candidate{
			{ID: uuid.New(), Name: "Mr. Rao", Category: "Science"},
			{ID: uuid.New(), Name: "Ms. Iyer", Category: "Arts"},
		},
		Participants: map[uuid.UUID]*domain.Participation{},
		CreatedAt:    now,
	}
}

func TestContestRepository(t *testing.T) {
	db := setupDatabase(t)
	repo := postgres.NewContestRepository(db)

	t.Run("create and load", func(t *testing.T) {
		ctx := context.Background()
		contest := newContest("pgload01")
		require.NoError(t, repo.Create(ctx, contest))

		got, err := repo.GetByAccessCode(ctx, "PGLOAD01")
		require.NoError(t, err)
		assert.Equal(t, contest.ID, got.ID)
		assert.Equal(t, "PGLOAD01", got.AccessCode)
		assert.Equal(t, domain.ContestTypeTeacherAward, got.Type)
		assert.WithinDuration(t, contest.StartDate, got.StartDate, time.Microsecond)
		require.Len(t, got.Candidates, 2)
		assert.Equal(t, "Mr. Rao", got.Candidates[0].Name)
		assert.Equal(t, "Ms. Iyer", got.Candidates[1].Name)
		assert.Empty(t, got.Participants)
		assert.Nil(t, got.ActivatedAt)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrContestNotFound)
	})

	t.Run("duplicate access code", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newContest("PGDUP001")))
		err := repo.Create(ctx, newContest("pgdup001"))
		assert.ErrorIs(t, err, domain.ErrAccessCodeTaken)
	})

	t.Run("update rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		contest := newContest("PGROLL01")
		require.NoError(t, repo.Create(ctx, contest))

		_, err := repo.Update(ctx, contest.ID, func(c *domain.Contest) error {
			c.Title = "never stored"
			c.Candidates[0].VoteCount = 7
			return domain.ErrUnknownCandidate
		})
		assert.ErrorIs(t, err, domain.ErrUnknownCandidate)

		got, err := repo.GetByID(ctx, contest.ID)
		require.NoError(t, err)
		assert.Equal(t, contest.Title, got.Title)
		assert.Zero(t, got.TotalVotes())
	})

	t.Run("update persists candidates and participations", func(t *testing.T) {
		ctx := context.Background()
		contest := newContest("PGUPD001")
		require.NoError(t, repo.Create(ctx, contest))

		participant := uuid.New()
		candidate := contest.Candidates[1].ID
		votedAt := time.Now().UTC().Truncate(time.Microsecond)
		_, err := repo.Update(ctx, contest.ID, func(c *domain.Contest) error {
			c.ActivatedAt = &votedAt
			c.Candidates = append(c.Candidates, domain.Candidate{ID: uuid.New(), Name: "Mrs. Das"})
			c.Candidates[1].VoteCount = 1
			c.Participants[participant] = &domain.Participation{
				ContestID:        c.ID,
				ParticipantID:    participant,
				DisplayName:      "Student",
				JoinedAt:         votedAt,
				HasVoted:         true,
				VotedCandidateID: &candidate,
				VotedAt:          &votedAt,
			}
			return nil
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, contest.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ActivatedAt)
		assert.WithinDuration(t, votedAt, *got.ActivatedAt, time.Microsecond)
		require.Len(t, got.Candidates, 3)
		assert.Equal(t, "Mrs. Das", got.Candidates[2].Name)
		assert.Equal(t, int64(1), got.Candidates[1].VoteCount)

		p, ok := got.Participants[participant]
		require.True(t, ok)
		assert.True(t, p.HasVoted)
		require.NotNil(t, p.VotedCandidateID)
		assert.Equal(t, candidate, *p.VotedCandidateID)
		require.NotNil(t, p.VotedAt)
		assert.WithinDuration(t, votedAt, *p.VotedAt, time.Microsecond)
	})

	t.Run("list and delete", func(t *testing.T) {
		ctx := context.Background()
		organizer := uuid.New()
		var ids []uuid.UUID
		for i, code := range []string{"PGLST001", "PGLST002"} {
			c := newContest(code)
			c.OrganizerID = organizer
			c.CreatedAt = c.CreatedAt.Add(time.Duration(i) * time.Second)
			require.NoError(t, repo.Create(ctx, c))
			ids = append(ids, c.ID)
		}

		mine, err := repo.ListByOrganizer(ctx, organizer)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, ids[0], mine[0].ID)
		assert.Equal(t, ids[1], mine[1].ID)

		require.NoError(t, repo.Delete(ctx, ids[0]))
		assert.ErrorIs(t, repo.Delete(ctx, ids[0]), domain.ErrContestNotFound)

		var candidates int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contest_candidates WHERE contest_id = $1`, ids[0]).Scan(&candidates))
		assert.Zero(t, candidates)
	})
}

func TestVotingOnPostgres(t *testing.T) {
	db := setupDatabase(t)
	repo := postgres.NewContestRepository(db)
	ctx := context.Background()

	tally := services.NewTallyService(repo, nil)
	contests := services.NewContestService(repo, accesscode.NewRandomGenerator(accesscode.DefaultLength), nil, nil)
	access := services.NewAccessService(repo, nil, nil)
	votes := services.NewVoteService(repo, tally, nil, nil)

	now := time.Now()
	contest, err := contests.Create(ctx, ports.CreateContestInput{
		Title:       "Cultural Fest",
		Description: "Best performance",
		Type:        string(domain.ContestTypeCulturalEvent),
		OrganizerID: uuid.New(),
		StartDate:   now.Add(-time.Hour),
		EndDate:     now.Add(time.Hour),
		Candidates:  []ports.CandidateInput{{Name: "Dance"}, {Name: "Drama"}},
	})
	require.NoError(t, err)
	_, err = contests.Activate(ctx, contest.ID)
	require.NoError(t, err)

	participant := uuid.New()
	_, _, err = access.Join(ctx, ports.JoinInput{Code: strings.ToLower(contest.AccessCode), ParticipantID: participant})
	require.NoError(t, err)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := votes.CastVote(ctx, ports.VoteInput{
				ContestID:     contest.ID,
				ParticipantID: participant,
				CandidateID:   contest.Candidates[i%2].ID,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	results, err := tally.GetResults(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.TotalVotes)

	reports, err := tally.Audit(ctx)
	require.NoError(t, err)
	for _, r := range reports {
		assert.True(t, r.Consistent(), r.ContestID)
	}
}

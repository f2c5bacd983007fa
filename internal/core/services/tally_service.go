package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

const defaultAuditWorkers = 8

type TallyService struct {
	repo    ports.ContestRepository
	logger  *zap.Logger
	workers int
	now     func() time.Time
}

func NewTallyService(repo ports.ContestRepository, logger *zap.Logger) *TallyService {
	return &TallyService{
		repo:    repo,
		logger:  orNopLogger(logger),
		workers: defaultAuditWorkers,
		now:     time.Now,
	}
}

// recordVote must only run inside a ContestRepository.Update mutator.
func (s *TallyService) recordVote(c *domain.Contest, candidateID uuid.UUID) error {
	cand, ok := c.Candidate(candidateID)
	if !ok {
		return domain.ErrUnknownCandidate
	}
	cand.VoteCount++
	return nil
}

// GetResults reports every candidate in insertion order with its share of
// the total rounded to a whole percent.
func (s *TallyService) GetResults(ctx context.Context, contestID uuid.UUID) (*domain.ContestResults, error) {
	contest, err := s.repo.GetByID(ctx, contestID)
	if err != nil {
		return nil, err
	}

	total := contest.TotalVotes()
	results := &domain.ContestResults{
		ContestID:         contest.ID,
		TotalVotes:        total,
		TotalParticipants: len(contest.Participants),
		Candidates:        make([]domain.CandidateResult, 0, len(contest.Candidates)),
		GeneratedAt:       s.now(),
	}
	for _, cand := range contest.Candidates {
		results.Candidates = append(results.Candidates, domain.CandidateResult{
			CandidateID: cand.ID,
			Name:        cand.Name,
			Category:    cand.Category,
			VoteCount:   cand.VoteCount,
			Percentage:  percentage(cand.VoteCount, total),
		})
	}
	return results, nil
}

// Audit checks that every contest's tally matches its ledger.
func (s *TallyService) Audit(ctx context.Context) ([]domain.AuditReport, error) {
	contests, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all contests: %w", err)
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(5 * time.Second); err != nil {
			s.logger.Warn("audit pool did not stop in time", zap.Error(err))
		}
	}()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports = make([]domain.AuditReport, 0, len(contests))
	)
	for _, contest := range contests {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		c := contest
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			report := domain.AuditReport{
				ContestID:  c.ID,
				TotalVotes: c.TotalVotes(),
				Voted:      c.VotedCount(),
			}
			if !report.Consistent() {
				s.logger.Error("tally does not match ledger",
					zap.Stringer("contest_id", c.ID),
					zap.Int64("total_votes", report.TotalVotes),
					zap.Int64("voted", report.Voted),
				)
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to audit contest %s: %w", c.ID, err)
		}
	}
	wg.Wait()

	s.logger.Debug("tally audit finished", zap.Int("contests", len(reports)))
	return reports, nil
}

func percentage(count, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

var _ ports.TallyService = (*TallyService)(nil)

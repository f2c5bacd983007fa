package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

type voteService struct {
	repo    ports.ContestRepository
	tally   *TallyService
	metrics ports.MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewVoteService(repo ports.ContestRepository, tally *TallyService, metrics ports.MetricsRecorder, logger *zap.Logger) ports.VoteService {
	return &voteService{
		repo:    repo,
		tally:   tally,
		metrics: orNopMetrics(metrics),
		logger:  orNopLogger(logger),
		now:     time.Now,
	}
}

// CastVote is the only way a vote enters the ledger. The participation flag
// and the tally increment are applied to the same contest copy, so they
// commit together or not at all.
func (s *voteService) CastVote(ctx context.Context, input ports.VoteInput) error {
	_, err := s.repo.Update(ctx, input.ContestID, func(c *domain.Contest) error {
		p, ok := c.Participants[input.ParticipantID]
		if !ok {
			return domain.ErrNotJoined
		}
		if p.HasVoted {
			return domain.ErrAlreadyVoted
		}
		if _, ok := c.Candidate(input.CandidateID); !ok {
			return domain.ErrUnknownCandidate
		}
		now := s.now()
		if !c.AcceptsVotes(now) {
			return domain.ErrContestInactive
		}

		if err := s.tally.recordVote(c, input.CandidateID); err != nil {
			return err
		}
		candidateID := input.CandidateID
		p.HasVoted = true
		p.VotedCandidateID = &candidateID
		p.VotedAt = &now
		return nil
	})
	if err != nil {
		s.metrics.Rejected("vote", err)
		return err
	}

	s.metrics.VoteCast()
	s.logger.Info("vote cast",
		zap.Stringer("contest_id", input.ContestID),
		zap.Stringer("participant_id", input.ParticipantID),
	)
	return nil
}

func (s *voteService) MyVote(ctx context.Context, contestID, participantID uuid.UUID) (*domain.Participation, error) {
	contest, err := s.repo.GetByID(ctx, contestID)
	if err != nil {
		return nil, err
	}

	p, ok := contest.Participants[participantID]
	if !ok {
		return nil, domain.ErrNotJoined
	}
	return p.Clone(), nil
}

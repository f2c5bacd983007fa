package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
	"go.uber.org/zap"
)

type accessService struct {
	repo    ports.ContestRepository
	metrics ports.MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewAccessService(repo ports.ContestRepository, metrics ports.MetricsRecorder, logger *zap.Logger) ports.AccessService {
	return &accessService{
		repo:    repo,
		metrics: orNopMetrics(metrics),
		logger:  orNopLogger(logger),
		now:     time.Now,
	}
}

// Join admits a participant by access code. Joining again returns the
// existing participation untouched.
func (s *accessService) Join(ctx context.Context, input ports.JoinInput) (*domain.Contest, *domain.Participation, error) {
	contest, participation, err := s.join(ctx, input)
	if err != nil {
		s.metrics.Rejected("join", err)
		return nil, nil, err
	}
	return contest, participation, nil
}

func (s *accessService) join(ctx context.Context, input ports.JoinInput) (*domain.Contest, *domain.Participation, error) {
	code := domain.NormalizeAccessCode(input.Code)
	if code == "" {
		return nil, nil, domain.ErrInvalidCode
	}
	if input.ParticipantID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: participant is required", domain.ErrValidation)
	}

	found, err := s.repo.GetByAccessCode(ctx, code)
	if errors.Is(err, domain.ErrContestNotFound) {
		return nil, nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, nil, err
	}

	var (
		participation *domain.Participation
		created       bool
	)
	contest, err := s.repo.Update(ctx, found.ID, func(c *domain.Contest) error {
		now := s.now()
		if !c.AcceptsVotes(now) {
			return domain.ErrContestInactive
		}
		if existing, ok := c.Participants[input.ParticipantID]; ok {
			participation = existing.Clone()
			return nil
		}

		p := &domain.Participation{
			ContestID:     c.ID,
			ParticipantID: input.ParticipantID,
			DisplayName:   strings.TrimSpace(input.DisplayName),
			JoinedAt:      now,
		}
		c.Participants[input.ParticipantID] = p
		participation = p.Clone()
		created = true
		return nil
	})
	if errors.Is(err, domain.ErrContestNotFound) {
		// deleted between lookup and update
		return nil, nil, domain.ErrInvalidCode
	}
	if err != nil {
		return nil, nil, err
	}

	if created {
		s.metrics.ParticipantJoined()
		s.logger.Info("participant joined",
			zap.Stringer("contest_id", contest.ID),
			zap.Stringer("participant_id", input.ParticipantID),
		)
	}
	return contest, participation, nil
}

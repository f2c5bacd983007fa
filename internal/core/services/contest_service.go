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

const maxAccessCodeAttempts = 16

type contestService struct {
	repo    ports.ContestRepository
	codes   ports.AccessCodeGenerator
	metrics ports.MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewContestService(repo ports.ContestRepository, codes ports.AccessCodeGenerator, metrics ports.MetricsRecorder, logger *zap.Logger) ports.ContestService {
	return &contestService{
		repo:    repo,
		codes:   codes,
		metrics: orNopMetrics(metrics),
		logger:  orNopLogger(logger),
		now:     time.Now,
	}
}

func (s *contestService) Create(ctx context.Context, input ports.CreateContestInput) (*domain.Contest, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	if err := validateWindow(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	contestType, err := domain.ParseContestType(input.Type)
	if err != nil {
		return nil, err
	}
	if input.OrganizerID == uuid.Nil {
		return nil, fmt.Errorf("%w: organizer is required", domain.ErrValidation)
	}

	contest := &domain.Contest{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		Type:          contestType,
		Venue:         strings.TrimSpace(input.Venue),
		OrganizerID:   input.OrganizerID,
		OrganizerName: strings.TrimSpace(input.OrganizerName),
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Participants:  make(map[uuid.UUID]*domain.Participation),
		CreatedAt:     s.now(),
	}

	for _, in := range input.Candidates {
		cand, err := newCandidate(in)
		if err != nil {
			return nil, err
		}
		contest.Candidates = append(contest.Candidates, cand)
	}
	if len(contest.Candidates) == 0 {
		return nil, fmt.Errorf("%w: at least one candidate is required", domain.ErrValidation)
	}

	for attempt := 0; attempt < maxAccessCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate access code: %w", err)
		}
		contest.AccessCode = domain.NormalizeAccessCode(code)

		err = s.repo.Create(ctx, contest)
		if errors.Is(err, domain.ErrAccessCodeTaken) {
			s.logger.Debug("access code collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.ContestCreated()
		s.logger.Info("contest created",
			zap.Stringer("contest_id", contest.ID),
			zap.Stringer("organizer_id", contest.OrganizerID),
			zap.Int("candidates", len(contest.Candidates)),
		)
		return contest.Clone(), nil
	}

	return nil, fmt.Errorf("no free access code after %d attempts: %w", maxAccessCodeAttempts, domain.ErrAccessCodeTaken)
}

func (s *contestService) Get(ctx context.Context, id uuid.UUID) (*domain.Contest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *contestService) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*domain.Contest, error) {
	return s.repo.ListByOrganizer(ctx, organizerID)
}

func (s *contestService) FindByAccessCode(ctx context.Context, code string) (*domain.Contest, error) {
	normalized := domain.NormalizeAccessCode(code)
	if normalized == "" {
		return nil, domain.ErrContestNotFound
	}
	return s.repo.GetByAccessCode(ctx, normalized)
}

func (s *contestService) UpdateDetails(ctx context.Context, id uuid.UUID, input ports.UpdateContestInput) (*domain.Contest, error) {
	return s.repo.Update(ctx, id, func(c *domain.Contest) error {
		if c.Locked() {
			return domain.ErrContestLocked
		}
		if input.Title != nil {
			if strings.TrimSpace(*input.Title) == "" {
				return fmt.Errorf("%w: title is required", domain.ErrValidation)
			}
			c.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			if strings.TrimSpace(*input.Description) == "" {
				return fmt.Errorf("%w: description is required", domain.ErrValidation)
			}
			c.Description = strings.TrimSpace(*input.Description)
		}
		if input.Type != nil {
			t, err := domain.ParseContestType(*input.Type)
			if err != nil {
				return err
			}
			c.Type = t
		}
		if input.Venue != nil {
			c.Venue = strings.TrimSpace(*input.Venue)
		}
		if input.StartDate != nil {
			c.StartDate = *input.StartDate
		}
		if input.EndDate != nil {
			c.EndDate = *input.EndDate
		}
		return validateWindow(c.StartDate, c.EndDate)
	})
}

func (s *contestService) AddCandidate(ctx context.Context, id uuid.UUID, input ports.CandidateInput) (*domain.Contest, error) {
	cand, err := newCandidate(input)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, func(c *domain.Contest) error {
		if c.Locked() {
			return domain.ErrContestLocked
		}
		c.Candidates = append(c.Candidates, cand)
		return nil
	})
}

func (s *contestService) Activate(ctx context.Context, id uuid.UUID) (*domain.Contest, error) {
	contest, err := s.repo.Update(ctx, id, func(c *domain.Contest) error {
		if len(c.Candidates) == 0 {
			return fmt.Errorf("%w: a contest needs candidates before activation", domain.ErrValidation)
		}
		c.IsActive = true
		if c.ActivatedAt == nil {
			now := s.now()
			c.ActivatedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contest activated", zap.Stringer("contest_id", id))
	return contest, nil
}

func (s *contestService) Deactivate(ctx context.Context, id uuid.UUID) (*domain.Contest, error) {
	contest, err := s.repo.Update(ctx, id, func(c *domain.Contest) error {
		c.IsActive = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contest deactivated", zap.Stringer("contest_id", id))
	return contest, nil
}

func (s *contestService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("contest deleted", zap.Stringer("contest_id", id))
	return nil
}

func newCandidate(in ports.CandidateInput) (domain.Candidate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Candidate{}, fmt.Errorf("%w: candidate name is required", domain.ErrValidation)
	}
	return domain.Candidate{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
	}, nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", domain.ErrValidation)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end date must not be before start date", domain.ErrValidation)
	}
	return nil
}

func orNopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func orNopMetrics(m ports.MetricsRecorder) ports.MetricsRecorder {
	if m == nil {
		return ports.NopMetrics{}
	}
	return m
}

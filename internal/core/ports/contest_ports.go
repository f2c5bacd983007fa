package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
)

// ContestRepository stores contest aggregates. Reads return snapshots that
// callers may keep; every write to an existing contest goes through Update.
type ContestRepository interface {
	// Create stores a new contest, failing with domain.ErrAccessCodeTaken when
	// another contest already owns its access code.
	Create(ctx context.Context, contest *domain.Contest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contest, error)
	GetByAccessCode(ctx context.Context, code string) (*domain.Contest, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*domain.Contest, error)
	GetAll(ctx context.Context) ([]*domain.Contest, error)
	// Update runs fn on a private copy of the contest while holding that
	// contest's write lock and commits the copy only if fn returns nil.
	Update(ctx context.Context, id uuid.UUID, fn func(*domain.Contest) error) (*domain.Contest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AccessCodeGenerator interface {
	Generate() (string, error)
}

type CandidateInput struct {
	Name        string
	Description string
	Category    string
}

type CreateContestInput struct {
	Title         string
	Description   string
	Type          string
	Venue         string
	OrganizerID   uuid.UUID
	OrganizerName string
	StartDate     time.Time
	EndDate       time.Time
	Candidates    []CandidateInput
}

// UpdateContestInput carries the descriptive fields to change; nil means keep.
type UpdateContestInput struct {
	Title       *string
	Description *string
	Type        *string
	Venue       *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type ContestService interface {
	Create(ctx context.Context, input CreateContestInput) (*domain.Contest, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Contest, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*domain.Contest, error)
	FindByAccessCode(ctx context.Context, code string) (*domain.Contest, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, input UpdateContestInput) (*domain.Contest, error)
	AddCandidate(ctx context.Context, id uuid.UUID, input CandidateInput) (*domain.Contest, error)
	Activate(ctx context.Context, id uuid.UUID) (*domain.Contest, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*domain.Contest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

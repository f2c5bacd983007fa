package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
)

type JoinInput struct {
	Code          string
	ParticipantID uuid.UUID
	DisplayName   string
}

type AccessService interface {
	Join(ctx context.Context, input JoinInput) (*domain.Contest, *domain.Participation, error)
}

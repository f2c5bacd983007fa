package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
)

type VoteInput struct {
	ContestID     uuid.UUID
	ParticipantID uuid.UUID
	CandidateID   uuid.UUID
}

type VoteService interface {
	CastVote(ctx context.Context, input VoteInput) error
	MyVote(ctx context.Context, contestID, participantID uuid.UUID) (*domain.Participation, error)
}

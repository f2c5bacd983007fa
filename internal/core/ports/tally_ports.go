package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/contestvote/internal/core/domain"
)

type TallyService interface {
	GetResults(ctx context.Context, contestID uuid.UUID) (*domain.ContestResults, error)
	Audit(ctx context.Context) ([]domain.AuditReport, error)
}

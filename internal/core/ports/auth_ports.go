package ports

import (
	"context"

	"github.com/vncsmyrnk/contestvote/internal/core/domain"
)

// TokenVerifier resolves a session token issued by the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

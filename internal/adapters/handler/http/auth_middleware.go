package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vncsmyrnk/contestvote/internal/core/domain"
	"github.com/vncsmyrnk/contestvote/internal/core/ports"
)

type contextKey string

const IdentityKey contextKey = "identity"

// AuthMiddleware accepts the access_token cookie or a bearer token.
func AuthMiddleware(verifier ports.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "missing access token")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFrom(r *http.Request) (*domain.Identity, bool) {
	identity, ok := r.Context().Value(IdentityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

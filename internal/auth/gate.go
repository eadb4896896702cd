package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"spacehub/internal/models"
)

// ErrUnauthorized is the only rejection reason exposed to a connecting client
var ErrUnauthorized = errors.New("unauthorized")

// TokenVerifier validates a bearer credential
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// UserFinder resolves and stamps accounts
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	TouchLastOnline(ctx context.Context, id string) error
}

// Gate admits WebSocket upgrade requests. Every credential or account problem
// collapses into ErrUnauthorized; the concrete reason is only logged.
type Gate struct {
	verifier TokenVerifier
	users    UserFinder
}

func NewGate(verifier TokenVerifier, users UserFinder) *Gate {
	return &Gate{
		verifier: verifier,
		users:    users,
	}
}

// Admit resolves the identity behind the request's token query parameter.
// A store failure is returned as-is so callers can tell it apart from ErrUnauthorized.
func (g *Gate) Admit(ctx context.Context, r *http.Request) (models.Identity, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		slog.Warn("WebSocket connection rejected", "reason", "missing token", "remoteAddr", r.RemoteAddr)
		return models.Identity{}, ErrUnauthorized
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		slog.Warn("WebSocket connection rejected", "reason", "token verification failed", "remoteAddr", r.RemoteAddr, "error", err)
		return models.Identity{}, ErrUnauthorized
	}
	if claims.ID == "" {
		slog.Warn("WebSocket connection rejected", "reason", "token without user id", "remoteAddr", r.RemoteAddr)
		return models.Identity{}, ErrUnauthorized
	}

	user, err := g.users.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Warn("WebSocket connection rejected", "reason", "unknown user", "userID", claims.ID)
			return models.Identity{}, ErrUnauthorized
		}
		return models.Identity{}, fmt.Errorf("failed to load user %s: %w", claims.ID, err)
	}
	if !user.IsActive {
		slog.Warn("WebSocket connection rejected", "reason", "inactive user", "userID", user.ID)
		return models.Identity{}, ErrUnauthorized
	}

	if err := g.users.TouchLastOnline(ctx, user.ID); err != nil {
		slog.Error("Failed to update last online", "userID", user.ID, "error", err)
	}

	return user.Identity(), nil
}

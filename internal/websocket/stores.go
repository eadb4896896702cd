package websocket

import (
	"context"
	"time"

	"spacehub/internal/models"
)

type SpaceStore interface {
	FindByID(ctx context.Context, id string) (*models.Space, error)
	FindInstance(ctx context.Context, instanceID, spaceID string) (*models.SpaceInstance, error)
}

type PresenceStore interface {
	Upsert(ctx context.Context, key models.PresenceKey) (*models.SpacePresence, error)
	UpdateMany(ctx context.Context, filter models.PresenceFilter, update models.PresenceUpdate) (int64, error)
	FindMany(ctx context.Context, filter models.PresenceFilter) ([]models.SpacePresence, error)
}

type ChatStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	TouchLastOnline(ctx context.Context, id string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type ChatPublisher interface {
	PublishChat(ctx context.Context, msg *models.ChatMessage) error
}

// Dependencies are the collaborators the router calls. Limiter and Publisher are optional.
type Dependencies struct {
	Spaces    SpaceStore
	Presences PresenceStore
	Chats     ChatStore
	Users     UserStore
	Limiter   RateLimiter
	Publisher ChatPublisher
}

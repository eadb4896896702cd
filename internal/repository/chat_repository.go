package repository

import (
	"context"
	"fmt"

	"spacehub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create persists msg and returns it reloaded with the generated id, timestamp and sender
func (r *ChatRepository) Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}

	var stored models.ChatMessage
	if err := r.db.WithContext(ctx).Preload("Sender").Where("id = ?", msg.ID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load chat message: %w", err)
	}
	return &stored, nil
}

// ListBySpace returns the most recent messages of a space, oldest first
func (r *ChatRepository) ListBySpace(ctx context.Context, spaceID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("space_id = ?", spaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

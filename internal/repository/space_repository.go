package repository

import (
	"context"
	"errors"
	"fmt"

	"spacehub/internal/models"

	"gorm.io/gorm"
)

type SpaceRepository struct {
	db *gorm.DB
}

func NewSpaceRepository(db *gorm.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

func (r *SpaceRepository) Create(ctx context.Context, space *models.Space) error {
	if err := r.db.WithContext(ctx).Omit("Instances").Create(space).Error; err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}
	return nil
}

func (r *SpaceRepository) CreateInstance(ctx context.Context, instance *models.SpaceInstance) error {
	if err := r.db.WithContext(ctx).Create(instance).Error; err != nil {
		return fmt.Errorf("failed to create space instance: %w", err)
	}
	return nil
}

func (r *SpaceRepository) FindByID(ctx context.Context, id string) (*models.Space, error) {
	var space models.Space
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&space).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find space: %w", err)
	}
	return &space, nil
}

// FindInstance returns the instance only when it belongs to the given space
func (r *SpaceRepository) FindInstance(ctx context.Context, instanceID, spaceID string) (*models.SpaceInstance, error) {
	var instance models.SpaceInstance
	err := r.db.WithContext(ctx).
		Where("id = ? AND space_id = ?", instanceID, spaceID).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find space instance: %w", err)
	}
	return &instance, nil
}

// Delete removes a space together with its presences, chat history and instances.
// Every dependent delete runs in the same transaction as the parent delete.
func (r *SpaceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var space models.Space
		if err := tx.Where("id = ?", id).First(&space).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to find space: %w", err)
		}

		if err := tx.Where("space_id = ?", id).Delete(&models.SpacePresence{}).Error; err != nil {
			return fmt.Errorf("failed to delete presences: %w", err)
		}
		if err := tx.Where("space_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", err)
		}
		if err := tx.Where("space_id = ?", id).Delete(&models.SpaceInstance{}).Error; err != nil {
			return fmt.Errorf("failed to delete instances: %w", err)
		}
		if err := tx.Delete(&space).Error; err != nil {
			return fmt.Errorf("failed to delete space: %w", err)
		}
		return nil
	})
}

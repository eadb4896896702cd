package repository

import (
	"context"
	"fmt"
	"time"

	"spacehub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Upsert activates the presence row for key, creating it on first join.
// Re-joining keeps the stored transform and resets status to Online.
func (r *PresenceRepository) Upsert(ctx context.Context, key models.PresenceKey) (*models.SpacePresence, error) {
	now := time.Now()
	row := models.SpacePresence{
		UserID:      key.UserID,
		SpaceID:     key.SpaceID,
		InstanceID:  key.InstanceID,
		IsActive:    true,
		Status:      models.StatusOnline,
		LastUpdated: now,
	}

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "space_id"}, {Name: "instance_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_active":    true,
				"status":       models.StatusOnline,
				"last_updated": now,
			}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert presence: %w", err)
	}

	var stored models.SpacePresence
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND space_id = ? AND instance_id = ?", key.UserID, key.SpaceID, key.InstanceID).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load presence: %w", err)
	}
	return &stored, nil
}

// UpdateMany applies update to every row matching filter and returns the number of rows changed
func (r *PresenceRepository) UpdateMany(ctx context.Context, filter models.PresenceFilter, update models.PresenceUpdate) (int64, error) {
	values := map[string]interface{}{
		"last_updated": time.Now(),
	}
	if t := update.Transform; t != nil {
		values["x"] = t.X
		values["y"] = t.Y
		values["z"] = t.Z
		values["rotation_x"] = t.RotationX
		values["rotation_y"] = t.RotationY
		values["rotation_z"] = t.RotationZ
	}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if update.IsActive != nil {
		values["is_active"] = *update.IsActive
	}

	result := applyFilter(r.db.WithContext(ctx).Model(&models.SpacePresence{}), filter).Updates(values)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update presences: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// FindMany returns matching rows with their users preloaded
func (r *PresenceRepository) FindMany(ctx context.Context, filter models.PresenceFilter) ([]models.SpacePresence, error) {
	var presences []models.SpacePresence
	err := applyFilter(r.db.WithContext(ctx).Preload("User"), filter).
		Order("last_updated ASC").
		Find(&presences).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find presences: %w", err)
	}
	return presences, nil
}

func applyFilter(q *gorm.DB, filter models.PresenceFilter) *gorm.DB {
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ExcludeUserID != "" {
		q = q.Where("user_id <> ?", filter.ExcludeUserID)
	}
	if filter.SpaceID != "" {
		q = q.Where("space_id = ? AND instance_id = ?", filter.SpaceID, filter.InstanceID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return q
}

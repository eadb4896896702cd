package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Space is a virtual world users can join
type Space struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null;size:128" json:"name"`
	OwnerID   string    `gorm:"index;not null;size:36" json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Instances []SpaceInstance `gorm:"foreignKey:SpaceID" json:"instances,omitempty"`
}

func (s *Space) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SpaceInstance is a parallel copy of a space with its own occupancy group
type SpaceInstance struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SpaceID   string    `gorm:"index;not null;size:36" json:"spaceId"`
	Name      string    `gorm:"size:128" json:"name"`
	MaxUsers  int       `gorm:"not null" json:"maxUsers"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *SpaceInstance) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.MaxUsers == 0 {
		i.MaxUsers = 10
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PresenceStatus is the user-selected availability shown to other members
type PresenceStatus string

const (
	StatusOnline    PresenceStatus = "Online"
	StatusAway      PresenceStatus = "Away"
	StatusBusy      PresenceStatus = "Busy"
	StatusInvisible PresenceStatus = "Invisible"
)

// IsValid checks if the PresenceStatus is a valid enum value
func (s PresenceStatus) IsValid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusInvisible:
		return true
	default:
		return false
	}
}

// Transform is a position and rotation inside a space
type Transform struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	RotationX float64 `json:"rotationX"`
	RotationY float64 `json:"rotationY"`
	RotationZ float64 `json:"rotationZ"`
}

/** --------------------ENTITIES-------------------- */
// SpacePresence is one user's location and status within a space instance.
// InstanceID is "" for the shared (instance-less) room of a space.
type SpacePresence struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"not null;size:36;uniqueIndex:idx_presence_key,priority:1" json:"userId"`
	SpaceID     string         `gorm:"not null;size:36;uniqueIndex:idx_presence_key,priority:2;index" json:"spaceId"`
	InstanceID  string         `gorm:"not null;size:36;uniqueIndex:idx_presence_key,priority:3" json:"instanceId"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Z           float64        `json:"z"`
	RotationX   float64        `json:"rotationX"`
	RotationY   float64        `json:"rotationY"`
	RotationZ   float64        `json:"rotationZ"`
	IsActive    bool           `gorm:"not null;index" json:"isActive"`
	Status      PresenceStatus `gorm:"not null;size:16" json:"status"`
	LastUpdated time.Time      `json:"lastUpdated"`
	CreatedAt   time.Time      `json:"createdAt"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (p *SpacePresence) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Transform returns the stored position and rotation
func (p *SpacePresence) Transform() Transform {
	return Transform{
		X:         p.X,
		Y:         p.Y,
		Z:         p.Z,
		RotationX: p.RotationX,
		RotationY: p.RotationY,
		RotationZ: p.RotationZ,
	}
}

// PresenceKey identifies exactly one presence row
type PresenceKey struct {
	UserID     string
	SpaceID    string
	InstanceID string
}

// PresenceFilter selects presence rows. Empty fields do not constrain the query.
// InstanceID is compared exactly whenever SpaceID is set, so "" selects the shared room.
type PresenceFilter struct {
	UserID        string
	ExcludeUserID string
	SpaceID       string
	InstanceID    string
	ActiveOnly    bool
}

// PresenceUpdate lists the columns to change; nil fields are left untouched
type PresenceUpdate struct {
	Transform *Transform
	Status    *PresenceStatus
	IsActive  *bool
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

/** --------------------ENTITIES-------------------- */
// User represents an account that can connect to spaces
type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Username    string     `gorm:"uniqueIndex;not null;size:64" json:"username"`
	DisplayName string     `gorm:"size:128" json:"displayName,omitempty"`
	Email       string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string     `json:"-"` // bcrypt hash, never serialized
	Role        string     `gorm:"not null;size:16" json:"role"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	LastOnline  *time.Time `json:"lastOnline,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Identity is the authenticated principal bound to a connection
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Identity returns the principal view of the user
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}

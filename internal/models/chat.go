package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// ChatMessage is an immutable chat line, either posted to a space or sent directly to a user
type ChatMessage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	SenderID    string    `gorm:"index;not null;size:36" json:"senderId"`
	SpaceID     *string   `gorm:"index;size:36" json:"spaceId,omitempty"`
	InstanceID  *string   `gorm:"size:36" json:"instanceId,omitempty"`
	ChannelID   *string   `gorm:"size:64" json:"channelId,omitempty"`
	RecipientID *string   `gorm:"index;size:36" json:"recipientId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Validate checks that exactly one of SpaceID or RecipientID is set
func (m *ChatMessage) Validate() error {
	hasSpace := m.SpaceID != nil && *m.SpaceID != ""
	hasRecipient := m.RecipientID != nil && *m.RecipientID != ""
	if hasSpace == hasRecipient {
		return fmt.Errorf("exactly one of spaceId or recipientId must be set")
	}
	return nil
}

// IsDirect reports whether the message targets a single recipient
func (m *ChatMessage) IsDirect() bool {
	return m.RecipientID != nil && *m.RecipientID != ""
}

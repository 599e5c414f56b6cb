package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message, optionally scoped to a project or an application.
type Message struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"sender_id"`
	RecipientID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"recipient_id"`
	ProjectID     *uuid.UUID `gorm:"type:uuid;index" json:"project_id,omitempty"`
	ApplicationID *uuid.UUID `gorm:"type:uuid;index" json:"application_id,omitempty"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	IsRead        bool       `gorm:"not null;default:false" json:"is_read"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`

	Sender    *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Recipient *User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Counterpart returns the other side of the message as seen by userID.
func (m *Message) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

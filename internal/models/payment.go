package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	ClientID   uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`
	CreativeID uuid.UUID `gorm:"type:uuid;index;not null" json:"creative_id"`

	// reference handed out by the payment gateway
	PaymentIntentID      string `gorm:"uniqueIndex;not null" json:"payment_intent_id"`
	Amount               int64  `gorm:"not null" json:"amount"`
	MilestoneDescription string `gorm:"type:text" json:"milestone_description,omitempty"`

	Status     PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ReleasedAt *time.Time    `json:"released_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project  *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	Client   *User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Creative *User    `gorm:"foreignKey:CreativeID" json:"creative,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PaymentStatusPending
	}
	return nil
}

func (p *Payment) IsParticipant(userID uuid.UUID) bool {
	return p.ClientID == userID || p.CreativeID == userID
}

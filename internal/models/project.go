package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Project struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`

	Title          string                      `gorm:"not null" json:"title"`
	Description    string                      `gorm:"type:text;not null" json:"description"`
	Category       string                      `gorm:"not null;index" json:"category"`
	BudgetMin      *int64                      `json:"budget_min"`
	BudgetMax      *int64                      `json:"budget_max"`
	TimelineWeeks  *int                        `json:"timeline_weeks"`
	RequiredSkills datatypes.JSONSlice[string] `json:"required_skills"`

	Status          ProjectStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	HiredCreativeID *uuid.UUID    `gorm:"type:uuid;index" json:"hired_creative_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client        *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	HiredCreative *User `gorm:"foreignKey:HiredCreativeID" json:"hired_creative,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	if p.RequiredSkills == nil {
		p.RequiredSkills = datatypes.JSONSlice[string]{}
	}
	return nil
}

// IsParticipant reports whether userID is the owning client or the hired creative.
func (p *Project) IsParticipant(userID uuid.UUID) bool {
	if p.ClientID == userID {
		return true
	}
	return p.HiredCreativeID != nil && *p.HiredCreativeID == userID
}

func (p *Project) IsHired(userID uuid.UUID) bool {
	return p.HiredCreativeID != nil && *p.HiredCreativeID == userID
}

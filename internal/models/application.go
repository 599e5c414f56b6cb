package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Application struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_creative" json:"project_id"`
	CreativeID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_applications_project_creative" json:"creative_id"`

	CoverLetter           string `gorm:"type:text;not null" json:"cover_letter"`
	ProposedBudget        *int64 `json:"proposed_budget"`
	ProposedTimelineWeeks *int   `json:"proposed_timeline_weeks"`

	Status ApplicationStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project  *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	Creative *User    `gorm:"foreignKey:CreativeID" json:"creative,omitempty"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = ApplicationStatusPending
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleCreative Role = "creative"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleCreative, RoleAdmin:
		return true
	}
	return false
}

// internal/models/user.go
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"not null" json:"first_name"`
	LastName  string    `gorm:"not null" json:"last_name"`

	Password   string `gorm:"not null" json:"-"`
	Role       Role   `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
	IsVerified bool   `gorm:"default:false" json:"is_verified"`

	ProfileImageURL string                      `json:"profile_image_url,omitempty"`
	Bio             string                      `gorm:"type:text" json:"bio,omitempty"`
	Location        string                      `json:"location,omitempty"`
	Website         string                      `json:"website,omitempty"`
	Skills          datatypes.JSONSlice[string] `json:"skills"`
	PortfolioLinks  datatypes.JSONSlice[string] `json:"portfolio_links"`
	HourlyRate      *int64                      `json:"hourly_rate,omitempty"`
	Availability    string                      `json:"availability,omitempty"`

	// running earnings/refund balance, moved only through the ledger
	Balance int64 `gorm:"not null;default:0" json:"balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PublicUser is what other users get to see.
type PublicUser struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            Role      `json:"role"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Location        string    `json:"location,omitempty"`
	Website         string    `json:"website,omitempty"`
	Skills          []string  `json:"skills"`
	PortfolioLinks  []string  `json:"portfolio_links"`
	HourlyRate      *int64    `json:"hourly_rate,omitempty"`
	Availability    string    `json:"availability,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		ProfileImageURL: u.ProfileImageURL,
		Bio:             u.Bio,
		Location:        u.Location,
		Website:         u.Website,
		Skills:          nonNil(u.Skills),
		PortfolioLinks:  nonNil(u.PortfolioLinks),
		HourlyRate:      u.HourlyRate,
		Availability:    u.Availability,
	}
}

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) Is(role Role) bool { return a.Role == role }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

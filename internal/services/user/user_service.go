package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type UserService struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

func NewUserService(gdb *gorm.DB, log *logrus.Logger) *UserService {
	return &UserService{DB: gdb, Log: log}
}

type RegisterInput struct {
	Email           string      `json:"email"`
	Password        string      `json:"password"`
	ConfirmPassword string      `json:"confirm_password"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Role            models.Role `json:"role"`
}

// UpdateInput holds only the profile fields present in the request.
type UpdateInput struct {
	Email           *string   `json:"email"`
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	ProfileImageURL *string   `json:"profile_image_url"`
	Bio             *string   `json:"bio"`
	Location        *string   `json:"location"`
	Website         *string   `json:"website"`
	Skills          *[]string `json:"skills"`
	PortfolioLinks  *[]string `json:"portfolio_links"`
	HourlyRate      *int64    `json:"hourly_rate"`
	Availability    *string   `json:"availability"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	fields := apperr.FieldErrors{}
	if in.Password != in.ConfirmPassword {
		fields.Add("confirm_password", "Passwords do not match")
	}
	if in.Role != models.RoleClient && in.Role != models.RoleCreative {
		fields.Add("role", "Role must be client or creative")
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		fields.Add("email", "Email is required")
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("validation error", fields)
	}

	taken, err := s.emailTaken(ctx, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Invalid("email", "Email already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Password:  hash,
		Role:      in.Role,
		IsActive:  true,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Invalid("email", "Email already registered")
		}
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return u, nil
}

func (s *UserService) emailTaken(ctx context.Context, email string, except uuid.UUID) (bool, error) {
	var n int64
	q := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) UpdateMe(ctx context.Context, actor models.Actor, in UpdateInput) (*models.User, error) {
	u, err := s.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, apperr.Invalid("email", "Email is required")
		}
		if email != u.Email {
			taken, err := s.emailTaken(ctx, email, u.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperr.Invalid("email", "Email already registered")
			}
			updates["email"] = email
		}
	}
	setString := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	setString("first_name", in.FirstName)
	setString("last_name", in.LastName)
	setString("profile_image_url", in.ProfileImageURL)
	setString("bio", in.Bio)
	setString("location", in.Location)
	setString("website", in.Website)
	setString("availability", in.Availability)
	if in.Skills != nil {
		updates["skills"] = datatypes.JSONSlice[string](*in.Skills)
	}
	if in.PortfolioLinks != nil {
		updates["portfolio_links"] = datatypes.JSONSlice[string](*in.PortfolioLinks)
	}
	if in.HourlyRate != nil {
		if *in.HourlyRate < 0 {
			return nil, apperr.Invalid("hourly_rate", "Hourly rate cannot be negative")
		}
		updates["hourly_rate"] = *in.HourlyRate
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Invalid("email", "Email already registered")
		}
		return nil, err
	}
	return s.Get(ctx, u.ID)
}

// List is the admin user directory.
func (s *UserService) List(ctx context.Context, actor models.Actor, role *models.Role, page services.Page) ([]models.User, services.Meta, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, services.Meta{}, apperr.Forbidden("Not enough permissions")
	}
	page = page.Normalize(defaultLimit, maxLimit)

	q := s.DB.WithContext(ctx).Model(&models.User{})
	if role != nil {
		if !role.Valid() {
			return nil, services.Meta{}, apperr.Invalid("role", "Invalid role value")
		}
		q = q.Where("role = ?", *role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, services.Meta{}, err
	}
	out := []models.User{}
	if err := page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

// SetActive enables or disables an account. Admins cannot disable themselves.
func (s *UserService) SetActive(ctx context.Context, actor models.Actor, id uuid.UUID, active bool) (*models.User, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, apperr.Forbidden("Not enough permissions")
	}
	if id == actor.ID && !active {
		return nil, apperr.InvalidState("You cannot deactivate your own account")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive != active {
		if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
			Update("is_active", active).Error; err != nil {
			return nil, err
		}
		u.IsActive = active
		s.Log.WithFields(logrus.Fields{"user_id": id, "active": active, "actor_id": actor.ID}).Info("user activation changed")
	}
	return u, nil
}

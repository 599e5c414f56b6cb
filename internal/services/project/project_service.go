package project

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/db"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/metrics"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type ProjectService struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

func NewProjectService(gdb *gorm.DB, log *logrus.Logger) *ProjectService {
	return &ProjectService{DB: gdb, Log: log}
}

type CreateInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	BudgetMin      *int64   `json:"budget_min"`
	BudgetMax      *int64   `json:"budget_max"`
	TimelineWeeks  *int     `json:"timeline_weeks"`
	RequiredSkills []string `json:"required_skills"`
}

// UpdateInput holds only the fields present in the request.
type UpdateInput struct {
	Title          *string               `json:"title"`
	Description    *string               `json:"description"`
	Category       *string               `json:"category"`
	BudgetMin      *int64                `json:"budget_min"`
	BudgetMax      *int64                `json:"budget_max"`
	TimelineWeeks  *int                  `json:"timeline_weeks"`
	RequiredSkills *[]string             `json:"required_skills"`
	Status         *models.ProjectStatus `json:"status"`
}

func (in UpdateInput) hasContent() bool {
	return in.Title != nil || in.Description != nil || in.Category != nil ||
		in.BudgetMin != nil || in.BudgetMax != nil || in.TimelineWeeks != nil ||
		in.RequiredSkills != nil
}

type ListFilter struct {
	Status   *models.ProjectStatus
	Category string
	Search   string
	Page     services.Page
}

func checkBudget(lo, hi *int64) error {
	if lo != nil && hi != nil && *lo > *hi {
		return apperr.Invalid("budget_max", "budget_max must be greater than or equal to budget_min")
	}
	return nil
}

func (s *ProjectService) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Project, error) {
	if !actor.Is(models.RoleClient) {
		return nil, apperr.Forbidden("Only clients can create projects")
	}
	if err := checkBudget(in.BudgetMin, in.BudgetMax); err != nil {
		return nil, err
	}

	p := &models.Project{
		ClientID:       actor.ID,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Category:       strings.TrimSpace(in.Category),
		BudgetMin:      in.BudgetMin,
		BudgetMax:      in.BudgetMax,
		TimelineWeeks:  in.TimelineWeeks,
		RequiredSkills: datatypes.JSONSlice[string](in.RequiredSkills),
		Status:         models.ProjectStatusActive,
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"project_id": p.ID, "client_id": actor.ID}).Info("project created")
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.DB.WithContext(ctx).Preload("Client").Preload("HiredCreative").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Project not found")
	}
	return &p, err
}

// List is the public browse view; without a status filter only active
// projects are shown.
func (s *ProjectService) List(ctx context.Context, f ListFilter) ([]models.Project, services.Meta, error) {
	page := f.Page.Normalize(defaultLimit, maxLimit)

	status := models.ProjectStatusActive
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, services.Meta{}, apperr.Invalid("status", "Invalid status value")
		}
		status = *f.Status
	}

	q := s.DB.WithContext(ctx).Model(&models.Project{}).Where("status = ?", status)
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, services.Meta{}, err
	}

	var out []models.Project
	if err := page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

// ListMine returns the caller's projects: owned for clients, hired-on for creatives.
func (s *ProjectService) ListMine(ctx context.Context, actor models.Actor, page services.Page) ([]models.Project, services.Meta, error) {
	page = page.Normalize(defaultLimit, maxLimit)

	q := s.DB.WithContext(ctx).Model(&models.Project{})
	switch actor.Role {
	case models.RoleClient:
		q = q.Where("client_id = ?", actor.ID)
	case models.RoleCreative:
		q = q.Where("hired_creative_id = ?", actor.ID)
	default:
		return nil, services.Meta{}, apperr.Forbidden("Only clients and creatives have projects")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, services.Meta{}, err
	}
	var out []models.Project
	if err := page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

func (s *ProjectService) Update(ctx context.Context, actor models.Actor, id uuid.UUID, in UpdateInput) (*models.Project, error) {
	var (
		p    models.Project
		from models.ProjectStatus
	)

	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := lockProject(tx, id, &p); err != nil {
			return err
		}
		from = p.Status

		isOwner := actor.Is(models.RoleClient) && p.ClientID == actor.ID
		isHired := actor.Is(models.RoleCreative) && p.IsHired(actor.ID)
		switch {
		case isOwner:
		case isHired:
			if in.hasContent() {
				return apperr.Forbidden("The hired creative may only update the project status")
			}
		default:
			return apperr.Forbidden("Not enough permissions")
		}

		updates := map[string]any{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			updates["category"] = strings.TrimSpace(*in.Category)
		}
		if in.TimelineWeeks != nil {
			updates["timeline_weeks"] = *in.TimelineWeeks
		}
		if in.RequiredSkills != nil {
			updates["required_skills"] = datatypes.JSONSlice[string](*in.RequiredSkills)
		}
		lo, hi := p.BudgetMin, p.BudgetMax
		if in.BudgetMin != nil {
			lo = in.BudgetMin
			updates["budget_min"] = *in.BudgetMin
		}
		if in.BudgetMax != nil {
			hi = in.BudgetMax
			updates["budget_max"] = *in.BudgetMax
		}
		if err := checkBudget(lo, hi); err != nil {
			return err
		}

		q := tx.Model(&models.Project{}).Where("id = ?", p.ID)
		if in.Status != nil && *in.Status != p.Status {
			next := *in.Status
			if !next.Valid() {
				return apperr.Invalid("status", "Invalid status value")
			}
			if next == models.ProjectStatusHired {
				return apperr.InvalidState("A project becomes hired only by accepting an application")
			}
			if !p.Status.CanTransitionTo(next) {
				return apperr.InvalidState("Cannot move project from %s to %s", p.Status, next)
			}
			updates["status"] = next
			q = q.Where("status = ?", p.Status)
		}

		if len(updates) == 0 {
			return nil
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.InvalidState("Project status changed, retry the update")
		}
		return tx.First(&p, "id = ?", p.ID).Error
	})
	if err != nil {
		return nil, err
	}

	if p.Status != from {
		metrics.RecordTransition("project", string(from), string(p.Status))
		s.Log.WithFields(logrus.Fields{
			"project_id": p.ID, "from": from, "to": p.Status, "actor_id": actor.ID,
		}).Info("project status changed")
	}
	return &p, nil
}

// Delete removes a draft or active project together with its applications
// and scoped messages.
func (s *ProjectService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var p models.Project
		if err := lockProject(tx, id, &p); err != nil {
			return err
		}
		if !actor.Is(models.RoleClient) || p.ClientID != actor.ID {
			return apperr.Forbidden("Not enough permissions")
		}
		if !p.Status.Deletable() {
			return apperr.InvalidState("Only draft or active projects can be deleted")
		}

		appIDs := tx.Model(&models.Application{}).Select("id").Where("project_id = ?", p.ID)
		if err := tx.Where("project_id = ? OR application_id IN (?)", p.ID, appIDs).
			Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Application{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ? AND status IN ?", p.ID,
			[]models.ProjectStatus{models.ProjectStatusDraft, models.ProjectStatusActive}).
			Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.InvalidState("Project status changed, it can no longer be deleted")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{"project_id": id, "actor_id": actor.ID}).Info("project deleted")
	return nil
}

// lockProject loads the project row for update inside tx.
func lockProject(tx *gorm.DB, id uuid.UUID, p *models.Project) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Project not found")
	}
	return err
}

package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
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

type ApplicationService struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

func NewApplicationService(gdb *gorm.DB, log *logrus.Logger) *ApplicationService {
	return &ApplicationService{DB: gdb, Log: log}
}

type CreateInput struct {
	ProjectID             uuid.UUID `json:"project_id"`
	CoverLetter           string    `json:"cover_letter"`
	ProposedBudget        *int64    `json:"proposed_budget"`
	ProposedTimelineWeeks *int      `json:"proposed_timeline_weeks"`
}

// UpdateInput carries the fields present in the request. Content fields
// belong to the applying creative, Status to the project's client.
type UpdateInput struct {
	CoverLetter           *string                   `json:"cover_letter"`
	ProposedBudget        *int64                    `json:"proposed_budget"`
	ProposedTimelineWeeks *int                      `json:"proposed_timeline_weeks"`
	Status                *models.ApplicationStatus `json:"status"`
}

func (in UpdateInput) hasContent() bool {
	return in.CoverLetter != nil || in.ProposedBudget != nil || in.ProposedTimelineWeeks != nil
}

// UpdateResult reports what an update changed, including the acceptance cascade.
type UpdateResult struct {
	Application *models.Application `json:"application"`
	Project     *models.Project     `json:"project,omitempty"`
	// siblings auto-rejected by an acceptance
	RejectedCount int64 `json:"rejected_count"`
}

func (s *ApplicationService) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Application, error) {
	if !actor.Is(models.RoleCreative) {
		return nil, apperr.Forbidden("Only creatives can apply to projects")
	}
	letter := strings.TrimSpace(in.CoverLetter)
	if letter == "" {
		return nil, apperr.Invalid("cover_letter", "Cover letter is required")
	}

	app := &models.Application{
		ProjectID:             in.ProjectID,
		CreativeID:            actor.ID,
		CoverLetter:           letter,
		ProposedBudget:        in.ProposedBudget,
		ProposedTimelineWeeks: in.ProposedTimelineWeeks,
		Status:                models.ApplicationStatusPending,
	}

	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&p, "id = ?", in.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Project not found")
			}
			return err
		}
		if p.Status != models.ProjectStatusActive {
			return apperr.InvalidState("Project is not accepting applications")
		}

		var n int64
		if err := tx.Model(&models.Application{}).
			Where("project_id = ? AND creative_id = ?", in.ProjectID, actor.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("You have already applied to this project")
		}

		if err := tx.Create(app).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("You have already applied to this project")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"application_id": app.ID, "project_id": app.ProjectID, "creative_id": actor.ID,
	}).Info("application submitted")
	return app, nil
}

// Get returns the application to its creative or to the project's client.
func (s *ApplicationService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).Preload("Project").Preload("Creative").First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Application not found")
	}
	if err != nil {
		return nil, err
	}
	if app.CreativeID != actor.ID && (app.Project == nil || app.Project.ClientID != actor.ID) {
		return nil, apperr.Forbidden("Not enough permissions")
	}
	return &app, nil
}

func (s *ApplicationService) ListMine(ctx context.Context, actor models.Actor, status *models.ApplicationStatus, page services.Page) ([]models.Application, services.Meta, error) {
	if !actor.Is(models.RoleCreative) {
		return nil, services.Meta{}, apperr.Forbidden("Only creatives have applications")
	}
	page = page.Normalize(defaultLimit, maxLimit)

	q := s.DB.WithContext(ctx).Model(&models.Application{}).Where("creative_id = ?", actor.ID)
	if status != nil {
		if !status.Valid() {
			return nil, services.Meta{}, apperr.Invalid("status", "Invalid status value")
		}
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, services.Meta{}, err
	}
	var out []models.Application
	if err := page.Apply(q).Preload("Project").Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

// ListForProject returns every application on a project the client owns.
func (s *ApplicationService) ListForProject(ctx context.Context, actor models.Actor, projectID uuid.UUID, page services.Page) ([]models.Application, services.Meta, error) {
	page = page.Normalize(defaultLimit, maxLimit)

	var p models.Project
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.Meta{}, apperr.NotFound("Project not found")
		}
		return nil, services.Meta{}, err
	}
	if !actor.Is(models.RoleClient) || p.ClientID != actor.ID {
		return nil, services.Meta{}, apperr.Forbidden("Not enough permissions")
	}

	q := s.DB.WithContext(ctx).Model(&models.Application{}).Where("project_id = ?", projectID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, services.Meta{}, err
	}
	var out []models.Application
	if err := page.Apply(q).Preload("Creative").Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

func (s *ApplicationService) Update(ctx context.Context, actor models.Actor, id uuid.UUID, in UpdateInput) (*UpdateResult, error) {
	var (
		res  UpdateResult
		from models.ApplicationStatus
	)

	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Application not found")
			}
			return err
		}
		from = app.Status

		// the project row lock serialises concurrent decisions on one project
		var p models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", app.ProjectID).Error; err != nil {
			return err
		}

		switch {
		case actor.Is(models.RoleCreative) && app.CreativeID == actor.ID:
			if err := s.editContent(tx, &app, in); err != nil {
				return err
			}
		case actor.Is(models.RoleClient) && p.ClientID == actor.ID:
			n, err := s.decide(tx, &app, &p, in)
			if err != nil {
				return err
			}
			res.RejectedCount = n
			res.Project = &p
		default:
			return apperr.Forbidden("Not enough permissions")
		}

		if err := tx.First(&app, "id = ?", app.ID).Error; err != nil {
			return err
		}
		res.Application = &app
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Application.Status != from {
		s.recordDecision(actor, &res, from)
	}
	return &res, nil
}

func (s *ApplicationService) editContent(tx *gorm.DB, app *models.Application, in UpdateInput) error {
	if in.Status != nil {
		return apperr.Forbidden("Creatives cannot change the application status")
	}
	if app.Status != models.ApplicationStatusPending {
		return apperr.InvalidState("Only pending applications can be edited")
	}

	updates := map[string]any{}
	if in.CoverLetter != nil {
		letter := strings.TrimSpace(*in.CoverLetter)
		if letter == "" {
			return apperr.Invalid("cover_letter", "Cover letter is required")
		}
		updates["cover_letter"] = letter
	}
	if in.ProposedBudget != nil {
		updates["proposed_budget"] = *in.ProposedBudget
	}
	if in.ProposedTimelineWeeks != nil {
		updates["proposed_timeline_weeks"] = *in.ProposedTimelineWeeks
	}
	if len(updates) == 0 {
		return nil
	}

	r := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).
		Updates(updates)
	if r.Error != nil {
		return r.Error
	}
	if r.RowsAffected != 1 {
		return apperr.InvalidState("Only pending applications can be edited")
	}
	return nil
}

// decide applies the client's accept/reject decision and returns how many
// sibling applications an acceptance rejected.
func (s *ApplicationService) decide(tx *gorm.DB, app *models.Application, p *models.Project, in UpdateInput) (int64, error) {
	if in.hasContent() {
		return 0, apperr.Forbidden("Clients cannot edit application content")
	}
	if in.Status == nil {
		return 0, apperr.Invalid("status", "Status is required")
	}
	next := *in.Status
	if !next.Valid() {
		return 0, apperr.Invalid("status", "Invalid status value")
	}
	if next == app.Status {
		return 0, nil
	}
	if !app.Status.CanTransitionTo(next) {
		return 0, apperr.InvalidState("Cannot move application from %s to %s", app.Status, next)
	}

	if next == models.ApplicationStatusRejected {
		return 0, casApplication(tx, app.ID, models.ApplicationStatusRejected)
	}
	return accept(tx, app, p)
}

// accept moves the application to accepted, hires its creative on the
// project and rejects every other pending application, all inside tx.
func accept(tx *gorm.DB, app *models.Application, p *models.Project) (int64, error) {
	if p.Status != models.ProjectStatusActive {
		return 0, apperr.InvalidState("Project is no longer active")
	}

	if err := casApplication(tx, app.ID, models.ApplicationStatusAccepted); err != nil {
		return 0, err
	}

	r := tx.Model(&models.Project{}).
		Where("id = ? AND status = ?", p.ID, models.ProjectStatusActive).
		Updates(map[string]any{
			"status":            models.ProjectStatusHired,
			"hired_creative_id": app.CreativeID,
		})
	if r.Error != nil {
		return 0, r.Error
	}
	if r.RowsAffected != 1 {
		return 0, apperr.InvalidState("Project is no longer active")
	}

	r = tx.Model(&models.Application{}).
		Where("project_id = ? AND id <> ? AND status = ?", p.ID, app.ID, models.ApplicationStatusPending).
		Update("status", models.ApplicationStatusRejected)
	if r.Error != nil {
		return 0, r.Error
	}

	if err := tx.First(p, "id = ?", p.ID).Error; err != nil {
		return 0, err
	}
	return r.RowsAffected, nil
}

// casApplication moves a pending application to next. A zero-row update means
// another request decided it first.
func casApplication(tx *gorm.DB, id uuid.UUID, next models.ApplicationStatus) error {
	r := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.ApplicationStatusPending).
		Update("status", next)
	if r.Error != nil {
		if errors.Is(r.Error, gorm.ErrDuplicatedKey) {
			return apperr.InvalidState("Project already has an accepted application")
		}
		return r.Error
	}
	if r.RowsAffected != 1 {
		return apperr.InvalidState("Application is no longer pending")
	}
	return nil
}

func (s *ApplicationService) recordDecision(actor models.Actor, res *UpdateResult, from models.ApplicationStatus) {
	to := res.Application.Status
	metrics.RecordTransition("application", string(from), string(to))

	fields := logrus.Fields{
		"application_id": res.Application.ID,
		"project_id":     res.Application.ProjectID,
		"from":           from,
		"to":             to,
		"actor_id":       actor.ID,
	}
	if to == models.ApplicationStatusAccepted {
		metrics.RecordTransition("project", string(models.ProjectStatusActive), string(models.ProjectStatusHired))
		for i := int64(0); i < res.RejectedCount; i++ {
			metrics.RecordTransition("application", string(models.ApplicationStatusPending), string(models.ApplicationStatusRejected))
		}
		fields["rejected_siblings"] = res.RejectedCount
	}
	s.Log.WithFields(fields).Info("application decided")
}

// Delete withdraws a pending application; only its creative may do so.
func (s *ApplicationService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Application not found")
			}
			return err
		}
		if !actor.Is(models.RoleCreative) || app.CreativeID != actor.ID {
			return apperr.Forbidden("Not enough permissions")
		}
		if app.Status != models.ApplicationStatusPending {
			return apperr.InvalidState("Only pending applications can be deleted")
		}

		if err := tx.Where("application_id = ?", app.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		r := tx.Where("id = ? AND status = ?", app.ID, models.ApplicationStatusPending).Delete(&models.Application{})
		if r.Error != nil {
			return r.Error
		}
		if r.RowsAffected != 1 {
			return apperr.InvalidState("Only pending applications can be deleted")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{"application_id": id, "actor_id": actor.ID}).Info("application withdrawn")
	return nil
}

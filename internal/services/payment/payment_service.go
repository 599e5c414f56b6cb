package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/db"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/metrics"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/wallet"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type PaymentService struct {
	DB      *gorm.DB
	Gateway Gateway
	Wallet  *wallet.WalletService
	Log     *logrus.Logger
}

func NewPaymentService(gdb *gorm.DB, gateway Gateway, w *wallet.WalletService, log *logrus.Logger) *PaymentService {
	return &PaymentService{DB: gdb, Gateway: gateway, Wallet: w, Log: log}
}

type IntentInput struct {
	ProjectID            uuid.UUID `json:"project_id"`
	CreativeID           uuid.UUID `json:"creative_id"`
	Amount               int64     `json:"amount"`
	MilestoneDescription string    `json:"milestone_description"`
}

type IntentResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// CreateIntent opens a pending escrow payment from the project's client to
// its hired creative.
func (s *PaymentService) CreateIntent(ctx context.Context, actor models.Actor, in IntentInput) (*IntentResult, error) {
	if !actor.Is(models.RoleClient) {
		return nil, apperr.Forbidden("Only clients can create payments")
	}
	if in.Amount <= 0 {
		return nil, apperr.Invalid("amount", "Amount must be greater than zero")
	}

	var p models.Project
	if err := s.DB.WithContext(ctx).Preload("Client").First(&p, "id = ?", in.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, err
	}
	if p.ClientID != actor.ID {
		return nil, apperr.Forbidden("Not enough permissions")
	}
	if !p.Status.HasHire() {
		return nil, apperr.InvalidState("Payments are only possible once a creative is hired")
	}

	var creative models.User
	err := s.DB.WithContext(ctx).
		Where("id = ? AND role = ?", in.CreativeID, models.RoleCreative).
		First(&creative).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Creative not found")
	}
	if err != nil {
		return nil, err
	}
	if !p.IsHired(creative.ID) {
		return nil, apperr.InvalidState("Creative is not hired on this project")
	}

	pay := &models.Payment{
		ID:                   uuid.New(),
		ProjectID:            p.ID,
		ClientID:             actor.ID,
		CreativeID:           creative.ID,
		Amount:               in.Amount,
		MilestoneDescription: strings.TrimSpace(in.MilestoneDescription),
		Status:               models.PaymentStatusPending,
	}

	req := IntentRequest{
		Reference:   pay.ID.String(),
		Amount:      pay.Amount,
		Description: p.Title,
	}
	if p.Client != nil {
		req.CustomerName = p.Client.FullName()
		req.CustomerEmail = p.Client.Email
	}
	if pay.MilestoneDescription != "" {
		req.Description = p.Title + ": " + pay.MilestoneDescription
	}

	// the gateway is called before anything is written; a failed call leaves no row
	intent, err := s.Gateway.CreateIntent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	pay.PaymentIntentID = intent.ID

	if err := s.DB.WithContext(ctx).Create(pay).Error; err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"payment_id": pay.ID, "project_id": p.ID, "amount": pay.Amount, "actor_id": actor.ID,
	}).Info("payment intent created")
	return &IntentResult{Payment: pay, ClientSecret: intent.ClientSecret}, nil
}

// Confirm marks the client's pending payment as funded.
func (s *PaymentService) Confirm(ctx context.Context, actor models.Actor, intentID string) (*models.Payment, error) {
	var pay models.Payment
	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := findByIntent(tx, intentID, &pay); err != nil {
			return err
		}
		if !actor.Is(models.RoleClient) || pay.ClientID != actor.ID {
			return apperr.Forbidden("Not enough permissions")
		}
		return s.transition(tx, &pay, models.PaymentStatusHeldInEscrow, nil)
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(&pay, models.PaymentStatusPending, actor.ID)
	return &pay, nil
}

// ConfirmByGateway applies a processor's paid notification. Repeated
// notifications for an already funded payment are accepted and change nothing.
func (s *PaymentService) ConfirmByGateway(ctx context.Context, intentID string) (*models.Payment, error) {
	var (
		pay     models.Payment
		changed bool
	)
	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := findByIntent(tx, intentID, &pay); err != nil {
			return err
		}
		if pay.Status != models.PaymentStatusPending {
			return nil
		}
		changed = true
		return s.transition(tx, &pay, models.PaymentStatusHeldInEscrow, nil)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.recordTransition(&pay, models.PaymentStatusPending, uuid.Nil)
	}
	return &pay, nil
}

// Release pays the escrowed amount out to the creative. It cannot be undone.
func (s *PaymentService) Release(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Payment, error) {
	var pay models.Payment
	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := findByID(tx, id, &pay); err != nil {
			return err
		}
		if !actor.Is(models.RoleClient) || pay.ClientID != actor.ID {
			return apperr.Forbidden("Not enough permissions")
		}

		now := tx.NowFunc()
		if err := s.transition(tx, &pay, models.PaymentStatusReleased, &now); err != nil {
			return err
		}
		return s.Wallet.CreditCreative(tx, pay.CreativeID, pay.Amount, pay.ID,
			fmt.Sprintf("Escrow released for payment %s", pay.ID))
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(&pay, models.PaymentStatusHeldInEscrow, actor.ID)
	return &pay, nil
}

// Refund returns escrowed funds to the client. Admin only.
func (s *PaymentService) Refund(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Payment, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, apperr.Forbidden("Not enough permissions")
	}

	var pay models.Payment
	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		if err := findByID(tx, id, &pay); err != nil {
			return err
		}
		if err := s.transition(tx, &pay, models.PaymentStatusRefunded, nil); err != nil {
			return err
		}
		return s.Wallet.CreditClient(tx, pay.ClientID, pay.Amount, pay.ID,
			fmt.Sprintf("Escrow refunded for payment %s", pay.ID))
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(&pay, models.PaymentStatusHeldInEscrow, actor.ID)
	return &pay, nil
}

// transition moves pay to next if its current status allows it, guarding
// the write with the status it was read in.
func (s *PaymentService) transition(tx *gorm.DB, pay *models.Payment, next models.PaymentStatus, releasedAt *time.Time) error {
	if !pay.Status.CanTransitionTo(next) {
		return apperr.InvalidState("Cannot move payment from %s to %s", pay.Status, next)
	}

	updates := map[string]any{"status": next}
	if releasedAt != nil {
		updates["released_at"] = *releasedAt
	}
	r := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", pay.ID, pay.Status).
		Updates(updates)
	if r.Error != nil {
		return r.Error
	}
	if r.RowsAffected != 1 {
		return apperr.InvalidState("Payment status changed, retry the request")
	}
	return tx.First(pay, "id = ?", pay.ID).Error
}

func (s *PaymentService) recordTransition(pay *models.Payment, from models.PaymentStatus, actorID uuid.UUID) {
	metrics.RecordTransition("payment", string(from), string(pay.Status))
	fields := logrus.Fields{
		"payment_id": pay.ID, "project_id": pay.ProjectID, "from": from, "to": pay.Status,
	}
	if actorID != uuid.Nil {
		fields["actor_id"] = actorID
	} else {
		fields["actor"] = "gateway"
	}
	s.Log.WithFields(fields).Info("payment status changed")
}

// Get returns a payment to either of its participants.
func (s *PaymentService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Payment, error) {
	var pay models.Payment
	if err := findByID(s.DB.WithContext(ctx), id, &pay); err != nil {
		return nil, err
	}
	if !pay.IsParticipant(actor.ID) {
		return nil, apperr.Forbidden("Not enough permissions")
	}
	return &pay, nil
}

// ListForProject lists a project's payments for its client or hired creative.
func (s *PaymentService) ListForProject(ctx context.Context, actor models.Actor, projectID uuid.UUID, page services.Page) ([]models.Payment, services.Meta, error) {
	page = page.Normalize(defaultLimit, maxLimit)

	var p models.Project
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.Meta{}, apperr.NotFound("Project not found")
		}
		return nil, services.Meta{}, err
	}
	if !p.IsParticipant(actor.ID) {
		return nil, services.Meta{}, apperr.Forbidden("Not enough permissions")
	}

	q := s.DB.WithContext(ctx).Model(&models.Payment{}).Where("project_id = ?", projectID)
	return list(q, page)
}

// ListMine returns payments sent by a client or received by a creative.
func (s *PaymentService) ListMine(ctx context.Context, actor models.Actor, status *models.PaymentStatus, page services.Page) ([]models.Payment, services.Meta, error) {
	page = page.Normalize(defaultLimit, maxLimit)

	q := s.DB.WithContext(ctx).Model(&models.Payment{})
	switch actor.Role {
	case models.RoleClient:
		q = q.Where("client_id = ?", actor.ID)
	case models.RoleCreative:
		q = q.Where("creative_id = ?", actor.ID)
	default:
		return nil, services.Meta{}, apperr.Forbidden("Only clients and creatives have payments")
	}
	if status != nil {
		if !status.Valid() {
			return nil, services.Meta{}, apperr.Invalid("status", "Invalid status value")
		}
		q = q.Where("status = ?", *status)
	}
	return list(q, page)
}

// Earnings is the caller's balance and ledger.
func (s *PaymentService) Earnings(ctx context.Context, actor models.Actor, page services.Page) (*wallet.Statement, error) {
	st, err := s.Wallet.Statement(ctx, actor.ID, page)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return st, err
}

func list(q *gorm.DB, page services.Page) ([]models.Payment, services.Meta, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, services.Meta{}, err
	}
	out := []models.Payment{}
	if err := page.Apply(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

func findByID(tx *gorm.DB, id uuid.UUID, pay *models.Payment) error {
	err := tx.First(pay, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Payment not found")
	}
	return err
}

func findByIntent(tx *gorm.DB, intentID string, pay *models.Payment) error {
	if strings.TrimSpace(intentID) == "" {
		return apperr.Invalid("payment_intent_id", "Payment intent id is required")
	}
	err := tx.First(pay, "payment_intent_id = ?", intentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Payment not found")
	}
	return err
}

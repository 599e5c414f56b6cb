package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/db"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	EventNewMessage = "new_message"
)

// Notifier delivers an event to a user outside the request, best effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event any)
}

type Event struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

type MessageService struct {
	DB       *gorm.DB
	Notifier Notifier
	Log      *logrus.Logger
}

func NewMessageService(gdb *gorm.DB, notifier Notifier, log *logrus.Logger) *MessageService {
	return &MessageService{DB: gdb, Notifier: notifier, Log: log}
}

type CreateInput struct {
	RecipientID   uuid.UUID  `json:"recipient_id"`
	Content       string     `json:"content"`
	ProjectID     *uuid.UUID `json:"project_id"`
	ApplicationID *uuid.UUID `json:"application_id"`
}

type ListFilter struct {
	OtherUserID   *uuid.UUID
	ProjectID     *uuid.UUID
	ApplicationID *uuid.UUID
	Page          services.Page
}

// Conversation summarises the exchange with one counterpart.
type Conversation struct {
	User        models.PublicUser `json:"user"`
	LastMessage models.Message    `json:"last_message"`
	UnreadCount int               `json:"unread_count"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (s *MessageService) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Invalid("content", "Message content is required")
	}
	if in.RecipientID == actor.ID {
		return nil, apperr.Invalid("recipient_id", "You cannot send a message to yourself")
	}

	msg := &models.Message{
		SenderID:      actor.ID,
		RecipientID:   in.RecipientID,
		ProjectID:     in.ProjectID,
		ApplicationID: in.ApplicationID,
		Content:       content,
	}

	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		var recipient models.User
		if err := tx.Select("id").First(&recipient, "id = ?", in.RecipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Recipient not found")
			}
			return err
		}

		if in.ProjectID != nil {
			var p models.Project
			if err := tx.First(&p, "id = ?", *in.ProjectID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Project not found")
				}
				return err
			}
			if !p.IsParticipant(actor.ID) || !p.IsParticipant(in.RecipientID) {
				return apperr.Forbidden("Both users must be involved in the project")
			}
		}

		if in.ApplicationID != nil {
			var app models.Application
			if err := tx.Preload("Project").First(&app, "id = ?", *in.ApplicationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Application not found")
				}
				return err
			}
			involved := func(id uuid.UUID) bool {
				return id == app.CreativeID || (app.Project != nil && app.Project.ClientID == id)
			}
			if !involved(actor.ID) || !involved(in.RecipientID) {
				return apperr.Forbidden("Both users must be involved in the application")
			}
		}

		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"message_id": msg.ID, "sender_id": msg.SenderID, "recipient_id": msg.RecipientID,
	}).Debug("message sent")
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, msg.RecipientID, Event{Type: EventNewMessage, Message: msg})
	}
	return msg, nil
}

// List returns the caller's messages newest first. Messages in the page
// addressed to the caller are marked read.
func (s *MessageService) List(ctx context.Context, actor models.Actor, f ListFilter) ([]models.Message, services.Meta, error) {
	page := f.Page.Normalize(defaultLimit, maxLimit)
	out := []models.Message{}
	var total int64

	err := db.WithTx(ctx, s.DB, func(tx *gorm.DB) error {
		q := tx.Model(&models.Message{}).Where("sender_id = ? OR recipient_id = ?", actor.ID, actor.ID)
		if f.OtherUserID != nil {
			q = q.Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
				actor.ID, *f.OtherUserID, *f.OtherUserID, actor.ID)
		}
		if f.ProjectID != nil {
			q = q.Where("project_id = ?", *f.ProjectID)
		}
		if f.ApplicationID != nil {
			q = q.Where("application_id = ?", *f.ApplicationID)
		}

		if err := q.Count(&total).Error; err != nil {
			return err
		}
		if err := page.Apply(q).Preload("Sender").Order("created_at DESC").Find(&out).Error; err != nil {
			return err
		}

		var unread []uuid.UUID
		for i := range out {
			if out[i].RecipientID == actor.ID && !out[i].IsRead {
				unread = append(unread, out[i].ID)
				out[i].IsRead = true
			}
		}
		if len(unread) == 0 {
			return nil
		}
		return tx.Model(&models.Message{}).Where("id IN ?", unread).Update("is_read", true).Error
	})
	if err != nil {
		return nil, services.Meta{}, err
	}
	return out, page.Meta(total), nil
}

// Conversations groups the caller's messages by counterpart, most recent first.
func (s *MessageService) Conversations(ctx context.Context, actor models.Actor) ([]Conversation, error) {
	var msgs []models.Message
	if err := s.DB.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", actor.ID, actor.ID).
		Order("created_at DESC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}

	index := map[uuid.UUID]int{}
	convs := []Conversation{}
	var ids []uuid.UUID
	for _, m := range msgs {
		other := m.Counterpart(actor.ID)
		i, ok := index[other]
		if !ok {
			i = len(convs)
			index[other] = i
			convs = append(convs, Conversation{LastMessage: m, UpdatedAt: m.CreatedAt})
			ids = append(ids, other)
		}
		if m.RecipientID == actor.ID && !m.IsRead {
			convs[i].UnreadCount++
		}
	}
	if len(ids) == 0 {
		return convs, nil
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		convs[index[users[i].ID]].User = users[i].Public()
	}
	return convs, nil
}

// MarkRead flags a message read; only its recipient may do so.
func (s *MessageService) MarkRead(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Message not found")
	}
	if err != nil {
		return nil, err
	}
	if msg.RecipientID != actor.ID {
		return nil, apperr.Forbidden("Not enough permissions")
	}
	if msg.IsRead {
		return &msg, nil
	}

	if err := s.DB.WithContext(ctx).Model(&msg).Update("is_read", true).Error; err != nil {
		return nil, err
	}
	msg.IsRead = true
	return &msg, nil
}

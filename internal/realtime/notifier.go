package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier pushes an event to a user's open websockets and, when Redis is
// configured, to the user's notification channel. Delivery is best effort.
type Notifier struct {
	hub       *Hub
	publisher *Publisher
	log       *logrus.Logger
}

func NewNotifier(hub *Hub, publisher *Publisher, log *logrus.Logger) *Notifier {
	return &Notifier{hub: hub, publisher: publisher, log: log}
}

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, event any) {
	if n == nil {
		return
	}
	if n.hub != nil {
		n.hub.SendToUser(userID, event)
	}
	if n.publisher != nil {
		// detached from the request so a finished response does not cancel it
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := n.publisher.Publish(pctx, userID, event); err != nil {
			n.log.WithError(err).WithField("user_id", userID).Warn("publish notification")
		}
	}
}

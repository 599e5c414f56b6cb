package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// IntentRequest describes the escrow charge a client is about to make.
type IntentRequest struct {
	// Reference is our payment id; gateways echo it back as their merchant ref.
	Reference     string
	Amount        int64
	Description   string
	CustomerName  string
	CustomerEmail string
}

// Intent is the gateway's handle on a charge. ID is stored on the payment
// row; ClientSecret goes to the client only.
type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// StubGateway hands out processor-shaped intents without talking to anyone.
type StubGateway struct{}

func (StubGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := "pi_" + uuid.NewString()

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &Intent{ID: id, ClientSecret: id + "_secret_" + hex.EncodeToString(b)}, nil
}

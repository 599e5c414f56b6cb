// Package auth is the authentication gate: providers that turn credentials
// into users and users into bearer tokens, and a registry that picks one by
// configuration at start-up.
package auth

import (
	"context"
	"time"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

// Credentials carries whatever a provider needs to authenticate: an
// email/password pair, or an authorization code from a federated login.
type Credentials struct {
	Email    string
	Password string
	Code     string
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Claims = utils.Claims

type Provider interface {
	Name() config.AuthProvider
	// Authenticate verifies credentials and returns the active user.
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
	IssueToken(ctx context.Context, u *models.User) (Token, error)
	// ValidateToken checks signature, expiry and revocation.
	ValidateToken(ctx context.Context, raw string) (*Claims, error)
	// ResolveUser validates the token and loads the user it names.
	ResolveUser(ctx context.Context, raw string) (*models.User, error)
	// Revoke invalidates a token before its expiry.
	Revoke(ctx context.Context, raw string) error
}

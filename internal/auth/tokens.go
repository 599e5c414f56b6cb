package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

// tokenManager is the session half shared by every provider: HS256 bearer
// tokens, revocation and user resolution.
type tokenManager struct {
	db       *gorm.DB
	secret   string
	ttl      time.Duration
	denylist Denylist
	now      func() time.Time
}

func newTokenManager(db *gorm.DB, secret string, expiresMin int, dl Denylist) *tokenManager {
	return &tokenManager{
		db:       db,
		secret:   secret,
		ttl:      time.Duration(expiresMin) * time.Minute,
		denylist: dl,
		now:      time.Now,
	}
}

func (m *tokenManager) IssueToken(_ context.Context, u *models.User) (Token, error) {
	raw, claims, err := utils.SignJWT(m.secret, u.ID.String(), string(u.Role), m.ttl, m.now())
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{
		AccessToken: raw,
		TokenType:   "bearer",
		ExpiresIn:   int(m.ttl.Seconds()),
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (m *tokenManager) ValidateToken(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, apperr.Unauthorized("Not authenticated")
	}
	claims, err := utils.ParseJWT(m.secret, raw)
	if err != nil {
		return nil, apperr.Unauthorized("Could not validate credentials")
	}
	revoked, err := m.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, apperr.Unauthorized("Token has been revoked")
	}
	return claims, nil
}

func (m *tokenManager) ResolveUser(ctx context.Context, raw string) (*models.User, error) {
	claims, err := m.ValidateToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Could not validate credentials")
	}

	var u models.User
	if err := m.db.WithContext(ctx).First(&u, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("Inactive user")
	}
	return &u, nil
}

func (m *tokenManager) Revoke(ctx context.Context, raw string) error {
	claims, err := utils.ParseJWT(m.secret, raw)
	if err != nil {
		// already unusable
		return nil
	}
	return m.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time.Sub(m.now()))
}

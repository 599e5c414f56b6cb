package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

// JWTProvider authenticates local email/password accounts.
type JWTProvider struct {
	*tokenManager
	db *gorm.DB
}

func NewJWTProvider(deps Deps) (Provider, error) {
	if deps.Config.JWTSecret == "" {
		return nil, errors.New("auth: jwt provider needs a secret")
	}
	return &JWTProvider{
		tokenManager: newTokenManager(deps.DB, deps.Config.JWTSecret, deps.Config.JWTExpiresMin, deps.Denylist),
		db:           deps.DB,
	}, nil
}

func (p *JWTProvider) Name() config.AuthProvider { return config.AuthProviderJWT }

func (p *JWTProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	return authenticatePassword(ctx, p.db, creds)
}

func authenticatePassword(ctx context.Context, db *gorm.DB, creds Credentials) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	var u models.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Incorrect email or password")
		}
		return nil, err
	}
	if !utils.CheckPassword(u.Password, creds.Password) {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("Inactive user")
	}
	return &u, nil
}

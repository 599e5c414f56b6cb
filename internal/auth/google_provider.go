package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider signs users in with a Google authorization code. Local
// password accounts keep working through the same provider.
type GoogleProvider struct {
	*tokenManager
	db          *gorm.DB
	oauth       *oauth2.Config
	userInfoURL string
	log         *logrus.Logger
}

func NewGoogleProvider(deps Deps) (Provider, error) {
	cfg := deps.Config
	if cfg.GoogleClientID == "" || cfg.GoogleSecret == "" {
		return nil, errors.New("auth: google provider needs client id and secret")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: google provider needs a session secret")
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GoogleProvider{
		tokenManager: newTokenManager(deps.DB, cfg.JWTSecret, cfg.JWTExpiresMin, deps.Denylist),
		db:           deps.DB,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleSecret,
			RedirectURL:  cfg.GoogleRedirect,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
		log:         log,
	}, nil
}

func (p *GoogleProvider) Name() config.AuthProvider { return config.AuthProviderGoogle }

// AuthCodeURL is where the browser goes to start the consent flow.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Code == "" {
		return authenticatePassword(ctx, p.db, creds)
	}

	tok, err := p.oauth.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, apperr.Unauthorized("Failed to exchange authorization code")
	}

	gu, err := p.fetchUserInfo(ctx, tok)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(gu.Email))
	if email == "" {
		return nil, apperr.Unauthorized("Google account has no email")
	}

	var u models.User
	err = p.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := p.createUser(ctx, email, gu)
		if err != nil {
			return nil, err
		}
		u = *created
	default:
		return nil, err
	}

	if !u.IsActive {
		return nil, apperr.Forbidden("Inactive user")
	}
	return &u, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (*googleUserInfo, error) {
	client := p.oauth.Client(ctx, tok)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, apperr.Unauthorized("Failed to fetch Google profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unauthorized("Failed to fetch Google profile")
	}
	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode google userinfo: %w", err)
	}
	return &gu, nil
}

func (p *GoogleProvider) createUser(ctx context.Context, email string, gu *googleUserInfo) (*models.User, error) {
	// the account never logs in with this password
	hashed, err := utils.HashPassword(RandomState(24))
	if err != nil {
		return nil, err
	}

	first, last := gu.GivenName, gu.FamilyName
	if first == "" {
		first, last, _ = strings.Cut(strings.TrimSpace(gu.Name), " ")
	}
	if first == "" {
		first = strings.Split(email, "@")[0]
	}

	u := models.User{
		Email:           email,
		FirstName:       first,
		LastName:        last,
		Password:        hashed,
		Role:            models.RoleClient,
		IsActive:        true,
		IsVerified:      gu.VerifiedEmail,
		ProfileImageURL: gu.Picture,
	}
	if err := p.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}
	p.log.WithField("user_id", u.ID).Info("user created via google sign-in")
	return &u, nil
}

// RandomState returns n random bytes, URL-safe encoded.
func RandomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

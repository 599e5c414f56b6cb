package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/auth"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/handlers"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/realtime"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/application"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/message"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/payment"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/project"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/tripay"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/user"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/wallet"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/testutil"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

const callbackKey = "callback-private-key"

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Meta    json.RawMessage     `json:"meta"`
	Errors  map[string][]string `json:"errors"`
}

type harness struct {
	t        *testing.T
	app      *fiber.App
	db       *gorm.DB
	provider auth.Provider
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb := testutil.NewDB(t)
	log := testutil.QuietLogger()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Defaults()
	cfg.JWTSecret = "test-secret"
	p, err := auth.NewRegistry().Build(config.AuthProviderJWT, auth.Deps{
		DB:       gdb,
		Config:   cfg,
		Denylist: auth.NewRedisDenylist(rdb),
		Log:      log,
	})
	require.NoError(t, err)

	hub := realtime.NewHub(log)
	payments := payment.NewPaymentService(gdb, payment.StubGateway{}, wallet.NewWalletService(gdb), log)

	app := handlers.NewApp(handlers.Deps{
		Provider:     p,
		Validator:    validation.MustNew(),
		Users:        user.NewUserService(gdb, log),
		Projects:     project.NewProjectService(gdb, log),
		Applications: application.NewApplicationService(gdb, log),
		Payments:     payments,
		Messages:     message.NewMessageService(gdb, realtime.NewNotifier(hub, nil, log), log),
		Hub:          hub,
		Verifier:     tripay.NewTripayService(config.Payment{PrivateKey: callbackKey}, ""),
		HealthChecks: map[string]handlers.PingFunc{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		CORSOrigins:    "http://localhost:3000",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		Log:            log,
	})
	return &harness{t: t, app: app, db: gdb, provider: p}
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (h *harness) user(role models.Role) (*models.User, string) {
	h.t.Helper()
	u := testutil.CreateUser(h.t, h.db, role)
	tok, err := h.provider.IssueToken(context.Background(), u)
	require.NoError(h.t, err)
	return u, tok.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":            "Jane@Example.com",
		"password":         "s3cret-pass",
		"confirm_password": "s3cret-pass",
		"first_name":       "Jane",
		"last_name":        "Doe",
		"role":             "creative",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	registered := decode[models.User](t, env.Data)
	assert.Equal(t, "jane@example.com", registered.Email)
	assert.Equal(t, models.RoleCreative, registered.Role)
	assert.NotContains(t, string(env.Data), "s3cret-pass")

	status, env = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, env = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, status)
	login := decode[struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		User        models.User `json:"user"`
	}](t, env.Data)
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, registered.ID, login.User.ID)

	status, env = h.do(http.MethodGet, "/api/v1/users/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, registered.ID, decode[models.User](t, env.Data).ID)

	status, _ = h.do(http.MethodPost, "/api/v1/auth/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodGet, "/api/v1/users/me", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked token")
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name: "password mismatch",
			body: map[string]any{
				"email": "a@example.com", "password": "password-1", "confirm_password": "password-2",
				"first_name": "A", "last_name": "B", "role": "client",
			},
			field: "confirm_password",
		},
		{
			name: "admin self-registration",
			body: map[string]any{
				"email": "b@example.com", "password": "password-1", "confirm_password": "password-1",
				"first_name": "A", "last_name": "B", "role": "admin",
			},
			field: "role",
		},
		{
			name:  "missing fields",
			body:  map[string]any{"email": "c@example.com"},
			field: "body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := h.do(http.MethodPost, "/api/v1/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.Contains(t, env.Errors, tt.field)
		})
	}

	existing, _ := h.user(models.RoleClient)
	status, env := h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": existing.Email, "password": "password-1", "confirm_password": "password-1",
		"first_name": "A", "last_name": "B", "role": "client",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "email")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/v1/projects/my-projects", "/api/v1/users/me", "/api/v1/messages", "/api/v1/payments/me"} {
		status, env := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.False(t, env.Success)
	}

	status, _ := h.do(http.MethodGet, "/api/v1/no-such-route", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, tok := h.user(models.RoleClient)
	status, env := h.do(http.MethodGet, "/api/v1/no-such-route", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestHireFlow(t *testing.T) {
	h := newHarness(t)
	client, clientTok := h.user(models.RoleClient)
	_, creativeTok := h.user(models.RoleCreative)
	_, otherTok := h.user(models.RoleCreative)

	status, _ := h.do(http.MethodPost, "/api/v1/projects", creativeTok, map[string]any{
		"title": "Logo", "description": "A new logo", "category": "design",
	})
	assert.Equal(t, http.StatusForbidden, status, "creatives cannot post projects")

	status, env := h.do(http.MethodPost, "/api/v1/projects", clientTok, map[string]any{
		"title": "Logo", "description": "A new logo", "category": "design",
		"budget_min": 100, "budget_max": 500, "required_skills": []string{"branding"},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	proj := decode[models.Project](t, env.Data)
	assert.Equal(t, models.ProjectStatusActive, proj.Status)
	assert.Equal(t, client.ID, proj.ClientID)

	apply := func(tok string) models.Application {
		t.Helper()
		status, env := h.do(http.MethodPost, "/api/v1/applications", tok, map[string]any{
			"project_id": proj.ID, "cover_letter": "I can do this", "proposed_budget": 300,
		})
		require.Equal(t, http.StatusCreated, status, env.Message)
		return decode[models.Application](t, env.Data)
	}
	mine := apply(creativeTok)
	theirs := apply(otherTok)

	status, env = h.do(http.MethodPost, "/api/v1/applications", creativeTok, map[string]any{
		"project_id": proj.ID, "cover_letter": "Again",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "You have already applied to this project", env.Message)

	status, env = h.do(http.MethodGet, "/api/v1/applications/project/"+proj.ID.String(), clientTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Application](t, env.Data), 2)

	status, _ = h.do(http.MethodGet, "/api/v1/applications/project/"+proj.ID.String(), otherTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(http.MethodPut, "/api/v1/applications/"+mine.ID.String(), creativeTok, map[string]any{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, status, "creatives cannot decide")

	status, env = h.do(http.MethodPut, "/api/v1/applications/"+mine.ID.String(), clientTok, map[string]any{"status": "accepted"})
	require.Equal(t, http.StatusOK, status, env.Message)
	res := decode[application.UpdateResult](t, env.Data)
	assert.Equal(t, models.ApplicationStatusAccepted, res.Application.Status)
	require.NotNil(t, res.Project)
	assert.Equal(t, models.ProjectStatusHired, res.Project.Status)
	assert.EqualValues(t, 1, res.RejectedCount)

	status, env = h.do(http.MethodGet, "/api/v1/applications/"+theirs.ID.String(), otherTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.ApplicationStatusRejected, decode[models.Application](t, env.Data).Status)

	status, _ = h.do(http.MethodPut, "/api/v1/applications/"+theirs.ID.String(), clientTok, map[string]any{"status": "accepted"})
	assert.Equal(t, http.StatusBadRequest, status, "project already hired")

	status, env = h.do(http.MethodGet, "/api/v1/projects/my-projects", creativeTok, nil)
	require.Equal(t, http.StatusOK, status)
	hiredOn := decode[[]models.Project](t, env.Data)
	require.Len(t, hiredOn, 1)
	assert.Equal(t, proj.ID, hiredOn[0].ID)

	status, env = h.do(http.MethodGet, "/api/v1/projects?status=hired&limit=5", "", nil)
	require.Equal(t, http.StatusOK, status, "project reads are public")
	assert.Len(t, decode[[]models.Project](t, env.Data), 1)

	status, env = h.do(http.MethodGet, "/api/v1/projects/"+proj.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.ProjectStatusHired, decode[models.Project](t, env.Data).Status)
}

func TestPaymentFlow(t *testing.T) {
	h := newHarness(t)
	client, clientTok := h.user(models.RoleClient)
	creative, creativeTok := h.user(models.RoleCreative)
	_, adminTok := h.user(models.RoleAdmin)

	proj := testutil.CreateProject(t, h.db, client, models.ProjectStatusActive)
	testutil.Hire(t, h.db, proj, creative)

	status, env := h.do(http.MethodPost, "/api/v1/payments/create-intent", clientTok, map[string]any{
		"project_id": proj.ID, "creative_id": creative.ID, "amount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "amount")

	status, env = h.do(http.MethodPost, "/api/v1/payments/create-intent", clientTok, map[string]any{
		"project_id": proj.ID, "creative_id": creative.ID, "amount": 500, "milestone_description": "first draft",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	intent := decode[payment.IntentResult](t, env.Data)
	assert.Equal(t, models.PaymentStatusPending, intent.Payment.Status)
	assert.NotEmpty(t, intent.ClientSecret)

	status, _ = h.do(http.MethodPost, "/api/v1/payments/release/"+intent.Payment.ID.String(), clientTok, nil)
	assert.Equal(t, http.StatusBadRequest, status, "release before funding")

	status, env = h.do(http.MethodPost, "/api/v1/payments/confirm", clientTok, map[string]any{
		"payment_intent_id": intent.Payment.PaymentIntentID,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, models.PaymentStatusHeldInEscrow, decode[models.Payment](t, env.Data).Status)

	status, _ = h.do(http.MethodPost, "/api/v1/payments/refund/"+intent.Payment.ID.String(), clientTok, nil)
	assert.Equal(t, http.StatusForbidden, status, "refund is admin only")

	status, env = h.do(http.MethodPost, "/api/v1/payments/release/"+intent.Payment.ID.String(), clientTok, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	released := decode[models.Payment](t, env.Data)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	status, _ = h.do(http.MethodPost, "/api/v1/payments/refund/"+intent.Payment.ID.String(), adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, status, "released payments are final")

	status, env = h.do(http.MethodGet, "/api/v1/payments/earnings", creativeTok, nil)
	require.Equal(t, http.StatusOK, status)
	st := decode[wallet.Statement](t, env.Data)
	assert.EqualValues(t, 500, st.Balance)
	require.Len(t, st.Transactions, 1)

	status, env = h.do(http.MethodGet, "/api/v1/payments/project/"+proj.ID.String(), creativeTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Payment](t, env.Data), 1)
}

func TestPaymentCallback(t *testing.T) {
	h := newHarness(t)
	client, clientTok := h.user(models.RoleClient)
	creative, _ := h.user(models.RoleCreative)
	proj := testutil.CreateProject(t, h.db, client, models.ProjectStatusActive)
	testutil.Hire(t, h.db, proj, creative)

	status, env := h.do(http.MethodPost, "/api/v1/payments/create-intent", clientTok, map[string]any{
		"project_id": proj.ID, "creative_id": creative.ID, "amount": 750,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	intent := decode[payment.IntentResult](t, env.Data)

	post := func(sig string, body []byte) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Callback-Signature", sig)
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	sign := func(body []byte) string {
		m := hmac.New(sha256.New, []byte(callbackKey))
		m.Write(body)
		return hex.EncodeToString(m.Sum(nil))
	}

	body, err := json.Marshal(tripay.CallbackPayload{Reference: intent.Payment.PaymentIntentID, Status: "PAID", TotalAmount: 750})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, post("deadbeef", body))
	var pay models.Payment
	require.NoError(t, h.db.First(&pay, "id = ?", intent.Payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, pay.Status)

	assert.Equal(t, http.StatusOK, post(sign(body), body))
	assert.Equal(t, http.StatusOK, post(sign(body), body), "redelivery is accepted")
	require.NoError(t, h.db.First(&pay, "id = ?", intent.Payment.ID).Error)
	assert.Equal(t, models.PaymentStatusHeldInEscrow, pay.Status)

	unknown, err := json.Marshal(tripay.CallbackPayload{Reference: "T-unknown", Status: "PAID"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post(sign(unknown), unknown))
}

func TestMessaging(t *testing.T) {
	h := newHarness(t)
	client, clientTok := h.user(models.RoleClient)
	creative, creativeTok := h.user(models.RoleCreative)
	_, outsiderTok := h.user(models.RoleCreative)
	proj := testutil.CreateProject(t, h.db, client, models.ProjectStatusActive)
	testutil.Hire(t, h.db, proj, creative)

	status, _ := h.do(http.MethodPost, "/api/v1/messages", outsiderTok, map[string]any{
		"recipient_id": client.ID, "project_id": proj.ID, "content": "hi",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(http.MethodPost, "/api/v1/messages", clientTok, map[string]any{
		"recipient_id": uuid.New(), "content": "hi",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, env := h.do(http.MethodPost, "/api/v1/messages", clientTok, map[string]any{
		"recipient_id": creative.ID, "project_id": proj.ID, "content": "Welcome aboard",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	sent := decode[models.Message](t, env.Data)
	assert.False(t, sent.IsRead)

	status, env = h.do(http.MethodGet, "/api/v1/messages/conversations", creativeTok, nil)
	require.Equal(t, http.StatusOK, status)
	convs := decode[[]message.Conversation](t, env.Data)
	require.Len(t, convs, 1)
	assert.Equal(t, client.ID, convs[0].User.ID)
	assert.Equal(t, 1, convs[0].UnreadCount)

	status, _ = h.do(http.MethodPut, "/api/v1/messages/"+sent.ID.String()+"/read", clientTok, nil)
	assert.Equal(t, http.StatusForbidden, status, "only the recipient marks read")

	status, env = h.do(http.MethodPut, "/api/v1/messages/"+sent.ID.String()+"/read", creativeTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[models.Message](t, env.Data).IsRead)

	status, env = h.do(http.MethodGet, "/api/v1/messages?other_user_id="+client.ID.String(), creativeTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Message](t, env.Data), 1)

	status, env = h.do(http.MethodGet, "/api/v1/messages?project_id=nope", creativeTok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "project_id")
}

func TestAdminUsers(t *testing.T) {
	h := newHarness(t)
	admin, adminTok := h.user(models.RoleAdmin)
	client, clientTok := h.user(models.RoleClient)
	h.user(models.RoleCreative)

	status, _ := h.do(http.MethodGet, "/api/v1/admin/users", clientTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := h.do(http.MethodGet, "/api/v1/admin/users?role=creative", adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.User](t, env.Data), 1)

	status, _ = h.do(http.MethodPatch, "/api/v1/admin/users/"+admin.ID.String()+"/active", adminTok, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodPatch, "/api/v1/admin/users/"+client.ID.String()+"/active", adminTok, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.False(t, decode[models.User](t, env.Data).IsActive)

	status, _ = h.do(http.MethodGet, "/api/v1/users/me", clientTok, nil)
	assert.Equal(t, http.StatusForbidden, status, "deactivated users are locked out")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = h.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "go_goroutines")
}

func TestWebsocketRejectsPlainHTTP(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

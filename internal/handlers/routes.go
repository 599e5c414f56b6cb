package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/auth"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/metrics"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/middleware"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/realtime"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/application"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/message"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/payment"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/project"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/user"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

// Deps is everything the HTTP layer needs from main.
type Deps struct {
	Provider     auth.Provider
	Validator    *validation.Validator
	Users        *user.UserService
	Projects     *project.ProjectService
	Applications *application.ApplicationService
	Payments     *payment.PaymentService
	Messages     *message.MessageService
	Hub          *realtime.Hub

	// Verifier is set when the payment gateway posts callbacks.
	Verifier     CallbackVerifier
	HealthChecks map[string]PingFunc

	CORSOrigins     string
	CookieSecure    bool
	FrontendBaseURL string
	RateLimitRPS    int
	RateLimitBurst  int

	Log *logrus.Logger
}

// NewApp builds the fiber app with middleware and every route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "creative-connect",
		ErrorHandler: ErrorHandler(d.Log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))
	app.Use(middleware.RequestLogger(d.Log))
	app.Use(middleware.Metrics())

	Register(app, d)
	return app
}

// Register mounts the routes on app.
func Register(app fiber.Router, d Deps) {
	health := NewHealthHandler(d.HealthChecks, d.Log)
	app.Get("/health", health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ws := NewWSHandler(d.Provider, d.Hub, d.Log)
	app.Get("/ws", ws.Upgrade, ws.Serve())

	api := app.Group("/api/v1")

	authH := &AuthHandler{
		Provider:        d.Provider,
		Users:           d.Users,
		Validator:       d.Validator,
		Log:             d.Log,
		CookieSecure:    d.CookieSecure,
		FrontendBaseURL: d.FrontendBaseURL,
	}
	limiter := middleware.NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst, d.Log).Handler()
	api.Post("/auth/register", limiter, authH.Register)
	api.Post("/auth/login", limiter, authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", authH.GoogleStart)
	api.Get("/auth/google/callback", authH.GoogleCallback)

	payH := NewPaymentHandler(d.Payments, d.Validator, d.Verifier, d.Log)
	// called by the gateway, authenticated by signature
	api.Post("/payments/callback", payH.Callback)

	// public project reads; the guid constraint leaves /projects/my-projects
	// to the authenticated route below
	projH := NewProjectHandler(d.Projects, d.Validator)
	api.Get("/projects", projH.List)
	api.Get("/projects/:id<guid>", projH.Get)

	// Authenticate runs for every remaining /api/v1 path, so an unknown path
	// without a token answers 401 rather than 404.
	protected := api.Group("", middleware.Authenticate(d.Provider))
	client := middleware.RequireRoles(models.RoleClient)
	creative := middleware.RequireRoles(models.RoleCreative)
	admin := middleware.RequireRoles(models.RoleAdmin)

	userH := NewUserHandler(d.Users, d.Validator)
	protected.Get("/users/me", userH.Me)
	protected.Put("/users/me", userH.UpdateMe)
	protected.Get("/users/:id", userH.Get)
	protected.Get("/admin/users", admin, userH.AdminList)
	protected.Patch("/admin/users/:id/active", admin, userH.AdminSetActive)

	protected.Post("/projects", client, projH.Create)
	protected.Get("/projects/my-projects", projH.ListMine)
	protected.Put("/projects/:id", projH.Update)
	protected.Delete("/projects/:id", projH.Delete)

	appH := NewApplicationHandler(d.Applications, d.Validator)
	protected.Post("/applications", creative, appH.Create)
	protected.Get("/applications/me", creative, appH.ListMine)
	protected.Get("/applications/project/:id", client, appH.ListForProject)
	protected.Get("/applications/:id", appH.Get)
	protected.Put("/applications/:id", appH.Update)
	protected.Delete("/applications/:id", creative, appH.Delete)

	protected.Post("/payments/create-intent", client, payH.CreateIntent)
	protected.Post("/payments/confirm", client, payH.Confirm)
	protected.Post("/payments/release/:id", client, payH.Release)
	protected.Post("/payments/refund/:id", admin, payH.Refund)
	protected.Get("/payments/channels", payH.Channels)
	protected.Get("/payments/project/:id", payH.ListForProject)
	protected.Get("/payments/me", payH.ListMine)
	protected.Get("/payments/earnings", payH.Earnings)
	protected.Get("/payments/:id", payH.Get)

	msgH := NewMessageHandler(d.Messages, d.Validator)
	protected.Post("/messages", msgH.Send)
	protected.Get("/messages", msgH.List)
	protected.Get("/messages/conversations", msgH.Conversations)
	protected.Put("/messages/:id/read", msgH.MarkRead)
}

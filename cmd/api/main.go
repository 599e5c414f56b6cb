package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/auth"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/config"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/db"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/handlers"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/realtime"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/application"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/message"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/payment"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/project"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/tripay"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/user"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services/wallet"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/validation"
)

func newLogger(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := newLogger(cfg.LogLevel, cfg.LogFormat)

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := db.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	if cfg.SeedData {
		created, err := db.SeedAdmin(context.Background(), gdb, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		if err != nil {
			log.WithError(err).Fatal("seed admin")
		}
		if created {
			log.WithField("email", cfg.SeedAdminEmail).Info("admin account seeded")
		}
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.WithError(err).Fatal("database handle")
	}

	checks := map[string]handlers.PingFunc{"database": sqlDB.PingContext}
	authDeps := auth.Deps{DB: gdb, Config: cfg, Log: log}

	var (
		rdb       *redis.Client
		publisher *realtime.Publisher
	)
	if cfg.RedisAddr != "" {
		rdb = realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		log.WithField("addr", cfg.RedisAddr).Info("redis connected")

		publisher = realtime.NewPublisher(rdb)
		authDeps.Denylist = auth.NewRedisDenylist(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn("REDIS_ADDR not set: logout revocation and notification fan-out are disabled")
	}

	provider, err := auth.NewRegistry().Build(cfg.AuthProvider, authDeps)
	if err != nil {
		log.WithError(err).Fatal("auth provider")
	}

	var (
		gateway  payment.Gateway = payment.StubGateway{}
		verifier handlers.CallbackVerifier
	)
	if cfg.Payment.Gateway == config.PaymentGatewayTripay {
		tp := tripay.NewTripayService(cfg.Payment, cfg.FrontendBaseURL)
		gateway, verifier = tp, tp
	}

	hub := realtime.NewHub(log)
	notifier := realtime.NewNotifier(hub, publisher, log)

	app := handlers.NewApp(handlers.Deps{
		Provider:        provider,
		Validator:       validation.MustNew(),
		Users:           user.NewUserService(gdb, log),
		Projects:        project.NewProjectService(gdb, log),
		Applications:    application.NewApplicationService(gdb, log),
		Payments:        payment.NewPaymentService(gdb, gateway, wallet.NewWalletService(gdb), log),
		Messages:        message.NewMessageService(gdb, notifier, log),
		Hub:             hub,
		Verifier:        verifier,
		HealthChecks:    checks,
		CORSOrigins:     cfg.AllowedOrigins(),
		CookieSecure:    cfg.CookieSecure,
		FrontendBaseURL: cfg.FrontendBaseURL,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		Log:             log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.AppPort,
			"auth":     provider.Name(),
			"gateway":  cfg.Payment.Gateway,
			"database": cfg.DBDriver,
		}).Info("listening")
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = sqlDB.Close()
	log.Info("bye")
}

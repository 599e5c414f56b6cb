package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type AuthProvider string

const (
	AuthProviderJWT    AuthProvider = "jwt"
	AuthProviderGoogle AuthProvider = "google"
)

type PaymentGateway string

const (
	PaymentGatewayStub   PaymentGateway = "stub"
	PaymentGatewayTripay PaymentGateway = "tripay"
)

type Config struct {
	AppPort string `yaml:"app_port"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	AuthProvider    AuthProvider `yaml:"auth_provider"`
	JWTSecret       string       `yaml:"jwt_secret"`
	JWTExpiresMin   int          `yaml:"jwt_expires_min"`
	CookieSecure    bool         `yaml:"cookie_secure"`
	GoogleClientID  string       `yaml:"google_client_id"`
	GoogleSecret    string       `yaml:"google_client_secret"`
	GoogleRedirect  string       `yaml:"google_redirect_url"`
	FrontendBaseURL string       `yaml:"frontend_base_url"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	CORSOrigins string `yaml:"cors_origins"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`

	Payment Payment `yaml:"payment"`

	SeedData          bool   `yaml:"seed_data"`
	SeedAdminEmail    string `yaml:"seed_admin_email"`
	SeedAdminPassword string `yaml:"seed_admin_password"`
}

type Payment struct {
	Gateway      PaymentGateway `yaml:"gateway"`
	APIKey       string         `yaml:"tripay_api_key"`
	PrivateKey   string         `yaml:"tripay_private_key"`
	MerchantCode string         `yaml:"tripay_merchant_code"`
	Env          string         `yaml:"tripay_env"`
	Method       string         `yaml:"tripay_method"`
	AppBaseURL   string         `yaml:"app_base_url"`
}

func Defaults() Config {
	return Config{
		AppPort:         "8080",
		DBDriver:        "postgres",
		AuthProvider:    AuthProviderJWT,
		JWTExpiresMin:   1440,
		FrontendBaseURL: "http://localhost:3000",
		CORSOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		LogLevel:        "info",
		LogFormat:       "text",
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		Payment: Payment{
			Gateway: PaymentGatewayStub,
			Env:     "sandbox",
			Method:  "QRIS",
		},
		SeedAdminEmail: "admin@beacon-connect.com",
	}
}

// Load builds the process configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppPort = get("APP_PORT", cfg.AppPort)
	cfg.DBDriver = get("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = get("DB_DSN", cfg.DBDSN)

	cfg.AuthProvider = AuthProvider(strings.ToLower(get("AUTH_PROVIDER", string(cfg.AuthProvider))))
	cfg.JWTSecret = get("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTExpiresMin = getInt("JWT_EXPIRES_MIN", cfg.JWTExpiresMin)
	cfg.CookieSecure = getBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.GoogleClientID = get("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleSecret = get("GOOGLE_CLIENT_SECRET", cfg.GoogleSecret)
	cfg.GoogleRedirect = get("GOOGLE_REDIRECT_URL", cfg.GoogleRedirect)
	cfg.FrontendBaseURL = get("FRONTEND_BASE_URL", cfg.FrontendBaseURL)

	cfg.RedisAddr = get("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = get("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getInt("REDIS_DB", cfg.RedisDB)

	cfg.CORSOrigins = get("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = get("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = get("LOG_FORMAT", cfg.LogFormat)

	cfg.RateLimitRPS = getInt("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.Payment.Gateway = PaymentGateway(strings.ToLower(get("PAYMENT_GATEWAY", string(cfg.Payment.Gateway))))
	cfg.Payment.APIKey = get("TRIPAY_API_KEY", cfg.Payment.APIKey)
	cfg.Payment.PrivateKey = get("TRIPAY_PRIVATE_KEY", cfg.Payment.PrivateKey)
	cfg.Payment.MerchantCode = get("TRIPAY_MERCHANT_CODE", cfg.Payment.MerchantCode)
	cfg.Payment.Env = get("TRIPAY_ENV", cfg.Payment.Env)
	cfg.Payment.Method = get("TRIPAY_METHOD", cfg.Payment.Method)
	cfg.Payment.AppBaseURL = get("APP_BASE_URL", cfg.Payment.AppBaseURL)

	cfg.SeedData = getBool("SEED_DATA", cfg.SeedData)
	cfg.SeedAdminEmail = get("SEED_ADMIN_EMAIL", cfg.SeedAdminEmail)
	cfg.SeedAdminPassword = get("SEED_ADMIN_PASSWORD", cfg.SeedAdminPassword)
}

// Validate reports every problem at once instead of stopping at the first.
func (c Config) Validate() error {
	var errs []error

	if c.DBDSN == "" {
		errs = append(errs, errors.New("missing env: DB_DSN"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}

	switch c.AuthProvider {
	case AuthProviderJWT:
	case AuthProviderGoogle:
		if c.GoogleClientID == "" || c.GoogleSecret == "" || c.GoogleRedirect == "" {
			errs = append(errs, errors.New("google auth provider needs GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider))
	}
	// every provider signs its session tokens with the JWT secret
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing env: JWT_SECRET"))
	}
	if c.JWTExpiresMin <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_MIN must be positive"))
	}

	switch c.Payment.Gateway {
	case PaymentGatewayStub:
	case PaymentGatewayTripay:
		if c.Payment.APIKey == "" || c.Payment.PrivateKey == "" || c.Payment.MerchantCode == "" {
			errs = append(errs, errors.New("tripay gateway needs TRIPAY_API_KEY, TRIPAY_PRIVATE_KEY and TRIPAY_MERCHANT_CODE"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_GATEWAY %q", c.Payment.Gateway))
	}

	if c.SeedData && c.SeedAdminPassword == "" {
		errs = append(errs, errors.New("SEED_DATA needs SEED_ADMIN_PASSWORD"))
	}

	return errors.Join(errs...)
}

// AllowedOrigins splits CORS_ORIGINS into the comma list fiber's cors expects.
func (c Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

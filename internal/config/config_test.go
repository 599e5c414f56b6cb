package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DSN", "host=localhost dbname=cc")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_MIN", "60")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_PROVIDER", "JWT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 60, cfg.JWTExpiresMin)
	assert.Equal(t, AuthProviderJWT, cfg.AuthProvider)
	assert.Equal(t, PaymentGatewayStub, cfg.Payment.Gateway)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_port: "7000"
db_driver: sqlite
db_dsn: "file:cc.db"
jwt_secret: from-file
log_level: debug
payment:
  gateway: stub
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "warn", cfg.LogLevel, "env wins over file")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.DBDriver = "mysql"
	cfg.AuthProvider = "clerk"
	cfg.Payment.Gateway = PaymentGatewayTripay

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "DB_DSN")
	assert.Contains(t, msg, `unknown DB_DRIVER "mysql"`)
	assert.Contains(t, msg, `unknown AUTH_PROVIDER "clerk"`)
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "TRIPAY_API_KEY")
}

func TestValidate_GoogleNeedsCredentials(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.DBDSN = "x"
	cfg.JWTSecret = "x"
	cfg.AuthProvider = AuthProviderGoogle

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID")

	cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirect = "id", "secret", "http://localhost/cb"
	assert.NoError(t, cfg.Validate())
}

func TestAllowedOrigins(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSOrigins: " http://a.test ,, http://b.test"}
	assert.Equal(t, "http://a.test,http://b.test", cfg.AllowedOrigins())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "unit-test-secret-with-plenty-of-length-42"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ANONMAIL_JWT_SECRET", testJWTSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "anon.mail", cfg.Mail.Domain)
	assert.Equal(t, ":2525", cfg.SMTP.BindAddr)
	assert.Equal(t, int64(10*1024*1024), cfg.SMTP.MaxMessageBytes)
	assert.Equal(t, 100, cfg.SMTP.MaxConnections)
	assert.Equal(t, 50, cfg.SMTP.MaxRecipients)
	assert.Equal(t, time.Minute, cfg.SMTP.ReadTimeout)
	assert.False(t, cfg.SMTP.TLSRequired)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Database.Type)
	assert.Equal(t, "anonmail", cfg.JWT.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiry)
	assert.Equal(t, 10, cfg.RateLimit.GenerateMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.GenerateWindow)
	assert.Equal(t, 20, cfg.RateLimit.AccessMax)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.AccessWindow)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANONMAIL_JWT_SECRET", testJWTSecret)
	t.Setenv("ANONMAIL_SERVER_PORT", "9090")
	t.Setenv("ANONMAIL_MAIL_DOMAIN", "Mail.Example.COM")
	t.Setenv("ANONMAIL_SMTP_BIND_ADDR", ":25")
	t.Setenv("ANONMAIL_SMTP_READ_TIMEOUT", "2m")
	t.Setenv("ANONMAIL_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ANONMAIL_RATELIMIT_GENERATE_MAX", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	// 邮件域名统一小写
	assert.Equal(t, "mail.example.com", cfg.Mail.Domain)
	assert.Equal(t, ":25", cfg.SMTP.BindAddr)
	assert.Equal(t, 2*time.Minute, cfg.SMTP.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3, cfg.RateLimit.GenerateMax)
}

func TestLoad_RejectsDefaultJWTSecret(t *testing.T) {
	t.Setenv("ANONMAIL_JWT_SECRET", "change-me-in-production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestLoad_RejectsShortJWTSecret(t *testing.T) {
	t.Setenv("ANONMAIL_JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestLoad_RejectsBadMailDomain(t *testing.T) {
	t.Setenv("ANONMAIL_JWT_SECRET", testJWTSecret)
	t.Setenv("ANONMAIL_MAIL_DOMAIN", "localhost")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail.domain")
}

func TestLoad_RejectsBadTimeout(t *testing.T) {
	t.Setenv("ANONMAIL_JWT_SECRET", testJWTSecret)
	t.Setenv("ANONMAIL_SMTP_READ_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read_timeout")
}

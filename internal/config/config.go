package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment values. Unset or unrecognized ENVIRONMENT resolves to
// production so that dev-only code paths stay closed by default.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	// CIDR ranges whose X-Forwarded-For headers are trusted.
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	// Shared secret for verifying identity provider access tokens (HS256).
	ProviderJWTSecret string
	// 32-byte AES-256 key for admin TOTP secret storage.
	TOTPEncryptionKey string
	CleanupInterval   time.Duration
	// BootstrapAdminEmail promotes an already-provisioned account to
	// system_admin at startup. Empty disables the bootstrap.
	BootstrapAdminEmail string
}

type RateLimitConfig struct {
	// Requests allowed per window for anonymous callers.
	BaseLimit int
	Window    time.Duration
	// Authenticated callers get BaseLimit * AuthenticatedMultiplier.
	AuthenticatedMultiplier int
}

type EmailConfig struct {
	AWSRegion         string
	FromAddress       string
	InvitationURLBase string
	InvitationExpiry  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	providerSecret := getEnv("PROVIDER_JWT_SECRET", "")
	if providerSecret == "" {
		return nil, fmt.Errorf("PROVIDER_JWT_SECRET is required")
	}

	env := normalizeEnvironment(os.Getenv("ENVIRONMENT"))

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "compia"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseCSV(getEnv("TRUSTED_PROXY_CIDRS", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			ProviderJWTSecret:   providerSecret,
			TOTPEncryptionKey:   getEnv("TOTP_ENCRYPTION_KEY", ""),
			CleanupInterval:     getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			BootstrapAdminEmail: getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		},
		RateLimit: RateLimitConfig{
			BaseLimit:               getEnvAsInt("RATE_LIMIT_BASE", 60),
			Window:                  getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			AuthenticatedMultiplier: getEnvAsInt("RATE_LIMIT_AUTH_MULTIPLIER", 5),
		},
		Email: EmailConfig{
			AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
			FromAddress:       getEnv("EMAIL_FROM_ADDRESS", "no-reply@compia.app"),
			InvitationURLBase: getEnv("INVITATION_URL_BASE", "https://app.compia.app"),
			InvitationExpiry:  getEnvAsDuration("INVITATION_EXPIRY", 7*24*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateProviderSecret(providerSecret, env); err != nil {
		return nil, err
	}

	// AES-256-GCM requires exactly 32 key bytes; surface a bad key here
	// instead of at TOTP manager construction.
	if len(cfg.Auth.TOTPEncryptionKey) != 32 {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must be exactly 32 bytes (got %d)", len(cfg.Auth.TOTPEncryptionKey))
	}

	if cfg.RateLimit.BaseLimit < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_BASE must be at least 1")
	}
	if cfg.RateLimit.AuthenticatedMultiplier < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_AUTH_MULTIPLIER must be at least 1")
	}

	return cfg, nil
}

// normalizeEnvironment maps the ENVIRONMENT variable to a known value.
// Anything other than an explicit "development" is treated as production:
// dev-only auth paths must never open up because a flag was missing or
// mistyped.
func normalizeEnvironment(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), EnvDevelopment) {
		return EnvDevelopment
	}
	return EnvProduction
}

// validateProviderSecret enforces minimum strength for the provider secret
func validateProviderSecret(secret, env string) error {
	minLength := 16
	if env == EnvProduction {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("PROVIDER_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("PROVIDER_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == EnvProduction {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}

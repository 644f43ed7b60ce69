// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// them via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level runtime configuration.
type Config struct {
	Addr   string
	Server Server
	Store  Store
	Redis  RedisConfig
	Kafka  KafkaConfig
	Auth   Auth
	Admin  Admin
}

// Server captures HTTP-level settings.
type Server struct {
	ReadHeaderTimeout time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	CookieDomain      string
	CookieSecure      bool
}

// Store selects and configures the persistence backend.
// Backend is one of "memory", "postgres".
type Store struct {
	Backend     string
	PostgresURL string
}

// RedisConfig configures the optional Redis session backend. An empty URL
// leaves Redis disabled and sessions fall back to the primary store backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox relay. Empty brokers disable
// publishing; outbox rows then stay local.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Auth carries citizen-side credential settings.
type Auth struct {
	// CredentialKey verifies the HMAC-signed JWT minted by the external OTP
	// verification provider.
	CredentialKey string
	SessionTTL    time.Duration
	LanguageTTL   time.Duration
}

// Admin carries staff-side settings.
type Admin struct {
	SessionTTL time.Duration
	BcryptCost int
	// SeedEmail/SeedPassword bootstrap a super_admin on an empty store.
	SeedEmail    string
	SeedPassword string
}

// FromEnv assembles a Config from the environment.
func FromEnv() Config {
	return Config{
		Addr: envOr("SEVASETU_ADDR", ":8080"),
		Server: Server{
			ReadHeaderTimeout: envDuration("SEVASETU_READ_HEADER_TIMEOUT", 5*time.Second),
			RequestTimeout:    envDuration("SEVASETU_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout:   envDuration("SEVASETU_SHUTDOWN_TIMEOUT", 10*time.Second),
			CookieDomain:      os.Getenv("SEVASETU_COOKIE_DOMAIN"),
			CookieSecure:      os.Getenv("SEVASETU_COOKIE_SECURE") == "true",
		},
		Store: Store{
			Backend:     envOr("SEVASETU_STORE_BACKEND", "memory"),
			PostgresURL: os.Getenv("SEVASETU_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("SEVASETU_REDIS_URL"),
			PoolSize:     envInt("SEVASETU_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SEVASETU_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("SEVASETU_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SEVASETU_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SEVASETU_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("SEVASETU_KAFKA_BROKERS")),
			Topic:   envOr("SEVASETU_AUDIT_TOPIC", "audit.status-events"),
		},
		Auth: Auth{
			// Development default; must be overridden in production.
			CredentialKey: envOr("SEVASETU_CREDENTIAL_KEY", "dev-secret-key-change-in-production"),
			SessionTTL:    envDuration("SEVASETU_SESSION_TTL", 30*24*time.Hour),
			LanguageTTL:   envDuration("SEVASETU_LANGUAGE_TTL", 365*24*time.Hour),
		},
		Admin: Admin{
			SessionTTL:   envDuration("SEVASETU_ADMIN_SESSION_TTL", 24*time.Hour),
			BcryptCost:   envInt("SEVASETU_BCRYPT_COST", 10),
			SeedEmail:    os.Getenv("SEVASETU_ADMIN_SEED_EMAIL"),
			SeedPassword: os.Getenv("SEVASETU_ADMIN_SEED_PASSWORD"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

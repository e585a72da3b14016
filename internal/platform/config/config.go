package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server needs from the environment so main
// stays lean. Storage backends are optional: with no Postgres DSN the
// catalogue runs in memory, with no Redis URL sessions run in memory, with no
// Kafka brokers audit events stay on the in-process sink.
type Config struct {
	Addr string

	PostgresDSN string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	AdminJWTKey string

	// SessionIdleTimeout is the inactivity window after which a session is
	// swept and its context erased. Policy default, explicitly overridable.
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration

	// AlternativesLimit caps findAlternatives results.
	AlternativesLimit int
	// ConfidenceFloor is the minimum confidence reported for schemes with at
	// least one known criterion.
	ConfidenceFloor float64
	// BenefitPriority overrides the eligible-result tie-break order. Empty
	// means the built-in financial > subsidy > loan > service order.
	BenefitPriority []string
}

// FromEnv builds a Config from environment variables, loading a local .env
// first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               envOr("SAHAYA_ADDR", ":8080"),
		PostgresDSN:        os.Getenv("SAHAYA_POSTGRES_DSN"),
		RedisURL:           os.Getenv("SAHAYA_REDIS_URL"),
		KafkaTopic:         envOr("SAHAYA_KAFKA_AUDIT_TOPIC", "sahaya.audit"),
		AdminJWTKey:        envOr("SAHAYA_ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),
		SessionIdleTimeout: envDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SweepInterval:      envDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		AlternativesLimit:  envInt("ALTERNATIVES_LIMIT", 3),
		ConfidenceFloor:    envFloat("CONFIDENCE_FLOOR", 0),
	}
	if brokers := os.Getenv("SAHAYA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	if priority := os.Getenv("BENEFIT_PRIORITY"); priority != "" {
		cfg.BenefitPriority = splitAndTrim(priority)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			return f
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

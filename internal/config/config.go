package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultImageWebhookURL = "https://n8n-n8n.zz3ost.easypanel.host/webhook/generate-media"

type Config struct {
	Addr           string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	JWTSecret      string
	DemoEmail      string
	DemoPassword   string
	LogLevel       string
	MetricsEnabled bool
	CORSOrigins    []string

	InitialCredits  int64
	Provider        string
	ImageWebhookURL string
	VideoWebhookURL string
	WebhookTimeout  time.Duration

	TextDelay    time.Duration
	PaymentDelay time.Duration
	PublishDelay time.Duration

	GenerationRPM   int
	GenerationBurst int
}

var ErrInvalid = errors.New("invalid configuration")

// Load reads the env files given, then the environment. With no files it
// tries ./.env and ignores its absence; a file named explicitly must exist.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		Addr:           env("STUDIO_SERVER_ADDR", ":8080"),
		AccessTTL:      envDuration("STUDIO_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:     envDuration("STUDIO_REFRESH_TTL", 14*24*time.Hour),
		JWTSecret:      env("STUDIO_JWT_SECRET", "dev-change-me"),
		DemoEmail:      env("STUDIO_DEMO_EMAIL", "demo@studio.local"),
		DemoPassword:   env("STUDIO_DEMO_PASSWORD", "demo123456"),
		LogLevel:       env("STUDIO_LOG_LEVEL", "info"),
		MetricsEnabled: envBool("STUDIO_METRICS_ENABLED", true),
		CORSOrigins:    envList("STUDIO_CORS_ORIGINS", []string{"*"}),

		InitialCredits:  envInt64("STUDIO_INITIAL_CREDITS", 100),
		Provider:        strings.ToLower(env("STUDIO_PROVIDER", "webhook")),
		ImageWebhookURL: envAllowEmpty("STUDIO_IMAGE_WEBHOOK_URL", DefaultImageWebhookURL),
		VideoWebhookURL: envAllowEmpty("STUDIO_VIDEO_WEBHOOK_URL", ""),
		WebhookTimeout:  envDuration("STUDIO_WEBHOOK_TIMEOUT", 0),

		TextDelay:    envDuration("STUDIO_TEXT_DELAY", 2*time.Second),
		PaymentDelay: envDuration("STUDIO_PAYMENT_DELAY", 1500*time.Millisecond),
		PublishDelay: envDuration("STUDIO_PUBLISH_DELAY", 2*time.Second),

		GenerationRPM:   envInt("STUDIO_GENERATION_RPM", 30),
		GenerationBurst: envInt("STUDIO_GENERATION_BURST", 5),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.InitialCredits < 0 {
		return fmt.Errorf("%w: STUDIO_INITIAL_CREDITS must not be negative, got %d", ErrInvalid, c.InitialCredits)
	}
	if c.WebhookTimeout < 0 {
		return fmt.Errorf("%w: STUDIO_WEBHOOK_TIMEOUT must not be negative, got %s", ErrInvalid, c.WebhookTimeout)
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envAllowEmpty lets an operator clear a default by exporting the key with an empty value.
func envAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

// envList splits a comma separated value; an empty value disables the list.
func envList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

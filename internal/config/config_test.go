package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, int64(100), cfg.InitialCredits)
	assert.Equal(t, "webhook", cfg.Provider)
	assert.Equal(t, DefaultImageWebhookURL, cfg.ImageWebhookURL)
	assert.Empty(t, cfg.VideoWebhookURL)
	assert.Zero(t, cfg.WebhookTimeout)
	assert.Equal(t, 2*time.Second, cfg.TextDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.PaymentDelay)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STUDIO_SERVER_ADDR", ":9090")
	t.Setenv("STUDIO_INITIAL_CREDITS", "4")
	t.Setenv("STUDIO_PROVIDER", "MOCK")
	t.Setenv("STUDIO_IMAGE_WEBHOOK_URL", "")
	t.Setenv("STUDIO_PAYMENT_DELAY", "10ms")
	t.Setenv("STUDIO_METRICS_ENABLED", "false")
	t.Setenv("STUDIO_GENERATION_RPM", "not-a-number")
	t.Setenv("STUDIO_CORS_ORIGINS", " https://studio.example.com, ,http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, int64(4), cfg.InitialCredits)
	assert.Equal(t, "mock", cfg.Provider)
	assert.Empty(t, cfg.ImageWebhookURL)
	assert.Equal(t, 10*time.Millisecond, cfg.PaymentDelay)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 30, cfg.GenerationRPM)
	assert.Equal(t, []string{"https://studio.example.com", "http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.env")
	require.NoError(t, os.WriteFile(path, []byte("STUDIO_VIDEO_WEBHOOK_URL=https://hooks.example/video\n"), 0o600))
	// godotenv never overrides variables that are already set.
	os.Unsetenv("STUDIO_VIDEO_WEBHOOK_URL")
	t.Cleanup(func() { os.Unsetenv("STUDIO_VIDEO_WEBHOOK_URL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example/video", cfg.VideoWebhookURL)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.env")
}

func TestLoadRejectsNegativeInitialCredits(t *testing.T) {
	t.Setenv("STUDIO_INITIAL_CREDITS", "-5")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalid)
}

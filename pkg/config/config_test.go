package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_QueueConfig(t *testing.T) {
	os.Setenv("QUEUE_TIMEZONE", "Europe/London")
	os.Setenv("QUEUE_CONSULTATION_MINUTES", "15")
	os.Setenv("QUEUE_POLL_INTERVAL", "45")
	defer func() {
		os.Unsetenv("QUEUE_TIMEZONE")
		os.Unsetenv("QUEUE_CONSULTATION_MINUTES")
		os.Unsetenv("QUEUE_POLL_INTERVAL")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/London", cfg.Queue.Timezone)
	assert.Equal(t, 15*time.Minute, cfg.Queue.ConsultationDuration())
	assert.Equal(t, 45*time.Second, cfg.Queue.PollInterval)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("QUEUE_TIMEZONE")
	os.Unsetenv("QUEUE_CONSULTATION_MINUTES")
	os.Unsetenv("QUEUE_POLL_INTERVAL")
	os.Unsetenv("BACKEND_API_URL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Asia/Kolkata", cfg.Queue.Timezone)
	assert.Equal(t, 10*time.Minute, cfg.Queue.ConsultationDuration())
	assert.Equal(t, 30*time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, time.Second, cfg.Queue.ClockTick)
	assert.Equal(t, "http://localhost:5000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout())
}

func TestLoad_RejectsNonPositiveConsultation(t *testing.T) {
	os.Setenv("QUEUE_CONSULTATION_MINUTES", "0")
	defer os.Unsetenv("QUEUE_CONSULTATION_MINUTES")

	_, err := Load()
	assert.Error(t, err)
}

func TestQueueConfig_Location(t *testing.T) {
	t.Run("unknown zone falls back to +05:30", func(t *testing.T) {
		q := QueueConfig{Timezone: "Not/AZone"}
		loc := q.Location()

		_, offset := time.Date(2025, 1, 20, 10, 0, 0, 0, loc).Zone()
		assert.Equal(t, 19800, offset)
	})

	t.Run("UTC resolves", func(t *testing.T) {
		q := QueueConfig{Timezone: "UTC"}
		assert.Equal(t, time.UTC.String(), q.Location().String())
	})
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2m")
	defer os.Unsetenv("TEST_DURATION")
	assert.Equal(t, 2*time.Minute, getEnvAsDuration("TEST_DURATION", time.Second))

	os.Setenv("TEST_DURATION", "garbage")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
}

func TestLoad_ServerAndAuth(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://reception.example.org, ,https://lobby.example.org ")
	t.Setenv("JWT_ACCESS_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://reception.example.org", "https://lobby.example.org"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_AllowedOriginsDefault(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("JWT_ACCESS_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

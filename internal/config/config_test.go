package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RING_TIMEOUT", "")

	cfg := LoadFromEnv()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 3*time.Minute, cfg.RingTimeout)
	assert.NotEmpty(t, cfg.GreetingURL)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("RING_TIMEOUT", "45")
	t.Setenv("STREAM_URL", "http://stream.example.org/live")
	t.Setenv("PUBLIC_HOST", "relay.example.org")

	cfg := LoadFromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.RingTimeout)
	assert.Equal(t, "http://stream.example.org/live", cfg.StreamURL)
	assert.Equal(t, "relay.example.org", cfg.PublicHost)
}

func TestLoadFromEnvBadTimeoutFallsBack(t *testing.T) {
	t.Setenv("RING_TIMEOUT", "soon")
	cfg := LoadFromEnv()
	assert.Equal(t, 3*time.Minute, cfg.RingTimeout)
}

func TestValidateRequiresTwilioCredentials(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.TwilioAccountSID = "AC123"
	require.Error(t, cfg.Validate())

	cfg.TwilioAuthToken = "token"
	require.NoError(t, cfg.Validate())
}

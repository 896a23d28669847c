package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 100.0, cfg.CheckIn.GeofenceRadius)
	assert.Equal(t, 5*time.Minute, cfg.CheckIn.QRTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.CheckIn.EarlyWindow)
	assert.Equal(t, cfg.JWT.Secret, cfg.CheckIn.QRSecret)
	assert.Equal(t, "ecopulse", cfg.Events.BroadcastPrefix)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEOFENCE_RADIUS_METERS", "250")
	t.Setenv("QR_SECRET", "qr-secret")
	t.Setenv("CHECKIN_EARLY_WINDOW", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.CheckIn.GeofenceRadius)
	assert.Equal(t, "qr-secret", cfg.CheckIn.QRSecret)
	assert.Equal(t, 30*time.Minute, cfg.CheckIn.EarlyWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

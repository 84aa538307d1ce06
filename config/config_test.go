package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/jornada_test?sslmode=disable")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("DEVICE_NAME", "")
	t.Setenv("CORS_ORIGIN", "")
	t.Setenv("POINTER_POLL", "")
	t.Setenv("MATCH_POLL", "")
	t.Setenv("LIVE_POLL", "")
	t.Setenv("LIVE_STALE_AFTER", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, 5*time.Second, cfg.PointerPoll)
	assert.Equal(t, 5*time.Second, cfg.MatchPoll)
	assert.Equal(t, 2*time.Second, cfg.LivePoll)
	assert.Equal(t, 2*time.Hour, cfg.LiveStaleAfter)
	assert.NotEmpty(t, cfg.DeviceName, "falls back to the hostname")
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("DEVICE_NAME", "mesa-3")
	t.Setenv("LIVE_POLL", "500ms")
	t.Setenv("LIVE_STALE_AFTER", "45m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.ServerPort)
	assert.Equal(t, "mesa-3", cfg.DeviceName)
	assert.Equal(t, 500*time.Millisecond, cfg.LivePoll)
	assert.Equal(t, 45*time.Minute, cfg.LiveStaleAfter)
}

func TestLoad_InvalidPort(t *testing.T) {
	setBaseEnv(t)

	t.Setenv("SERVER_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "70000")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBaseEnv(t)

	t.Setenv("POINTER_POLL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("POINTER_POLL", "-2s")
	_, err = Load()
	assert.Error(t, err)
}

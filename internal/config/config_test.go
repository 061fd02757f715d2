package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/ems-console/internal/config"
	"github.com/stretchr/testify/require"
)

func TestClientDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	config.ResetOverlay()

	cfg := config.New()
	require.Equal(t, "http://localhost:5050", cfg.GetAPIBaseURL())
	require.Equal(t, 15*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, "/auth/login", cfg.GetLoginPath())
	require.Equal(t, "/auth/register", cfg.GetRegisterPath())
	require.Equal(t, "/auth/refresh", cfg.GetRefreshPath())
	require.Equal(t, "/user/me", cfg.GetUserMePath())
	require.Equal(t, "EMS Console", cfg.GetAppName())
}

func TestEnvironmentOverrides(t *testing.T) {
	config.ResetOverlay()

	t.Run("base url loses trailing slash", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "https://api.example.com/v1/")
		require.Equal(t, "https://api.example.com/v1", config.New().GetAPIBaseURL())
	})

	t.Run("timeout parses durations", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "3s")
		require.Equal(t, 3*time.Second, config.New().GetRequestTimeout())
	})

	t.Run("bad timeout falls back", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "soon")
		require.Equal(t, 15*time.Second, config.New().GetRequestTimeout())
	})

	t.Run("log level is lower cased", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "DEBUG")
		require.Equal(t, "debug", config.New().GetLogLevel())
	})
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("AUTH_REFRESH_PATH", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("API_BASE_URL: https://overlay.example.com\nAUTH_REFRESH_PATH: /session/refresh\n"), 0o600))

	require.NoError(t, config.LoadFile(path))
	t.Cleanup(config.ResetOverlay)

	cfg := config.New()
	require.Equal(t, "https://overlay.example.com", cfg.GetAPIBaseURL())
	require.Equal(t, "/session/refresh", cfg.GetRefreshPath())

	// The process environment wins over the overlay
	t.Setenv("API_BASE_URL", "https://env.example.com")
	require.Equal(t, "https://env.example.com", cfg.GetAPIBaseURL())
}

func TestLoadFileErrors(t *testing.T) {
	require.Error(t, config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))
	require.Error(t, config.LoadFile(path))
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("USER_ME_PATH", "")
	os.Unsetenv("USER_ME_PATH")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("USER_ME_PATH=/me\n"), 0o600))

	require.NoError(t, config.Load(filepath.Join(t.TempDir(), "absent.env"), path))
	require.Equal(t, "/me", config.New().GetUserMePath())
}

func TestStaticDefaults(t *testing.T) {
	cfg := config.Static{BaseURL: "http://127.0.0.1:9000/"}
	require.Equal(t, "http://127.0.0.1:9000", cfg.GetAPIBaseURL())
	require.Equal(t, 15*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, "/auth/refresh", cfg.GetRefreshPath())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopairs/domain/screen"
	"gopairs/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"GOPAIRS_CONFIG", "SCREEN_INTERCEPT", "SCREEN_SIG_LEVEL", "SCREEN_TOP_N",
	"SCREEN_WORKERS", "SCREEN_POLICY", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	"LOG_DIR", "PORT", "DATABASE_URL", "DB_MAX_OPEN_CONNS", "PPROF_PORT", "PPROF_ENABLED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, screen.DefaultCointegrationOptions(), cfg.Screening.CointegrationOptions())
	assert.Equal(t, screen.DefaultDistanceOptions(), cfg.Screening.DistanceOptions())
	assert.Equal(t, screen.PolicySkip, cfg.Screening.SkipPolicy())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREEN_INTERCEPT", "false")
	t.Setenv("SCREEN_SIG_LEVEL", "0.05")
	t.Setenv("SCREEN_TOP_N", "3")
	t.Setenv("SCREEN_WORKERS", "4")
	t.Setenv("SCREEN_POLICY", "ABORT")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://localhost/gopairs?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Screening.Intercept)
	assert.Equal(t, 0.05, cfg.Screening.SigLevel)
	assert.Equal(t, 3, cfg.Screening.TopN)
	assert.Equal(t, 4, cfg.Screening.Workers)
	assert.Equal(t, screen.PolicyAbort, cfg.Screening.SkipPolicy())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Database.Enabled())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gopairs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
screening:
  intercept: false
  sig_level: 0.02
  top_n: 5
server:
  port: "9090"
logging:
  format: json
`), 0o644))
	t.Setenv("GOPAIRS_CONFIG", path)
	t.Setenv("SCREEN_TOP_N", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Screening.Intercept)
	assert.Equal(t, 0.02, cfg.Screening.SigLevel)
	assert.Equal(t, 7, cfg.Screening.TopN)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"sig level too high", "SCREEN_SIG_LEVEL", "1", "SigLevel"},
		{"non-positive top n", "SCREEN_TOP_N", "0", "TopN"},
		{"negative workers", "SCREEN_WORKERS", "-2", "Workers"},
		{"unknown policy", "SCREEN_POLICY", "retry", "Policy"},
		{"bad log level", "LOG_LEVEL", "loud", "Level"},
		{"non-numeric port", "PORT", "http", "Port"},
		{"non-numeric pprof port", "PPROF_PORT", "debug", "Profiling.Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOPAIRS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("screening: [1, 2"), 0o644))
	t.Setenv("GOPAIRS_CONFIG", path)
	_, err = Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

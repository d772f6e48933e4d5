package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/coecms/cmorph-mirror/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("RDAPSWD", "secret")
	t.Setenv("AUSREFDIR", "/tmp/refdata")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "https://rda.ucar.edu/cgi-bin/login", cfg.LoginURL)
	assert.Equal(t, "https://rda.ucar.edu/data/ds502.2/", cfg.BaseURL)
	assert.Equal(t, filepath.Join("/tmp/refdata", "cmorph", "data"), cfg.DataDir())
	assert.Equal(t, filepath.Join("/tmp/refdata", "cmorph", "code", "update_log.txt"), cfg.UpdateLogPath())
	assert.Equal(t, filepath.Join("/tmp/refdata", "cmorph", "code", "fetch_history.db"), cfg.HistoryDBPath())
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	// t.Setenv registers the restore; Unsetenv makes the var truly absent
	t.Setenv("RDAPSWD", "placeholder")
	require.NoError(t, os.Unsetenv("RDAPSWD"))

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestHistoryDBPath_Override(t *testing.T) {
	t.Setenv("RDAPSWD", "secret")
	t.Setenv("DB_PATH", "/elsewhere/history.db")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/history.db", cfg.HistoryDBPath())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &config.Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}

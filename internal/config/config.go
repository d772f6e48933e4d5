package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	Password string `envconfig:"RDAPSWD" required:"true"`
	DataRoot string `envconfig:"AUSREFDIR" default:"/g/data/ia39/aus-ref-clim-data-nci"`
	Operator string `envconfig:"USER"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	LoginURL string `envconfig:"RDA_LOGIN_URL" default:"https://rda.ucar.edu/cgi-bin/login"`
	BaseURL  string `envconfig:"RDA_BASE_URL" default:"https://rda.ucar.edu/data/ds502.2/"`

	DBPath     string `envconfig:"DB_PATH"`
	WebhookURL string `envconfig:"WEBHOOK_URL"`

	Telemetry struct {
		Enabled  bool   `split_words:"true"`
		Endpoint string `split_words:"true" default:"localhost:4317"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

// DataDir is where the dataset files land. The "cmorph" segment belongs to
// the local DRS, not to the remote layout.
func (c *Config) DataDir() string {
	return filepath.Join(c.DataRoot, "cmorph", "data")
}

// CodeDir holds the run artifacts: the update log and the history database.
func (c *Config) CodeDir() string {
	return filepath.Join(c.DataRoot, "cmorph", "code")
}

// UpdateLogPath is the append-only textual log of every run.
func (c *Config) UpdateLogPath() string {
	return filepath.Join(c.CodeDir(), "update_log.txt")
}

// HistoryDBPath resolves the sqlite history location, honoring DB_PATH.
func (c *Config) HistoryDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	return filepath.Join(c.CodeDir(), "fetch_history.db")
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads path (YAML) when it exists and overlays environment variables.
// An empty path or a missing file falls back to environment and defaults only.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("config: read %q: %w", path, err)
			}
			return finalize(&cfg)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: stat %q: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	return finalize(&cfg)
}

func finalize(cfg *AppConfig) (*AppConfig, error) {
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *AppConfig) error {
	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("db_driver %q unknown: want sqlite|postgres", cfg.DBDriver)
	}
	if strings.TrimSpace(cfg.DBURL) == "" {
		return errors.New("db_url must not be empty")
	}
	if cfg.Incidents.MaxRecentCount < 0 || cfg.Incidents.MaxRecentCount > MaxRecentCountLimit {
		return fmt.Errorf("incidents.max_recent_count %d out of range: want 1..%d", cfg.Incidents.MaxRecentCount, MaxRecentCountLimit)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q unknown: want text|json", cfg.Log.Format)
	}
	return nil
}

// Usage returns the env variable help text rendered by cleanenv.
func Usage() string {
	var cfg AppConfig
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

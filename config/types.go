package config

import (
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// MaxRecentCountLimit is the largest count accepted by /incidents/recent.
	MaxRecentCountLimit = 50
)

type AppConfig struct {
	DBDriver   string          `yaml:"db_driver" env:"STATUS_DB_DRIVER" env-default:"sqlite"`
	DBURL      string          `yaml:"db_url" env:"DATABASE_URL" env-default:"incidents.db"`
	ListenAddr string          `yaml:"listen_addr" env:"STATUS_LISTEN_ADDR" env-default:"0.0.0.0:8000"`
	AppEnv     string          `yaml:"app_env" env:"STATUS_APP_ENV"`
	Version    string          `yaml:"version" env:"STATUS_VERSION" env-default:"0.1.0"`
	Log        LogConfig       `yaml:"log"`
	HTTP       HTTPConfig      `yaml:"http"`
	CORS       CORSConfig      `yaml:"cors"`
	DB         DBConfig        `yaml:"db"`
	Incidents  IncidentsConfig `yaml:"incidents"`
	Generator  GeneratorConfig `yaml:"generator"`
	Stream     StreamConfig    `yaml:"stream"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"STATUS_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"STATUS_LOG_FORMAT" env-default:"text"`
}

type HTTPConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"STATUS_HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"STATUS_HTTP_WRITE_TIMEOUT" env-default:"30s"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"STATUS_HTTP_MAX_BODY_BYTES" env-default:"65536"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"STATUS_CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

type DBConfig struct {
	ConnectAttempts uint          `yaml:"connect_attempts" env:"STATUS_DB_CONNECT_ATTEMPTS" env-default:"5"`
	ConnectInterval time.Duration `yaml:"connect_interval" env:"STATUS_DB_CONNECT_INTERVAL" env-default:"2s"`
}

type IncidentsConfig struct {
	// AllowedStates restricts previous_state/current_state labels. Empty accepts any label.
	AllowedStates  []string `yaml:"allowed_states" env:"STATUS_INCIDENTS_ALLOWED_STATES" env-separator:","`
	MaxRecentCount int      `yaml:"max_recent_count" env:"STATUS_INCIDENTS_MAX_RECENT_COUNT" env-default:"50"`
	// BoardCacheTTL > 0 enables the status-board cache. Only creates made by this
	// process invalidate it, so leave it off when other writers share the database.
	BoardCacheTTL time.Duration `yaml:"board_cache_ttl" env:"STATUS_INCIDENTS_BOARD_CACHE_TTL"`
}

// Bool switches are phrased as Disabled so a false YAML value is never
// replaced by an env-default.
type GeneratorConfig struct {
	Disabled bool   `yaml:"disabled" env:"STATUS_GENERATOR_DISABLED"`
	Schedule string `yaml:"schedule" env:"STATUS_GENERATOR_SCHEDULE"`
}

type StreamConfig struct {
	Disabled     bool          `yaml:"disabled" env:"STATUS_STREAM_DISABLED"`
	PingInterval time.Duration `yaml:"ping_interval" env:"STATUS_STREAM_PING_INTERVAL" env-default:"54s"`
}

func (c *AppConfig) IsPostgres() bool {
	if c == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.DBDriver), DriverPostgres)
}

// StateAllowed reports whether label passes the configured allow-list.
func (c IncidentsConfig) StateAllowed(label string) bool {
	if len(c.AllowedStates) == 0 {
		return true
	}
	for _, s := range c.AllowedStates {
		if strings.EqualFold(strings.TrimSpace(s), label) {
			return true
		}
	}
	return false
}

func (c IncidentsConfig) EffectiveMaxRecentCount() int {
	if c.MaxRecentCount <= 0 || c.MaxRecentCount > MaxRecentCountLimit {
		return MaxRecentCountLimit
	}
	return c.MaxRecentCount
}

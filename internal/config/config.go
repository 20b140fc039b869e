// Package config loads movierank settings from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/movierank/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Sessions SessionsConfig `koanf:"sessions"`
	Search   SearchConfig   `koanf:"search"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	TemplateDir     string        `koanf:"template_dir" validate:"required"`
	StaticDir       string        `koanf:"static_dir" validate:"required"`
	// DefaultUser is shown when a request names no user.
	DefaultUser string `koanf:"default_user" validate:"required,max=50"`
}

type DatabaseConfig struct {
	Type     string `koanf:"type" validate:"oneof=sqlite postgres"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	// URL, when set, is used as the Postgres DSN instead of the discrete fields.
	URL            string `koanf:"url"`
	SQLitePath     string `koanf:"sqlite_path"`
	MigrationsPath string `koanf:"migrations_path"`
}

type SessionsConfig struct {
	Store         string        `koanf:"store" validate:"oneof=memory redis"`
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Store redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"min=0"`
}

type SearchConfig struct {
	TMDbAPIKey         string        `koanf:"tmdb_api_key"`
	TMDbBaseURL        string        `koanf:"tmdb_base_url" validate:"required,url"`
	GoogleSearchAPIKey string        `koanf:"google_search_api_key"`
	GoogleCSEID        string        `koanf:"google_cse_id" validate:"required_with=GoogleSearchAPIKey"`
	Timeout            time.Duration `koanf:"timeout" validate:"gt=0"`
}

type SecurityConfig struct {
	// CORSOrigins lists cross-origin callers. Empty means same-origin only;
	// "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			TemplateDir:     "./web/templates",
			StaticDir:       "./web/static",
			DefaultUser:     "Jack",
		},
		Database: DatabaseConfig{
			Type:           "sqlite",
			Host:           "localhost",
			Port:           5432,
			User:           "movierank",
			Password:       "movierank_dev",
			Name:           "movierank",
			SQLitePath:     "./movierank.db",
			MigrationsPath: "./migrations",
		},
		Sessions: SessionsConfig{
			Store:         "memory",
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
			RedisAddr:     "localhost:6379",
		},
		Search: SearchConfig{
			TMDbBaseURL: "https://api.themoviedb.org/3",
			Timeout:     10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the first config file
// found, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitCommaList turns a comma separated env value into a string slice.
func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

var envMappings = map[string]string{
	"listen_host":           "server.host",
	"port":                  "server.port",
	"template_dir":          "server.template_dir",
	"static_dir":            "server.static_dir",
	"default_user":          "server.default_user",
	"shutdown_timeout":      "server.shutdown_timeout",
	"db_type":               "database.type",
	"db_host":               "database.host",
	"db_port":               "database.port",
	"db_user":               "database.user",
	"db_password":           "database.password",
	"db_name":               "database.name",
	"db_path":               "database.sqlite_path",
	"database_url":          "database.url",
	"migrations_path":       "database.migrations_path",
	"session_store":         "sessions.store",
	"session_ttl":           "sessions.ttl",
	"session_sweep":         "sessions.sweep_interval",
	"redis_addr":            "sessions.redis_addr",
	"redis_password":        "sessions.redis_password",
	"redis_db":              "sessions.redis_db",
	"tmdb_api_key":          "search.tmdb_api_key",
	"tmdb_base_url":         "search.tmdb_base_url",
	"google_search_api_key": "search.google_search_api_key",
	"google_cse_id":         "search.google_cse_id",
	"search_timeout":        "search.timeout",
	"cors_origins":          "security.cors_origins",
	"rate_limit_requests":   "security.rate_limit_requests",
	"rate_limit_window":     "security.rate_limit_window",
	"disable_rate_limit":    "security.rate_limit_disabled",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_caller":            "logging.caller",
}

// envTransformFunc maps known environment variables onto config paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Database.Type == "sqlite" && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required for sqlite")
	}
	if c.Database.Type == "postgres" && c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("database.host or database.url is required for postgres")
	}
	return nil
}

// TitleLookupEnabled reports whether any title lookup provider is configured.
func (c *Config) TitleLookupEnabled() bool {
	return c.Search.TMDbAPIKey != "" || c.Search.GoogleSearchAPIKey != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

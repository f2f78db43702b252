package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/xaenox/brawl-guard/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config is read once at startup and passed by pointer to the components
// that need it. Nothing mutates it after LoadConfig returns.
type Config struct {
	Telegram   TelegramConfig
	OwnerID    int64
	GroupID    int64
	Location   *time.Location
	Database   DatabaseConfig
	Classifier ClassifierConfig
	OpenAI     OpenAIConfig
	Metrics    MetricsConfig
	LogLevel   string
	Modes      []models.Mode
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// RateLimit is the number of outbound requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	RedisURL string         `mapstructure:"redis_url"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ClassifierConfig struct {
	PatternsFile string `mapstructure:"patterns_file"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Moderation bool   `mapstructure:"moderation"`
	Model      string `mapstructure:"model"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type ModeConfig struct {
	Name    string   `mapstructure:"name"`
	Display string   `mapstructure:"display"`
	Image   string   `mapstructure:"image"`
	Caption string   `mapstructure:"caption"`
	Times   []string `mapstructure:"times"`
}

type fileConfig struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	OwnerID    string           `mapstructure:"owner_id"`
	GroupID    string           `mapstructure:"group_id"`
	Timezone   string           `mapstructure:"timezone"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	LogLevel   string           `mapstructure:"log_level"`
	Modes      []ModeConfig     `mapstructure:"modes"`
}

type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return "config error: field " + e.Field + " - " + e.Reason
}

func newConfigError(field, reason string) ConfigError {
	return ConfigError{
		Field:  field,
		Reason: reason,
	}
}

var envBindings = map[string]string{
	"telegram.token":           "BOT_TOKEN",
	"telegram.rate_limit":      "TELEGRAM_RATE_LIMIT",
	"owner_id":                 "OWNER_ID",
	"group_id":                 "GROUP_ID",
	"timezone":                 "TIMEZONE",
	"database.driver":          "DB_DRIVER",
	"database.url":             "DATABASE_URL",
	"database.path":            "DB_PATH",
	"database.redis_url":       "REDIS_URL",
	"metrics.addr":             "METRICS_ADDR",
	"openai.api_key":           "OPENAI_API_KEY",
	"openai.moderation":        "OPENAI_MODERATION",
	"openai.model":             "OPENAI_MODEL",
	"classifier.patterns_file": "PATTERNS_FILE",
	"log_level":                "LOG_LEVEL",
}

// DefaultModes is the knockout announcement used when no modes are configured.
func DefaultModes() []ModeConfig {
	return []ModeConfig{{
		Name:    "knockout",
		Display: "Нокаут 5 на 5",
		Image:   "images/knockout.png",
		Caption: "Нокаут 5 на 5 скоро!",
		Times:   []string{"00:10", "08:10", "16:10"},
	}}
}

func parseDatabaseURL(dbURL string) (PostgresConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return PostgresConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return PostgresConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return PostgresConfig{}, fmt.Errorf("invalid port %q", u.Port())
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return PostgresConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads the environment and, when path is not empty, a YAML file.
// Environment variables win over file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("telegram.rate_limit", 25)
	v.SetDefault("timezone", "Europe/Moscow")
	v.SetDefault("database.path", "data/bot.db")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("openai.moderation", false)
	v.SetDefault("log_level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	dbURL := v.GetString("database.url")
	if dbURL != "" {
		pg, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, newConfigError("DATABASE_URL", err.Error())
		}
		raw.Database.Postgres = pg
	}
	if raw.Database.Driver == "" {
		switch {
		case dbURL != "":
			raw.Database.Driver = DriverPostgres
		case raw.Database.RedisURL != "":
			raw.Database.Driver = DriverRedis
		default:
			raw.Database.Driver = DriverSQLite
		}
	}

	return build(raw)
}

func build(raw fileConfig) (*Config, error) {
	cfg := &Config{
		Telegram:   raw.Telegram,
		Database:   raw.Database,
		Classifier: raw.Classifier,
		OpenAI:     raw.OpenAI,
		Metrics:    raw.Metrics,
		LogLevel:   strings.ToLower(raw.LogLevel),
	}
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)

	if cfg.Telegram.Token == "" {
		return nil, newConfigError("BOT_TOKEN", "must not be empty")
	}

	var err error
	if cfg.OwnerID, err = parseID("OWNER_ID", raw.OwnerID); err != nil {
		return nil, err
	}
	if cfg.GroupID, err = parseID("GROUP_ID", raw.GroupID); err != nil {
		return nil, err
	}

	cfg.Location, err = time.LoadLocation(raw.Timezone)
	if err != nil {
		return nil, newConfigError("TIMEZONE", fmt.Sprintf("unknown time zone %q", raw.Timezone))
	}

	if cfg.Telegram.RateLimit <= 0 {
		return nil, newConfigError("TELEGRAM_RATE_LIMIT", "must be positive")
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return nil, newConfigError("DB_PATH", "must not be empty for sqlite")
		}
	case DriverPostgres:
		if cfg.Database.Postgres.DBName == "" {
			return nil, newConfigError("DATABASE_URL", "database name is required for postgres")
		}
	case DriverRedis:
		if cfg.Database.RedisURL == "" {
			return nil, newConfigError("REDIS_URL", "must not be empty for redis")
		}
	case DriverMemory:
	default:
		return nil, newConfigError("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.Database.Driver))
	}

	if cfg.OpenAI.Moderation && cfg.OpenAI.APIKey == "" {
		return nil, newConfigError("OPENAI_API_KEY", "required when OPENAI_MODERATION is enabled")
	}

	modes := raw.Modes
	if len(modes) == 0 {
		modes = DefaultModes()
	}
	for _, mc := range modes {
		mode, err := buildMode(mc)
		if err != nil {
			return nil, err
		}
		cfg.Modes = append(cfg.Modes, mode)
	}

	return cfg, nil
}

func parseID(field, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, newConfigError(field, "must not be empty")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, newConfigError(field, "must be an integer")
	}
	return id, nil
}

func buildMode(mc ModeConfig) (models.Mode, error) {
	if mc.Name == "" {
		return models.Mode{}, newConfigError("modes", "every mode needs a name")
	}
	field := "modes." + mc.Name
	if len(mc.Times) == 0 {
		return models.Mode{}, newConfigError(field, "at least one time is required")
	}

	mode := models.Mode{
		Name:    mc.Name,
		Display: mc.Display,
		Image:   mc.Image,
		Caption: mc.Caption,
	}
	if mode.Display == "" {
		mode.Display = mc.Name
	}
	if mode.Caption == "" {
		mode.Caption = mode.Display
	}
	for _, s := range mc.Times {
		at, err := models.ParseFirePoint(s)
		if err != nil {
			return models.Mode{}, newConfigError(field, err.Error())
		}
		mode.Times = append(mode.Times, at)
	}
	return mode, nil
}

// IsConfigError reports whether err came from validation rather than I/O.
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

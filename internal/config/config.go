package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrAPIBaseURLRequired is returned when no backend API base URL is configured.
var ErrAPIBaseURLRequired = errors.New("api base url is required")

// APIConfig holds settings for the external document REST API.
type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	PublicURL  string `yaml:"public_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SessionConfig holds settings for per-browser page state.
type SessionConfig struct {
	CookieName       string `yaml:"cookie_name"`
	IdleTimeoutMin   int    `yaml:"idle_timeout_min"`
	SweepIntervalSec int    `yaml:"sweep_interval_sec"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ExcerptWindow int    `yaml:"excerpt_window"`
	Timezone      string `yaml:"timezone"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from an optional YAML file and then from environment variables.
type AppConfig struct {
	Env      string        `yaml:"env"`
	Port     string        `yaml:"port"`
	LogLevel string        `yaml:"log_level"`
	API      APIConfig     `yaml:"api"`
	Session  SessionConfig `yaml:"session"`
	UI       UIConfig      `yaml:"ui"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Env:  "local",
		Port: "8080",
		API: APIConfig{
			TimeoutSec: 30,
		},
		Session: SessionConfig{
			CookieName:       "km_session",
			IdleTimeoutMin:   60,
			SweepIntervalSec: 60,
		},
		UI: UIConfig{
			ExcerptWindow: 150,
			Timezone:      "UTC",
		},
	}
}

// Load reads configuration. The file named by CONFIG_FILE (if any) is applied first,
// real environment variables take precedence.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.API.BaseURL = strings.TrimSuffix(getEnv("API_BASE_URL", cfg.API.BaseURL), "/")
	cfg.API.PublicURL = strings.TrimSuffix(getEnv("API_PUBLIC_URL", cfg.API.PublicURL), "/")
	cfg.API.TimeoutSec = getEnvInt("API_TIMEOUT_SEC", cfg.API.TimeoutSec)
	if cfg.API.PublicURL == "" {
		cfg.API.PublicURL = cfg.API.BaseURL
	}

	cfg.Session.CookieName = getEnv("SESSION_COOKIE", cfg.Session.CookieName)
	cfg.Session.IdleTimeoutMin = getEnvInt("SESSION_IDLE_MIN", cfg.Session.IdleTimeoutMin)
	cfg.Session.SweepIntervalSec = getEnvInt("SESSION_SWEEP_SEC", cfg.Session.SweepIntervalSec)

	cfg.UI.ExcerptWindow = getEnvInt("EXCERPT_WINDOW", cfg.UI.ExcerptWindow)
	cfg.UI.Timezone = getEnv("APP_TIMEZONE", cfg.UI.Timezone)

	if cfg.API.BaseURL == "" {
		return nil, ErrAPIBaseURLRequired
	}
	return cfg, nil
}

// Secure reports whether cookies should carry the Secure attribute.
func (c *AppConfig) Secure() bool {
	return c.Env == "prod" || getEnvBool("COOKIE_SECURE", false)
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// Package config loads application configuration with multi-source
// priority:
//  1. Environment variables (FOODSAVE_* plus DATABASE_URL)
//  2. Config file (~/.foodsave/config.yaml or ./config.yaml)
//  3. Defaults
//
// Sensitive values (passwords, API keys) are masked in MarshalJSON and
// String so the config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgres indicates bad PostgreSQL settings.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidServerAddr indicates a bad listen address.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Defaults for conversation history loading.
const (
	DefaultMaxHistoryMessages = 100
	MaxAllowedHistoryMessages = 10000
)

// WeatherConfig holds upstream weather provider credentials.
type WeatherConfig struct {
	WeatherAPIKey      string `mapstructure:"weatherapi_key" json:"weatherapi_key"`           // SENSITIVE
	OpenWeatherMapKey  string `mapstructure:"openweathermap_key" json:"openweathermap_key"`   // SENSITIVE
	DefaultLocation    string `mapstructure:"default_location" json:"default_location"`
	WeatherAPIBase     string `mapstructure:"weatherapi_base" json:"weatherapi_base"`
	OpenWeatherMapBase string `mapstructure:"openweathermap_base" json:"openweathermap_base"`
}

// SearXNGConfig holds the web search backend settings.
type SearXNGConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// TelemetryConfig holds OTLP trace export settings. Disabled by default.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and models. BielikModel serves requests with the
	// useBielik flag set (the default); ModelName serves the rest.
	Provider    string `mapstructure:"provider" json:"provider"`
	ModelName   string `mapstructure:"model_name" json:"model_name"`
	BielikModel string `mapstructure:"bielik_model" json:"bielik_model"`
	OllamaHost  string `mapstructure:"ollama_host" json:"ollama_host"`

	MaxHistoryMessages int `mapstructure:"max_history_messages" json:"max_history_messages"`

	// PostgreSQL connection.
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server (serve mode) and the backend URL the chat surface
	// talks to (chat mode).
	ServerAddr  string   `mapstructure:"server_addr" json:"server_addr"`
	BackendURL  string   `mapstructure:"backend_url" json:"backend_url"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Per-IP request throttling for the HTTP API. RPS 0 disables it.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	SearXNG   SearXNGConfig   `mapstructure:"searxng" json:"searxng"`
	Weather   WeatherConfig   `mapstructure:"weather" json:"weather"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".foodsave")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults plus env carry a dev setup.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOllama)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("bielik_model", "bielik-11b-v2.3-instruct:Q4_K_M")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "foodsave")
	v.SetDefault("postgres_password", "foodsave_dev_password")
	v.SetDefault("postgres_db_name", "foodsave")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("server_addr", ":8000")
	v.SetDefault("backend_url", "http://127.0.0.1:8000")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 30)

	v.SetDefault("searxng.base_url", "http://localhost:8888")

	v.SetDefault("weather.default_location", "Warszawa")
	v.SetDefault("weather.weatherapi_base", "https://api.weatherapi.com/v1")
	v.SetDefault("weather.openweathermap_base", "https://api.openweathermap.org/data/2.5")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "foodsave")
	v.SetDefault("telemetry.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly. Hardcoded
// keys cannot fail to bind; a panic here is a bug.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: binding %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "FOODSAVE_PROVIDER")
	mustBind("model_name", "FOODSAVE_MODEL_NAME")
	mustBind("bielik_model", "FOODSAVE_BIELIK_MODEL")
	mustBind("ollama_host", "FOODSAVE_OLLAMA_HOST")
	mustBind("server_addr", "FOODSAVE_SERVER_ADDR")
	mustBind("backend_url", "FOODSAVE_BACKEND_URL")
	mustBind("cors_origins", "FOODSAVE_CORS_ORIGINS")
	mustBind("searxng.base_url", "FOODSAVE_SEARXNG_URL")
	mustBind("weather.weatherapi_key", "WEATHERAPI_KEY")
	mustBind("weather.openweathermap_key", "OPENWEATHERMAP_KEY")
	mustBind("telemetry.enabled", "FOODSAVE_TELEMETRY_ENABLED")
	mustBind("telemetry.endpoint", "FOODSAVE_OTLP_ENDPOINT")

	// GEMINI_API_KEY is read directly by the genkit googlegenai plugin;
	// Validate only checks its presence for the gemini provider.
}

// FullModelName returns the provider-qualified name genkit expects for
// the non-Bielik model, e.g. "googleai/gemini-2.5-flash".
func (c *Config) FullModelName() string {
	return qualify(c.Provider, c.ModelName)
}

// FullBielikModelName returns the provider-qualified Bielik model name.
// Bielik always runs on Ollama.
func (c *Config) FullBielikModelName() string {
	return qualify(ProviderOllama, c.BielikModel)
}

func qualify(provider, model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	switch provider {
	case ProviderOllama:
		return "ollama/" + model
	default:
		return "googleai/" + model
	}
}

// maskedValue replaces secrets in logged output.
const maskedValue = "████████"

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.Weather.WeatherAPIKey = maskSecret(a.Weather.WeatherAPIKey)
	a.Weather.OpenWeatherMapKey = maskSecret(a.Weather.OpenWeatherMapKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so accidental printing never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

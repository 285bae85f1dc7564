package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Store       StoreConfig       `mapstructure:"store"`
	Proof       ProofConfig       `mapstructure:"proof"`
	Challenge   ChallengeConfig   `mapstructure:"challenge"`
	Integration IntegrationConfig `mapstructure:"integration"`
	Session     SessionConfig     `mapstructure:"session"`
	Events      EventsConfig      `mapstructure:"events"`
	Changes     ChangesConfig     `mapstructure:"changes"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "redis"
}

type ProofConfig struct {
	Description string `mapstructure:"description"`
}

type ChallengeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type IntegrationConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	KeyFile      string        `mapstructure:"key_file"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	Driver string `mapstructure:"driver"` // "none" or "redis"
}

type ChangesConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Since    int64         `mapstructure:"since"`
	Interval time.Duration `mapstructure:"interval"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// Load loads configuration from config.yaml, .env and TIA_* environment
// variables, in increasing order of precedence
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("tia")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// REDIS_URL is honoured for compatibility with hosted Redis add-ons
	if url := os.Getenv("REDIS_URL"); url != "" && os.Getenv("TIA_REDIS_URL") == "" {
		config.Redis.URL = url
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", ":9000")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("store.driver", "memory")

	v.SetDefault("proof.description", "Wallet ownership proof for token attribution.")
	v.SetDefault("challenge.ttl", 5*time.Minute)

	v.SetDefault("integration.base_url", "https://etalon.cash/tia")
	v.SetDefault("integration.api_key", "")
	v.SetDefault("integration.timeout", 10*time.Second)

	v.SetDefault("session.key_file", "")
	v.SetDefault("session.cookie_name", "tia_session")
	v.SetDefault("session.secure_cookie", true)
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("events.driver", "none")

	v.SetDefault("changes.enabled", false)
	v.SetDefault("changes.since", 0)
	v.SetDefault("changes.interval", 15*time.Second)
	v.SetDefault("changes.backoff", time.Minute)
}

func validate(c *Config) error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Events.Driver {
	case "none", "redis":
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}

	if c.Proof.Description == "" {
		return fmt.Errorf("proof.description is required")
	}
	if strings.Contains(c.Proof.Description, "\nId: ") {
		return fmt.Errorf("proof.description must not contain the id label")
	}
	if c.Integration.BaseURL == "" {
		return fmt.Errorf("integration.base_url is required")
	}
	if c.Challenge.TTL <= 0 {
		return fmt.Errorf("challenge.ttl must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Changes.Since < 0 {
		return fmt.Errorf("changes.since must not be negative")
	}

	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// internal/config/config.go
// --------------------------
// Process configuration, loaded once at startup from METHOD_* environment
// variables. Nothing here is reloaded mid-run.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	APIKey         string        `mapstructure:"api_key"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	OAuthTokenURL  string        `mapstructure:"oauth_token_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BaseBackoff    time.Duration `mapstructure:"base_backoff"`
	Transport      string        `mapstructure:"transport"`
	HTTPPort       int           `mapstructure:"http_port"`
	Debug          bool          `mapstructure:"debug"`
}

// Load reads configuration from the environment with defaults applied.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("METHOD")
	v.AutomaticEnv()

	v.SetDefault("api_base_url", "https://rest.method.me/api/v1")
	v.SetDefault("api_key", "")
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("oauth_token_url", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("base_backoff", 2*time.Second)
	v.SetDefault("transport", "stdio")
	v.SetDefault("http_port", 8000)
	v.SetDefault("debug", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Transport != "stdio" && c.Transport != "http" {
		return fmt.Errorf("METHOD_TRANSPORT must be \"stdio\" or \"http\", got %q", c.Transport)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("METHOD_HTTP_PORT must be a valid port, got %d", c.HTTPPort)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("METHOD_MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	return nil
}

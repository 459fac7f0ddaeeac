package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL          = "http://localhost:8000"
	DefaultSuccessDisplay      = 8 * time.Second
	DefaultNotificationDisplay = 5 * time.Second
)

// ClientConfig holds settings for the demo request form client. BackendURL
// is the only setting visitors' deployments normally change.
type ClientConfig struct {
	BackendURL          string        `yaml:"backend_url"`
	SuccessDisplay      time.Duration `yaml:"success_display"`
	NotificationDisplay time.Duration `yaml:"notification_display"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	LogLevel            string        `yaml:"log_level"`
}

// LoadClient reads client settings from the environment and, when path is
// not empty, overlays the YAML file at path.
func LoadClient(path string) (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		BackendURL:          getEnv("BACKEND_URL", DefaultBackendURL),
		SuccessDisplay:      time.Duration(getEnvAsInt("SUCCESS_DISPLAY_SECONDS", 8)) * time.Second,
		NotificationDisplay: time.Duration(getEnvAsInt("NOTIFICATION_SECONDS", 5)) * time.Second,
		RequestTimeout:      time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 0)) * time.Second,
		LogLevel:            os.Getenv("LOG_LEVEL"),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read client config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse client config %s: %w", path, err)
		}
	}

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the client settings
func (c *ClientConfig) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL must be set")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("BACKEND_URL must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.SuccessDisplay <= 0 {
		c.SuccessDisplay = DefaultSuccessDisplay
	}
	if c.NotificationDisplay <= 0 {
		c.NotificationDisplay = DefaultNotificationDisplay
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	return nil
}

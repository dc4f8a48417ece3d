// Package config resolves the client configuration once at startup from
// environment variables, with an optional YAML file overlay underneath.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	Production  = "production"
	Development = "development"
)

// Timeouts is the connect/read/write timeout triple for the transport client.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// Config holds all client configuration. Resolved once; read-only afterwards.
type Config struct {
	// Transport
	BaseURL  string
	Timeouts Timeouts

	// Diagnostics attached to every outbound request
	EnvironmentName string
	AppVersion      string
	BuildNumber     string

	// Logging and features
	LogLevel      string
	EnableBreaker bool
	EnableMetrics bool
}

// fileConfig is the optional YAML overlay. Pointer fields distinguish
// "absent" from zero values; environment variables win over the file.
type fileConfig struct {
	BaseURL        *string `yaml:"base_url"`
	Environment    *string `yaml:"environment"`
	AppVersion     *string `yaml:"app_version"`
	BuildNumber    *string `yaml:"build_number"`
	LogLevel       *string `yaml:"log_level"`
	EnableBreaker  *bool   `yaml:"enable_breaker"`
	EnableMetrics  *bool   `yaml:"enable_metrics"`
	ConnectTimeout *string `yaml:"connect_timeout"`
	ReadTimeout    *string `yaml:"read_timeout"`
	WriteTimeout   *string `yaml:"write_timeout"`
}

// Load resolves configuration: defaults, then the YAML file (if present),
// then environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		EnvironmentName: Development,
		AppVersion:      "0.0.0",
		BuildNumber:     "0",
		LogLevel:        "info",
		Timeouts: Timeouts{
			Connect: 15 * time.Second,
			Read:    20 * time.Second,
			Write:   20 * time.Second,
		},
	}

	if err := cfg.applyFile(getEnv("VOYAGO_CONFIG_FILE", "voyago.yaml")); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf(&c.BaseURL, fc.BaseURL)
	setIf(&c.EnvironmentName, fc.Environment)
	setIf(&c.AppVersion, fc.AppVersion)
	setIf(&c.BuildNumber, fc.BuildNumber)
	setIf(&c.LogLevel, fc.LogLevel)
	if fc.EnableBreaker != nil {
		c.EnableBreaker = *fc.EnableBreaker
	}
	if fc.EnableMetrics != nil {
		c.EnableMetrics = *fc.EnableMetrics
	}
	if err := setDurationIf(&c.Timeouts.Connect, fc.ConnectTimeout); err != nil {
		return fmt.Errorf("config file %s: connect_timeout: %w", path, err)
	}
	if err := setDurationIf(&c.Timeouts.Read, fc.ReadTimeout); err != nil {
		return fmt.Errorf("config file %s: read_timeout: %w", path, err)
	}
	if err := setDurationIf(&c.Timeouts.Write, fc.WriteTimeout); err != nil {
		return fmt.Errorf("config file %s: write_timeout: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("API_BASE_URL", c.BaseURL)
	c.EnvironmentName = getEnv("ENVIRONMENT", c.EnvironmentName)
	c.AppVersion = getEnv("APP_VERSION", c.AppVersion)
	c.BuildNumber = getEnv("BUILD_NUMBER", c.BuildNumber)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableBreaker = getEnvBool("ENABLE_BREAKER", c.EnableBreaker)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.Timeouts.Connect = getEnvDuration("HTTP_CONNECT_TIMEOUT", c.Timeouts.Connect)
	c.Timeouts.Read = getEnvDuration("HTTP_READ_TIMEOUT", c.Timeouts.Read)
	c.Timeouts.Write = getEnvDuration("HTTP_WRITE_TIMEOUT", c.Timeouts.Write)
}

// Validate checks that the configuration is usable. The base URL is the one
// strictly required setting: without it no transport client can be built.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must be http or https, got %q", u.Scheme)
	}
	if c.Timeouts.Connect <= 0 || c.Timeouts.Read <= 0 || c.Timeouts.Write <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.EnvironmentName == Development
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.EnvironmentName == Production
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDurationIf(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value.
// Bare integers are treated as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

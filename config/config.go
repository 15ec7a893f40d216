// Package config provides YAML configuration parsing for MishPulse.
//
// The configuration file is optional; every field has a default. Values that
// commonly differ per environment support ${VAR} and ${VAR:-default}
// substitution, and a .env file can seed the environment first (see
// [LoadDotEnv]).
//
// Example configuration:
//
//	port: 8080
//	public_url: https://pulse.example.com
//	environment: production
//	log_level: info
//
//	rate_limit:
//	  rps: 50
//	  burst: 100
//
//	notify:
//	  console: true
//	  redis:
//	    addr: ${REDIS_ADDR:-}
//	    channel_prefix: "mishpulse:statuses:"
//	    timeout: 2s
//	  webhooks:
//	    - url: https://hooks.example.com/status
//	      timeout: 5s
//	      headers:
//	        Authorization: Bearer ${HOOK_TOKEN}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultRateLimit      = 100 // requests per second
	defaultRateLimitBurst = 200
	defaultStreamBuffer   = 100
	defaultRedisTimeout   = 2 * time.Second
	defaultWebhookTimeout = 5 * time.Second
)

// Config is the root configuration structure for MishPulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load], [Parse] or [Default] to create a Config.
type Config struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PublicURL is the externally reachable base URL used to build
	// submission links. Defaults to http://localhost:<port>.
	PublicURL string `yaml:"public_url"`

	// Environment is one of development, production or test.
	// Production switches the HTTP router to release mode.
	Environment string `yaml:"environment"`

	// LogLevel is one of debug, info, warn or error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// RateLimit bounds inbound requests across all clients.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Notify configures the side channels that receive accepted statuses.
	Notify NotifyConfig `yaml:"notify"`
}

// RateLimitConfig configures the global token-bucket rate limiter.
type RateLimitConfig struct {
	// RPS is the sustained request rate. Defaults to 100.
	RPS float64 `yaml:"rps"`

	// Burst is the bucket size. Defaults to 200.
	Burst int `yaml:"burst"`

	// Disabled turns rate limiting off.
	Disabled bool `yaml:"disabled"`
}

// NotifyConfig configures status notifiers.
type NotifyConfig struct {
	// Console prints every accepted status to stdout. Defaults to true.
	Console *bool `yaml:"console"`

	// StreamBuffer is the per-subscriber buffer of the live stream.
	// Defaults to 100.
	StreamBuffer int `yaml:"stream_buffer"`

	// Redis publishes statuses to Redis Pub/Sub when Addr is non-empty.
	Redis *RedisConfig `yaml:"redis"`

	// Webhooks receive a JSON POST per accepted status.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// RedisConfig configures the Redis publisher.
type RedisConfig struct {
	// Addr is host:port. An empty value (after env expansion) disables Redis.
	Addr string `yaml:"addr"`

	// Password is the optional AUTH password.
	Password string `yaml:"password"`

	// DB is the database index.
	DB int `yaml:"db"`

	// ChannelPrefix prefixes the per-project channel name.
	ChannelPrefix string `yaml:"channel_prefix"`

	// Timeout bounds each publish. Defaults to 2s.
	Timeout Duration `yaml:"timeout"`
}

// WebhookConfig defines one webhook receiver.
type WebhookConfig struct {
	// URL is the receiver endpoint. Supports environment variable substitution.
	URL string `yaml:"url"`

	// Timeout bounds each delivery. Defaults to 5s.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with each delivery. Values support substitution.
	Headers map[string]string `yaml:"headers"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ConsoleEnabled reports whether the console notifier is on.
func (n NotifyConfig) ConsoleEnabled() bool {
	return n.Console == nil || *n.Console
}

// RedisEnabled reports whether a Redis address is configured.
func (n NotifyConfig) RedisEnabled() bool {
	return n.Redis != nil && n.Redis.Addr != ""
}

// SlogLevel returns the configured log level as a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment without overriding variables that are
// already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Default returns the configuration used when no file is given.
// Environment substitution and validation still apply.
func Default() (*Config, error) {
	return Parse(nil)
}

// Parse parses YAML configuration data, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Environment == "" {
		c.Environment = defaultEnvironment
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = defaultRateLimit
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = defaultRateLimitBurst
	}
	if c.Notify.StreamBuffer == 0 {
		c.Notify.StreamBuffer = defaultStreamBuffer
	}
	if r := c.Notify.Redis; r != nil && r.Timeout == 0 {
		r.Timeout = Duration(defaultRedisTimeout)
	}
	for i := range c.Notify.Webhooks {
		if c.Notify.Webhooks[i].Timeout == 0 {
			c.Notify.Webhooks[i].Timeout = Duration(defaultWebhookTimeout)
		}
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.PublicURL == "" {
		c.PublicURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	expanded, err := expandEnvVars(c.PublicURL)
	if err != nil {
		return fmt.Errorf("public_url: %w", err)
	}
	if err := validateHTTPURL(expanded); err != nil {
		return fmt.Errorf("public_url: %w", err)
	}
	c.PublicURL = strings.TrimRight(expanded, "/")

	switch c.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("environment must be development, production or test, got %q", c.Environment)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps cannot be negative, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst cannot be negative, got %d", c.RateLimit.Burst)
	}

	if c.Notify.StreamBuffer < 0 {
		return fmt.Errorf("notify.stream_buffer cannot be negative, got %d", c.Notify.StreamBuffer)
	}

	if r := c.Notify.Redis; r != nil {
		addr, err := expandEnvVars(r.Addr)
		if err != nil {
			return fmt.Errorf("notify.redis.addr: %w", err)
		}
		r.Addr = addr

		password, err := expandEnvVars(r.Password)
		if err != nil {
			return fmt.Errorf("notify.redis.password: %w", err)
		}
		r.Password = password

		if r.DB < 0 {
			return fmt.Errorf("notify.redis.db cannot be negative, got %d", r.DB)
		}
		if r.Timeout.Duration() < 0 {
			return fmt.Errorf("notify.redis.timeout cannot be negative, got %s", r.Timeout.Duration())
		}
	}

	for i := range c.Notify.Webhooks {
		wh := &c.Notify.Webhooks[i]

		if wh.URL == "" {
			return fmt.Errorf("notify.webhooks[%d]: url is required", i)
		}
		expanded, err := expandEnvVars(wh.URL)
		if err != nil {
			return fmt.Errorf("notify.webhooks[%d]: url: %w", i, err)
		}
		if err := validateHTTPURL(expanded); err != nil {
			return fmt.Errorf("notify.webhooks[%d]: %w", i, err)
		}
		wh.URL = expanded

		for k, v := range wh.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("notify.webhooks[%d]: headers[%s]: %w", i, k, err)
			}
			wh.Headers[k] = expanded
		}

		if wh.Timeout.Duration() < 0 {
			return fmt.Errorf("notify.webhooks[%d]: timeout cannot be negative, got %s", i, wh.Timeout.Duration())
		}
	}

	return nil
}

// validateHTTPURL checks that raw parses and uses the http or https scheme.
func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}

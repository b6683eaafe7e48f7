// Package config loads the server configuration.
//
// Sources, highest precedence first:
//  1. CLI flags (set via SetOverride)
//  2. Environment variables (KC_URL, KC_REALM, MCP_ADDR, ...)
//  3. The YAML file given with --config, or ./keycloak-mcp.yaml
//  4. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "keycloak-mcp.yaml"

// Config is the root configuration.
type Config struct {
	Keycloak KeycloakConfig `yaml:"keycloak" mapstructure:"keycloak"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// KeycloakConfig locates the Keycloak server and the optional dev login.
type KeycloakConfig struct {
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`

	// Realm is the realm used for the dev login, not the realm queried.
	Realm    string `yaml:"realm" mapstructure:"realm" validate:"required"`
	ClientID string `yaml:"client_id" mapstructure:"client_id" validate:"required"`

	// DevUser and DevPassword enable a password-grant fallback when the
	// caller sends no bearer token. Development only.
	DevUser     string `yaml:"dev_user,omitempty" mapstructure:"dev_user"`
	DevPassword string `yaml:"dev_password,omitempty" mapstructure:"dev_password" validate:"required_with=DevUser"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`

	// RequireSession rejects MCP requests other than initialize that carry
	// no Mcp-Session-Id.
	RequireSession bool `yaml:"require_session" mapstructure:"require_session"`

	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins" validate:"min=1"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"min=1s"`
	SSEKeepAlive    time.Duration `yaml:"sse_keep_alive" mapstructure:"sse_keep_alive" validate:"min=1s"`
	MetricsInterval time.Duration `yaml:"metrics_interval" mapstructure:"metrics_interval" validate:"min=1s"`
}

type SessionConfig struct {
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=1m"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"min=1s"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"keycloak.url":           "KC_URL",
	"keycloak.realm":         "KC_REALM",
	"keycloak.client_id":     "KC_CLIENT_ID",
	"keycloak.dev_user":      "KC_DEV_USER",
	"keycloak.dev_password":  "KC_DEV_PASSWORD",
	"server.addr":            "MCP_ADDR",
	"server.require_session": "MCP_REQUIRE_SESSION",
	"session.timeout":        "MCP_SESSION_TIMEOUT",
	"log_level":              "MCP_LOG_LEVEL",
}

// ValidationError represents a configuration validation error with field details.
type ValidationError struct {
	Field   string
	Tag     string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v         *viper.Viper
	validator *validator.Validate
	overrides map[string]any
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")

	return &Loader{
		v:         v,
		validator: validator.New(),
		overrides: make(map[string]any),
	}
}

// SetOverride sets a CLI override value that takes highest precedence.
// Use dot notation for nested keys (e.g., "server.addr").
func (l *Loader) SetOverride(key string, value any) {
	l.overrides[key] = value
}

// Load merges all sources and validates the result. An empty path falls
// back to DefaultConfigFile when it exists.
func (l *Loader) Load(path string) (*Config, error) {
	l.setDefaults()

	for key, env := range envBindings {
		if err := l.v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path == "" && fileExists(DefaultConfigFile) {
		path = DefaultConfigFile
	}
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	for key, value := range l.overrides {
		l.v.Set(key, value)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (l *Loader) Validate(cfg *Config) error {
	var errs ValidationErrors

	err := l.validator.Struct(cfg)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, e := range validationErrs {
				errs = append(errs, ValidationError{
					Field:   e.Namespace(),
					Tag:     e.Tag(),
					Value:   e.Value(),
					Message: formatValidationError(e),
				})
			}
		} else {
			return fmt.Errorf("validation error: %w", err)
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("keycloak.url", defaults.Keycloak.URL)
	l.v.SetDefault("keycloak.realm", defaults.Keycloak.Realm)
	l.v.SetDefault("keycloak.client_id", defaults.Keycloak.ClientID)
	l.v.SetDefault("keycloak.dev_user", defaults.Keycloak.DevUser)
	l.v.SetDefault("keycloak.dev_password", defaults.Keycloak.DevPassword)
	l.v.SetDefault("server.addr", defaults.Server.Addr)
	l.v.SetDefault("server.require_session", defaults.Server.RequireSession)
	l.v.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.sse_keep_alive", defaults.Server.SSEKeepAlive)
	l.v.SetDefault("server.metrics_interval", defaults.Server.MetricsInterval)
	l.v.SetDefault("session.timeout", defaults.Session.Timeout)
	l.v.SetDefault("session.cleanup_interval", defaults.Session.CleanupInterval)
	l.v.SetDefault("log_level", defaults.LogLevel)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func formatValidationError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "required_with":
		return fmt.Sprintf("'%s' is required when '%s' is set", field, e.Param())
	case "url":
		return fmt.Sprintf("'%s' must be a valid URL (got '%v')", field, e.Value())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of [%s] (got '%v')", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("'%s' must be at least %s (got '%v')", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("'%s' failed validation '%s'", field, e.Tag())
	}
}

// DefaultConfig returns a new Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Keycloak: KeycloakConfig{
			URL:      "http://localhost:8180",
			Realm:    "master",
			ClientID: "admin-cli",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RequireSession:  true,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			SSEKeepAlive:    30 * time.Second,
			MetricsInterval: 15 * time.Second,
		},
		Session: SessionConfig{
			Timeout:         time.Hour,
			CleanupInterval: 5 * time.Minute,
		},
		LogLevel: "info",
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	if out.Keycloak.DevPassword != "" {
		out.Keycloak.DevPassword = "********"
	}
	return &out
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := Marshal(DefaultConfig())
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0600)
}

// Exists checks if a configuration file exists at the given path.
func Exists(path string) bool {
	return fileExists(path)
}

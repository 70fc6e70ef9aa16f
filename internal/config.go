package internal

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supported auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the top-level configuration for the Othala server.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate checks every section and returns the first failure.
func (c *Config) Validate() error {
	sections := []interface{ Validate() error }{
		&c.App, &c.Vault, &c.SQLite, &c.Auth, &c.SSE,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds runtime-wide settings.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate checks the application section.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig configures the HTTP listener. An empty Host binds all
// interfaces.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the listen address in host:port form.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the HTTP section.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory. Watch
// controls whether the server picks up external edits; turning it off
// leaves the index to the initial sync and the API's own writes.
type VaultConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate checks the vault section.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig locates the index database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate checks the SQLite section.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SSEConfig tunes the event stream.
type SSEConfig struct {
	// HierarchyThrottleSeconds bounds how often hierarchy.updated is
	// broadcast. Zero keeps the built-in default.
	HierarchyThrottleSeconds int `yaml:"hierarchy_throttle_seconds"`
}

// Validate checks the SSE section.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HierarchyThrottleSeconds, validation.Min(0)),
	)
}

// HierarchyThrottle returns the configured throttle as a duration.
func (c *SSEConfig) HierarchyThrottle() time.Duration {
	return time.Duration(c.HierarchyThrottleSeconds) * time.Second
}

// AuthConfig controls API authentication. In "token" mode every request
// must carry the configured token as a Bearer credential; "disabled", the
// default, leaves the API open for local use.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate checks the auth section and normalizes an unset mode to
// "disabled".
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled reports whether requests must authenticate.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns the configuration used when no file overrides
// it: a local server on port 8080 over ./vault, no auth, watcher on.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:  "./vault",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./othala.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

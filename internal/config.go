package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Lease       LeaseConfig       `yaml:"lease"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Persistence.Validate(); err != nil {
		return err
	}
	if err := c.Lease.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PersistenceConfig tunes snapshot flushing.
//
// FlushDebounce is the quiet period after an edit before a commit;
// MaxFlushInterval bounds the data-loss window by forcing a commit even
// under continuous editing.
type PersistenceConfig struct {
	FlushDebounce    time.Duration `yaml:"flush_debounce"`
	MaxFlushInterval time.Duration `yaml:"max_flush_interval"`
}

// Validate validates the persistence configuration.
func (c *PersistenceConfig) Validate() error {
	if c.FlushDebounce <= 0 {
		return fmt.Errorf("persistence: flush_debounce must be positive")
	}
	if c.MaxFlushInterval < c.FlushDebounce {
		return fmt.Errorf("persistence: max_flush_interval must be >= flush_debounce")
	}
	return nil
}

// LeaseConfig tunes cross-view write arbitration.
type LeaseConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Validate validates the lease configuration.
func (c *LeaseConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("lease: ttl must be positive")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./docbrand.db",
		},
		Persistence: PersistenceConfig{
			FlushDebounce:    2 * time.Second,
			MaxFlushInterval: 30 * time.Second,
		},
		Lease: LeaseConfig{
			TTL: 15 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

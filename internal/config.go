package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mimir/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Memory    MemoryConfig      `yaml:"memory"`
	Index     IndexConfig       `yaml:"index"`
	Retention RetentionConfig   `yaml:"retention"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Retention.Validate(); err != nil {
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

// MemoryConfig holds the memory root directory and the default workspace
// used when a request carries none.
type MemoryConfig struct {
	Root             string `yaml:"root"`
	DefaultWorkspace string `yaml:"default_workspace"`
}

// Validate validates the memory configuration.
func (c *MemoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.DefaultWorkspace, validation.Required),
	)
}

// IndexConfig holds the relationship index database configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RetentionConfig holds retention policy overrides. Zero values fall back
// to the store defaults.
type RetentionConfig struct {
	DefaultTTLHours int           `yaml:"default_ttl_hours"`
	MaxCheckpoints  int           `yaml:"max_checkpoints"`
	MaxTodoLists    int           `yaml:"max_todo_lists"`
	MaxPlans        int           `yaml:"max_plans"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// Validate validates the retention configuration.
func (c *RetentionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultTTLHours, validation.Min(0)),
		validation.Field(&c.MaxCheckpoints, validation.Min(0)),
		validation.Field(&c.MaxTodoLists, validation.Min(0)),
		validation.Field(&c.MaxPlans, validation.Min(0)),
	)
}

// Policy converts the config into a store retention policy, filling
// unset fields from the defaults.
func (c *RetentionConfig) Policy() store.Policy {
	p := store.DefaultPolicy()
	if c.DefaultTTLHours > 0 {
		p.DefaultTTLHours = c.DefaultTTLHours
	}
	if c.MaxCheckpoints > 0 {
		p.MaxCheckpoints = c.MaxCheckpoints
	}
	if c.MaxTodoLists > 0 {
		p.MaxTodoLists = c.MaxTodoLists
	}
	if c.MaxPlans > 0 {
		p.MaxPlans = c.MaxPlans
	}
	if c.SweepInterval > 0 {
		p.SweepInterval = c.SweepInterval
	}
	return p
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
		Memory: MemoryConfig{
			Root:             "./memory",
			DefaultWorkspace: "default",
		},
		Index: IndexConfig{
			Path: "./mimir.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

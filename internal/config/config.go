// Package config handles orgdesk configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/orgdesk/orgdesk/internal/models"
)

// Config is the root configuration structure for orgdesk.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Identity selects the acting org and user.
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`

	// Messaging tunes the conversation engine.
	Messaging MessagingConfig `yaml:"messaging" mapstructure:"messaging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global orgdesk settings.
type GlobalConfig struct {
	// DataDir is where orgdesk stores its data (default: ~/.local/share/orgdesk).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/orgdesk).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`
}

// IdentityConfig selects who the CLI acts as. OrgID here is an explicit
// override; when empty the org is resolved from the user's profile and the
// saved preference.
type IdentityConfig struct {
	// OrgID pins the org scope.
	OrgID string `yaml:"org_id" mapstructure:"org_id"`

	// UserID is the acting user.
	UserID string `yaml:"user_id" mapstructure:"user_id"`

	// UserType is the acting user's member type (admin, officer, club, other).
	UserType string `yaml:"user_type" mapstructure:"user_type"`
}

// MessagingConfig tunes the conversation engine.
type MessagingConfig struct {
	// PageSize is the transcript page size.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// SubscribeBuffer is the per-subscriber change feed buffer.
	SubscribeBuffer int `yaml:"subscribe_buffer" mapstructure:"subscribe_buffer"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows timestamps in the UI.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// CompactMode uses a more compact layout.
	CompactMode bool `yaml:"compact_mode" mapstructure:"compact_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "orgdesk"),
			ConfigDir: filepath.Join(homeDir, ".config", "orgdesk"),
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/orgdesk.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Identity: IdentityConfig{
			UserType: string(models.MemberTypeAdmin),
		},
		Messaging: MessagingConfig{
			PageSize:        30,
			SubscribeBuffer: 256,
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
			CompactMode:    false,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}

	if c.Messaging.PageSize < 1 {
		return fmt.Errorf("messaging.page_size must be at least 1")
	}
	if c.Messaging.SubscribeBuffer < 1 {
		return fmt.Errorf("messaging.subscribe_buffer must be at least 1")
	}

	if c.Identity.UserType != "" && !models.MemberType(c.Identity.UserType).Valid() {
		return fmt.Errorf("identity.user_type must be one of admin, officer, club, other")
	}

	switch c.Logging.Format {
	case "", "json", "console":
		// ok
	default:
		return fmt.Errorf("logging.format must be json or console")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "orgdesk.db")
}

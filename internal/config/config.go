// Package config handles the XDG configuration directory, the settings
// file, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"
)

const (
	// AppName is the application directory name.
	AppName = "daysched"

	// SettingsFile is the TOML settings filename.
	SettingsFile = "config.toml"

	// SessionDir is the directory holding the persisted session.
	SessionDir = "session"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"
)

// Backends.
const (
	BackendHTTP        = "http"
	BackendGoogleTasks = "googletasks"
)

// Defaults.
const (
	DefaultBackend  = BackendHTTP
	DefaultBaseURL  = "http://localhost:5000"
	DefaultTimeout  = 15 * time.Second
	DefaultLogLevel = "warn"
)

// Settings is the contents of config.toml.
type Settings struct {
	Backend        string `toml:"backend"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout string `toml:"request_timeout"`
	Timezone       string `toml:"timezone"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Backend:        DefaultBackend,
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultTimeout.String(),
		LogLevel:       DefaultLogLevel,
		LogFormat:      "text",
	}
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings

	timeout  time.Duration
	location *time.Location
}

// New creates a new Config with the default or specified config directory,
// reads config.toml when present and applies DAYSCHED_* environment
// overrides. If configDir is empty, uses XDG_CONFIG_HOME/daysched or
// $HOME/.config/daysched.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expanding config dir: %w", err)
	}

	cfg := &Config{Dir: dir, Settings: DefaultSettings()}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	applyEnv(&cfg.Settings)
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := homedir.Dir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadSettings() error {
	_, err := toml.DecodeFile(c.SettingsPath(), &c.Settings)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", SettingsFile, err)
	}
	return nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv("DAYSCHED_BACKEND"); v != "" {
		s.Backend = v
	}
	if v := os.Getenv("DAYSCHED_BASE_URL"); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv("DAYSCHED_TIMEOUT"); v != "" {
		s.RequestTimeout = v
	}
	if v := os.Getenv("DAYSCHED_TZ"); v != "" {
		s.Timezone = v
	}
	if v := os.Getenv("DAYSCHED_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("DAYSCHED_LOG_FORMAT"); v != "" {
		s.LogFormat = v
	}
}

// finalize validates settings and computes derived values.
func (c *Config) finalize() error {
	s := &c.Settings
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	switch s.Backend {
	case "":
		s.Backend = DefaultBackend
	case BackendHTTP, BackendGoogleTasks:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", s.Backend, BackendHTTP, BackendGoogleTasks)
	}

	c.timeout = DefaultTimeout
	if s.RequestTimeout != "" {
		d, err := time.ParseDuration(s.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", s.RequestTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid request_timeout %q: must be positive", s.RequestTimeout)
		}
		c.timeout = d
	}

	c.location = time.Local
	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
		c.location = loc
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.timeout == 0 {
		return DefaultTimeout
	}
	return c.timeout
}

// Location returns the zone "today" is computed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Now returns the current time in the configured zone.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location())
}

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the session store directory.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionDir)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

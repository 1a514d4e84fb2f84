package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Last.fm API credentials
	LastFM LastFMConfig

	// Secret used to sign caller session cookies
	SessionSecret string

	// The only Last.fm account allowed to arm the loop
	Username string

	// HTTP listen port
	Port int

	// Period between loop ticks
	// Default: 200ms
	Interval time.Duration

	// Directory holding the scrobble ledger
	DataDir string

	LogLevel string
	LogFile  string

	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Name}}"
	OutputFormat string

	// Fixed display width for the now command (0 = disabled)
	OutputWidth int
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey    string
	APISecret string
	// Only read by the now command; the server gets session keys from the
	// browser login.
	SessionKey string
}

// ConfigError reports required settings that are missing or invalid.
// The server refuses to start while it is non-nil.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

// envNames maps config keys to the environment variables that can set them.
// The prefixed name wins over the bare one.
var envNames = map[string][]string{
	"lastfm.api_key":     {"SCROBBLELOOP_LASTFM_API_KEY", "API_KEY"},
	"lastfm.api_secret":  {"SCROBBLELOOP_LASTFM_API_SECRET", "API_SECRET"},
	"lastfm.session_key": {"SCROBBLELOOP_LASTFM_SESSION_KEY"},
	"session_secret":     {"SCROBBLELOOP_SESSION_SECRET", "SESSION_SECRET"},
	"username":           {"SCROBBLELOOP_USERNAME", "USERNAME"},
	"port":               {"SCROBBLELOOP_PORT", "PORT"},
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("port", 3000)
	v.SetDefault("interval", 200*time.Millisecond)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("output_width", 0)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a broken one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("SCROBBLELOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Map config to struct
	cfg := &Config{
		LastFM: LastFMConfig{
			APIKey:     v.GetString("lastfm.api_key"),
			APISecret:  v.GetString("lastfm.api_secret"),
			SessionKey: v.GetString("lastfm.session_key"),
		},
		SessionSecret: v.GetString("session_secret"),
		Username:      v.GetString("username"),
		Port:          v.GetInt("port"),
		Interval:      v.GetDuration("interval"),
		DataDir:       v.GetString("data_dir"),
		LogLevel:      v.GetString("log_level"),
		LogFile:       v.GetString("log_file"),
		OutputFormat:  v.GetString("output_format"),
		OutputWidth:   v.GetInt("output_width"),
	}

	return cfg, nil
}

// Validate checks the settings the server cannot run without.
// It returns a *ConfigError listing every problem at once.
func (c *Config) Validate() error {
	cerr := &ConfigError{}

	required := []struct {
		key   string
		value string
	}{
		{"lastfm.api_key", c.LastFM.APIKey},
		{"lastfm.api_secret", c.LastFM.APISecret},
		{"session_secret", c.SessionSecret},
		{"username", c.Username},
	}
	for _, r := range required {
		if r.value == "" {
			cerr.Missing = append(cerr.Missing, describe(r.key))
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%d", describe("port"), c.Port))
	}
	if c.Interval <= 0 {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("interval=%s", c.Interval))
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return cerr
	}
	return nil
}

// LedgerPath returns the SQLite file for the scrobble ledger.
func (c *Config) LedgerPath() string {
	if c.DataDir == ":memory:" {
		return c.DataDir
	}
	return filepath.Join(c.DataDir, "ledger.db")
}

// describe renders a key together with its bare environment variable.
func describe(key string) string {
	names := envNames[key]
	if len(names) == 0 {
		return key
	}
	return fmt.Sprintf("%s (%s)", key, names[len(names)-1])
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "scrobbleloop")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "scrobbleloop")
}

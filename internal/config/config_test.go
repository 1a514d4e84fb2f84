package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at a temp dir and clears every variable Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, names := range envNames {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
	t.Setenv("SCROBBLELOOP_INTERVAL", "")
	t.Setenv("SCROBBLELOOP_DATA_DIR", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.Interval != 200*time.Millisecond {
		t.Errorf("expected default interval 200ms, got %s", cfg.Interval)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if want := filepath.Join(home, ".local", "share", "scrobbleloop"); cfg.DataDir != want {
		t.Errorf("expected data dir %q, got %q", want, cfg.DataDir)
	}
	if cfg.OutputFormat != "{{.Artist}} - {{.Name}}" {
		t.Errorf("unexpected default output format %q", cfg.OutputFormat)
	}
}

func TestLoad_BareEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET", "secret")
	t.Setenv("SESSION_SECRET", "cookie-secret")
	t.Setenv("USERNAME", "rj")
	t.Setenv("PORT", "8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LastFM.APIKey != "key" || cfg.LastFM.APISecret != "secret" {
		t.Errorf("unexpected credentials: %+v", cfg.LastFM)
	}
	if cfg.SessionSecret != "cookie-secret" {
		t.Errorf("expected session secret, got %q", cfg.SessionSecret)
	}
	if cfg.Username != "rj" {
		t.Errorf("expected username rj, got %q", cfg.Username)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	isolate(t)
	t.Setenv("USERNAME", "os-user")
	t.Setenv("SCROBBLELOOP_USERNAME", "lastfm-user")
	t.Setenv("SCROBBLELOOP_INTERVAL", "1s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Username != "lastfm-user" {
		t.Errorf("expected prefixed username to win, got %q", cfg.Username)
	}
	if cfg.Interval != time.Second {
		t.Errorf("expected interval 1s, got %s", cfg.Interval)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "scrobbleloop")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `lastfm:
  api_key: file-key
  api_secret: file-secret
session_secret: s3cret
username: fileuser
interval: 500ms
data_dir: /tmp/scrobbleloop-test
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LastFM.APIKey != "file-key" {
		t.Errorf("expected api key from file, got %q", cfg.LastFM.APIKey)
	}
	if cfg.Username != "fileuser" {
		t.Errorf("expected username from file, got %q", cfg.Username)
	}
	if cfg.Interval != 500*time.Millisecond {
		t.Errorf("expected interval 500ms, got %s", cfg.Interval)
	}
	if cfg.LedgerPath() != "/tmp/scrobbleloop-test/ledger.db" {
		t.Errorf("unexpected ledger path %q", cfg.LedgerPath())
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		LastFM:        LastFMConfig{APIKey: "k", APISecret: "s"},
		SessionSecret: "x",
		Username:      "u",
		Port:          3000,
		Interval:      200 * time.Millisecond,
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantMissing []string
		wantInvalid int
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:        "missing api key",
			mutate:      func(c *Config) { c.LastFM.APIKey = "" },
			wantMissing: []string{"lastfm.api_key (API_KEY)"},
		},
		{
			name: "missing everything required",
			mutate: func(c *Config) {
				c.LastFM = LastFMConfig{}
				c.SessionSecret = ""
				c.Username = ""
			},
			wantMissing: []string{
				"lastfm.api_key (API_KEY)",
				"lastfm.api_secret (API_SECRET)",
				"session_secret (SESSION_SECRET)",
				"username (USERNAME)",
			},
		},
		{
			name:        "bad port and interval",
			mutate:      func(c *Config) { c.Port = 0; c.Interval = 0 },
			wantInvalid: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantMissing) == 0 && tt.wantInvalid == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if strings.Join(cerr.Missing, "|") != strings.Join(tt.wantMissing, "|") {
				t.Errorf("missing = %v, want %v", cerr.Missing, tt.wantMissing)
			}
			if len(cerr.Invalid) != tt.wantInvalid {
				t.Errorf("invalid = %v, want %d entries", cerr.Invalid, tt.wantInvalid)
			}
		})
	}
}

func TestLedgerPath_Memory(t *testing.T) {
	cfg := Config{DataDir: ":memory:"}
	if cfg.LedgerPath() != ":memory:" {
		t.Errorf("expected :memory:, got %q", cfg.LedgerPath())
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DAYSCHED_BACKEND", "DAYSCHED_BASE_URL", "DAYSCHED_TIMEOUT",
		"DAYSCHED_TZ", "DAYSCHED_LOG_LEVEL", "DAYSCHED_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func writeSettings(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Settings.Backend != BackendHTTP || cfg.Settings.BaseURL != DefaultBaseURL {
		t.Errorf("settings = %+v", cfg.Settings)
	}
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
	if cfg.Location() != time.Local {
		t.Errorf("Location = %v", cfg.Location())
	}
}

func TestNew_SettingsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeSettings(t, dir, `
backend = "googletasks"
base_url = "https://sched.example.com"
request_timeout = "3s"
timezone = "UTC"
log_level = "debug"
`)
	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Settings.Backend != BackendGoogleTasks || cfg.Settings.BaseURL != "https://sched.example.com" {
		t.Errorf("settings = %+v", cfg.Settings)
	}
	if cfg.Timeout() != 3*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location = %v", cfg.Location())
	}
	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.Settings.LogLevel)
	}
}

func TestNew_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeSettings(t, dir, `base_url = "https://file.example.com"`+"\n"+`request_timeout = "3s"`)
	t.Setenv("DAYSCHED_BASE_URL", "https://env.example.com")
	t.Setenv("DAYSCHED_TIMEOUT", "250ms")

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Settings.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q", cfg.Settings.BaseURL)
	}
	if cfg.Timeout() != 250*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Timeout())
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	tests := map[string]string{
		"backend":  `backend = "ftp"`,
		"timeout":  `request_timeout = "soon"`,
		"negative": `request_timeout = "-1s"`,
		"timezone": `timezone = "Mars/Olympus"`,
		"syntax":   `backend = `,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeSettings(t, dir, body)
			if _, err := New(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	clearEnv(t)
	cfg, err := New("~/daysched-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if strings.HasPrefix(cfg.Dir, "~") {
		t.Errorf("Dir not expanded: %s", cfg.Dir)
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("DefaultConfigDir = %s", got)
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{Dir: "/cfg"}
	if cfg.SettingsPath() != "/cfg/config.toml" {
		t.Errorf("SettingsPath = %s", cfg.SettingsPath())
	}
	if cfg.SessionPath() != "/cfg/session" {
		t.Errorf("SessionPath = %s", cfg.SessionPath())
	}
	if cfg.TokenPath() != "/cfg/token.json" || cfg.OAuthClientPath() != "/cfg/oauth_client.json" {
		t.Errorf("oauth paths = %s %s", cfg.TokenPath(), cfg.OAuthClientPath())
	}
}

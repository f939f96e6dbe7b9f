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
	for _, key := range []string{
		"DOCCTL_CONFIG", "API_BASE_URL", "HTTP_TIMEOUT", "POLL_INTERVAL", "MAX_UPLOAD_BYTES",
		"HEIC_CONVERTER", "SESSION_STORE", "BREAKER_ENABLED", "DEVBACKEND_ADMINS", "RATE_LIMIT_RPS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:5000/api" {
		t.Fatalf("expected default base url, got %q", cfg.APIBaseURL)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Fatalf("expected default poll interval 3s, got %s", cfg.PollInterval)
	}
	if cfg.MaxUploadBytes != 20*1024*1024 {
		t.Fatalf("expected 20 MB upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Fatalf("expected 60s timeout, got %s", cfg.HTTPTimeout)
	}
	if !cfg.BreakerEnabled {
		t.Fatalf("expected breaker enabled by default")
	}
	if cfg.SessionStore != SessionStoreFile {
		t.Fatalf("expected file session store, got %q", cfg.SessionStore)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "1500ms")
	t.Setenv("HTTP_TIMEOUT", "5")
	t.Setenv("BREAKER_ENABLED", "false")
	t.Setenv("DEVBACKEND_ADMINS", " admin@example.com, ops@example.com ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Fatalf("expected poll interval 1.5s, got %s", cfg.PollInterval)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.HTTPTimeout)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker override")
	}
	if len(cfg.DevBackendAdmins) != 2 || cfg.DevBackendAdmins[1] != "ops@example.com" {
		t.Fatalf("unexpected admins %v", cfg.DevBackendAdmins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadReadsYAMLWithEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docctl.yaml")
	content := "api_base_url: https://extract.example.com/api\npoll_interval: 5s\nheic_converter: sips\ndevbackend_admins:\n  - a@example.com\n  - b@example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOCCTL_CONFIG", path)
	t.Setenv("POLL_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIBaseURL != "https://extract.example.com/api" {
		t.Fatalf("expected base url from file, got %q", cfg.APIBaseURL)
	}
	if cfg.HEICConverter != "sips" {
		t.Fatalf("expected converter from file, got %q", cfg.HEICConverter)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected env to override file, got %s", cfg.PollInterval)
	}
	if len(cfg.DevBackendAdmins) != 2 {
		t.Fatalf("expected yaml list to load, got %v", cfg.DevBackendAdmins)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCCTL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		APIBaseURL:     "ftp://example.com",
		PollInterval:   0,
		HTTPTimeout:    time.Second,
		MaxUploadBytes: 1,
		HEICConverter:  "ffmpeg",
		SessionStore:   "sqlite",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, fragment := range []string{"API_BASE_URL", "POLL_INTERVAL", "HEIC_CONVERTER", "SESSION_STORE"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %s in %v", fragment, err)
		}
	}
}

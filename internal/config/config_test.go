package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-bot
api:
  rest_url: https://testnets-api.opensea.io/api/v1
  collection_slug: art-blocks
metadata:
  url: https://token.artblocks.io
filter:
  banned_addresses:
    - "0xABC"
    - "0xdef"
discord:
  sale_webhooks:
    - https://discord.com/api/webhooks/1/a
    - https://discord.com/api/webhooks/2/b
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-bot" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-bot")
	}
	if cfg.API.RestURL != "https://testnets-api.opensea.io/api/v1" {
		t.Errorf("API.RestURL = %q, want %q", cfg.API.RestURL, "https://testnets-api.opensea.io/api/v1")
	}
	if cfg.API.CollectionSlug != "art-blocks" {
		t.Errorf("API.CollectionSlug = %q, want %q", cfg.API.CollectionSlug, "art-blocks")
	}
	if len(cfg.Filter.BannedAddresses) != 2 {
		t.Errorf("len(Filter.BannedAddresses) = %d, want 2", len(cfg.Filter.BannedAddresses))
	}
	if len(cfg.Discord.SaleWebhooks) != 2 {
		t.Errorf("len(Discord.SaleWebhooks) = %d, want 2", len(cfg.Discord.SaleWebhooks))
	}
	if !cfg.Discord.Enabled() {
		t.Error("Discord.Enabled() = false, want true")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_OPENSEA_KEY", "secret123")

	yaml := `
instance:
  id: test-bot
api:
  api_key: ${TEST_OPENSEA_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.APIKey != "secret123" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "secret123")
	}
}

func TestLoadDotEnv(t *testing.T) {
	// Ensure the variable is cleared again after the test.
	t.Setenv("TEST_DOTENV_WEBHOOK", "")
	os.Unsetenv("TEST_DOTENV_WEBHOOK")

	dir := t.TempDir()
	env := "TEST_DOTENV_WEBHOOK=https://discord.com/api/webhooks/9/z\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	yaml := `
instance:
  id: test-bot
discord:
  listing_webhooks:
    - ${TEST_DOTENV_WEBHOOK}
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Discord.ListingWebhooks) != 1 || cfg.Discord.ListingWebhooks[0] != "https://discord.com/api/webhooks/9/z" {
		t.Errorf("Discord.ListingWebhooks = %v, want value from .env", cfg.Discord.ListingWebhooks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-bot
database:
  host: localhost
  name: activity
  user: bot
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.API.Retries() != DefaultMaxRetries {
		t.Errorf("API.Retries() = %d, want default %d", cfg.API.Retries(), DefaultMaxRetries)
	}
	if cfg.API.MaxPages != DefaultMaxPages {
		t.Errorf("API.MaxPages = %d, want default %d", cfg.API.MaxPages, DefaultMaxPages)
	}
	if cfg.Metadata.URL != DefaultMetadataURL {
		t.Errorf("Metadata.URL = %q, want default %q", cfg.Metadata.URL, DefaultMetadataURL)
	}
	if cfg.Poller.Interval != DefaultPollInterval {
		t.Errorf("Poller.Interval = %v, want default %v", cfg.Poller.Interval, DefaultPollInterval)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.MaxConns != DefaultMaxConns {
		t.Errorf("Database.MaxConns = %d, want default %d", cfg.Database.MaxConns, DefaultMaxConns)
	}
	if cfg.NATS.SubjectPrefix != DefaultSubjectPrefix {
		t.Errorf("NATS.SubjectPrefix = %q, want default %q", cfg.NATS.SubjectPrefix, DefaultSubjectPrefix)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v, want defaults", cfg.Log)
	}
}

func TestLoadWithDefaultsKeepsZeroRetries(t *testing.T) {
	yaml := `
instance:
  id: test-bot
api:
  max_retries: 0
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.API.Retries() != 0 {
		t.Errorf("API.Retries() = %d, want 0", cfg.API.Retries())
	}
}

func TestLoadWithDefaultsDropsBlankWebhooks(t *testing.T) {
	t.Setenv("TEST_UNSET_SALE_WEBHOOK", "")
	yaml := `
instance:
  id: test-bot
discord:
  sale_webhooks:
    - ${TEST_UNSET_SALE_WEBHOOK}
    - https://discord.com/api/webhooks/1/a
  listing_webhooks:
    - ${TEST_UNSET_SALE_WEBHOOK}
stream:
  enabled: true
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if len(cfg.Discord.SaleWebhooks) != 1 || cfg.Discord.SaleWebhooks[0] != "https://discord.com/api/webhooks/1/a" {
		t.Errorf("Discord.SaleWebhooks = %q, want only the set webhook", cfg.Discord.SaleWebhooks)
	}
	if len(cfg.Discord.ListingWebhooks) != 0 {
		t.Errorf("Discord.ListingWebhooks = %q, want none", cfg.Discord.ListingWebhooks)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
instance:
  id: test-bot
discord:
  sale_webhooks:
    - https://discord.com/api/webhooks/1/a
poller:
  start_after: "2021-06-01T12:00:00Z"
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	start, err := cfg.Poller.StartAfterTime()
	if err != nil {
		t.Fatalf("StartAfterTime() error = %v", err)
	}
	want := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("StartAfterTime() = %v, want %v", start, want)
	}
}

func TestStartAfterTimeUnset(t *testing.T) {
	start, err := PollerConfig{}.StartAfterTime()
	if err != nil {
		t.Fatalf("StartAfterTime() error = %v", err)
	}
	if !start.IsZero() {
		t.Errorf("StartAfterTime() = %v, want zero", start)
	}
}

func validConfig() ActivityConfig {
	cfg := ActivityConfig{
		Instance: InstanceConfig{ID: "test"},
		Discord: DiscordConfig{
			SaleWebhooks: []string{"https://discord.com/api/webhooks/1/a"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ActivityConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *ActivityConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad rest url",
			mutate:  func(c *ActivityConfig) { c.API.RestURL = "ftp://example.com" },
			wantErr: `api.rest_url must be an http(s) URL, got "ftp://example.com"`,
		},
		{
			name: "negative retries",
			mutate: func(c *ActivityConfig) {
				retries := -1
				c.API.MaxRetries = &retries
			},
			wantErr: "api.max_retries must be >= 0",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *ActivityConfig) { c.Poller.Concurrency = 0 },
			wantErr: "poller.concurrency must be >= 1",
		},
		{
			name:    "empty banned address",
			mutate:  func(c *ActivityConfig) { c.Filter.BannedAddresses = []string{"0xabc", "  "} },
			wantErr: "filter.banned_addresses[1] is empty",
		},
		{
			name: "no sinks",
			mutate: func(c *ActivityConfig) {
				c.Discord.SaleWebhooks = nil
			},
			wantErr: "no notification sink configured (discord, nats, stream or database)",
		},
		{
			name: "missing database password",
			mutate: func(c *ActivityConfig) {
				c.Database.Host = "localhost"
				c.Database.Name = "db"
				c.Database.User = "user"
			},
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *ActivityConfig) {
				c.Database = DatabaseConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *ActivityConfig) { c.Log.Level = "verbose" },
			wantErr: `log.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name: "stream only",
			mutate: func(c *ActivityConfig) {
				c.Discord.SaleWebhooks = nil
				c.Stream.Enabled = true
			},
			wantErr: "",
		},
		{
			name:    "valid config",
			mutate:  func(c *ActivityConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

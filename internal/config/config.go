package config

import (
	"fmt"
	"strings"
	"time"
)

// ActivityConfig is the root configuration for the activity bot.
type ActivityConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Metadata MetadataConfig `yaml:"metadata"`
	Poller   PollerConfig   `yaml:"poller"`
	Filter   FilterConfig   `yaml:"filter"`
	Discord  DiscordConfig  `yaml:"discord"`
	NATS     NATSConfig     `yaml:"nats"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Writers  WritersConfig  `yaml:"writers"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this bot.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds marketplace event feed settings.
type APIConfig struct {
	RestURL         string        `yaml:"rest_url"`
	APIKey          string        `yaml:"api_key"`    // Sent as X-API-KEY
	EventType       string        `yaml:"event_type"` // Empty fetches all types
	CollectionSlug  string        `yaml:"collection_slug"`
	ContractAddress string        `yaml:"contract_address"`
	PageSize        int           `yaml:"page_size"`
	MaxPages        int           `yaml:"max_pages"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      *int          `yaml:"max_retries"` // Unset uses the default; 0 disables retries
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
}

// Retries returns the configured retry count.
func (a APIConfig) Retries() int {
	if a.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *a.MaxRetries
}

// MetadataConfig holds token metadata API settings.
type MetadataConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PollerConfig holds feed poller settings.
type PollerConfig struct {
	Interval      time.Duration `yaml:"interval"`
	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`
	HandleTimeout time.Duration `yaml:"handle_timeout"`
	StartAfter    string        `yaml:"start_after"` // RFC 3339, empty = process start
}

// StartAfterTime parses StartAfter. It returns the zero time when unset.
func (p PollerConfig) StartAfterTime() (time.Time, error) {
	if strings.TrimSpace(p.StartAfter) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(p.StartAfter))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse poller.start_after: %w", err)
	}
	return t, nil
}

// FilterConfig holds event suppression settings.
type FilterConfig struct {
	BannedAddresses []string `yaml:"banned_addresses"`
}

// DiscordConfig holds Discord webhook settings.
type DiscordConfig struct {
	SaleWebhooks    []string      `yaml:"sale_webhooks"`
	ListingWebhooks []string      `yaml:"listing_webhooks"`
	Username        string        `yaml:"username"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Enabled reports whether any webhook is configured.
func (d DiscordConfig) Enabled() bool {
	return len(d.SaleWebhooks) > 0 || len(d.ListingWebhooks) > 0
}

// NATSConfig holds JetStream publisher settings. Empty URL disables the sink.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	Stream        string        `yaml:"stream"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	MaxAge        time.Duration `yaml:"max_age"`
}

// Enabled reports whether the NATS sink is configured.
func (n NATSConfig) Enabled() bool { return n.URL != "" }

// StreamConfig holds live WebSocket feed settings.
type StreamConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Path         string        `yaml:"path"`
	BufferSize   int           `yaml:"buffer_size"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// DatabaseConfig holds the archive database connection. Empty Host disables the archive.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ApplicationName string        `yaml:"application_name"`
}

// Enabled reports whether the archive database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// WritersConfig holds archive batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds the HTTP server settings for metrics, health and the live feed.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultRestURL         = "https://api.opensea.io/api/v1"
	DefaultPageSize        = 50
	DefaultMaxPages        = 5
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 1 * time.Second
	DefaultMetadataURL     = "https://token.artblocks.io"
	DefaultMetadataTimeout = 10 * time.Second
	DefaultPollInterval    = 30 * time.Second
	DefaultPollConcurrency = 4
	DefaultPollTimeout     = 30 * time.Second
	DefaultHandleTimeout   = 30 * time.Second
	DefaultDiscordTimeout  = 10 * time.Second
	DefaultNATSStream      = "NFT_ACTIVITY"
	DefaultSubjectPrefix   = "nft.activity"
	DefaultStreamMaxAge    = 72 * time.Hour
	DefaultStreamPath      = "/stream"
	DefaultStreamBuffer    = 256
	DefaultStreamPing      = 30 * time.Second
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultConnectTimeout  = 10 * time.Second
	DefaultApplicationName = "activitybot"
	DefaultBatchSize       = 100
	DefaultFlushInterval   = 5 * time.Second
	DefaultBufferSize      = 1000
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

func (c *ActivityConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = DefaultPageSize
	}
	if c.API.MaxPages == 0 {
		c.API.MaxPages = DefaultMaxPages
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.API.MaxRetries = &retries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Metadata defaults
	if c.Metadata.URL == "" {
		c.Metadata.URL = DefaultMetadataURL
	}
	if c.Metadata.Timeout == 0 {
		c.Metadata.Timeout = DefaultMetadataTimeout
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}
	if c.Poller.HandleTimeout == 0 {
		c.Poller.HandleTimeout = DefaultHandleTimeout
	}

	// Sink defaults. Webhooks left blank by an unset ${VAR} are dropped.
	c.Discord.SaleWebhooks = nonBlank(c.Discord.SaleWebhooks)
	c.Discord.ListingWebhooks = nonBlank(c.Discord.ListingWebhooks)
	if c.Discord.Timeout == 0 {
		c.Discord.Timeout = DefaultDiscordTimeout
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = DefaultNATSStream
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.NATS.MaxAge == 0 {
		c.NATS.MaxAge = DefaultStreamMaxAge
	}
	if c.Stream.Path == "" {
		c.Stream.Path = DefaultStreamPath
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBuffer
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultStreamPing
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Database.ApplicationName == "" {
		c.Database.ApplicationName = DefaultApplicationName
	}

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ActivityConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := validateURL("api.rest_url", c.API.RestURL); err != nil {
		return err
	}
	if c.API.PageSize < 1 {
		return errors.New("api.page_size must be >= 1")
	}
	if c.API.MaxPages < 1 {
		return errors.New("api.max_pages must be >= 1")
	}
	if c.API.Retries() < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if err := validateURL("metadata.url", c.Metadata.URL); err != nil {
		return err
	}

	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}
	if _, err := c.Poller.StartAfterTime(); err != nil {
		return err
	}

	for i, addr := range c.Filter.BannedAddresses {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("filter.banned_addresses[%d] is empty", i)
		}
	}

	for i, hook := range c.Discord.SaleWebhooks {
		if err := validateURL(fmt.Sprintf("discord.sale_webhooks[%d]", i), hook); err != nil {
			return err
		}
	}
	for i, hook := range c.Discord.ListingWebhooks {
		if err := validateURL(fmt.Sprintf("discord.listing_webhooks[%d]", i), hook); err != nil {
			return err
		}
	}

	if !c.Discord.Enabled() && !c.NATS.Enabled() && !c.Stream.Enabled && !c.Database.Enabled() {
		return errors.New("no notification sink configured (discord, nats, stream or database)")
	}

	if c.Stream.Enabled && !strings.HasPrefix(c.Stream.Path, "/") {
		return fmt.Errorf("stream.path must start with /, got %q", c.Stream.Path)
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DatabaseConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

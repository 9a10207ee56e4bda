package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// DiscordConfig holds webhook URLs per route.
type DiscordConfig struct {
	SaleWebhooks    []string
	ListingWebhooks []string
	Username        string        // Overrides the webhook's default name, optional
	Timeout         time.Duration // Per-request timeout (default: 10s)
}

// WebhookError is a non-2xx response from a Discord webhook.
type WebhookError struct {
	StatusCode int
	Body       []byte
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("discord webhook error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// DiscordSink posts embeds to Discord webhooks.
type DiscordSink struct {
	cfg        DiscordConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDiscordSink creates a DiscordSink. hc may be nil.
func NewDiscordSink(cfg DiscordConfig, hc *http.Client, logger *slog.Logger) *DiscordSink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &DiscordSink{cfg: cfg, httpClient: hc, logger: logger}
}

// Name implements Sink.
func (s *DiscordSink) Name() string { return "discord" }

// Send posts n to every webhook configured for its route.
func (s *DiscordSink) Send(ctx context.Context, n model.Notification) error {
	hooks := s.webhooks(n.Route)
	if len(hooks) == 0 {
		return ErrNoRoute
	}

	body, err := json.Marshal(s.payload(n))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var errs []error
	for _, url := range hooks {
		if err := s.post(ctx, url, body); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *DiscordSink) webhooks(r model.Route) []string {
	switch r {
	case model.RouteSale:
		return s.cfg.SaleWebhooks
	case model.RouteListing:
		return s.cfg.ListingWebhooks
	default:
		return nil
	}
}

func (s *DiscordSink) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &WebhookError{StatusCode: resp.StatusCode, Body: b}
	}

	return nil
}

// Discord webhook wire format.
type webhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title     string             `json:"title"`
	URL       string             `json:"url,omitempty"`
	Timestamp string             `json:"timestamp,omitempty"`
	Thumbnail *webhookImage      `json:"thumbnail,omitempty"`
	Fields    []model.EmbedField `json:"fields,omitempty"`
}

type webhookImage struct {
	URL string `json:"url"`
}

func (s *DiscordSink) payload(n model.Notification) webhookPayload {
	e := webhookEmbed{
		Title:     n.Embed.Title,
		URL:       n.Embed.URL,
		Timestamp: n.Event.Time().Format(time.RFC3339),
		Fields:    n.Embed.Fields,
	}
	if n.Embed.Thumbnail != "" {
		e.Thumbnail = &webhookImage{URL: n.Embed.Thumbnail}
	}
	return webhookPayload{Username: s.cfg.Username, Embeds: []webhookEmbed{e}}
}

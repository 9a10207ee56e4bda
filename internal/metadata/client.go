// Package metadata looks up token metadata used to enrich marketplace events.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// DefaultBaseURL is the Art Blocks token API.
const DefaultBaseURL = "https://token.artblocks.io"

// ErrNotFound is returned when the API has no record for a token.
var ErrNotFound = errors.New("token metadata not found")

// StatusError is a non-404 error status from the metadata API.
type StatusError struct {
	StatusCode int
	TokenID    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metadata api error %d for token %s", e.StatusCode, e.TokenID)
}

// tokenResponse from GET /{token_id}
type tokenResponse struct {
	Name           string `json:"name"`
	Artist         string `json:"artist"`
	Image          string `json:"image"`
	ExternalURL    string `json:"external_url"`
	CollectionName string `json:"collection_name"`
}

// Client fetches token metadata. It never retries: a failed lookup drops the
// notification for that one event.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a metadata client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// GetToken fetches metadata for tokenID.
func (c *Client) GetToken(ctx context.Context, tokenID string) (*model.TokenMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(tokenID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", tokenID, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("metadata lookup",
		"token_id", tokenID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("token %s: %w", tokenID, ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, &StatusError{StatusCode: resp.StatusCode, TokenID: tokenID}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("unmarshal token %s: %w", tokenID, err)
	}

	return &model.TokenMetadata{
		DisplayName:    tr.Name,
		CreatorName:    tr.Artist,
		ImageURL:       tr.Image,
		ExternalURL:    tr.ExternalURL,
		CollectionName: tr.CollectionName,
	}, nil
}

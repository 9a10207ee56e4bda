package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/artblocks-activity/internal/dedup"
)

// DefaultMaxPages bounds pagination within one poll when no limit is configured.
const DefaultMaxPages = 5

// GetEvents fetches a page of asset events.
func (c *Client) GetEvents(ctx context.Context, opts GetEventsOptions) (*EventsResponse, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.EventType != "" {
		query.Set("event_type", opts.EventType)
	}
	if opts.CollectionSlug != "" {
		query.Set("collection_slug", opts.CollectionSlug)
	}
	if opts.ContractAddr != "" {
		query.Set("asset_contract_address", opts.ContractAddr)
	}
	if opts.OccurredAfter > 0 {
		query.Set("occurred_after", strconv.FormatInt(opts.OccurredAfter, 10))
	}

	var resp EventsResponse
	if err := c.get(ctx, "/events", query, &resp); err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}

	return &resp, nil
}

// GetEventsPages fetches up to maxPages pages by following the next cursor.
// maxPages <= 0 uses DefaultMaxPages. When the bound is hit with pages left,
// the older unfetched events are not returned and a warning is logged.
func (c *Client) GetEventsPages(ctx context.Context, opts GetEventsOptions, maxPages int) ([]APIAssetEvent, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []APIAssetEvent
	for page := 0; page < maxPages; page++ {
		resp, err := c.GetEvents(ctx, opts)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.AssetEvents...)

		if resp.Next == "" {
			return all, nil
		}
		opts.Cursor = resp.Next
	}

	c.logger.Warn("event pages truncated, older events in this window are skipped",
		"max_pages", maxPages,
		"events", len(all),
		"occurred_after", opts.OccurredAfter,
	)

	return all, nil
}

// Feed polls the events endpoint with a fixed filter.
type Feed struct {
	client   *Client
	opts     GetEventsOptions
	maxPages int
}

// NewFeed creates a Feed. opts.Cursor and opts.OccurredAfter are set per fetch.
func NewFeed(client *Client, opts GetEventsOptions, maxPages int) *Feed {
	opts.Cursor = ""
	opts.OccurredAfter = 0
	return &Feed{client: client, opts: opts, maxPages: maxPages}
}

// Fetch returns every event that occurred in or after the watermark's second.
// Events within that second are re-delivered and removed by the watermark filter.
func (f *Feed) Fetch(ctx context.Context, after dedup.Watermark) ([]APIAssetEvent, error) {
	opts := f.opts
	if after > 0 {
		opts.OccurredAfter = after.Unix()
	}
	return f.client.GetEventsPages(ctx, opts, f.maxPages)
}

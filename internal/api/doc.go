// Package api provides the marketplace REST client for the asset events feed.
//
// Endpoint:
//   - Production: https://api.opensea.io/api/v1
//
// The feed is queried with GET /events, filtered by collection and event type and
// narrowed with occurred_after (unix seconds). Pages are chained with the "next" cursor.
// Event types of interest: successful (sale), created (listing).
package api

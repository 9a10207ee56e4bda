// Package stream implements the live notification feed.
//
// The Hub:
//   - Accepts WebSocket subscribers on an HTTP endpoint
//   - Optionally filters per subscriber by route (?route=sale or ?route=listing)
//   - Broadcasts every notification as a JSON text message
//   - Pings subscribers and drops stale ones
//   - Drops messages for subscribers whose buffer is full
package stream

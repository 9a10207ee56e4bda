// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Poll cycle outcomes and durations
//   - Events fetched, new, and skipped (by reason)
//   - Current watermark
//   - Notification deliveries by sink, route and result
//   - Metadata lookup latency
package metrics

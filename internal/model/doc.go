// Package model defines shared data types used across the activity notifier.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Prices: decimal ETH (converted from wei at the API boundary)
//   - Addresses: lower-case hex strings as returned by the marketplace
//   - IDs: token IDs are decimal strings, notification IDs are uuid.UUID
package model

// Package writer implements the notification archive writer.
//
// The archive writer buffers delivered notifications and inserts them into the
// notifications table (PostgreSQL) in batches, flushing on size or interval.
// Inserts are append-only and keyed by notification ID (ON CONFLICT DO NOTHING).
//
// The archive is an audit trail only. It is never read back to seed the
// watermark.
package writer

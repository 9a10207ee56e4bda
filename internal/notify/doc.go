// Package notify delivers formatted notifications to their sinks.
//
// A Dispatcher fans a notification out to every configured Sink. Each sink applies
// the notification's Route (SALE or LISTING) its own way: Discord picks a webhook
// set, NATS picks a subject, the live feed and the archive record it.
//
// BanList carries the suppression rule: events whose seller is banned are never
// handed to a sink.
package notify

// Package activity turns new marketplace events into notifications.
//
// For each event the Processor:
//  1. drops kinds that have no route (anything but sales and listings)
//  2. drops events whose seller is on the ban list
//  3. looks up token metadata
//  4. drops tokens that are not part of a known collection
//  5. renders the embed and hands the notification to the dispatcher
//
// Skips are not errors. A failed metadata lookup is returned as an error so
// the poller can count it, and affects only that event.
package activity

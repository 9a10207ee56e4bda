// Package poller implements the feed poller.
//
// The poller:
//   - Fetches one batch from the feed every interval (immediately on start)
//   - Parses the raw batch and filters it against the watermark
//   - Hands every new event to the handler, with bounded concurrency
//   - Advances the watermark once, after the whole batch has been handled
//
// A cycle runs to completion before the next one starts. Failures are logged and
// never stop the loop. If the poller is stopped mid-batch the watermark is left
// where it was.
package poller

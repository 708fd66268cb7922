// Package notifications posts run results to ntfy.
//
// NewService returns a no-op Service when no topic is configured, so callers
// never check whether notifications are enabled.
package notifications

// Package notifications delivers push notifications for import lifecycle
// events via ntfy. When no topic is configured, a noop service is returned
// so callers never need to branch on whether notifications are enabled.
package notifications

// Package notifications delivers desktop notifications for queue decisions.
//
// NewDesktop picks notify-send on linux and osascript on darwin, and degrades
// to a no-op when neither is available. Callers depend only on the Notifier
// interface and treat delivery as best effort.
package notifications

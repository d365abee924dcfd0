package watch

import "context"

// Notification represents a message to be sent to a subscriber.
type Notification struct {
	Method string
	Params any
}

// Notifier abstracts the mechanism for sending notifications.
// WebSocket clients use the JSON-RPC notifier; tests provide fakes.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Watcher is the subset of watcher behavior the RPC layer needs for
// generic unsubscribe handling and connection cleanup.
type Watcher interface {
	Unsubscribe(id string)
}

package ws

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/captrail/server/capture"
	"github.com/captrail/server/transcript"
	"github.com/captrail/server/watch"
)

// JSONRPCNotifier adapts jsonrpc2.Conn to watch.Notifier interface.
type JSONRPCNotifier struct {
	conn *jsonrpc2.Conn
}

var _ watch.Notifier = (*JSONRPCNotifier)(nil)

func NewJSONRPCNotifier(conn *jsonrpc2.Conn) *JSONRPCNotifier {
	return &JSONRPCNotifier{conn: conn}
}

func (n *JSONRPCNotifier) Notify(ctx context.Context, notif watch.Notification) error {
	return n.conn.Notify(ctx, notif.Method, notif.Params)
}

// captureNotifier delivers capture-controller signals to the owning
// connection and fans transcript changes out to the watcher.
type captureNotifier struct {
	conn    *jsonrpc2.Conn
	connID  string
	log     *slog.Logger
	watcher *watch.TranscriptWatcher
}

var _ capture.Notifier = (*captureNotifier)(nil)

func (n *captureNotifier) ArmLeaveTrigger(ctx context.Context) {
	n.notify(ctx, "leave.arm")
}

func (n *captureNotifier) DisarmLeaveTrigger(ctx context.Context) {
	n.notify(ctx, "leave.disarm")
}

func (n *captureNotifier) RequestSnapshot(ctx context.Context) {
	n.notify(ctx, "page.snapshot_request")
}

func (n *captureNotifier) notify(ctx context.Context, method string) {
	if err := n.conn.Notify(ctx, method, struct{}{}); err != nil {
		n.log.Debug("failed to notify capture client", "method", method, "error", err)
	}
}

// TranscriptChanged publishes without blocking; the watcher owns the
// fan-out I/O.
func (n *captureNotifier) TranscriptChanged(title string, entries []transcript.Entry) {
	n.watcher.Publish(watch.TranscriptUpdate{
		ConnID:  n.connID,
		Title:   title,
		Entries: entries,
	})
}

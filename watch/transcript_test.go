package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/captrail/server/transcript"
)

// fakeNotifier records notifications and signals arrival.
type fakeNotifier struct {
	mu            sync.Mutex
	notifications []Notification
	received      chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{received: make(chan struct{}, 16)}
}

func (f *fakeNotifier) Notify(ctx context.Context, n Notification) error {
	f.mu.Lock()
	f.notifications = append(f.notifications, n)
	f.mu.Unlock()
	f.received <- struct{}{}
	return nil
}

func (f *fakeNotifier) all() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

func (f *fakeNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestTranscriptWatcher_PublishNotifiesSubscribers(t *testing.T) {
	w := NewTranscriptWatcher()
	w.Start()
	defer w.Stop()

	notifier := newFakeNotifier()
	id := w.Subscribe(notifier)

	w.Publish(TranscriptUpdate{
		ConnID:  "conn-1",
		Title:   "Weekly Sync",
		Entries: []transcript.Entry{{SpeakerName: "Jane Doe", Text: "Hello"}},
	})
	notifier.wait(t)

	got := notifier.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Method != "transcript.changed" {
		t.Errorf("method = %q, want transcript.changed", got[0].Method)
	}
	params, ok := got[0].Params.(transcriptChangedParams)
	if !ok {
		t.Fatalf("params type = %T", got[0].Params)
	}
	if params.ID != id {
		t.Errorf("subscription id = %q, want %q", params.ID, id)
	}
	if params.Title != "Weekly Sync" || len(params.Entries) != 1 {
		t.Errorf("params = %+v", params)
	}
}

func TestTranscriptWatcher_UnsubscribeStopsNotifications(t *testing.T) {
	w := NewTranscriptWatcher()
	w.Start()
	defer w.Stop()

	notifier := newFakeNotifier()
	id := w.Subscribe(notifier)
	w.Unsubscribe(id)

	w.Publish(TranscriptUpdate{Title: "Weekly Sync"})

	time.Sleep(100 * time.Millisecond)
	if got := notifier.all(); len(got) != 0 {
		t.Errorf("expected no notifications after unsubscribe, got %d", len(got))
	}
}

func TestTranscriptWatcher_PublishAfterStopIsNoop(t *testing.T) {
	w := NewTranscriptWatcher()
	w.Start()
	w.Stop()

	// Must not block or panic.
	w.Publish(TranscriptUpdate{Title: "Weekly Sync"})
}

package watch

import (
	"log/slog"

	"github.com/captrail/server/transcript"
)

// TranscriptUpdate is one reconciled state of a live transcript.
type TranscriptUpdate struct {
	ConnID  string             `json:"connId"`
	Title   string             `json:"title"`
	Entries []transcript.Entry `json:"entries"`
}

// TranscriptWatcher fans live transcript updates out to management
// clients. Capture controllers publish after every batch that changed
// the transcript; publishing never blocks the capture event loop, a
// dropped update is superseded by the next one since every update
// carries the full entry list.
type TranscriptWatcher struct {
	*BaseWatcher
	eventCh chan TranscriptUpdate
}

func NewTranscriptWatcher() *TranscriptWatcher {
	return &TranscriptWatcher{
		BaseWatcher: NewBaseWatcher("tr"),
		eventCh:     make(chan TranscriptUpdate, 64),
	}
}

func (w *TranscriptWatcher) Start() error {
	go w.eventLoop()
	slog.Info("TranscriptWatcher started")
	return nil
}

func (w *TranscriptWatcher) Stop() {
	w.Cancel()
	slog.Info("TranscriptWatcher stopped")
}

func (w *TranscriptWatcher) eventLoop() {
	for {
		select {
		case <-w.Context().Done():
			return
		case u := <-w.eventCh:
			w.notifyChange(u)
		}
	}
}

func (w *TranscriptWatcher) notifyChange(u TranscriptUpdate) {
	if !w.HasSubscriptions() {
		return
	}

	w.NotifyAll("transcript.changed", func(sub *Subscription) any {
		return transcriptChangedParams{
			ID:               sub.ID,
			TranscriptUpdate: u,
		}
	})

	slog.Debug("notified transcript change", "entries", len(u.Entries))
}

// Subscribe registers a subscriber for live transcript updates.
func (w *TranscriptWatcher) Subscribe(notifier Notifier) string {
	id := w.GenerateID()
	w.AddSubscription(&Subscription{
		ID:       id,
		Notifier: notifier,
	})
	return id
}

// Publish hands an update to the fan-out loop without blocking.
func (w *TranscriptWatcher) Publish(u TranscriptUpdate) {
	if w.Context().Err() != nil {
		return
	}

	select {
	case w.eventCh <- u:
	default:
		slog.Debug("transcript update dropped (buffer full)")
	}
}

type transcriptChangedParams struct {
	ID string `json:"id"`
	TranscriptUpdate
}

// Package transcript holds the in-memory transcript of one meeting
// session and the reconciliation of live caption revisions into it.
package transcript

import (
	"time"

	"github.com/captrail/server/caption"
)

// timeLayout matches the locale time-of-day strings the capture format
// has always used in exports and stored records.
const timeLayout = "3:04:05 PM"

// Entry is one finalized-or-in-progress utterance. JSON field names are
// the wire shape the extension client and stored records use.
//
// SpeakerName and CapturedAt are set at first observation and never
// change; Text is revised in place as the host refines the caption.
type Entry struct {
	SpeakerName string `json:"Name"`
	Text        string `json:"Text"`
	CapturedAt  string `json:"Time"`
	StableID    string `json:"ID"`
}

// Transcript is an insertion-ordered, deduplicated sequence of entries
// owned by a single capture session. It is not safe for concurrent use;
// the capture controller serializes all access on its event loop.
type Transcript struct {
	clock   func() time.Time
	entries []Entry
	index   map[string]int // StableID -> position in entries
}

func New() *Transcript {
	return NewWithClock(time.Now)
}

// NewWithClock allows tests to pin CapturedAt values.
func NewWithClock(clock func() time.Time) *Transcript {
	return &Transcript{
		clock: clock,
		index: make(map[string]int),
	}
}

// Reconcile merges a batch of raw captions, in batch order, into the
// transcript and reports whether anything changed.
//
// Unknown stable IDs append a new entry at the end, so entries keep
// first-observed order even when their text finalizes later. A known ID
// with different text updates that entry's text in place, keeping its
// position and original CapturedAt. A known ID with identical text is a
// no-op, which makes the whole operation idempotent. Captions without a
// stable ID are dropped before matching.
func (t *Transcript) Reconcile(batch []caption.RawCaption) bool {
	changed := false
	for _, raw := range batch {
		if raw.StableID == "" {
			continue
		}

		if i, ok := t.index[raw.StableID]; ok {
			if t.entries[i].Text != raw.Text {
				t.entries[i].Text = raw.Text
				changed = true
			}
			continue
		}

		t.entries = append(t.entries, Entry{
			SpeakerName: raw.SpeakerName,
			Text:        raw.Text,
			CapturedAt:  t.clock().Format(timeLayout),
			StableID:    raw.StableID,
		})
		t.index[raw.StableID] = len(t.entries) - 1
		changed = true
	}
	return changed
}

// Entries returns a copy of the accumulated entries in insertion order.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	return len(t.entries)
}

// Reset drops all entries. Called when a new meeting session begins.
func (t *Transcript) Reset() {
	t.entries = t.entries[:0]
	clear(t.index)
}

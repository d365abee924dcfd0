package transcript

import (
	"testing"
	"time"

	"github.com/captrail/server/caption"
)

// fakeClock returns successive times one second apart so each new entry
// gets a distinct CapturedAt.
func fakeClock() func() time.Time {
	t := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func raw(id, speaker, text string) caption.RawCaption {
	return caption.RawCaption{StableID: id, SpeakerName: speaker, Text: text}
}

func TestReconcile_AppendsNewEntries(t *testing.T) {
	tr := NewWithClock(fakeClock())

	changed := tr.Reconcile([]caption.RawCaption{
		raw("c1", "Jane Doe", "Hello"),
		raw("c2", "John Smith", "Hi"),
	})
	if !changed {
		t.Fatal("expected change")
	}

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].StableID != "c1" || entries[1].StableID != "c2" {
		t.Errorf("entries out of order: %+v", entries)
	}
	if entries[0].CapturedAt != "2:30:01 PM" {
		t.Errorf("CapturedAt = %q, want %q", entries[0].CapturedAt, "2:30:01 PM")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	tr := NewWithClock(fakeClock())
	batch := []caption.RawCaption{raw("c1", "Jane Doe", "Hello")}

	tr.Reconcile(batch)
	if tr.Reconcile(batch) {
		t.Error("identical batch should report no change")
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", tr.Len())
	}
}

func TestReconcile_RevisesTextInPlace(t *testing.T) {
	tr := NewWithClock(fakeClock())

	tr.Reconcile([]caption.RawCaption{
		raw("c1", "Jane Doe", "Hel"),
		raw("c2", "John Smith", "Morning"),
	})
	first := tr.Entries()[0]

	changed := tr.Reconcile([]caption.RawCaption{
		raw("c1", "Jane Doe", "Hello everyone"),
	})
	if !changed {
		t.Fatal("expected change from text revision")
	}

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "Hello everyone" {
		t.Errorf("text = %q, want revised text", entries[0].Text)
	}
	if entries[0].CapturedAt != first.CapturedAt {
		t.Error("CapturedAt must not change on revision")
	}
	if entries[0].StableID != "c1" {
		t.Error("revised entry must keep its position")
	}
}

func TestReconcile_KeepsFirstObservedOrder(t *testing.T) {
	tr := NewWithClock(fakeClock())

	tr.Reconcile([]caption.RawCaption{raw("c1", "A", "one")})
	tr.Reconcile([]caption.RawCaption{raw("c2", "B", "two")})
	// The host scrolls c1 out of view; only c2 and a revision remain.
	tr.Reconcile([]caption.RawCaption{raw("c2", "B", "two revised")})

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].StableID != "c1" {
		t.Error("scrolled-out entry must survive in place")
	}
	if entries[1].Text != "two revised" {
		t.Errorf("text = %q, want revision applied", entries[1].Text)
	}
}

func TestReconcile_DropsEmptyID(t *testing.T) {
	tr := NewWithClock(fakeClock())

	if tr.Reconcile([]caption.RawCaption{raw("", "Jane", "no id")}) {
		t.Error("caption without stable id should be a no-op")
	}
	if tr.Len() != 0 {
		t.Errorf("expected 0 entries, got %d", tr.Len())
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	tr := NewWithClock(fakeClock())
	tr.Reconcile([]caption.RawCaption{raw("c1", "Jane", "Hello")})

	entries := tr.Entries()
	entries[0].Text = "mutated"

	if tr.Entries()[0].Text != "Hello" {
		t.Error("Entries must return a copy")
	}
}

func TestReset(t *testing.T) {
	tr := NewWithClock(fakeClock())
	tr.Reconcile([]caption.RawCaption{raw("c1", "Jane", "Hello")})

	tr.Reset()
	if tr.Len() != 0 {
		t.Fatalf("expected empty transcript, got %d", tr.Len())
	}

	// The same stable id is new again after a reset.
	if !tr.Reconcile([]caption.RawCaption{raw("c1", "Jane", "Hello")}) {
		t.Error("expected change after reset")
	}
}

package meeting

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/captrail/server/transcript"
)

// newTestStore pins an advancing clock so every created record gets a
// distinct millisecond ID.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	s.clock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return s
}

func entries(texts ...string) []transcript.Entry {
	out := make([]transcript.Entry, len(texts))
	for i, text := range texts {
		out[i] = transcript.Entry{
			SpeakerName: "Jane Doe",
			Text:        text,
			CapturedAt:  fmt.Sprintf("2:30:%02d PM", i),
			StableID:    fmt.Sprintf("c%d", i),
		}
	}
	return out
}

func TestUpsert_Create(t *testing.T) {
	s := newTestStore(t)

	record, created, err := s.Upsert("Weekly Sync", "3/10/2025", "Room 4", entries("hello", "hi"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("expected created")
	}
	if record.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if record.StartTime != "2:30:00 PM" || record.EndTime != "2:30:01 PM" {
		t.Errorf("times = %q-%q", record.StartTime, record.EndTime)
	}
	if record.Details != "Room 4" {
		t.Errorf("details = %q", record.Details)
	}
	if len(record.Transcripts) != 2 {
		t.Errorf("expected 2 transcripts, got %d", len(record.Transcripts))
	}
}

func TestUpsert_UpdateKeepsIDAndPosition(t *testing.T) {
	s := newTestStore(t)

	first, _, _ := s.Upsert("Weekly Sync", "3/10/2025", "", entries("a"))
	s.Upsert("Design Review", "3/10/2025", "", entries("b"))

	updated, created, err := s.Upsert("Weekly Sync", "3/10/2025", "", entries("a", "more"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created {
		t.Error("expected update, not create")
	}
	if updated.ID != first.ID {
		t.Errorf("ID = %d, want %d", updated.ID, first.ID)
	}

	records, _ := s.List()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Design Review was created later and stays in front.
	if records[0].Title != "Design Review" || records[1].Title != "Weekly Sync" {
		t.Errorf("order = %q, %q", records[0].Title, records[1].Title)
	}
	if len(records[1].Transcripts) != 2 {
		t.Errorf("expected updated transcripts, got %d", len(records[1].Transcripts))
	}
}

func TestUpsert_SameTitleDifferentDateCreates(t *testing.T) {
	s := newTestStore(t)

	s.Upsert("Standup", "3/10/2025", "", entries("a"))
	_, created, err := s.Upsert("Standup", "3/11/2025", "", entries("b"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("same title on another date must create a new record")
	}
}

func TestUpsert_PrependsNewest(t *testing.T) {
	s := newTestStore(t)

	s.Upsert("First", "3/10/2025", "", entries("a"))
	s.Upsert("Second", "3/10/2025", "", entries("b"))

	records, _ := s.List()
	if records[0].Title != "Second" {
		t.Errorf("newest first: got %q", records[0].Title)
	}
}

func TestUpsert_EvictsOldestAtCapacity(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < Capacity+1; i++ {
		s.Upsert(fmt.Sprintf("Meeting %d", i), "3/10/2025", "", entries("x"))
	}

	records, _ := s.List()
	if len(records) != Capacity {
		t.Fatalf("expected %d records, got %d", Capacity, len(records))
	}
	if records[0].Title != fmt.Sprintf("Meeting %d", Capacity) {
		t.Errorf("newest = %q", records[0].Title)
	}
	for _, r := range records {
		if r.Title == "Meeting 0" {
			t.Error("oldest record should have been evicted")
		}
	}
}

func TestGet(t *testing.T) {
	s := newTestStore(t)
	record, _, _ := s.Upsert("Weekly Sync", "3/10/2025", "", entries("a"))

	got, found, err := s.Get(record.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected record")
	}
	if got.Title != "Weekly Sync" {
		t.Errorf("title = %q", got.Title)
	}

	_, found, _ = s.Get(12345)
	if found {
		t.Error("expected not found")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	record, _, _ := s.Upsert("Weekly Sync", "3/10/2025", "", entries("a"))

	if err := s.Delete(record.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, _ := s.Get(record.ID)
	if found {
		t.Error("expected record to be deleted")
	}
}

func TestDelete_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(999); err != ErrMeetingNotFound {
		t.Errorf("err = %v, want ErrMeetingNotFound", err)
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s1, _ := NewStore(dir)
	record, _, err := s1.Upsert("Weekly Sync", "3/10/2025", "Room 4", entries("hello"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("re-open: %v", err)
	}
	got, found, err := s2.Get(record.ID)
	if err != nil || !found {
		t.Fatalf("Get after re-open: found=%v err=%v", found, err)
	}
	if got.Title != "Weekly Sync" || got.Details != "Room 4" {
		t.Errorf("got %+v", got)
	}
	if len(got.Transcripts) != 1 || got.Transcripts[0].Text != "hello" {
		t.Errorf("transcripts = %+v", got.Transcripts)
	}
}

func TestCorruptFileFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "savedMeetings.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	records, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty collection, got %d", len(records))
	}

	// The store must still accept writes afterwards.
	if _, _, err := s.Upsert("Recovered", "3/10/2025", "", entries("a")); err != nil {
		t.Fatalf("Upsert after corruption: %v", err)
	}
}

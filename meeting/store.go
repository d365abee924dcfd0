// Package meeting persists saved meetings as a single JSON document,
// bounded to a fixed capacity with most-recently-created-first ordering.
package meeting

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/captrail/server/transcript"
)

// Capacity bounds the saved-meetings collection; creating the 21st
// record evicts the oldest.
const Capacity = 20

// Store is a file-backed collection of saved meetings. Writes are
// atomic (temp file + rename); a corrupted file falls back to an empty
// collection rather than failing startup.
type Store struct {
	path  string
	clock func() time.Time

	mu sync.RWMutex
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &Store{
		path:  filepath.Join(dataDir, "savedMeetings.json"),
		clock: time.Now,
	}, nil
}

// List returns all saved meetings, most recently created first.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

// Get returns a record by ID. Returns (record, found, error).
func (s *Store) Get(id int64) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.read()
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// Upsert stores a session snapshot keyed by (title, date). An existing
// record is updated in place and keeps its position; a new record is
// prepended and the collection trimmed to Capacity, evicting the
// oldest. Returns the stored record and whether it was created.
func (s *Store) Upsert(title, date, details string, entries []transcript.Entry) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return Record{}, false, err
	}

	startTime, endTime := "", ""
	if len(entries) > 0 {
		startTime = entries[0].CapturedAt
		endTime = entries[len(entries)-1].CapturedAt
	}

	snapshot := make([]transcript.Entry, len(entries))
	copy(snapshot, entries)

	now := s.clock()
	for i, r := range records {
		if r.Title == title && r.Date == date {
			records[i].StartTime = startTime
			records[i].EndTime = endTime
			records[i].Details = details
			records[i].Transcripts = snapshot
			records[i].LastUpdated = now.UnixMilli()
			if err := s.write(records); err != nil {
				return Record{}, false, err
			}
			return records[i], false, nil
		}
	}

	record := Record{
		ID:          now.UnixMilli(),
		Title:       title,
		Date:        date,
		StartTime:   startTime,
		EndTime:     endTime,
		Details:     details,
		Transcripts: snapshot,
		LastUpdated: now.UnixMilli(),
	}
	records = append([]Record{record}, records...)
	if len(records) > Capacity {
		records = records[:Capacity]
	}
	if err := s.write(records); err != nil {
		return Record{}, false, err
	}
	return record, true, nil
}

// Delete removes a record by ID.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return ErrMeetingNotFound
	}
	return s.write(kept)
}

func (s *Store) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Corrupted store; start over rather than wedging capture.
		return []Record{}, nil
	}
	return records, nil
}

func (s *Store) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "savedMeetings-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}

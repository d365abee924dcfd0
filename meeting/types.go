package meeting

import (
	"errors"

	"github.com/captrail/server/transcript"
)

var ErrMeetingNotFound = errors.New("meeting not found")

// Record is one saved meeting. JSON field names match the persisted
// savedMeetings document.
//
// ID is a creation timestamp in milliseconds and identifies a record for
// delete/export; upsert identity is the (Title, Date) pair.
type Record struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Date        string             `json:"date"`
	StartTime   string             `json:"startTime"`
	EndTime     string             `json:"endTime"`
	Details     string             `json:"details,omitempty"`
	Transcripts []transcript.Entry `json:"transcripts"`
	LastUpdated int64              `json:"lastUpdated"`
}

// Package rpc defines JSON-RPC 2.0 wire format types for WebSocket
// communication: the capture envelope the extension client speaks plus
// the management namespaces.
package rpc

import (
	"github.com/captrail/server/meeting"
	"github.com/captrail/server/settings"
	"github.com/captrail/server/transcript"
)

// Client → Server

type AuthParams struct {
	Token string `json:"token"`
}

type AuthResult struct {
	Version string `json:"version"`
}

// Capture envelope. Method and field names are the fixed contract the
// extension client was built against.

// TranscriptResult answers return_transcript.
type TranscriptResult struct {
	TranscriptArray []transcript.Entry `json:"transcriptArray"`
	MeetingTitle    string             `json:"meetingTitle"`
	MeetingDate     string             `json:"meetingDate"`
	MeetingDetails  string             `json:"meetingDetails"`
}

// StoreResult answers store_current_captions.
type StoreResult struct {
	Success bool `json:"success"`
}

// DownloadParams carries an explicit transcript for download_captions.
// When TranscriptArray is empty the live session's transcript is used.
type DownloadParams struct {
	TranscriptArray []transcript.Entry `json:"transcriptArray,omitempty"`
	MeetingTitle    string             `json:"meetingTitle"`
	MeetingDate     string             `json:"meetingDate"`
	MeetingDetails  string             `json:"meetingDetails,omitempty"`
}

type DownloadResult struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
}

// Page signals forwarded by the capture client (notifications).

type PageMutationParams struct {
	HTML  string `json:"html"`
	Title string `json:"title"`
}

type PageVisibilityParams struct {
	Hidden bool `json:"hidden"`
}

type PagePointerParams struct {
	Y int `json:"y"`
}

// Transcript watch

type TranscriptSubscribeResult struct {
	ID string `json:"id"`
}

// Settings namespace

type SettingsGetResult struct {
	Settings settings.Settings `json:"settings"`
}

type SettingsUpdateParams struct {
	Settings settings.Settings `json:"settings"`
}

type SettingsSubscribeResult struct {
	ID       string            `json:"id"`
	Settings settings.Settings `json:"settings"`
}

// Generic watcher unsubscribe

type UnsubscribeParams struct {
	ID string `json:"id"`
}

// Meeting namespace

type MeetingListResult struct {
	Meetings []meeting.Record `json:"meetings"`
}

type MeetingGetParams struct {
	ID int64 `json:"id"`
}

type MeetingDeleteParams struct {
	ID int64 `json:"id"`
}

type MeetingExportParams struct {
	ID int64 `json:"id"`
}

package capture

import (
	"github.com/captrail/server/settings"
	"github.com/captrail/server/transcript"
)

// Event is a typed input to the capture controller's single event loop.
// Every page signal the client forwards becomes one of these, so all
// ordering questions reduce to channel order on one goroutine.
type Event interface{ isEvent() }

// MutationBatch carries a DOM snapshot taken after the client's
// mutation observer fired. Title rides along because session-boundary
// detection compares document titles.
type MutationBatch struct {
	HTML  string
	Title string
}

// VisibilityChanged reports a page visibility flip; hiding triggers an
// immediate persistence pass before the page can be torn down.
type VisibilityChanged struct {
	Hidden bool
}

// PointerMoved reports pointer position; entering the top screen region
// is a cheap heuristic that a toolbar action (and possibly tear-down)
// may follow.
type PointerMoved struct {
	Y int
}

// SettingsChanged carries a live settings update into the loop.
type SettingsChanged struct {
	Settings settings.Settings
}

func (MutationBatch) isEvent()     {}
func (VisibilityChanged) isEvent() {}
func (PointerMoved) isEvent()      {}
func (SettingsChanged) isEvent()   {}

// snapshotRequest and storeRequest let RPC handlers read or persist the
// session synchronously while staying serialized with mutation handling.
type snapshotRequest struct {
	reply chan Snapshot
}

type storeRequest struct {
	reply chan storeReply
}

func (snapshotRequest) isEvent() {}
func (storeRequest) isEvent()    {}

// Snapshot is a point-in-time copy of the capture session state.
type Snapshot struct {
	Capturing bool
	Title     string
	Date      string
	Details   string
	Entries   []transcript.Entry
}

type storeReply struct {
	snapshot Snapshot
	err      error
}

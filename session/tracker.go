// Package session tracks meeting-session boundaries and the one-shot
// leave-control trigger for a single capture session.
package session

import (
	"regexp"
	"strings"
)

// brandSuffix is the host-application name appended to document titles.
const brandSuffix = "Microsoft Teams"

// countPrefixRE strips the running-meeting-count prefix, e.g. "(2) ".
var countPrefixRE = regexp.MustCompile(`\(\d+\)\s*`)

// NormalizeTitle derives the meeting title from a raw document title by
// dropping the running-count prefix and the host brand suffix.
func NormalizeTitle(raw string) string {
	t := countPrefixRE.ReplaceAllString(raw, "")
	t = strings.ReplaceAll(t, brandSuffix, "")
	return strings.TrimSpace(t)
}

// ArmAction tells the capture layer what to do with the client-side
// leave-control trigger after an observation.
type ArmAction int

const (
	ArmNone ArmAction = iota
	// ArmAttach requests a (re-)attached one-shot click trigger.
	ArmAttach
	// ArmDetach requests removal of the click trigger.
	ArmDetach
)

// Tracker holds session-boundary state. The host exposes no explicit
// "meeting ended" event, so a change of the normalized title is the sole
// reset signal. It is not safe for concurrent use; the capture
// controller serializes access.
type Tracker struct {
	currentTitle string
	details      string

	leavePresent bool
	leaveArmed   bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// ObserveTitle records a normalized title observation and reports
// whether a new session began, in which case the caller must clear the
// active transcript. Empty titles are ignored so a transiently blank
// document title cannot end a session.
func (tr *Tracker) ObserveTitle(title string) bool {
	if title == "" || title == tr.currentTitle {
		return false
	}
	tr.currentTitle = title
	tr.details = ""
	return true
}

// Title returns the current session title.
func (tr *Tracker) Title() string {
	return tr.currentTitle
}

// ObserveDetails records the meeting-details text once it renders.
// "Unknown" is the host's still-loading placeholder and is skipped.
func (tr *Tracker) ObserveDetails(details string) {
	if details == "" || details == "Unknown" {
		return
	}
	tr.details = details
}

func (tr *Tracker) Details() string {
	return tr.details
}

// ObserveLeaveControl reconciles the desired trigger state with what is
// attached on the client. present is whether the control is currently in
// the DOM; enabled is the live leaveTrigger setting.
//
// Attaching is idempotent: an already-armed trigger never re-attaches
// unless the control disappeared and came back, which means the host
// replaced the element and the old listener died with it.
func (tr *Tracker) ObserveLeaveControl(present, enabled bool) ArmAction {
	replaced := present && !tr.leavePresent
	tr.leavePresent = present

	switch {
	case !present:
		tr.leaveArmed = false
		return ArmNone
	case !enabled:
		if tr.leaveArmed {
			tr.leaveArmed = false
			return ArmDetach
		}
		return ArmNone
	case !tr.leaveArmed || replaced:
		tr.leaveArmed = true
		return ArmAttach
	default:
		return ArmNone
	}
}

// LeavePresent reports whether the control was present in the last
// observation. Used to re-evaluate arming when settings change.
func (tr *Tracker) LeavePresent() bool {
	return tr.leavePresent
}

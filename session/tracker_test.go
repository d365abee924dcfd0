package session

import "testing"

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Weekly Sync | Microsoft Teams", "Weekly Sync |"},
		{"(2) Weekly Sync Microsoft Teams", "Weekly Sync"},
		{"Weekly Sync", "Weekly Sync"},
		{"(12) Standup", "Standup"},
		{"Microsoft Teams", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeTitle(c.raw); got != c.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestObserveTitle_NewSession(t *testing.T) {
	tr := NewTracker()

	if !tr.ObserveTitle("Weekly Sync") {
		t.Fatal("first title should start a session")
	}
	if tr.Title() != "Weekly Sync" {
		t.Errorf("title = %q, want %q", tr.Title(), "Weekly Sync")
	}

	if tr.ObserveTitle("Weekly Sync") {
		t.Error("repeated title should not start a session")
	}
	if !tr.ObserveTitle("Design Review") {
		t.Error("changed title should start a session")
	}
}

func TestObserveTitle_EmptyIgnored(t *testing.T) {
	tr := NewTracker()
	tr.ObserveTitle("Weekly Sync")

	if tr.ObserveTitle("") {
		t.Error("blank title must not end the session")
	}
	if tr.Title() != "Weekly Sync" {
		t.Errorf("title = %q, want unchanged", tr.Title())
	}
}

func TestObserveTitle_ClearsDetails(t *testing.T) {
	tr := NewTracker()
	tr.ObserveTitle("Weekly Sync")
	tr.ObserveDetails("Room 4")

	tr.ObserveTitle("Design Review")
	if tr.Details() != "" {
		t.Errorf("details = %q, want cleared on new session", tr.Details())
	}
}

func TestObserveDetails_SkipsPlaceholders(t *testing.T) {
	tr := NewTracker()
	tr.ObserveDetails("Unknown")
	if tr.Details() != "" {
		t.Error("placeholder details should be skipped")
	}

	tr.ObserveDetails("Weekly Sync Room 4")
	tr.ObserveDetails("")
	if tr.Details() != "Weekly Sync Room 4" {
		t.Errorf("details = %q, want kept", tr.Details())
	}
}

func TestObserveLeaveControl_ArmsOnce(t *testing.T) {
	tr := NewTracker()

	if got := tr.ObserveLeaveControl(true, true); got != ArmAttach {
		t.Fatalf("first observation = %v, want ArmAttach", got)
	}
	if got := tr.ObserveLeaveControl(true, true); got != ArmNone {
		t.Errorf("second observation = %v, want ArmNone", got)
	}
}

func TestObserveLeaveControl_RearmsAfterReplacement(t *testing.T) {
	tr := NewTracker()
	tr.ObserveLeaveControl(true, true)

	// The control leaves the DOM and comes back: the old listener is gone.
	if got := tr.ObserveLeaveControl(false, true); got != ArmNone {
		t.Errorf("absent control = %v, want ArmNone", got)
	}
	if got := tr.ObserveLeaveControl(true, true); got != ArmAttach {
		t.Errorf("replaced control = %v, want ArmAttach", got)
	}
}

func TestObserveLeaveControl_DisabledDetaches(t *testing.T) {
	tr := NewTracker()
	tr.ObserveLeaveControl(true, true)

	if got := tr.ObserveLeaveControl(true, false); got != ArmDetach {
		t.Errorf("disable while armed = %v, want ArmDetach", got)
	}
	if got := tr.ObserveLeaveControl(true, false); got != ArmNone {
		t.Errorf("already disarmed = %v, want ArmNone", got)
	}
}

func TestObserveLeaveControl_DisabledNeverArms(t *testing.T) {
	tr := NewTracker()

	if got := tr.ObserveLeaveControl(true, false); got != ArmNone {
		t.Errorf("disabled trigger = %v, want ArmNone", got)
	}
	if tr.LeavePresent() != true {
		t.Error("presence should still be tracked")
	}
}

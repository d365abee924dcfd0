// Package export renders transcripts into the flat text document users
// download and names the resulting files.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/captrail/server/transcript"
)

// NameStyle selects how speaker names are compacted in export lines.
// The compaction policy is configuration, not code: no style hardcodes
// person-specific exceptions.
type NameStyle string

const (
	// NameStyleFirst emits only the first name (default). Hyphenated
	// names are kept verbatim and parenthesized annotations such as
	// "(External)" are stripped first.
	NameStyleFirst NameStyle = "first"
	// NameStyleFirstInitial emits the first name plus the initial of
	// the next name part, e.g. "Jane D".
	NameStyleFirstInitial NameStyle = "first-initial"
	// NameStyleFull emits the trimmed name verbatim.
	NameStyleFull NameStyle = "full"
)

func (s NameStyle) IsValid() bool {
	switch s {
	case NameStyleFirst, NameStyleFirstInitial, NameStyleFull:
		return true
	default:
		return false
	}
}

var (
	parenRE    = regexp.MustCompile(`\(.*?\)`)
	nonAlnumRE = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// CompactName applies the configured compaction to a speaker name.
// Hyphenated names short-circuit to verbatim output because splitting
// them produces misleading fragments.
func CompactName(name string, style NameStyle) string {
	name = strings.TrimSpace(name)
	if style == NameStyleFull || strings.Contains(name, "-") {
		return name
	}

	name = strings.TrimSpace(parenRE.ReplaceAllString(name, ""))
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}

	switch style {
	case NameStyleFirstInitial:
		if len(parts) > 1 {
			return parts[0] + " " + parts[1][:1]
		}
		return parts[0]
	default:
		return parts[0]
	}
}

// Format renders a transcript as the downloadable text document: a
// meeting-date header, a blank line, then one line per entry in stored
// order. Output is deterministic for identical input.
func Format(entries []transcript.Entry, meetingDate string, style NameStyle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Meeting Date: %s\n\n", meetingDate)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s: %s", e.CapturedAt, CompactName(e.SpeakerName, style), e.Text)
	}
	return sb.String()
}

// FileName builds the export file name: every non-alphanumeric title
// character becomes "_", date slashes become "-". An empty title falls
// back to "Meeting".
func FileName(title, date string) string {
	if strings.TrimSpace(title) == "" {
		title = "Meeting"
	}
	sanitizedTitle := nonAlnumRE.ReplaceAllString(title, "_")
	sanitizedDate := strings.ReplaceAll(date, "/", "-")
	return sanitizedTitle + "_" + sanitizedDate + ".txt"
}

package caption

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/captrail/server/dom"
)

const (
	readinessMarkerID  = "call-duration-custom"
	leaveControlID     = "hangup-button"
	detailsMarkerValue = "meeting-details-container"
)

// HasReadinessMarker reports whether the in-call duration element is
// rendered, which is the signal that a meeting is actually running.
func HasReadinessMarker(doc *html.Node) bool {
	return doc != nil && dom.FindByID(doc, readinessMarkerID) != nil
}

// HasLeaveControl reports whether the hang-up control is present. The
// host replaces this element during a call, so presence is re-checked on
// every snapshot.
func HasLeaveControl(doc *html.Node) bool {
	if doc == nil {
		return false
	}
	wrapper := dom.FindByID(doc, leaveControlID)
	if wrapper == nil {
		return false
	}
	// The activatable button nests at varying depths across revisions.
	return len(findAllByTag(wrapper, "button")) > 0
}

// MeetingDetails concatenates the span texts of the meeting-details
// container, space separated, or returns "" when the container is not
// rendered yet.
func MeetingDetails(doc *html.Node) string {
	if doc == nil {
		return ""
	}
	container := dom.FindByAttr(doc, markerAttr, detailsMarkerValue)
	if container == nil {
		return ""
	}

	var parts []string
	for _, span := range findAllByTag(container, "span") {
		if t := dom.Text(span); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func findAllByTag(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return out
}

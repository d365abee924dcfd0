// Package caption turns rendered meeting-client markup into raw caption
// observations. The host application rewrites its DOM between releases,
// so item extraction runs through an ordered list of selector strategies
// and the first one that yields items wins.
package caption

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/captrail/server/dom"
)

// RawCaption is one caption item as currently rendered: an utterance or
// utterance-in-progress. StableID persists across text revisions of the
// same item and is the reconciliation key.
type RawCaption struct {
	StableID    string
	SpeakerName string
	Text        string
}

const (
	markerAttr     = "data-tid"
	containerValue = "closed-captions-renderer"
)

// ItemStrategy locates caption items inside the captions container and
// pulls the three fields out of one item. Adapting to a new host markup
// revision means adding a strategy, not changing extraction code.
type ItemStrategy struct {
	Name     string
	Items    func(container *html.Node) []*html.Node
	StableID func(item *html.Node) string
	Speaker  func(item *html.Node) string
	Text     func(item *html.Node) string
}

// attrStrategy matches the current markup: items and sub-elements carry
// dedicated data-tid markers and the stable identifier is an explicit
// attribute.
var attrStrategy = ItemStrategy{
	Name: "attr",
	Items: func(container *html.Node) []*html.Node {
		return dom.FindAllByAttr(container, markerAttr, "closed-caption-item")
	},
	StableID: func(item *html.Node) string {
		return dom.Attr(item, "data-caption-id")
	},
	Speaker: func(item *html.Node) string {
		if n := dom.FindByAttr(item, markerAttr, "closed-caption-author"); n != nil {
			return dom.Text(n)
		}
		return ""
	},
	Text: func(item *html.Node) string {
		if n := dom.FindByAttr(item, markerAttr, "closed-caption-text"); n != nil {
			return dom.Text(n)
		}
		return ""
	},
}

// legacyStrategy matches the older chat-list markup where items are
// ui-chat__item elements and the only usable identifier is the id
// attribute on the inner message element.
var legacyStrategy = ItemStrategy{
	Name: "legacy",
	Items: func(container *html.Node) []*html.Node {
		return dom.FindAllByClass(container, "ui-chat__item")
	},
	StableID: func(item *html.Node) string {
		if n := dom.FindByClass(item, "ui-chat__message"); n != nil {
			return dom.Attr(n, "id")
		}
		return ""
	},
	Speaker: func(item *html.Node) string {
		if n := dom.FindByClass(item, "ui-chat__message__author"); n != nil {
			return dom.Text(n)
		}
		return ""
	},
	Text: func(item *html.Node) string {
		if n := dom.FindByClass(item, "fui-StyledText"); n != nil {
			return dom.Text(n)
		}
		return ""
	},
}

// DefaultStrategies is the fallback chain, newest markup first.
func DefaultStrategies() []ItemStrategy {
	return []ItemStrategy{attrStrategy, legacyStrategy}
}

// Extractor reads caption items out of a parsed document snapshot.
type Extractor struct {
	strategies []ItemStrategy
}

func NewExtractor(strategies ...ItemStrategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// ParseDocument parses a snapshot once so the per-snapshot probes and
// Extract can share a tree.
func ParseDocument(markup string) (*html.Node, error) {
	return dom.ParseString(markup)
}

// Extract returns the currently visible captions in document order.
// A missing container means captions are not enabled or the markup is
// unrecognized; the result is empty and the caller must not treat that
// as a cleared transcript. Items without a stable identifier, speaker,
// or text cannot be reconciled safely and are skipped.
func (e *Extractor) Extract(doc *html.Node) []RawCaption {
	if doc == nil {
		return nil
	}
	container := dom.FindByAttr(doc, markerAttr, containerValue)
	if container == nil {
		return nil
	}

	for _, st := range e.strategies {
		items := st.Items(container)
		if len(items) == 0 {
			continue
		}

		raws := make([]RawCaption, 0, len(items))
		for _, item := range items {
			id := strings.TrimSpace(st.StableID(item))
			if id == "" {
				continue
			}
			speaker := strings.TrimSpace(st.Speaker(item))
			text := strings.TrimSpace(st.Text(item))
			if speaker == "" || text == "" {
				continue
			}
			raws = append(raws, RawCaption{StableID: id, SpeakerName: speaker, Text: text})
		}
		return raws
	}
	return nil
}

// HasContainer reports whether the captions container is present.
func HasContainer(doc *html.Node) bool {
	return doc != nil && dom.FindByAttr(doc, markerAttr, containerValue) != nil
}

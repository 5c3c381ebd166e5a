// Package extract builds normalized conversation snapshots from a page's
// parsed structure, using the platform marker registry as the per-platform
// strategy.
//
// Extraction never errors on missing content: an unknown platform or a
// page with no recognisable messages yields a nil snapshot, which the
// caller treats as a control-flow signal.
package extract

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/dimcortex/capture/platform"
	"github.com/dimcortex/capture/snapshot"
)

// Extractor holds the reusable content pipeline. Safe to share across
// extractions of the same page context.
type Extractor struct {
	content *contentPipeline
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{content: newContentPipeline()}
}

// Conversation extracts a snapshot from raw page HTML. It returns
// (nil, nil) when the platform is unknown or no messages were found.
// The error return covers malformed input only.
func (e *Extractor) Conversation(tag platform.Tag, sourceURL string, rawHTML []byte, capturedAt time.Time) (*snapshot.Snapshot, error) {
	markers, ok := platform.MarkersFor(tag)
	if !ok {
		return nil, nil
	}

	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse HTML: %w", err)
	}

	msgs := e.messages(doc, markers)
	if len(msgs) == 0 {
		return nil, nil
	}

	convID, found := platform.ConversationID(tag, sourceURL)
	if !found {
		convID = snapshot.SyntheticConversationID(capturedAt)
	}

	return &snapshot.Snapshot{
		Platform:       tag,
		SourceURL:      sourceURL,
		CapturedAt:     capturedAt,
		ConversationID: convID,
		Messages:       msgs,
	}, nil
}

// messages walks the document once, emitting matched message elements in
// document order regardless of which rule matched them.
func (e *Extractor) messages(doc *html.Node, markers platform.Markers) []snapshot.Message {
	matched := make(map[*html.Node]*platform.MessageRule)
	for i := range markers.Messages {
		rule := &markers.Messages[i]
		for _, n := range querySelectorAll(doc, rule.Selector) {
			if _, seen := matched[n]; !seen {
				matched[n] = rule
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	var msgs []snapshot.Message
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if rule, ok := matched[n]; ok {
			if msg, ok := e.message(n, rule); ok {
				msgs = append(msgs, msg)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return msgs
}

// message derives role and content for one matched element. Elements
// whose derived content is empty are skipped.
func (e *Extractor) message(n *html.Node, rule *platform.MessageRule) (snapshot.Message, bool) {
	contentNode := n
	if rule.Content != "" {
		if c := querySelector(n, rule.Content); c != nil {
			contentNode = c
		}
	}

	content := e.content.text(contentNode)
	if content == "" {
		return snapshot.Message{}, false
	}

	return snapshot.Message{
		Role:    snapshot.NormalizeRole(rawRole(n, rule)),
		Content: content,
	}, true
}

// rawRole reads the platform-specific role label from the message element.
func rawRole(n *html.Node, rule *platform.MessageRule) string {
	switch {
	case rule.RoleAttr != "":
		return attrValue(n, rule.RoleAttr)
	case rule.LabelSelector != "":
		if label := querySelector(n, rule.LabelSelector); label != nil {
			return CleanText(collectText(label))
		}
		return ""
	default:
		return rule.Role
	}
}

// ContainsResponseMarker reports whether an HTML fragment is, or
// contains, an element matching the platform's response marker. The
// mutation watcher uses it to filter added nodes before running a full
// extraction.
func ContainsResponseMarker(markers platform.Markers, fragment string) bool {
	if markers.Response == "" || fragment == "" {
		return false
	}
	doc, err := html.Parse(bytes.NewReader([]byte(fragment)))
	if err != nil {
		return false
	}
	return querySelector(doc, markers.Response) != nil
}

// Package platform classifies assistant pages and carries the structural
// marker registry the rest of the pipeline dispatches on.
//
// Classification is a pure function of the page address. Absence of a
// match is a representable result (TagUnknown), not an error: the
// pipeline downstream short-circuits on it.
package platform

import (
	"net/url"
	"strings"
)

// Tag identifies one supported assistant platform. The set is closed:
// every switch over Tag in this repo handles all four values.
type Tag string

const (
	TagChatGPT    Tag = "chatgpt"
	TagClaude     Tag = "claude"
	TagPerplexity Tag = "perplexity"
	TagUnknown    Tag = "unknown"
)

// hostRegistry maps host substrings to platform tags. Order matters only
// for readability; the entries are mutually exclusive in practice.
var hostRegistry = []struct {
	host string
	tag  Tag
}{
	{"chatgpt.com", TagChatGPT},
	{"chat.openai.com", TagChatGPT},
	{"claude.ai", TagClaude},
	{"perplexity.ai", TagPerplexity},
}

// Identify classifies a page address into a platform tag. It matches the
// address host by substring against the fixed registry and falls back to
// TagUnknown. No side effects, no failure mode.
func Identify(rawURL string) Tag {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)

	for _, entry := range hostRegistry {
		if strings.Contains(host, entry.host) {
			return entry.tag
		}
	}
	return TagUnknown
}

// MessageRule describes how to locate one class of message-level element
// and derive its role and content. Exactly one of RoleAttr, LabelSelector
// or Role is set per rule.
type MessageRule struct {
	// Selector matches the message-level element.
	Selector string
	// RoleAttr names an attribute on the message element whose value is
	// the raw role label.
	RoleAttr string
	// LabelSelector matches a child element whose visible text is the
	// sender label (e.g. "You", "Claude").
	LabelSelector string
	// Role is a fixed raw label when the selector itself implies the role.
	Role string
	// Content matches the child element carrying the message body. Empty
	// means the whole message element.
	Content string
}

// Markers is the per-platform structural configuration: how to find
// messages in the document, and which marker flags freshly appended
// response content for the mutation filter.
type Markers struct {
	Messages []MessageRule
	// Response is the marker the watcher checks added nodes against.
	// A node that is, or contains, a match triggers extraction.
	Response string
}

// MarkersFor returns the marker configuration for a platform. The second
// return is false for TagUnknown: there is nothing to extract.
func MarkersFor(tag Tag) (Markers, bool) {
	switch tag {
	case TagChatGPT:
		return Markers{
			Messages: []MessageRule{{
				Selector: "[data-message-author-role]",
				RoleAttr: "data-message-author-role",
				Content:  ".markdown",
			}},
			Response: "[data-message-author-role=assistant]",
		}, true
	case TagClaude:
		return Markers{
			Messages: []MessageRule{{
				Selector:      "[data-testid=chat-message]",
				LabelSelector: "[data-testid=chat-message-sender]",
				Content:       "[data-testid=chat-message-content]",
			}},
			Response: "[data-testid=chat-message-content]",
		}, true
	case TagPerplexity:
		return Markers{
			Messages: []MessageRule{
				{Selector: "[data-testid=user-query]", Role: "user"},
				{Selector: "div.prose", Role: "assistant"},
			},
			Response: "div.prose",
		}, true
	case TagUnknown:
		return Markers{}, false
	}
	return Markers{}, false
}

// pathPrefixes maps each platform to the path segment that precedes the
// conversation identifier in its address scheme.
var pathPrefixes = map[Tag]string{
	TagChatGPT:    "c",
	TagClaude:     "chat",
	TagPerplexity: "search",
}

// ConversationID parses the stable conversation identifier from the
// address path. The second return is false when the address scheme does
// not expose one; callers synthesize an identifier instead.
func ConversationID(tag Tag, rawURL string) (string, bool) {
	prefix, ok := pathPrefixes[tag]
	if !ok {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if seg == prefix && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1], true
		}
	}
	return "", false
}

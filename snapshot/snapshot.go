// Package snapshot defines the normalized conversation record emitted by
// the capture pipeline. These are the public API contract: any consumer
// (the relay client, tests, custom sinks) imports this package.
package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dimcortex/capture/platform"
)

// Role is the normalized author of one message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// roleVocabulary maps platform-specific sender labels to normalized
// roles. Labels are compared lowercased and trimmed.
var roleVocabulary = map[string]Role{
	"user":       RoleUser,
	"you":        RoleUser,
	"human":      RoleUser,
	"assistant":  RoleAssistant,
	"claude":     RoleAssistant,
	"chatgpt":    RoleAssistant,
	"gpt":        RoleAssistant,
	"ai":         RoleAssistant,
	"perplexity": RoleAssistant,
}

// NormalizeRole maps a raw sender label to a Role. Anything unrecognized
// maps to RoleUnknown rather than failing.
func NormalizeRole(label string) Role {
	if r, ok := roleVocabulary[strings.ToLower(strings.TrimSpace(label))]; ok {
		return r
	}
	return RoleUnknown
}

// Message is one conversational turn: who said it and what was visible.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Snapshot is one normalized, point-in-time extraction of a
// conversation's visible messages. Insertion order equals document order
// at capture time; overlapping snapshots of a growing page are expected
// and not deduplicated here.
//
// A Snapshot is never constructed with zero messages — extraction
// short-circuits instead of emitting an empty record.
type Snapshot struct {
	Platform       platform.Tag `json:"platform"`
	SourceURL      string       `json:"source_url"`
	CapturedAt     time.Time    `json:"captured_at"`
	ConversationID string       `json:"conversation_id"`
	Messages       []Message    `json:"messages"`
}

// SyntheticConversationID derives an identifier from the capture
// timestamp for platforms whose address scheme exposes none. Collisions
// below millisecond resolution are accepted.
func SyntheticConversationID(t time.Time) string {
	return fmt.Sprintf("conv_%d", t.UnixMilli())
}

// WireMessage is one message in the ingestion body.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WireSnapshot is the JSON body POSTed to the ingestion endpoint.
type WireSnapshot struct {
	Platform       string        `json:"platform"`
	URL            string        `json:"url"`
	Timestamp      string        `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	Messages       []WireMessage `json:"messages"`
}

// Wire converts the snapshot to its ingestion wire form. The timestamp
// is ISO-8601 in UTC.
func (s *Snapshot) Wire() WireSnapshot {
	msgs := make([]WireMessage, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = WireMessage{Role: string(m.Role), Content: m.Content}
	}
	return WireSnapshot{
		Platform:       string(s.Platform),
		URL:            s.SourceURL,
		Timestamp:      s.CapturedAt.UTC().Format(time.RFC3339),
		ConversationID: s.ConversationID,
		Messages:       msgs,
	}
}

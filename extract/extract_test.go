package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/dimcortex/capture/platform"
	"github.com/dimcortex/capture/snapshot"
)

const claudePage = `<html><body>
<div data-testid="chat-message">
  <div data-testid="chat-message-sender">You</div>
  <div data-testid="chat-message-content">What is the capital of France?</div>
</div>
<div data-testid="chat-message">
  <div data-testid="chat-message-sender">Claude</div>
  <div data-testid="chat-message-content" class="font-claude-message">Hello world</div>
</div>
</body></html>`

func TestConversationClaude(t *testing.T) {
	e := New()
	at := time.Now()

	s, err := e.Conversation(platform.TagClaude, "https://claude.ai/chat/xyz789", []byte(claudePage), at)
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("expected snapshot, got nil")
	}

	if s.Platform != platform.TagClaude {
		t.Errorf("platform = %q", s.Platform)
	}
	if s.ConversationID != "xyz789" {
		t.Errorf("conversation ID = %q", s.ConversationID)
	}
	if !s.CapturedAt.Equal(at) {
		t.Errorf("captured at = %v", s.CapturedAt)
	}
	if len(s.Messages) != 2 {
		t.Fatalf("messages = %+v", s.Messages)
	}
	if s.Messages[0].Role != snapshot.RoleUser {
		t.Errorf("first role = %q", s.Messages[0].Role)
	}
	if s.Messages[1].Role != snapshot.RoleAssistant {
		t.Errorf("second role = %q", s.Messages[1].Role)
	}
	if s.Messages[1].Content != "Hello world" {
		t.Errorf("second content = %q", s.Messages[1].Content)
	}
}

func TestConversationChatGPT(t *testing.T) {
	page := `<html><body>
<div data-message-author-role="user"><div class="markdown">Write a haiku</div></div>
<div data-message-author-role="assistant"><div class="markdown"><p>Leaves drift on water</p></div></div>
</body></html>`

	e := New()
	s, err := e.Conversation(platform.TagChatGPT, "https://chatgpt.com/c/abc123", []byte(page), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("expected snapshot")
	}
	if s.ConversationID != "abc123" {
		t.Errorf("conversation ID = %q", s.ConversationID)
	}
	if len(s.Messages) != 2 {
		t.Fatalf("messages = %+v", s.Messages)
	}
	if s.Messages[0].Role != snapshot.RoleUser || s.Messages[0].Content != "Write a haiku" {
		t.Errorf("first = %+v", s.Messages[0])
	}
	if s.Messages[1].Role != snapshot.RoleAssistant || !strings.Contains(s.Messages[1].Content, "Leaves drift on water") {
		t.Errorf("second = %+v", s.Messages[1])
	}
}

func TestConversationPerplexitySyntheticID(t *testing.T) {
	page := `<html><body>
<div data-testid="user-query">how do trees grow</div>
<div class="prose">Trees grow through cell division.</div>
</body></html>`

	e := New()
	at := time.UnixMilli(1700000000123)
	s, err := e.Conversation(platform.TagPerplexity, "https://www.perplexity.ai/", []byte(page), at)
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("expected snapshot")
	}
	if s.ConversationID != "conv_1700000000123" {
		t.Errorf("conversation ID = %q", s.ConversationID)
	}
	if len(s.Messages) != 2 {
		t.Fatalf("messages = %+v", s.Messages)
	}
	if s.Messages[0].Role != snapshot.RoleUser {
		t.Errorf("first role = %q", s.Messages[0].Role)
	}
	if s.Messages[1].Role != snapshot.RoleAssistant {
		t.Errorf("second role = %q", s.Messages[1].Role)
	}
}

func TestConversationNeverEmpty(t *testing.T) {
	e := New()

	// Unknown platform: control-flow nil, not an error.
	s, err := e.Conversation(platform.TagUnknown, "https://example.com/", []byte("<html></html>"), time.Now())
	if err != nil || s != nil {
		t.Fatalf("unknown platform: (%v, %v)", s, err)
	}

	// Known platform, no messages.
	s, err = e.Conversation(platform.TagClaude, "https://claude.ai/chat/x", []byte("<html><body><p>landing page</p></body></html>"), time.Now())
	if err != nil || s != nil {
		t.Fatalf("no messages: (%v, %v)", s, err)
	}

	// Messages present but all empty: still no snapshot.
	empty := `<html><body>
<div data-testid="chat-message">
  <div data-testid="chat-message-sender">Claude</div>
  <div data-testid="chat-message-content">   </div>
</div>
</body></html>`
	s, err = e.Conversation(platform.TagClaude, "https://claude.ai/chat/x", []byte(empty), time.Now())
	if err != nil || s != nil {
		t.Fatalf("empty contents: (%v, %v)", s, err)
	}
}

func TestConversationSkipsEmptyMessages(t *testing.T) {
	page := `<html><body>
<div data-testid="chat-message">
  <div data-testid="chat-message-sender">You</div>
  <div data-testid="chat-message-content"></div>
</div>
<div data-testid="chat-message">
  <div data-testid="chat-message-sender">Claude</div>
  <div data-testid="chat-message-content">Real content</div>
</div>
</body></html>`

	e := New()
	s, err := e.Conversation(platform.TagClaude, "https://claude.ai/chat/x", []byte(page), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s == nil || len(s.Messages) != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Messages[0].Content != "Real content" {
		t.Errorf("content = %q", s.Messages[0].Content)
	}
}

func TestConversationUnrecognizedLabel(t *testing.T) {
	page := `<html><body>
<div data-testid="chat-message">
  <div data-testid="chat-message-sender">Moderator</div>
  <div data-testid="chat-message-content">Announcement text</div>
</div>
</body></html>`

	e := New()
	s, err := e.Conversation(platform.TagClaude, "https://claude.ai/chat/x", []byte(page), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s == nil || len(s.Messages) != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Messages[0].Role != snapshot.RoleUnknown {
		t.Errorf("role = %q", s.Messages[0].Role)
	}
}

func TestConversationKeepsCodeContent(t *testing.T) {
	page := `<html><body>
<div data-message-author-role="assistant"><div class="markdown">
<p>Use this:</p><pre><code>x = 1</code></pre>
</div></div>
</body></html>`

	e := New()
	s, err := e.Conversation(platform.TagChatGPT, "https://chatgpt.com/c/abc", []byte(page), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s == nil || len(s.Messages) != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
	if !strings.Contains(s.Messages[0].Content, "x = 1") {
		t.Errorf("content lost code: %q", s.Messages[0].Content)
	}
}

func TestContainsResponseMarker(t *testing.T) {
	markers, _ := platform.MarkersFor(platform.TagClaude)

	frag := `<div data-testid="chat-message"><div data-testid="chat-message-content">Hi</div></div>`
	if !ContainsResponseMarker(markers, frag) {
		t.Error("expected match for contained marker")
	}

	self := `<div data-testid="chat-message-content">Hi</div>`
	if !ContainsResponseMarker(markers, self) {
		t.Error("expected match when node itself is the marker")
	}

	if ContainsResponseMarker(markers, `<div class="sidebar">nav</div>`) {
		t.Error("unexpected match for unrelated fragment")
	}
	if ContainsResponseMarker(markers, "") {
		t.Error("unexpected match for empty fragment")
	}
}

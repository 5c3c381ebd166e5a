package platform

import "testing"

func TestIdentify(t *testing.T) {
	tests := []struct {
		url  string
		want Tag
	}{
		{"https://chatgpt.com/c/abc123", TagChatGPT},
		{"https://chat.openai.com/c/abc123", TagChatGPT},
		{"https://claude.ai/chat/xyz789", TagClaude},
		{"https://www.perplexity.ai/search/some-query-id", TagPerplexity},
		{"https://example.com/chat/123", TagUnknown},
		{"https://claude.ai.evil.example.com/", TagClaude}, // substring match by design
		{"not a url at all", TagUnknown},
		{"", TagUnknown},
	}

	for _, tt := range tests {
		if got := Identify(tt.url); got != tt.want {
			t.Errorf("Identify(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestMarkersFor(t *testing.T) {
	for _, tag := range []Tag{TagChatGPT, TagClaude, TagPerplexity} {
		m, ok := MarkersFor(tag)
		if !ok {
			t.Fatalf("MarkersFor(%q) = false, want markers", tag)
		}
		if len(m.Messages) == 0 {
			t.Errorf("MarkersFor(%q): no message rules", tag)
		}
		if m.Response == "" {
			t.Errorf("MarkersFor(%q): empty response marker", tag)
		}
	}

	if _, ok := MarkersFor(TagUnknown); ok {
		t.Error("MarkersFor(unknown) = true, want false")
	}
}

func TestConversationID(t *testing.T) {
	tests := []struct {
		tag   Tag
		url   string
		want  string
		found bool
	}{
		{TagClaude, "https://claude.ai/chat/xyz789", "xyz789", true},
		{TagChatGPT, "https://chatgpt.com/c/abc123", "abc123", true},
		{TagChatGPT, "https://chatgpt.com/c/abc123?model=4", "abc123", true},
		{TagPerplexity, "https://www.perplexity.ai/search/how-do-trees-grow-x1y2", "how-do-trees-grow-x1y2", true},
		{TagClaude, "https://claude.ai/new", "", false},
		{TagChatGPT, "https://chatgpt.com/", "", false},
		{TagUnknown, "https://example.com/chat/123", "", false},
	}

	for _, tt := range tests {
		got, found := ConversationID(tt.tag, tt.url)
		if got != tt.want || found != tt.found {
			t.Errorf("ConversationID(%q, %q) = (%q, %v), want (%q, %v)",
				tt.tag, tt.url, got, found, tt.want, tt.found)
		}
	}
}

package extract

import (
	"bytes"
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader([]byte(src)))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestQuerySelectorAll(t *testing.T) {
	doc := parse(t, `<html><body>
<div id="a" class="prose first">one</div>
<section><div class="prose">two</div></section>
<div data-role="assistant">three</div>
<div data-role="user">four</div>
</body></html>`)

	tests := []struct {
		sel  string
		want int
	}{
		{"div", 4},
		{".prose", 2},
		{"div.prose", 2},
		{"#a", 1},
		{"[data-role]", 2},
		{"[data-role=assistant]", 1},
		{"section div", 1},
		{"section .prose", 1},
		{"article", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := querySelectorAll(doc, tt.sel); len(got) != tt.want {
			t.Errorf("querySelectorAll(%q): %d matches, want %d", tt.sel, len(got), tt.want)
		}
	}
}

func TestQuerySelectorAllDocumentOrder(t *testing.T) {
	doc := parse(t, `<html><body>
<p class="m">first</p>
<div><p class="m">second</p></div>
<p class="m">third</p>
</body></html>`)

	got := querySelectorAll(doc, "p.m")
	if len(got) != 3 {
		t.Fatalf("%d matches", len(got))
	}
	order := []string{"first", "second", "third"}
	for i, n := range got {
		if text := CleanText(collectText(n)); text != order[i] {
			t.Errorf("match %d = %q, want %q", i, text, order[i])
		}
	}
}

func TestQuerySelectorFirst(t *testing.T) {
	doc := parse(t, `<html><body><span class="x">a</span><span class="x">b</span></body></html>`)

	n := querySelector(doc, "span.x")
	if n == nil {
		t.Fatal("no match")
	}
	if text := CleanText(collectText(n)); text != "a" {
		t.Errorf("first match = %q", text)
	}

	if querySelector(doc, "span.y") != nil {
		t.Error("expected nil for no match")
	}
}

func TestCollectTextSkipsScript(t *testing.T) {
	doc := parse(t, `<html><body><div><script>var x;</script>visible</div></body></html>`)
	text := CleanText(collectText(querySelector(doc, "div")))
	if text != "visible" {
		t.Errorf("got %q", text)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  a \n\t b  ", "a b"},
		{"a​b", "ab"},
		{"", ""},
		{"\u200b \ufeff", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

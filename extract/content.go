package extract

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// contentPipeline turns a message subtree into normalized text:
// HTML → sanitize → markdown → whitespace cleanup. Markdown keeps the
// structure that matters to ingestion consumers (code fences, lists)
// while dropping presentation markup.
type contentPipeline struct {
	sanitize *bluemonday.Policy
	md       *converter.Converter
}

func newContentPipeline() *contentPipeline {
	return &contentPipeline{
		sanitize: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// text extracts the visible content of a message node. Falls back to raw
// text collection when markdown conversion fails.
func (p *contentPipeline) text(n *html.Node) string {
	raw := renderNode(n)
	if raw == "" {
		return ""
	}

	clean := p.sanitize.Sanitize(raw)
	md, err := p.md.ConvertString(clean)
	if err != nil {
		return CleanText(collectText(n))
	}
	return strings.TrimSpace(md)
}

// CleanText normalises extracted text: removes zero-width characters,
// collapses whitespace, trims.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, text)

	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

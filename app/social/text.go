package social

import (
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Posts shorter than this are not worth a readability pass; it tends to keep
// only the title of small fragments.
const readabilityMinLength = 500

type TextExtractor struct {
	strict *bluemonday.Policy
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{strict: bluemonday.StrictPolicy()}
}

// Run reduces a post body to plain, NFKC-normalised text with collapsed
// whitespace.
func (e *TextExtractor) Run(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	text := trimmed
	if strings.Contains(trimmed, "<") {
		text = e.fromHTML(trimmed)
	}

	return normalizeWhitespace(norm.NFKC.String(text))
}

func (e *TextExtractor) fromHTML(html string) string {
	if len(html) >= readabilityMinLength {
		if article, err := readability.FromReader(strings.NewReader(html), nil); err == nil {
			var buf strings.Builder
			if err := article.RenderText(&buf); err == nil {
				if text := strings.TrimSpace(buf.String()); text != "" {
					return text
				}
			}
		} else {
			slog.Debug("Readability extraction failed", "error", err)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return e.strict.Sanitize(html)
	}
	doc.Find("script, style, noscript").Remove()

	// Block elements would otherwise glue their words together.
	doc.Find("p, br, div, li").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	if text := strings.TrimSpace(doc.Text()); text != "" {
		return text
	}
	return e.strict.Sanitize(html)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

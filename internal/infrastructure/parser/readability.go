package parser

import (
	"bytes"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"

	"NewsRelay/internal/scanner"
)

// ReadabilityStrategy is the universal fallback: it scores the whole document
// and keeps the densest text block.
type ReadabilityStrategy struct{}

var _ scanner.Strategy = ReadabilityStrategy{}

// Name identifies the strategy.
func (ReadabilityStrategy) Name() string { return "readability" }

// Kind tags the strategy as the last resort.
func (ReadabilityStrategy) Kind() scanner.Kind { return scanner.KindFallback }

// Extract renders the readable text of the page.
func (ReadabilityStrategy) Extract(page scanner.Page) (string, bool) {
	if len(page.HTML) == 0 {
		return "", false
	}

	var pageURL *url.URL
	if parsed, err := url.Parse(page.URL); err == nil && parsed.Host != "" {
		pageURL = parsed
	}

	article, err := readability.FromReader(bytes.NewReader(page.HTML), pageURL)
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", false
	}

	var paragraphs []string
	for _, line := range strings.Split(buf.String(), "\n") {
		line = cleanText(line)
		if line == "" || boilerplate.MatchString(line) {
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	if len(paragraphs) == 0 {
		return "", false
	}
	return strings.Join(paragraphs, "\n\n"), true
}

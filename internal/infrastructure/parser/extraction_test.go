package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
)

func newDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}

func newEngine() *Engine {
	reg := scanner.NewRegistry()
	RegisterBuiltins(reg)
	return NewEngine(reg, 200, nil)
}

func TestParagraphRules(t *testing.T) {
	t.Parallel()

	rules := paragraphRules{minLength: 30, minWords: 8, alphaRatio: 0.6}
	cases := map[string]bool{
		sampleParagraphs[0]: true,
		"Too short to count.": false,
		"1234 5678 9012 3456 7890 1234 5678 9012 3456": false,
		"Click here to read the full story and sign up for alerts today": false,
		"© 2025 Example Media Corporation and its affiliates everywhere": false,
	}
	for text, want := range cases {
		if got := rules.valid(text); got != want {
			t.Fatalf("valid(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestSourceSpecificStrategyWins(t *testing.T) {
	t.Parallel()

	page := scanner.Page{
		URL:  "https://www.cbc.ca/news/transit-1.234567",
		HTML: []byte(articleHTML(`<div class="story">`, `</div>`, `<h1 class="detailHeadline">Transit plan approved by council</h1>`)),
	}
	ext, err := newEngine().Extract(Source{Name: "cbc", Profile: "cbc"}, page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.Strategy != "source-specific:cbc" {
		t.Fatalf("unexpected strategy: %s", ext.Strategy)
	}
	if ext.Headline != "Transit plan approved by council" {
		t.Fatalf("unexpected headline: %q", ext.Headline)
	}
	if strings.Contains(ext.Body, "newsletter") || strings.Contains(ext.Body, "Home News") {
		t.Fatalf("boilerplate leaked into body: %q", ext.Body)
	}
	if got := strings.Count(ext.Body, "\n\n") + 1; got != len(sampleParagraphs) {
		t.Fatalf("expected %d paragraphs, got %d", len(sampleParagraphs), got)
	}
	if ext.ImageURL != "https://cdn.example.com/lead.jpg" {
		t.Fatalf("unexpected image: %s", ext.ImageURL)
	}
	want := time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)
	if !ext.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published: %v", ext.PublishedAt)
	}
	if ext.Summary == "" || !strings.HasPrefix(ext.Summary, "The provincial government") {
		t.Fatalf("unexpected summary: %q", ext.Summary)
	}
}

func TestGenericStrategyWhenProfileMisses(t *testing.T) {
	t.Parallel()

	page := scanner.Page{
		URL:  "https://www.cbc.ca/news/transit",
		HTML: []byte(articleHTML(`<main>`, `</main>`, "")),
	}
	ext, err := newEngine().Extract(Source{Name: "cbc", Profile: "cbc"}, page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.Strategy != "generic:generic" {
		t.Fatalf("unexpected strategy: %s", ext.Strategy)
	}
	if ext.Headline != "Transit plan approved - City" {
		t.Fatalf("title suffix not stripped: %q", ext.Headline)
	}
}

func TestSelectorHintsTakePrecedence(t *testing.T) {
	t.Parallel()

	page := scanner.Page{
		URL:  "https://local.example/a",
		HTML: []byte(articleHTML(`<section class="x-copy">`, `</section>`, "")),
	}
	src := Source{Name: "local", Hints: scanner.Profile{Content: []string{".x-copy p"}}}
	ext, err := newEngine().Extract(src, page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.Strategy != "source-specific:local" {
		t.Fatalf("unexpected strategy: %s", ext.Strategy)
	}
}

func TestReadabilityFallback(t *testing.T) {
	t.Parallel()

	var body strings.Builder
	body.WriteString("<html><head><title>Fallback story about the harbour</title></head><body><table><tr><td>")
	for i := 0; i < 6; i++ {
		body.WriteString("<div>The harbour authority confirmed that the new terminal will open next spring after years of delays, according to a statement released on Monday afternoon.</div>")
	}
	body.WriteString("</td></tr></table></body></html>")

	ext, err := newEngine().Extract(Source{Name: "odd"}, scanner.Page{URL: "https://odd.example/x", HTML: []byte(body.String())})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.Strategy != "fallback-heuristic:readability" {
		t.Fatalf("unexpected strategy: %s", ext.Strategy)
	}
	if len(ext.Body) < 200 {
		t.Fatalf("body too short: %d", len(ext.Body))
	}
}

func TestInsufficientContent(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Short item on the wire</title></head><body><article><p>Only a single short line of copy here.</p></article></body></html>`
	_, err := newEngine().Extract(Source{Name: "tiny"}, scanner.Page{URL: "https://tiny.example/x", HTML: []byte(html)})
	if !errors.Is(err, domain.ErrExtractionInsufficient) {
		t.Fatalf("expected insufficient, got %v", err)
	}
}

func TestSourceMinBodyOverride(t *testing.T) {
	t.Parallel()

	engine := newEngine()
	if got := engine.MinBodyLength(Source{}); got != 200 {
		t.Fatalf("canonical minimum: %d", got)
	}
	if got := engine.MinBodyLength(Source{MinBodyLength: 100}); got != 100 {
		t.Fatalf("override minimum: %d", got)
	}
}

func TestExtractHeadlineCascade(t *testing.T) {
	t.Parallel()

	doc := newDoc(t, `<html><head><meta property="og:title" content="Open graph headline wins here"><title>Ignored - Site</title></head><body><h1>Short</h1></body></html>`)
	if got := ExtractHeadline(doc, nil); got != "Open graph headline wins here" {
		t.Fatalf("unexpected headline: %q", got)
	}

	doc = newDoc(t, `<html><body><h1>Tiny</h1></body></html>`)
	if got := ExtractHeadline(doc, nil); got != "" {
		t.Fatalf("expected empty headline, got %q", got)
	}
}

func TestExtractAuthor(t *testing.T) {
	t.Parallel()

	doc := newDoc(t, `<div class="byline">By Jane Reporter, CBC News</div>`)
	if got := ExtractAuthor(doc, nil); got != "Jane Reporter" {
		t.Fatalf("unexpected author: %q", got)
	}

	doc = newDoc(t, `<head><meta name="author" content="Written by Sam Lee | Staff"></head>`)
	if got := ExtractAuthor(doc, nil); got != "Sam Lee" {
		t.Fatalf("unexpected meta author: %q", got)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-04T14:30:00Z", time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)},
		{"2025-03-04T09:30:00-05:00", time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)},
		{"Posted: March 4, 2025 at 2:30 PM", time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)},
		{"Mar 4, 2025", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"4 March 2025", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"2025/03/04", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"3 hours ago", now.Add(-3 * time.Hour)},
		{"2 days ago", now.Add(-48 * time.Hour)},
		{"1 month ago", now.Add(-30 * 24 * time.Hour)},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in, now)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, ok := ParseDate("not a date at all", now); ok {
		t.Fatalf("expected garbage to fail")
	}
}

func TestNormalizeImageURL(t *testing.T) {
	t.Parallel()

	base := "https://news.example/section/story"
	cases := map[string]string{
		"//cdn.example/a.jpg":            "https://cdn.example/a.jpg",
		"/images/a.jpg":                  "https://news.example/images/a.jpg",
		"https://cdn.example/b.png":      "https://cdn.example/b.png",
		"https://cdn.example/logo.png":   "",
		"/static/placeholder.gif":        "",
		"data:image/png;base64,AAAA":     "",
		"https://cdn.example/avatar.jpg": "",
	}
	for in, want := range cases {
		if got := NormalizeImageURL(in, base); got != want {
			t.Fatalf("NormalizeImageURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractImageSkipsDecorative(t *testing.T) {
	t.Parallel()

	doc := newDoc(t, `<article><img src="/img/site-logo.png"><img data-src="/img/lead.jpg"></article>`)
	if got := ExtractImage(doc, nil, "https://news.example/a"); got != "https://news.example/img/lead.jpg" {
		t.Fatalf("unexpected image: %q", got)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	body := "Short one. The first real sentence is long enough to count. The second sentence also carries real news! " +
		"Is the third sentence a question worth keeping? The fourth sentence should be dropped entirely."
	got := Summarize(body)
	want := "The first real sentence is long enough to count. The second sentence also carries real news! Is the third sentence a question worth keeping?"
	if got != want {
		t.Fatalf("unexpected summary:\n%s", got)
	}
}

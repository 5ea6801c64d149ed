package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"NewsRelay/internal/scanner"
)

var boilerplate = regexp.MustCompile(`(?i)(advertisement|subscribe to|newsletter|follow us|share this|read more|watch:|listen:|click here|sign up|terms of service|privacy policy|cookie policy|©\s*\d{4}|all rights reserved)`)

var skipClasses = map[string]struct{}{
	"advertisement": {}, "ad": {}, "ads": {}, "social": {}, "social-share": {}, "share": {},
	"related": {}, "related-content": {}, "sidebar": {}, "footer": {}, "header": {}, "nav": {},
	"navigation": {}, "menu": {}, "author-bio": {}, "bio": {}, "byline": {}, "caption": {},
	"credit": {}, "tags": {}, "category": {}, "meta": {}, "timestamp": {},
}

var whitespace = regexp.MustCompile(`\s+`)

// paragraphRules decide which paragraphs count as article text.
type paragraphRules struct {
	minLength  int
	minWords   int
	alphaRatio float64
}

func (r paragraphRules) valid(text string) bool {
	if utf8.RuneCountInString(text) < r.minLength {
		return false
	}
	if r.minWords > 0 && len(strings.Fields(text)) < r.minWords {
		return false
	}
	if boilerplate.MatchString(text) {
		return false
	}

	var letters, total int
	for _, ch := range text {
		total++
		if unicode.IsLetter(ch) {
			letters++
		}
	}
	return total > 0 && float64(letters) >= float64(total)*r.alphaRatio
}

// skipNode reports whether the element or its parent looks like page chrome.
func skipNode(sel *goquery.Selection) bool {
	for _, node := range []*goquery.Selection{sel, sel.Parent()} {
		if node.Length() == 0 {
			continue
		}
		if _, ok := node.Attr("data-module"); ok {
			return true
		}
		if _, ok := node.Attr("data-ad"); ok {
			return true
		}
		class, _ := node.Attr("class")
		for _, token := range strings.Fields(strings.ToLower(class)) {
			if _, ok := skipClasses[token]; ok {
				return true
			}
		}
	}
	return false
}

func collectParagraphs(doc *goquery.Document, selector string, rules paragraphRules) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, p *goquery.Selection) {
		if skipNode(p) {
			return
		}
		text := cleanText(p.Text())
		if rules.valid(text) {
			out = append(out, text)
		}
	})
	return dedupe(out)
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// CascadeStrategy tries paragraph locators in order and takes the first one
// yielding enough valid paragraphs.
type CascadeStrategy struct {
	name          string
	kind          scanner.Kind
	locators      []string
	rules         paragraphRules
	minParagraphs int
}

var _ scanner.Strategy = CascadeStrategy{}

// Name identifies the strategy in logs and extraction records.
func (c CascadeStrategy) Name() string { return c.name }

// Kind tags the strategy's place in the chain.
func (c CascadeStrategy) Kind() scanner.Kind { return c.kind }

// Extract joins the winning locator's paragraphs with blank lines.
func (c CascadeStrategy) Extract(page scanner.Page) (string, bool) {
	if page.Doc == nil {
		return "", false
	}
	minParagraphs := c.minParagraphs
	if minParagraphs <= 0 {
		minParagraphs = 3
	}
	for _, locator := range c.locators {
		paragraphs := collectParagraphs(page.Doc, locator, c.rules)
		if len(paragraphs) >= minParagraphs {
			return strings.Join(paragraphs, "\n\n"), true
		}
	}
	return "", false
}

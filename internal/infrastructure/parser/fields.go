package parser

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const minHeadlineLength = 10

var (
	defaultHeadlineSelectors = []string{
		`h1[class*="headline"]`,
		`h1[class*="title"]`,
		`h1[class*="head"]`,
		"article h1",
		"main h1",
		`[class*="headline"] h1`,
		`[class*="title"] h1`,
	}
	defaultAuthorSelectors = []string{
		".byline-author",
		".author-name",
		`[rel="author"]`,
		`span[itemprop="author"]`,
		".author",
		".byline",
		`meta[name="author"]`,
		`meta[property="article:author"]`,
	}
	defaultDateSelectors = []string{
		"time[datetime]",
		`meta[property="article:published_time"]`,
		`meta[name="publishdate"]`,
		`meta[itemprop="datePublished"]`,
		".publish-date",
		".timestamp",
		"time",
	}
	defaultImageSelectors = []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		".article-image img",
		".lead-image img",
		"figure img",
		"article img",
	}
	imageAttrs     = []string{"content", "src", "data-src", "data-lazy-src", "data-original"}
	rejectedImages = []string{"placeholder", "icon", "logo", "avatar", "default", "spacer", "pixel"}

	titleSuffix  = regexp.MustCompile(`\s+[-|–]\s+`)
	authorPrefix = regexp.MustCompile(`(?i)^(by|written by)\s+`)
	authorCut    = regexp.MustCompile(`\s*(,|\||\s-\s|·).*$`)
)

// ExtractHeadline walks headline locators, then og:title, then the document
// title without its site suffix, then any h1.
func ExtractHeadline(doc *goquery.Document, selectors []string) string {
	for _, sel := range append(append([]string{}, selectors...), defaultHeadlineSelectors...) {
		if text := cleanText(doc.Find(sel).First().Text()); len(text) > minHeadlineLength {
			return text
		}
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if text := cleanText(og); len(text) > minHeadlineLength {
			return text
		}
	}

	if title := stripTitleSuffix(cleanText(doc.Find("title").First().Text())); len(title) > minHeadlineLength {
		return title
	}

	if text := cleanText(doc.Find("h1").First().Text()); len(text) > minHeadlineLength {
		return text
	}
	return ""
}

func stripTitleSuffix(title string) string {
	locs := titleSuffix.FindAllStringIndex(title, -1)
	if len(locs) == 0 {
		return title
	}
	last := locs[len(locs)-1]
	if last[0] == 0 {
		return title
	}
	return strings.TrimSpace(title[:last[0]])
}

// ExtractAuthor returns a cleaned byline or an empty string.
func ExtractAuthor(doc *goquery.Document, selectors []string) string {
	for _, sel := range append(append([]string{}, selectors...), defaultAuthorSelectors...) {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		raw := node.Text()
		if goquery.NodeName(node) == "meta" {
			raw, _ = node.Attr("content")
		}
		if author := cleanAuthor(raw); author != "" {
			return author
		}
	}
	return ""
}

func cleanAuthor(raw string) string {
	author := cleanText(raw)
	author = authorPrefix.ReplaceAllString(author, "")
	author = authorCut.ReplaceAllString(author, "")
	author = strings.TrimSpace(author)
	if len(author) > 100 {
		return ""
	}
	return author
}

// ExtractPublished reads the first parseable date from the date locators.
func ExtractPublished(doc *goquery.Document, selectors []string, now time.Time) (time.Time, bool) {
	for _, sel := range append(append([]string{}, selectors...), defaultDateSelectors...) {
		var found time.Time
		var ok bool
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			for _, candidate := range dateCandidates(node) {
				if found, ok = ParseDate(candidate, now); ok {
					return false
				}
			}
			return true
		})
		if ok {
			return found, true
		}
	}
	return time.Time{}, false
}

func dateCandidates(node *goquery.Selection) []string {
	var out []string
	if v, ok := node.Attr("datetime"); ok && v != "" {
		out = append(out, v)
	}
	if v, ok := node.Attr("content"); ok && v != "" {
		out = append(out, v)
	}
	if text := cleanText(node.Text()); text != "" {
		out = append(out, text)
	}
	return out
}

// ExtractImage returns the first acceptable absolute image URL.
func ExtractImage(doc *goquery.Document, selectors []string, baseURL string) string {
	for _, sel := range append(append([]string{}, selectors...), defaultImageSelectors...) {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			for _, attr := range imageAttrs {
				raw, ok := node.Attr(attr)
				if !ok {
					continue
				}
				if resolved := NormalizeImageURL(raw, baseURL); resolved != "" {
					found = resolved
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// NormalizeImageURL resolves raw against base and drops decorative images.
func NormalizeImageURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, bad := range rejectedImages {
		if strings.Contains(lower, bad) {
			return ""
		}
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://"):
		baseURL, err := url.Parse(base)
		if err != nil || baseURL.Host == "" {
			return ""
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		raw = baseURL.ResolveReference(ref).String()
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.String()
}

// Summarize keeps the first three sentences longer than twenty characters.
func Summarize(body string) string {
	var (
		sentences []string
		current   strings.Builder
	)
	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if len(s) > 20 {
			sentences = append(sentences, s)
		}
	}

	runes := []rune(cleanText(body))
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' {
				flush()
				if len(sentences) == 3 {
					break
				}
			}
		}
	}
	if len(sentences) < 3 {
		flush()
	}
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return strings.Join(sentences, " ")
}

package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// defaultLinkPattern matches article-like paths: at least two segments with a
// slug or numeric id in the last one.
var defaultLinkPattern = regexp.MustCompile(`^/[^/?#]+/.*([a-z0-9]+-[a-z0-9-]+|\d{5,})/?$`)

// ListingScanner discovers article stubs from section pages for sources
// without a feed.
type ListingScanner struct {
	fetcher  ports.PageFetcher
	maxPages int
}

// NewListingScanner wires a page fetcher; maxPages defaults to 1.
func NewListingScanner(fetcher ports.PageFetcher, maxPages int) *ListingScanner {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &ListingScanner{fetcher: fetcher, maxPages: maxPages}
}

// Scan collects same-host article links from a listing and its follow-up pages.
func (l *ListingScanner) Scan(ctx context.Context, listingURL, linkPattern string) ([]domain.Stub, error) {
	pattern := defaultLinkPattern
	if linkPattern != "" {
		compiled, err := regexp.Compile(linkPattern)
		if err != nil {
			return nil, fmt.Errorf("listing %s: bad link pattern: %w", listingURL, err)
		}
		pattern = compiled
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", listingURL, err)
	}

	var (
		results []domain.Stub
		seen    = map[string]struct{}{}
	)
	for page := 1; page <= l.maxPages; page++ {
		pageURL, err := buildPageURL(listingURL, page)
		if err != nil {
			return nil, err
		}

		raw, err := l.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("listing %s: %w", listingURL, err)
			}
			break
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
		}

		before := len(results)
		for _, stub := range extractLinks(doc, base, pattern) {
			if _, ok := seen[stub.URL]; ok {
				continue
			}
			seen[stub.URL] = struct{}{}
			results = append(results, stub)
		}
		if len(results) == before {
			break
		}
	}
	return results, nil
}

func extractLinks(doc *goquery.Document, base *url.URL, pattern *regexp.Regexp) []domain.Stub {
	var stubs []domain.Stub
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host || !pattern.MatchString(abs.Path) {
			return
		}
		abs.Fragment = ""
		abs.RawQuery = ""

		headline := cleanText(a.Text())
		if headline == "" {
			headline = cleanText(a.AttrOr("title", ""))
		}
		stubs = append(stubs, domain.Stub{URL: abs.String(), Headline: headline})
	})
	return stubs
}

func buildPageURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}
	if page <= 1 {
		return parsed.String(), nil
	}

	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

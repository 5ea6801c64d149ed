package feed

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

// Reader parses RSS, Atom and JSON feeds fetched through the shared client.
type Reader struct {
	fetcher ports.PageFetcher
	policy  *bluemonday.Policy
	logger  *slog.Logger
}

var _ ports.FeedReader = (*Reader)(nil)

// NewReader wires a page fetcher.
func NewReader(fetcher ports.PageFetcher, log *slog.Logger) *Reader {
	return &Reader{
		fetcher: fetcher,
		policy:  bluemonday.StrictPolicy(),
		logger:  logger.For(log, "feed"),
	}
}

// Read returns one stub per feed item with a usable link.
func (r *Reader) Read(ctx context.Context, feedURL string) ([]domain.Stub, error) {
	raw, err := r.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	stubs := make([]domain.Stub, 0, len(parsed.Items))
	seen := map[string]struct{}{}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}

		stub := domain.Stub{
			URL:      link,
			Headline: strings.TrimSpace(r.strip(item.Title)),
			Summary:  strings.TrimSpace(r.strip(item.Description)),
			ImageURL: imageURL(item),
		}
		if item.Author != nil {
			stub.Author = strings.TrimSpace(item.Author.Name)
		}
		stub.PublishedAt = publishedAt(item)
		stubs = append(stubs, stub)
	}

	r.logger.Debug("feed parsed", "url", feedURL, "items", len(stubs))
	return stubs, nil
}

// ReadAll reads every feed, skipping the ones that fail, and deduplicates
// stubs by url. The second return counts failed feeds.
func ReadAll(ctx context.Context, reader ports.FeedReader, feeds []string, log *slog.Logger) ([]domain.Stub, int) {
	var (
		out    []domain.Stub
		failed int
		seen   = map[string]struct{}{}
	)
	for _, feedURL := range feeds {
		stubs, err := reader.Read(ctx, feedURL)
		if err != nil {
			failed++
			if log != nil {
				log.Warn("feed skipped", "url", feedURL, "error", err)
			}
			continue
		}
		for _, stub := range stubs {
			if _, ok := seen[stub.URL]; ok {
				continue
			}
			seen[stub.URL] = struct{}{}
			out = append(out, stub)
		}
	}
	return out, failed
}

func (r *Reader) strip(s string) string {
	return html.UnescapeString(r.policy.Sanitize(s))
}

func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

// imageURL prefers the item image, then media extensions, then image enclosures.
func imageURL(item *gofeed.Item) string {
	if item.Image != nil && validImageURL(item.Image.URL) {
		return item.Image.URL
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, thumb := range media["thumbnail"] {
			if u := thumb.Attrs["url"]; validImageURL(u) {
				return u
			}
		}
		for _, content := range media["content"] {
			medium := content.Attrs["medium"]
			if medium != "image" && !strings.HasPrefix(content.Attrs["type"], "image/") {
				continue
			}
			if u := content.Attrs["url"]; validImageURL(u) {
				return u
			}
		}
	}

	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && validImageURL(enc.URL) {
			return enc.URL
		}
	}
	return ""
}

func validImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

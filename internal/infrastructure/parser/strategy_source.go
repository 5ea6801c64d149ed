package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/feed"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
	"NewsRelay/pkg/logger"
)

// SourceOptions tune how StrategySource walks its sources.
type SourceOptions struct {
	Concurrency int
	Delay       time.Duration
	PerSource   int
	Exists      func(ctx context.Context, url string) (bool, error)
	Now         func() time.Time
}

// StrategySource implements ArticleSource over configured feeds and listings.
type StrategySource struct {
	engine   *Engine
	fetcher  ports.PageFetcher
	feeds    ports.FeedReader
	listings *ListingScanner
	sources  []config.SourceConfig
	opts     SourceOptions
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the extraction engine with config-defined sources.
func NewStrategySource(engine *Engine, fetcher ports.PageFetcher, feeds ports.FeedReader, sources []config.SourceConfig, opts SourceOptions, log *slog.Logger) *StrategySource {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &StrategySource{
		engine:   engine,
		fetcher:  fetcher,
		feeds:    feeds,
		listings: NewListingScanner(fetcher, 1),
		sources:  sources,
		opts:     opts,
		logger:   logger.For(log, "source"),
	}
}

// Collect runs every selected source with bounded concurrency. Each source is
// walked sequentially; its failures are recorded in its SourceRun and never
// affect the others.
func (s *StrategySource) Collect(ctx context.Context, req ports.CollectRequest, sink ports.ArticleSink) ([]ports.SourceRun, error) {
	selected, err := s.selectSources(req.Sources)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("collect", "sources", len(selected), "limit", req.Limit)

	runs := make([]ports.SourceRun, len(selected))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, src := range selected {
		g.Go(func() error {
			runs[i] = s.collectSource(ctx, src, req.Limit, sink)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return runs, err
	}
	return runs, nil
}

func (s *StrategySource) selectSources(names []string) ([]config.SourceConfig, error) {
	if len(names) == 0 {
		return s.sources, nil
	}
	byName := make(map[string]config.SourceConfig, len(s.sources))
	for _, src := range s.sources {
		byName[src.Name] = src
	}
	out := make([]config.SourceConfig, 0, len(names))
	for _, name := range names {
		src, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("source %s is not configured", name)
		}
		out = append(out, src)
	}
	return out, nil
}

func (s *StrategySource) collectSource(ctx context.Context, src config.SourceConfig, limit int, sink ports.ArticleSink) ports.SourceRun {
	run := ports.SourceRun{Source: src.Name}
	log := s.logger.With("source", src.Name)

	stubs, failedInputs := feed.ReadAll(ctx, s.feeds, src.Feeds, log)
	for _, listing := range src.Listings {
		found, err := s.listings.Scan(ctx, listing.URL, listing.LinkPattern)
		if err != nil {
			failedInputs++
			log.Warn("listing skipped", "url", listing.URL, "error", err)
			continue
		}
		stubs = append(stubs, found...)
	}

	inputs := len(src.Feeds) + len(src.Listings)
	if inputs > 0 && failedInputs == inputs {
		run.Err = fmt.Errorf("%w: no feed or listing reachable for %s", domain.ErrFetch, src.Name)
		log.Warn("source failed", "error", run.Err)
		return run
	}
	run.Found = len(stubs)

	if limit <= 0 {
		limit = s.opts.PerSource
	}

	fetched := 0
	for _, stub := range stubs {
		if limit > 0 && fetched >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			run.Err = err
			break
		}

		if s.opts.Exists != nil {
			exists, err := s.opts.Exists(ctx, stub.URL)
			if err == nil && exists {
				run.Duplicates++
				continue
			}
		}

		if fetched > 0 && !sleep(ctx, s.opts.Delay) {
			run.Err = ctx.Err()
			break
		}
		fetched++

		article, err := s.extractArticle(ctx, src, stub)
		if err != nil {
			if errors.Is(err, domain.ErrExtractionInsufficient) {
				run.Insufficient++
				log.Debug("article discarded", "url", stub.URL, "error", err)
			} else {
				run.Failed++
				log.Warn("article failed", "url", stub.URL, "error", err)
			}
			continue
		}

		created, err := sink(ctx, article)
		switch {
		case err != nil:
			run.Failed++
			log.Warn("article not stored", "url", stub.URL, "error", err)
		case created:
			run.Stored++
		default:
			run.Duplicates++
		}
	}

	log.Info("source done", "found", run.Found, "stored", run.Stored, "duplicates", run.Duplicates,
		"insufficient", run.Insufficient, "failed", run.Failed)
	return run
}

func (s *StrategySource) extractArticle(ctx context.Context, src config.SourceConfig, stub domain.Stub) (domain.Article, error) {
	raw, err := s.fetcher.Fetch(ctx, stub.URL)
	if err != nil {
		return domain.Article{}, err
	}

	now := s.opts.Now().UTC()
	ext, err := s.engine.Extract(Source{
		Name:    src.Name,
		Profile: src.Profile,
		BaseURL: src.BaseURL,
		Hints: scanner.Profile{
			Content:  src.Selectors.Content,
			Headline: src.Selectors.Headline,
			Author:   src.Selectors.Author,
			Date:     src.Selectors.Date,
			Image:    src.Selectors.Image,
		},
		MinBodyLength: src.MinBodyLength,
	}, scanner.Page{URL: stub.URL, HTML: raw, FetchedAt: now})
	if err != nil {
		return domain.Article{}, err
	}

	article := domain.Article{
		URL:         stub.URL,
		Source:      src.Name,
		Headline:    firstNonEmpty(ext.Headline, stub.Headline),
		Body:        ext.Body,
		Summary:     firstNonEmpty(stub.Summary, ext.Summary),
		Author:      firstNonEmpty(ext.Author, stub.Author),
		PublishedAt: stub.PublishedAt,
		IngestedAt:  now,
		ImageURL:    firstNonEmpty(ext.ImageURL, stub.ImageURL),
		Status:      domain.ArticleIngested,
		Notes:       "extracted by " + ext.Strategy,
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = ext.PublishedAt
	}
	if article.Headline == "" {
		return domain.Article{}, fmt.Errorf("%w: %s has no headline", domain.ErrExtractionInsufficient, stub.URL)
	}
	return article, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
	"NewsRelay/pkg/logger"
)

// Source is the extraction view of one configured source.
type Source struct {
	Name          string
	Profile       string
	BaseURL       string
	Hints         scanner.Profile
	MinBodyLength int
}

// Engine turns fetched pages into structured extractions.
type Engine struct {
	registry      *scanner.Registry
	minBodyLength int
	logger        *slog.Logger
}

// NewEngine wires a profile registry with the canonical minimum body length.
func NewEngine(reg *scanner.Registry, minBodyLength int, log *slog.Logger) *Engine {
	if reg == nil {
		reg = scanner.NewRegistry()
		RegisterBuiltins(reg)
	}
	return &Engine{
		registry:      reg,
		minBodyLength: minBodyLength,
		logger:        logger.For(log, "extract"),
	}
}

// Chain assembles the ordered strategies for a profile.
func (e *Engine) Chain(profile scanner.Profile) scanner.Chain {
	var chain scanner.Chain
	if len(profile.Content) > 0 {
		ratio := profile.AlphaRatio
		if ratio <= 0 {
			ratio = 0.7
		}
		chain = append(chain, CascadeStrategy{
			name:          profile.Name,
			kind:          scanner.KindSourceSpecific,
			locators:      profile.Content,
			rules:         paragraphRules{minLength: 30, alphaRatio: ratio},
			minParagraphs: profile.MinParagraphs,
		})
	}
	chain = append(chain,
		CascadeStrategy{
			name:          GenericProfile,
			kind:          scanner.KindGeneric,
			locators:      genericLocators,
			rules:         paragraphRules{minLength: 30, minWords: 8, alphaRatio: 0.6},
			minParagraphs: 3,
		},
		ReadabilityStrategy{},
	)
	return chain
}

// Profile resolves the profile for src with its selector hints applied.
func (e *Engine) Profile(src Source) scanner.Profile {
	name := src.Profile
	if name == "" {
		name = src.Name
	}
	profile, err := e.registry.Resolve(name)
	if err != nil {
		profile = scanner.Profile{Name: name}
	}
	return profile.Merge(src.Hints)
}

// MinBodyLength is the gate applied to src.
func (e *Engine) MinBodyLength(src Source) int {
	if src.MinBodyLength > 0 {
		return src.MinBodyLength
	}
	return e.minBodyLength
}

// Extract runs the strategy chain and the field locators over page. It fails
// with ErrExtractionInsufficient when no strategy yields enough body text.
func (e *Engine) Extract(src Source, page scanner.Page) (domain.Extraction, error) {
	if page.Doc == nil {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("%w: parse %s: %v", domain.ErrExtractionInsufficient, page.URL, err)
		}
		page.Doc = doc
	}
	if page.FetchedAt.IsZero() {
		page.FetchedAt = time.Now().UTC()
	}

	profile := e.Profile(src)
	minBody := e.MinBodyLength(src)

	body, strategy, ok := e.Chain(profile).Run(page, func(body string) bool {
		return len(body) >= minBody
	})
	if !ok {
		return domain.Extraction{}, fmt.Errorf("%w: %s yielded less than %d characters", domain.ErrExtractionInsufficient, page.URL, minBody)
	}

	out := domain.Extraction{
		Headline: ExtractHeadline(page.Doc, profile.Headline),
		Body:     body,
		Summary:  Summarize(body),
		Author:   ExtractAuthor(page.Doc, profile.Author),
		ImageURL: ExtractImage(page.Doc, profile.Image, pageBase(src.BaseURL, page.URL)),
		Strategy: string(strategy.Kind()) + ":" + strategy.Name(),
	}
	if published, ok := ExtractPublished(page.Doc, profile.Date, page.FetchedAt); ok {
		out.PublishedAt = published
	}

	e.logger.Debug("extracted", "url", page.URL, "strategy", out.Strategy, "body_len", len(body))
	return out, nil
}

func pageBase(base, pageURL string) string {
	if pageURL != "" {
		return pageURL
	}
	return base
}

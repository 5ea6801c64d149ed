package analysis

import (
	"fmt"
	"strings"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Filter rejects articles that are too short, too old or off-topic before
// any analysis work is spent on them.
type Filter struct {
	cfg config.FilterConfig
}

var _ ports.ArticleFilter = Filter{}

// NewFilter builds a filter from configuration.
func NewFilter(cfg config.FilterConfig) Filter {
	return Filter{cfg: cfg}
}

// Check returns an empty reason when the article passes.
func (f Filter) Check(article domain.Article, now time.Time) string {
	if f.cfg.MinWordCount > 0 {
		if words := article.WordCount(); words < f.cfg.MinWordCount {
			return fmt.Sprintf("too short: %d words < %d", words, f.cfg.MinWordCount)
		}
	}
	if f.cfg.MaxAgeHours > 0 && !article.PublishedAt.IsZero() {
		if age := now.Sub(article.PublishedAt); age > time.Duration(f.cfg.MaxAgeHours)*time.Hour {
			return fmt.Sprintf("too old: published %s ago", age.Round(time.Minute))
		}
	}

	text := strings.ToLower(article.Headline + " " + article.Body)
	for _, kw := range f.cfg.ExcludeKeywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return "excluded keyword: " + kw
		}
	}
	if len(f.cfg.RequiredKeywords) > 0 {
		for _, kw := range f.cfg.RequiredKeywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return ""
			}
		}
		return "missing required keyword"
	}
	return ""
}

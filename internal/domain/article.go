package domain

import (
	"strings"
	"time"
)

// ArticleStatus tracks where an article sits in the ingestion lifecycle.
type ArticleStatus string

const (
	ArticleIngested  ArticleStatus = "ingested"
	ArticleProcessed ArticleStatus = "processed"
	ArticlePublished ArticleStatus = "published"
	ArticleFailed    ArticleStatus = "failed"
	ArticleSkipped   ArticleStatus = "skipped"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleIngested, ArticleProcessed, ArticlePublished, ArticleFailed, ArticleSkipped:
		return true
	}
	return false
}

// Article is a news item pulled from a source and enriched by analysis.
type Article struct {
	ID            int64
	URL           string
	Source        string
	Headline      string
	Body          string
	Summary       string
	Author        string
	PublishedAt   time.Time
	IngestedAt    time.Time
	Category      string
	Keywords      []string
	ImageURL      string
	LocalImageRef string
	Status        ArticleStatus
	Notes         string
}

// WordCount counts whitespace separated tokens in the body.
func (a Article) WordCount() int {
	return len(strings.Fields(a.Body))
}

// HasImage reports whether any image reference is attached.
func (a Article) HasImage() bool {
	return a.ImageURL != "" || a.LocalImageRef != ""
}

// Stub is the lightweight record discovered from a feed or listing page,
// before the full page has been fetched.
type Stub struct {
	URL         string
	Source      string
	Headline    string
	Summary     string
	Author      string
	PublishedAt time.Time
	ImageURL    string
}

// Extraction holds the structured fields recovered from a single page.
type Extraction struct {
	Headline    string
	Body        string
	Summary     string
	Author      string
	PublishedAt time.Time
	ImageURL    string
	Strategy    string
}

// Analysis is advisory enrichment produced by a text analyzer.
type Analysis struct {
	Category   string
	Sentiment  string
	Keywords   []string
	Summary    string
	Importance float64
}

package domain

import "time"

// PostStatus enumerates the publish lifecycle.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostScheduled PostStatus = "scheduled"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostDraft:     {PostScheduled, PostPublished, PostFailed},
	PostScheduled: {PostScheduled, PostPublished, PostFailed},
}

// CanTransition reports whether a post may move from one status to another.
// Published and failed are terminal.
func CanTransition(from, to PostStatus) bool {
	for _, next := range postTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourceStatuses lists every status from which to is reachable.
func SourceStatuses(to PostStatus) []PostStatus {
	var out []PostStatus
	for _, from := range []PostStatus{PostDraft, PostScheduled, PostPublished, PostFailed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Template selects the caption layout.
type Template string

const (
	TemplateBreaking Template = "breaking"
	TemplateAnalysis Template = "analysis"
	TemplateFeature  Template = "feature"
)

// ParseTemplate maps free text to a known template, defaulting to feature.
func ParseTemplate(s string) Template {
	switch Template(s) {
	case TemplateBreaking, TemplateAnalysis:
		return Template(s)
	}
	return TemplateFeature
}

// Engagement is the last metrics snapshot fetched from the platform.
type Engagement struct {
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
	Views       int64 `json:"views"`
	Shares      int64 `json:"shares"`
	Saves       int64 `json:"saves"`
	Reach       int64 `json:"reach"`
	Impressions int64 `json:"impressions"`
}

// Post is a social post derived from one article.
type Post struct {
	ID          int64
	ArticleID   int64
	Caption     string
	Hashtags    []string
	ImageRef    string
	Template    Template
	ScheduledAt time.Time
	PublishedAt time.Time
	ExternalID  string
	ExternalURL string
	Status      PostStatus
	Engagement  Engagement
	Error       string
	CreatedAt   time.Time
}

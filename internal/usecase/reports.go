package usecase

import (
	"time"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// IngestRequest narrows an ingestion run to some sources.
type IngestRequest struct {
	Sources []string
	Limit   int
}

// IngestReport totals every source run.
type IngestReport struct {
	Runs         []ports.SourceRun `json:"-"`
	Sources      []SourceSummary   `json:"sources"`
	Found        int               `json:"found"`
	Stored       int               `json:"stored"`
	Duplicates   int               `json:"duplicates"`
	Insufficient int               `json:"insufficient"`
	Failed       int               `json:"failed"`
	FailedSource int               `json:"failed_sources"`
}

// SourceSummary is the printable form of a SourceRun.
type SourceSummary struct {
	Source       string `json:"source"`
	Found        int    `json:"found"`
	Stored       int    `json:"stored"`
	Duplicates   int    `json:"duplicates"`
	Insufficient int    `json:"insufficient"`
	Failed       int    `json:"failed"`
	Error        string `json:"error,omitempty"`
}

func (r *IngestReport) add(run ports.SourceRun) {
	r.Runs = append(r.Runs, run)
	s := SourceSummary{
		Source:       run.Source,
		Found:        run.Found,
		Stored:       run.Stored,
		Duplicates:   run.Duplicates,
		Insufficient: run.Insufficient,
		Failed:       run.Failed,
	}
	if run.Err != nil {
		s.Error = run.Err.Error()
		r.FailedSource++
	}
	r.Sources = append(r.Sources, s)
	r.Found += run.Found
	r.Stored += run.Stored
	r.Duplicates += run.Duplicates
	r.Insufficient += run.Insufficient
	r.Failed += run.Failed
}

// AnalyzeReport counts analysis outcomes.
type AnalyzeReport struct {
	Candidates int `json:"candidates"`
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Retrying   int `json:"retrying"`
	Failed     int `json:"failed"`
}

// GenerateRequest selects what to build posts for. A zero ArticleID runs the
// automatic selection over recent processed articles.
type GenerateRequest struct {
	ArticleID int64
	Template  string
	Limit     int
}

// GenerateReport lists created drafts.
type GenerateReport struct {
	Considered int           `json:"considered"`
	Ineligible int           `json:"ineligible"`
	Failed     int           `json:"failed"`
	Posts      []domain.Post `json:"posts"`
}

// PublishDueReport summarises one pass over due posts.
type PublishDueReport struct {
	Due         int                    `json:"due"`
	Published   int                    `json:"published"`
	Rescheduled int                    `json:"rescheduled"`
	Failed      int                    `json:"failed"`
	Results     []domain.PublishResult `json:"results"`
}

// EngagementReport counts refreshed posts.
type EngagementReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// AnalyticsReport is a per-day activity snapshot.
type AnalyticsReport struct {
	Days              []domain.DailyStat `json:"days"`
	TotalArticles     int                `json:"total_articles"`
	TotalPublished    int                `json:"total_published"`
	AvgArticlesPerDay float64            `json:"avg_articles_per_day"`
	AvgPostsPerDay    float64            `json:"avg_posts_per_day"`
	Scheduled         int                `json:"scheduled"`
	NextPostAt        *time.Time         `json:"next_post_at,omitempty"`
}

// CycleReport chains the reports of one automatic cycle.
type CycleReport struct {
	Ingest    IngestReport   `json:"ingest"`
	Analyze   AnalyzeReport  `json:"analyze"`
	Generate  GenerateReport `json:"generate"`
	Scheduled int            `json:"scheduled"`
}

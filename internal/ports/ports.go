package ports

import (
	"context"
	"encoding/json"
	"time"

	"NewsRelay/internal/domain"
)

// PageFetcher retrieves raw pages with a shared politeness policy.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url, dir string) (string, error)
}

// FeedReader turns a syndication feed into article stubs.
type FeedReader interface {
	Read(ctx context.Context, feedURL string) ([]domain.Stub, error)
}

// ArticleSource discovers and extracts articles for one ingestion run.
type ArticleSource interface {
	Collect(ctx context.Context, req CollectRequest, sink ArticleSink) ([]SourceRun, error)
}

// ArticleSink receives each extracted article as soon as it is ready. A
// false return means the article already existed.
type ArticleSink func(ctx context.Context, article domain.Article) (created bool, err error)

// CollectRequest narrows an ingestion run.
type CollectRequest struct {
	Sources []string
	Limit   int
}

// SourceRun tallies one source's outcome.
type SourceRun struct {
	Source       string
	Found        int
	Stored       int
	Duplicates   int
	Insufficient int
	Failed       int
	Err          error
}

// ArticleStore persists articles with url-level deduplication.
type ArticleStore interface {
	SaveArticle(ctx context.Context, article domain.Article) (domain.Article, bool, error)
	ArticleExists(ctx context.Context, url string) (bool, error)
	GetArticle(ctx context.Context, id int64) (domain.Article, error)
	ArticlesByStatus(ctx context.Context, status domain.ArticleStatus, limit int) ([]domain.Article, error)
	RecentArticles(ctx context.Context, since time.Time, limit int) ([]domain.Article, error)
	ArticlesWithoutPosts(ctx context.Context, status domain.ArticleStatus, since time.Time, limit int) ([]domain.Article, error)
	UpdateArticleStatus(ctx context.Context, id int64, status domain.ArticleStatus, notes string) (bool, error)
	UpdateArticleAnalysis(ctx context.Context, id int64, analysis domain.Analysis, status domain.ArticleStatus, notes string) (bool, error)
	SetArticleImage(ctx context.Context, id int64, ref string) error
}

// PostUpdate carries the optional fields written alongside a transition.
type PostUpdate struct {
	ScheduledAt *time.Time
	PublishedAt *time.Time
	Caption     *string
	ExternalID  string
	ExternalURL string
	Error       *string
}

// PostStore persists posts and enforces monotonic status.
type PostStore interface {
	CreatePost(ctx context.Context, post domain.Post) (domain.Post, error)
	GetPost(ctx context.Context, id int64) (domain.Post, error)
	PostsByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]domain.Post, error)
	LatestDraft(ctx context.Context) (domain.Post, error)
	ScheduledBefore(ctx context.Context, t time.Time, limit int) ([]domain.Post, error)
	UpcomingScheduled(ctx context.Context, limit int) ([]domain.Post, error)
	TransitionPost(ctx context.Context, id int64, to domain.PostStatus, update PostUpdate) (bool, error)
	RecordPostError(ctx context.Context, id int64, message string) error
	UpdateEngagement(ctx context.Context, id int64, engagement domain.Engagement) error
	PublishedSince(ctx context.Context, since time.Time) ([]domain.Post, error)
	LastPublishedAt(ctx context.Context) (time.Time, bool, error)
	CountPublishedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// JobStore tracks processing attempts.
type JobStore interface {
	GetOrCreateJob(ctx context.Context, articleID int64, kind domain.JobKind, maxRetries int) (domain.ProcessingJob, error)
	UpdateJob(ctx context.Context, id int64, status domain.JobStatus, message string) (domain.ProcessingJob, error)
	PendingJobs(ctx context.Context, kind domain.JobKind, limit int) ([]domain.ProcessingJob, error)
}

// MaintenanceStore covers retention and reporting queries.
type MaintenanceStore interface {
	CountIngestedBetween(ctx context.Context, from, to time.Time) (int, error)
	Cleanup(ctx context.Context, before time.Time) (domain.CleanupReport, error)
}

// Store is the full persistence surface.
type Store interface {
	ArticleStore
	PostStore
	JobStore
	MaintenanceStore
}

// TextAnalyzer produces advisory enrichment for an article.
type TextAnalyzer interface {
	Analyze(ctx context.Context, headline, body string) (domain.Analysis, error)
}

// RenderRequest describes the asset wanted for a post.
type RenderRequest struct {
	Text       string
	Category   string
	Layout     domain.Template
	Source     string
	// Background is an optional local image drawn behind the text.
	Background string
}

// AssetRenderer produces an image file and returns its path.
type AssetRenderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
	Cleanup(ctx context.Context, before time.Time) (int, error)
}

// PlatformClient is the remote publishing API.
type PlatformClient interface {
	SetDevice(device domain.DeviceFingerprint)
	LoadState(state json.RawMessage) error
	DumpState() (json.RawMessage, error)
	AccountInfo(ctx context.Context) (domain.AccountInfo, error)
	Relogin(ctx context.Context) error
	Login(ctx context.Context, creds domain.Credentials) error
	UploadPhoto(ctx context.Context, imagePath, caption string) (domain.Media, error)
	MediaInsights(ctx context.Context, mediaID string) (domain.Engagement, error)
}

// SessionStore persists authenticated state per account.
type SessionStore interface {
	Load(ctx context.Context, account string) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, account string) error
}

// Notifier streams operator messages to Telegram or other channels.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Scheduler controls when background work executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Publisher pushes stored posts to the platform over an authenticated session.
type Publisher interface {
	Connect(ctx context.Context) (bool, error)
	Publish(ctx context.Context, postID int64, captionOverride string) domain.PublishResult
	Engagement(ctx context.Context, externalID string) (domain.Engagement, error)
}

// ArticleFilter decides whether an article deserves analysis. An empty
// reason means it passes.
type ArticleFilter interface {
	Check(article domain.Article, now time.Time) string
}

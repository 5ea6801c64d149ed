package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

const (
	defaultGenerateLimit = 5
	defaultDueLimit      = 20
	engagementWindow     = 7 * 24 * time.Hour
	upcomingLimit        = 10
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Store     ports.Store
	Source    ports.ArticleSource
	Analyzer  ports.TextAnalyzer
	Filter    ports.ArticleFilter
	Renderer  ports.AssetRenderer
	Publisher ports.Publisher
	Notifier  ports.Notifier
	Images    ports.PageFetcher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// PipelineOptions carries the policy knobs of every operation.
type PipelineOptions struct {
	Posting          config.PostingConfig
	Retention        config.RetentionConfig
	AnalysisBatch    int
	MaxRetries       int
	ImageDir         string
	EngagementDelay  time.Duration
	DigestOnSnapshot bool
}

// Pipeline implements the named operations behind the CLI and the
// background loop.
type Pipeline struct {
	store     ports.Store
	source    ports.ArticleSource
	analyzer  ports.TextAnalyzer
	filter    ports.ArticleFilter
	renderer  ports.AssetRenderer
	publisher ports.Publisher
	notifier  ports.Notifier
	images    ports.PageFetcher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time

	opts     PipelineOptions
	slots    *SlotAllocator
	eligible Eligibility
	captions CaptionBuilder
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if opts.AnalysisBatch <= 0 {
		opts.AnalysisBatch = 50
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = domain.DefaultMaxRetries
	}
	if opts.Retention.Days <= 0 {
		opts.Retention.Days = 30
	}
	if opts.Retention.ImageDays <= 0 {
		opts.Retention.ImageDays = 7
	}
	if opts.Posting.RecentWindow <= 0 {
		opts.Posting.RecentWindow = 24 * time.Hour
	}
	return &Pipeline{
		store:     deps.Store,
		source:    deps.Source,
		analyzer:  deps.Analyzer,
		filter:    deps.Filter,
		renderer:  deps.Renderer,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		images:    deps.Images,
		metrics:   deps.Metrics,
		log:       logger.For(deps.Logger, "pipeline"),
		now:       now,
		opts:      opts,
		slots:     NewSlotAllocator(deps.Store, opts.Posting, now),
		eligible:  NewEligibility(opts.Posting),
		captions:  NewCaptionBuilder(opts.Posting),
	}
}

// Slots exposes the allocator used for scheduling.
func (p *Pipeline) Slots() *SlotAllocator {
	return p.slots
}

// Ingest pulls new articles from every selected source and stores them.
// Per-source failures are reported, not returned.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (IngestReport, error) {
	var report IngestReport
	if p.source == nil {
		return report, nil
	}

	runs, err := p.source.Collect(ctx, ports.CollectRequest{Sources: req.Sources, Limit: req.Limit}, p.storeArticle)
	for _, run := range runs {
		report.add(run)
		p.metrics.RecordArticle(run.Source, "stored", run.Stored)
		p.metrics.RecordArticle(run.Source, "duplicate", run.Duplicates)
		p.metrics.RecordArticle(run.Source, "insufficient", run.Insufficient)
		p.metrics.RecordArticle(run.Source, "failed", run.Failed)
	}
	if err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}

	p.log.Info("ingest done", "sources", len(runs), "stored", report.Stored,
		"duplicates", report.Duplicates, "failed_sources", report.FailedSource)
	return report, nil
}

func (p *Pipeline) storeArticle(ctx context.Context, article domain.Article) (bool, error) {
	saved, created, err := p.store.SaveArticle(ctx, article)
	if err != nil || !created {
		return created, err
	}
	if strategy, ok := strings.CutPrefix(article.Notes, "extracted by "); ok {
		p.metrics.RecordExtraction(strategy)
	}

	if p.images != nil && p.opts.ImageDir != "" && saved.ImageURL != "" {
		path, err := p.images.Download(ctx, saved.ImageURL, p.opts.ImageDir)
		if err != nil {
			p.log.Debug("image not downloaded", "url", saved.ImageURL, "error", err)
			return true, nil
		}
		if err := p.store.SetArticleImage(ctx, saved.ID, path); err != nil {
			p.log.Warn("image not recorded", "article_id", saved.ID, "error", err)
		}
	}
	return true, nil
}

// Analyze filters and enriches freshly ingested articles.
func (p *Pipeline) Analyze(ctx context.Context, limit int) (AnalyzeReport, error) {
	var report AnalyzeReport
	if limit <= 0 {
		limit = p.opts.AnalysisBatch
	}

	articles, err := p.store.ArticlesByStatus(ctx, domain.ArticleIngested, limit)
	if err != nil {
		return report, fmt.Errorf("analyze: %w", err)
	}
	report.Candidates = len(articles)

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch p.analyzeOne(ctx, article) {
		case domain.ArticleProcessed:
			report.Processed++
		case domain.ArticleSkipped:
			report.Skipped++
		case domain.ArticleFailed:
			report.Failed++
		default:
			report.Retrying++
		}
	}

	p.log.Info("analyze done", "candidates", report.Candidates, "processed", report.Processed,
		"skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// analyzeOne returns the article's new status, or ingested when it will be
// retried on a later run.
func (p *Pipeline) analyzeOne(ctx context.Context, article domain.Article) domain.ArticleStatus {
	log := p.log.With("article_id", article.ID)

	job, err := p.store.GetOrCreateJob(ctx, article.ID, domain.JobAnalysis, p.opts.MaxRetries)
	if err != nil {
		log.Warn("analysis job unavailable", "error", err)
		return domain.ArticleIngested
	}

	if p.filter != nil {
		if reason := p.filter.Check(article, p.now()); reason != "" {
			if _, err := p.store.UpdateArticleStatus(ctx, article.ID, domain.ArticleSkipped, reason); err != nil {
				log.Warn("skip not recorded", "error", err)
				return domain.ArticleIngested
			}
			p.finishJob(ctx, job.ID, domain.JobCompleted, "")
			log.Debug("article skipped", "reason", reason)
			return domain.ArticleSkipped
		}
	}

	if _, err := p.store.UpdateJob(ctx, job.ID, domain.JobRunning, ""); err != nil {
		log.Warn("analysis job not started", "error", err)
	}

	result, err := p.analyze(ctx, article)
	if err != nil {
		failed, jerr := p.store.UpdateJob(ctx, job.ID, domain.JobFailed, err.Error())
		if jerr == nil && !failed.Exhausted() {
			log.Warn("analysis failed, will retry", "retry", failed.RetryCount, "error", err)
			return domain.ArticleIngested
		}
		if _, uerr := p.store.UpdateArticleStatus(ctx, article.ID, domain.ArticleFailed, err.Error()); uerr != nil {
			log.Warn("failure not recorded", "error", uerr)
		}
		log.Error("analysis failed", "error", err)
		return domain.ArticleFailed
	}

	notes := fmt.Sprintf("category=%s sentiment=%s importance=%.1f", result.Category, result.Sentiment, result.Importance)
	if _, err := p.store.UpdateArticleAnalysis(ctx, article.ID, result, domain.ArticleProcessed, notes); err != nil {
		p.finishJob(ctx, job.ID, domain.JobFailed, err.Error())
		log.Warn("analysis not stored", "error", err)
		return domain.ArticleIngested
	}
	p.finishJob(ctx, job.ID, domain.JobCompleted, "")
	return domain.ArticleProcessed
}

func (p *Pipeline) analyze(ctx context.Context, article domain.Article) (domain.Analysis, error) {
	if p.analyzer == nil {
		return domain.Analysis{Category: article.Category, Keywords: article.Keywords, Summary: article.Summary}, nil
	}
	result, err := p.analyzer.Analyze(ctx, article.Headline, article.Body)
	if err != nil {
		return domain.Analysis{}, err
	}
	if article.Summary != "" && result.Summary == "" {
		result.Summary = article.Summary
	}
	return result, nil
}

func (p *Pipeline) finishJob(ctx context.Context, id int64, status domain.JobStatus, message string) {
	if _, err := p.store.UpdateJob(ctx, id, status, message); err != nil {
		p.log.Warn("job not updated", "job_id", id, "status", status, "error", err)
	}
}

// Generate builds draft posts. With an article id the eligibility rules are
// bypassed; otherwise recent processed articles without a post are
// considered and each yields at most one draft.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (GenerateReport, error) {
	var report GenerateReport

	if req.ArticleID > 0 {
		article, err := p.store.GetArticle(ctx, req.ArticleID)
		if err != nil {
			return report, fmt.Errorf("generate: %w", err)
		}
		report.Considered = 1
		post, err := p.draft(ctx, article, req.Template)
		if err != nil {
			return report, fmt.Errorf("generate article %d: %w", article.ID, err)
		}
		report.Posts = append(report.Posts, post)
		return report, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultGenerateLimit
	}
	since := p.now().Add(-p.opts.Posting.RecentWindow)
	articles, err := p.store.ArticlesWithoutPosts(ctx, domain.ArticleProcessed, since, limit)
	if err != nil {
		return report, fmt.Errorf("generate: %w", err)
	}

	for _, article := range articles {
		report.Considered++
		ok, reason := p.eligible.Check(article)
		if !ok {
			report.Ineligible++
			p.log.Debug("article not eligible", "article_id", article.ID, "reason", reason)
			continue
		}
		post, err := p.draft(ctx, article, req.Template)
		if err != nil {
			report.Failed++
			p.log.Warn("draft not created", "article_id", article.ID, "error", err)
			continue
		}
		p.log.Info("draft created", "post_id", post.ID, "article_id", article.ID, "reason", reason)
		report.Posts = append(report.Posts, post)
	}
	return report, nil
}

func (p *Pipeline) draft(ctx context.Context, article domain.Article, template string) (domain.Post, error) {
	tmpl := ChooseTemplate(article)
	if template != "" {
		tmpl = domain.ParseTemplate(template)
	}

	imageRef, err := p.render(ctx, article, tmpl)
	if err != nil {
		return domain.Post{}, err
	}

	caption, tags := p.captions.Build(article, tmpl)
	return p.store.CreatePost(ctx, domain.Post{
		ArticleID: article.ID,
		Caption:   caption,
		Hashtags:  tags,
		ImageRef:  imageRef,
		Template:  tmpl,
		Status:    domain.PostDraft,
	})
}

func (p *Pipeline) render(ctx context.Context, article domain.Article, tmpl domain.Template) (string, error) {
	if p.renderer == nil {
		if article.LocalImageRef == "" {
			return "", &domain.ValidationError{Problems: []string{"no renderer and no local image"}}
		}
		return article.LocalImageRef, nil
	}
	path, err := p.renderer.Render(ctx, ports.RenderRequest{
		Text:       article.Headline,
		Category:   article.Category,
		Layout:     tmpl,
		Source:     article.Source,
		Background: article.LocalImageRef,
	})
	if err != nil {
		if article.LocalImageRef != "" {
			p.log.Warn("render failed, using article image", "article_id", article.ID, "error", err)
			return article.LocalImageRef, nil
		}
		return "", fmt.Errorf("render: %w", err)
	}
	return path, nil
}

// Schedule assigns a publish time to a post. An explicit time is validated
// against the interval and daily cap; otherwise the next slot is used.
func (p *Pipeline) Schedule(ctx context.Context, postID int64, at *time.Time) (domain.Post, error) {
	post, err := p.store.GetPost(ctx, postID)
	if err != nil {
		return domain.Post{}, fmt.Errorf("schedule: %w", err)
	}
	if !domain.CanTransition(post.Status, domain.PostScheduled) {
		return domain.Post{}, fmt.Errorf("schedule post %d from %s: %w", postID, post.Status, domain.ErrInvalidTransition)
	}

	var slot time.Time
	if at != nil {
		if err := p.slots.Check(ctx, *at); err != nil {
			return domain.Post{}, fmt.Errorf("schedule post %d: %w", postID, err)
		}
		slot = *at
	} else {
		category := ""
		if article, err := p.store.GetArticle(ctx, post.ArticleID); err == nil {
			category = article.Category
		}
		slot, err = p.slots.NextSlot(ctx, category)
		if err != nil {
			return domain.Post{}, fmt.Errorf("schedule post %d: %w", postID, err)
		}
	}

	if err := p.transition(ctx, postID, domain.PostScheduled, ports.PostUpdate{ScheduledAt: &slot}); err != nil {
		return domain.Post{}, fmt.Errorf("schedule: %w", err)
	}
	p.log.Info("post scheduled", "post_id", postID, "at", slot)
	return p.store.GetPost(ctx, postID)
}

func (p *Pipeline) transition(ctx context.Context, id int64, to domain.PostStatus, update ports.PostUpdate) error {
	ok, err := p.store.TransitionPost(ctx, id, to, update)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("post %d to %s: %w", id, to, domain.ErrInvalidTransition)
	}
	return nil
}

// Publish pushes one post immediately. A zero id picks the latest draft.
func (p *Pipeline) Publish(ctx context.Context, postID int64, captionOverride string) domain.PublishResult {
	if p.publisher == nil {
		return domain.Failed(postID, errors.New("no publisher configured"))
	}
	if postID == 0 {
		post, err := p.store.LatestDraft(ctx)
		if err != nil {
			return domain.Failed(0, fmt.Errorf("latest draft: %w", err))
		}
		postID = post.ID
	}

	result := p.publisher.Publish(ctx, postID, captionOverride)
	if result.Success {
		p.markArticlePublished(ctx, postID)
	}
	return result
}

func (p *Pipeline) markArticlePublished(ctx context.Context, postID int64) {
	post, err := p.store.GetPost(ctx, postID)
	if err != nil {
		return
	}
	if _, err := p.store.UpdateArticleStatus(ctx, post.ArticleID, domain.ArticlePublished, ""); err != nil {
		p.log.Warn("article status not updated", "article_id", post.ArticleID, "error", err)
	}
}

// PublishDue publishes every scheduled post whose time has come. Retryable
// failures move the post to the next slot until the publish job runs out of
// retries; anything else fails the post.
func (p *Pipeline) PublishDue(ctx context.Context) (PublishDueReport, error) {
	var report PublishDueReport
	if p.publisher == nil {
		return report, nil
	}

	due, err := p.store.ScheduledBefore(ctx, p.now(), defaultDueLimit)
	if err != nil {
		return report, fmt.Errorf("publish due: %w", err)
	}
	report.Due = len(due)

	for _, post := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := p.publishScheduled(ctx, post, &report)
		report.Results = append(report.Results, result)
	}

	if report.Due > 0 {
		p.log.Info("publish due done", "due", report.Due, "published", report.Published,
			"rescheduled", report.Rescheduled, "failed", report.Failed)
	}
	return report, nil
}

func (p *Pipeline) publishScheduled(ctx context.Context, post domain.Post, report *PublishDueReport) domain.PublishResult {
	log := p.log.With("post_id", post.ID)

	job, err := p.store.GetOrCreateJob(ctx, post.ArticleID, domain.JobPublish, p.opts.MaxRetries)
	if err != nil {
		log.Warn("publish job unavailable", "error", err)
	} else {
		p.finishJob(ctx, job.ID, domain.JobRunning, "")
	}

	result := p.publisher.Publish(ctx, post.ID, "")
	if result.Success {
		report.Published++
		if job.ID != 0 {
			p.finishJob(ctx, job.ID, domain.JobCompleted, "")
		}
		p.markArticlePublished(ctx, post.ID)
		return result
	}

	if result.Kind == domain.KindUnrecorded && result.ExternalID != "" {
		if recorded, ok := p.recordLive(ctx, post.ID, result); ok {
			report.Published++
			if job.ID != 0 {
				p.finishJob(ctx, job.ID, domain.JobCompleted, "")
			}
			p.markArticlePublished(ctx, post.ID)
			return recorded
		}
	}

	if domain.Retryable(result.Err) && job.ID != 0 {
		updated, err := p.store.UpdateJob(ctx, job.ID, domain.JobPending, result.Error)
		if err == nil && !updated.Exhausted() {
			if p.reschedule(ctx, post) {
				report.Rescheduled++
				log.Warn("publish failed, rescheduled", "retry", updated.RetryCount, "kind", result.Kind, "error", result.Error)
				return result
			}
		}
	}

	report.Failed++
	msg := result.Error
	update := ports.PostUpdate{Error: &msg, ExternalID: result.ExternalID, ExternalURL: result.ExternalURL}
	if err := p.transition(ctx, post.ID, domain.PostFailed, update); err != nil {
		log.Warn("failure not recorded", "error", err)
	}
	if job.ID != 0 {
		p.finishJob(ctx, job.ID, domain.JobFailed, "")
	}
	log.Error("publish failed", "kind", result.Kind, "error", result.Error)
	return result
}

// recordLive makes one more attempt to mark a post published after its media
// went live. Live media is never rescheduled.
func (p *Pipeline) recordLive(ctx context.Context, postID int64, result domain.PublishResult) (domain.PublishResult, bool) {
	publishedAt := p.now().UTC()
	noError := ""
	err := p.transition(ctx, postID, domain.PostPublished, ports.PostUpdate{
		PublishedAt: &publishedAt,
		ExternalID:  result.ExternalID,
		ExternalURL: result.ExternalURL,
		Error:       &noError,
	})
	if err != nil {
		p.log.Warn("live media still unrecorded", "post_id", postID, "external_id", result.ExternalID, "error", err)
		return result, false
	}
	p.log.Info("live media recorded", "post_id", postID, "external_id", result.ExternalID)
	return domain.PublishResult{PostID: postID, Success: true, ExternalID: result.ExternalID, ExternalURL: result.ExternalURL}, true
}

func (p *Pipeline) reschedule(ctx context.Context, post domain.Post) bool {
	slot, err := p.slots.NextSlot(ctx, "")
	if err != nil {
		p.log.Warn("no slot for retry", "post_id", post.ID, "error", err)
		return false
	}
	if err := p.transition(ctx, post.ID, domain.PostScheduled, ports.PostUpdate{ScheduledAt: &slot}); err != nil {
		p.log.Warn("retry not scheduled", "post_id", post.ID, "error", err)
		return false
	}
	return true
}

// RefreshEngagement pulls insights for posts published in the last week.
func (p *Pipeline) RefreshEngagement(ctx context.Context) (EngagementReport, error) {
	var report EngagementReport
	if p.publisher == nil {
		return report, nil
	}

	posts, err := p.store.PublishedSince(ctx, p.now().Add(-engagementWindow))
	if err != nil {
		return report, fmt.Errorf("refresh engagement: %w", err)
	}

	for _, post := range posts {
		if post.ExternalID == "" {
			continue
		}
		if report.Checked > 0 && !wait(ctx, p.opts.EngagementDelay) {
			return report, ctx.Err()
		}
		report.Checked++

		stats, err := p.publisher.Engagement(ctx, post.ExternalID)
		if err != nil {
			report.Failed++
			p.log.Warn("engagement not fetched", "post_id", post.ID, "error", err)
			continue
		}
		if err := p.store.UpdateEngagement(ctx, post.ID, stats); err != nil {
			report.Failed++
			p.log.Warn("engagement not stored", "post_id", post.ID, "error", err)
			continue
		}
		report.Updated++
	}
	return report, nil
}

// Cleanup removes articles older than the retention window together with
// their posts and jobs, then stale rendered images. days overrides the
// configured window when positive.
func (p *Pipeline) Cleanup(ctx context.Context, days int) (domain.CleanupReport, error) {
	if days <= 0 {
		days = p.opts.Retention.Days
	}
	now := p.now()

	report, err := p.store.Cleanup(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return report, fmt.Errorf("cleanup: %w", err)
	}

	if p.renderer != nil {
		n, err := p.renderer.Cleanup(ctx, now.AddDate(0, 0, -p.opts.Retention.ImageDays))
		if err != nil {
			p.log.Warn("image cleanup failed", "error", err)
		}
		report.Images = n
	}

	p.log.Info("cleanup done", "articles", report.Articles, "posts", report.Posts,
		"jobs", report.Jobs, "images", report.Images)
	return report, nil
}

// Analytics reports per-day activity for the last days calendar days in the
// posting timezone, refreshes the gauges and optionally sends a digest.
func (p *Pipeline) Analytics(ctx context.Context, days int) (AnalyticsReport, error) {
	var report AnalyticsReport
	if days <= 0 {
		days = 1
	}
	loc := p.opts.Posting.Location()
	now := p.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	for i := days - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)
		ingested, err := p.store.CountIngestedBetween(ctx, start, end)
		if err != nil {
			return report, fmt.Errorf("analytics: %w", err)
		}
		published, err := p.store.CountPublishedBetween(ctx, start, end)
		if err != nil {
			return report, fmt.Errorf("analytics: %w", err)
		}
		report.Days = append(report.Days, domain.DailyStat{Day: start, ArticlesIngested: ingested, PostsPublished: published})
		report.TotalArticles += ingested
		report.TotalPublished += published
	}
	report.AvgArticlesPerDay = float64(report.TotalArticles) / float64(days)
	report.AvgPostsPerDay = float64(report.TotalPublished) / float64(days)

	upcoming, err := p.store.UpcomingScheduled(ctx, upcomingLimit)
	if err != nil {
		return report, fmt.Errorf("analytics: %w", err)
	}
	report.Scheduled = len(upcoming)
	if len(upcoming) > 0 {
		next := upcoming[0].ScheduledAt
		report.NextPostAt = &next
	}

	last := report.Days[len(report.Days)-1]
	p.metrics.SetDaily(last.ArticlesIngested, last.PostsPublished)
	p.metrics.SetScheduled(report.Scheduled)

	if p.opts.DigestOnSnapshot && p.notifier != nil {
		if err := p.notifier.Notify(ctx, buildDigestMessage(report)); err != nil {
			p.log.Warn("digest not sent", "error", err)
		}
	}
	return report, nil
}

func buildDigestMessage(report AnalyticsReport) string {
	var b strings.Builder
	b.WriteString("NewsRelay daily report\n")
	for _, day := range report.Days {
		fmt.Fprintf(&b, "%s: %d articles, %d posts\n", day.Day.Format("2006-01-02"), day.ArticlesIngested, day.PostsPublished)
	}
	fmt.Fprintf(&b, "Total: %d articles, %d posts\n", report.TotalArticles, report.TotalPublished)
	fmt.Fprintf(&b, "Scheduled: %d", report.Scheduled)
	if report.NextPostAt != nil {
		fmt.Fprintf(&b, " (next %s)", report.NextPostAt.Format(time.RFC3339))
	}
	return b.String()
}

// AutoCycle runs ingest, analyze, generate and schedule in sequence. A
// failing stage is logged and the later stages still run.
func (p *Pipeline) AutoCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	var errs []error

	ingest, err := p.Ingest(ctx, IngestRequest{})
	report.Ingest = ingest
	if err != nil {
		errs = append(errs, err)
	}

	analyze, err := p.Analyze(ctx, 0)
	report.Analyze = analyze
	if err != nil {
		errs = append(errs, err)
	}

	generate, err := p.Generate(ctx, GenerateRequest{})
	report.Generate = generate
	if err != nil {
		errs = append(errs, err)
	}

	for _, post := range generate.Posts {
		if _, err := p.Schedule(ctx, post.ID, nil); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Scheduled++
	}

	return report, errors.Join(errs...)
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

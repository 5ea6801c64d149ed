package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/analysis"
	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/platform"
	"NewsRelay/internal/infrastructure/render"
	"NewsRelay/internal/infrastructure/sessionstore"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/publisher"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// stubSource hands fixed articles to the sink and reports extra runs as-is.
type stubSource struct {
	articles []domain.Article
	extra    []ports.SourceRun
}

func (s stubSource) Collect(ctx context.Context, _ ports.CollectRequest, sink ports.ArticleSink) ([]ports.SourceRun, error) {
	run := ports.SourceRun{Source: "stub", Found: len(s.articles)}
	for _, a := range s.articles {
		created, err := sink(ctx, a)
		switch {
		case err != nil:
			run.Failed++
		case created:
			run.Stored++
		default:
			run.Duplicates++
		}
	}
	return append([]ports.SourceRun{run}, s.extra...), nil
}

// stubPublisher returns queued results in order.
type stubPublisher struct {
	mu      sync.Mutex
	results []domain.PublishResult
	calls   []int64
}

func (s *stubPublisher) Connect(context.Context) (bool, error) { return true, nil }

func (s *stubPublisher) Publish(_ context.Context, postID int64, _ string) domain.PublishResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, postID)
	if len(s.results) == 0 {
		return domain.PublishResult{PostID: postID, Success: true, ExternalID: "X1"}
	}
	r := s.results[0]
	s.results = s.results[1:]
	r.PostID = postID
	return r
}

func (s *stubPublisher) Engagement(_ context.Context, externalID string) (domain.Engagement, error) {
	if externalID == "" {
		return domain.Engagement{}, fmt.Errorf("no id")
	}
	return domain.Engagement{Likes: 7, Views: 70}, nil
}

func newTestStore(t *testing.T, clock *testClock) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.WithClock(clock.Now)
}

func politicsBody() string {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("The minister told parliament the election would go ahead as planned next spring. ")
	}
	return b.String()
}

func TestEndToEndFeedToPublishedPost(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)

	categories := map[string][]string{"politics": {"election", "parliament", "minister"}}
	posting := postingConfig()
	pub := publisher.New(
		platform.NewDemo("newsrelay_test"),
		sessionstore.NewFile(t.TempDir()),
		store,
		nil,
		nil,
		publisher.Options{
			Account:     "newsrelay_test",
			Credentials: domain.Credentials{Username: "newsrelay_test", Password: "secret"},
			Now:         clock.Now,
		},
		nil,
	)

	article := domain.Article{
		URL:         "https://news.example/politics/election-date",
		Source:      "stub",
		Headline:    "Minister confirms spring election date",
		Body:        politicsBody(),
		PublishedAt: clock.Now().Add(-time.Hour),
		ImageURL:    "https://cdn.example/election.jpg",
		Status:      domain.ArticleIngested,
	}
	require.GreaterOrEqual(t, article.WordCount(), 500)

	p := NewPipeline(PipelineDeps{
		Store:     store,
		Source:    stubSource{articles: []domain.Article{article}},
		Analyzer:  analysis.NewResilient(nil, analysis.NewHeuristic(categories), nil),
		Filter:    analysis.NewFilter(config.FilterConfig{MinWordCount: 100, MaxAgeHours: 24}),
		Renderer:  render.NewCardRenderer(config.RenderConfig{OutputDir: t.TempDir(), Width: 400, Height: 400}, nil),
		Publisher: pub,
		Now:       clock.Now,
	}, PipelineOptions{Posting: posting})

	ingest, err := p.Ingest(ctx, IngestRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, ingest.Stored)

	analyzed, err := p.Analyze(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, analyzed.Processed)

	stored, err := store.ArticlesByStatus(ctx, domain.ArticleProcessed, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "politics", stored[0].Category)

	generated, err := p.Generate(ctx, GenerateRequest{})
	require.NoError(t, err)
	require.Len(t, generated.Posts, 1)
	draft := generated.Posts[0]
	assert.Equal(t, domain.PostDraft, draft.Status)
	assert.FileExists(t, draft.ImageRef)
	assert.Contains(t, draft.Hashtags, "#politics")

	again, err := p.Generate(ctx, GenerateRequest{})
	require.NoError(t, err)
	assert.Empty(t, again.Posts, "auto flow creates at most one post per article")

	scheduled, err := p.Schedule(ctx, draft.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PostScheduled, scheduled.Status)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), scheduled.ScheduledAt)

	early, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, early.Due)

	clock.Set(time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC))
	due, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, due.Published)

	published, err := store.GetPost(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostPublished, published.Status)
	assert.True(t, strings.HasPrefix(published.ExternalID, "DEMO_"))

	source, err := store.GetArticle(ctx, published.ArticleID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArticlePublished, source.Status)

	next, err := p.Slots().NextSlot(ctx, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, next.Sub(published.PublishedAt), 3*time.Hour)

	refreshed, err := p.RefreshEngagement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.Updated)

	report, err := p.Analytics(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, report.Days, 3)
	assert.Equal(t, 1, report.TotalArticles)
	assert.Equal(t, 1, report.TotalPublished)
}

func seedScheduledPost(t *testing.T, store *storage.Store, at time.Time) domain.Post {
	t.Helper()
	ctx := context.Background()
	article, _, err := store.SaveArticle(ctx, domain.Article{
		URL:      fmt.Sprintf("https://news.example/%d", at.UnixNano()),
		Source:   "stub",
		Headline: "Seeded article headline",
		Body:     words(50),
	})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, domain.Post{ArticleID: article.ID, Caption: "caption", ImageRef: "/tmp/x.png"})
	require.NoError(t, err)
	ok, err := store.TransitionPost(ctx, post.ID, domain.PostScheduled, ports.PostUpdate{ScheduledAt: &at})
	require.NoError(t, err)
	require.True(t, ok)
	return post
}

func TestPublishDueReschedulesRetryableFailures(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	post := seedScheduledPost(t, store, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	rateLimited := domain.Failed(0, fmt.Errorf("upload: %w", domain.ErrRateLimited))
	stub := &stubPublisher{results: []domain.PublishResult{rateLimited, rateLimited, rateLimited}}
	p := NewPipeline(PipelineDeps{Store: store, Publisher: stub, Now: clock.Now},
		PipelineOptions{Posting: postingConfig(), MaxRetries: 2})

	first, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rescheduled)

	moved, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostScheduled, moved.Status)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), moved.ScheduledAt)

	clock.Set(time.Date(2026, 3, 2, 12, 1, 0, 0, time.UTC))
	second, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Failed, "second failure exhausts two retries")

	failed, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostFailed, failed.Status)
	assert.Contains(t, failed.Error, "rate limited")
}

func TestPublishDueFailsHardErrorsImmediately(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	post := seedScheduledPost(t, store, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	challenge := domain.Failed(0, fmt.Errorf("login: %w", domain.ErrAuthChallenge))
	p := NewPipeline(PipelineDeps{Store: store, Publisher: &stubPublisher{results: []domain.PublishResult{challenge}}, Now: clock.Now},
		PipelineOptions{Posting: postingConfig()})

	report, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Rescheduled)

	failed, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostFailed, failed.Status)
}

func TestPublishDueRecordsLiveMediaWithoutRescheduling(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	post := seedScheduledPost(t, store, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	lost := domain.Failed(0, fmt.Errorf("record media m-9: %w: %w", domain.ErrUnrecorded, domain.ErrPersistence))
	lost.ExternalID = "m-9"
	lost.ExternalURL = "https://social.example/p/m-9"
	stub := &stubPublisher{results: []domain.PublishResult{lost}}
	p := NewPipeline(PipelineDeps{Store: store, Publisher: stub, Now: clock.Now},
		PipelineOptions{Posting: postingConfig(), MaxRetries: 3})

	report, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Published)
	assert.Zero(t, report.Rescheduled)
	assert.Zero(t, report.Failed)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Success)

	published, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostPublished, published.Status)
	assert.Equal(t, "m-9", published.ExternalID)
	assert.Equal(t, "https://social.example/p/m-9", published.ExternalURL)
	assert.Empty(t, published.Error)

	again, err := p.PublishDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Due)
	assert.Len(t, stub.calls, 1)
}

func TestScheduleValidatesExplicitTime(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	post := seedScheduledPost(t, store, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))

	p := NewPipeline(PipelineDeps{Store: store, Now: clock.Now}, PipelineOptions{Posting: postingConfig()})

	past := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err := p.Schedule(ctx, post.ID, &past)
	require.ErrorIs(t, err, domain.ErrValidation)

	later := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)
	moved, err := p.Schedule(ctx, post.ID, &later)
	require.NoError(t, err)
	assert.Equal(t, later, moved.ScheduledAt)
}

func TestPublishWithoutIDUsesLatestDraft(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	stub := &stubPublisher{}
	p := NewPipeline(PipelineDeps{Store: store, Publisher: stub, Now: clock.Now}, PipelineOptions{Posting: postingConfig()})

	none := p.Publish(ctx, 0, "")
	assert.False(t, none.Success)
	assert.Equal(t, domain.KindNotFound, none.Kind)

	article, _, err := store.SaveArticle(ctx, domain.Article{URL: "https://news.example/d", Headline: "Draft source article"})
	require.NoError(t, err)
	draft, err := store.CreatePost(ctx, domain.Post{ArticleID: article.ID, Caption: "c", ImageRef: "/tmp/x.png"})
	require.NoError(t, err)

	result := p.Publish(ctx, 0, "override")
	assert.True(t, result.Success)
	assert.Equal(t, []int64{draft.ID}, stub.calls)
}

func TestIngestCountsFailedSourcesWithoutAborting(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)

	src := stubSource{
		articles: []domain.Article{
			{URL: "https://news.example/1", Source: "stub", Headline: "First stored headline"},
			{URL: "https://news.example/1", Source: "stub", Headline: "First stored headline"},
		},
		extra: []ports.SourceRun{
			{Source: "slow", Err: fmt.Errorf("%w: timeout", domain.ErrFetch)},
			{Source: "other", Found: 2, Stored: 2},
		},
	}
	p := NewPipeline(PipelineDeps{Store: store, Source: src, Now: clock.Now}, PipelineOptions{Posting: postingConfig()})

	report, err := p.Ingest(ctx, IngestRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Stored)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.FailedSource)
	require.Len(t, report.Sources, 3)
	assert.Contains(t, report.Sources[1].Error, "timeout")
}

func TestAnalyzeSkipsFilteredArticles(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)

	_, _, err := store.SaveArticle(ctx, domain.Article{URL: "https://news.example/short", Headline: "Too short to bother", Body: "tiny"})
	require.NoError(t, err)

	p := NewPipeline(PipelineDeps{
		Store:    store,
		Analyzer: analysis.NewHeuristic(nil),
		Filter:   analysis.NewFilter(config.FilterConfig{MinWordCount: 100}),
		Now:      clock.Now,
	}, PipelineOptions{Posting: postingConfig()})

	report, err := p.Analyze(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	skipped, err := store.ArticlesByStatus(ctx, domain.ArticleSkipped, 10)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Notes, "too short")
}

func TestCleanupRemovesOldRows(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	_, _, err := store.SaveArticle(ctx, domain.Article{URL: "https://news.example/old", Headline: "Old article headline"})
	require.NoError(t, err)

	dir := t.TempDir()
	renderer := render.NewCardRenderer(config.RenderConfig{OutputDir: dir, Width: 200, Height: 200}, nil)
	path, err := renderer.Render(ctx, ports.RenderRequest{Text: "stale card"})
	require.NoError(t, err)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, old, old))

	clock.Set(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	p := NewPipeline(PipelineDeps{Store: store, Renderer: renderer, Now: clock.Now}, PipelineOptions{Posting: postingConfig()})

	report, err := p.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Articles)
	assert.Equal(t, 1, report.Images)
	assert.NoFileExists(t, path)
}

func TestAutoCycleSchedulesEligibleArticles(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)}
	store := newTestStore(t, clock)

	articles := []domain.Article{
		{
			URL:         "https://news.example/politics/vote",
			Source:      "stub",
			Headline:    "Minister calls a parliament vote on the election bill",
			Body:        politicsBody(),
			PublishedAt: clock.Now().Add(-time.Hour),
			Status:      domain.ArticleIngested,
		},
		{
			URL:         "https://news.example/sport/recap",
			Source:      "stub",
			Headline:    "Weekend league recap from the local arena",
			Body:        words(150),
			PublishedAt: clock.Now().Add(-time.Hour),
			Status:      domain.ArticleIngested,
		},
	}

	p := NewPipeline(PipelineDeps{
		Store:     store,
		Source:    stubSource{articles: articles},
		Analyzer:  analysis.NewResilient(nil, analysis.NewHeuristic(map[string][]string{"politics": {"minister", "parliament", "election"}}), nil),
		Filter:    analysis.NewFilter(config.FilterConfig{MinWordCount: 100, MaxAgeHours: 24}),
		Renderer:  render.NewCardRenderer(config.RenderConfig{OutputDir: t.TempDir(), Width: 400, Height: 400}, nil),
		Publisher: &stubPublisher{},
		Now:       clock.Now,
	}, PipelineOptions{Posting: postingConfig()})

	report, err := p.AutoCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ingest.Stored)
	assert.Equal(t, 2, report.Analyze.Processed)
	assert.Equal(t, 2, report.Generate.Considered)
	assert.Equal(t, 1, report.Generate.Ineligible)
	require.Len(t, report.Generate.Posts, 1)
	assert.Equal(t, 1, report.Scheduled)

	post, err := store.GetPost(ctx, report.Generate.Posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostScheduled, post.Status)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), post.ScheduledAt)
}

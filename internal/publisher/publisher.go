// Package publisher owns the authenticated platform session and pushes
// stored posts through it.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

// Options configures limits and identity.
type Options struct {
	Account          string
	Credentials      domain.Credentials
	MaxCaptionLength int
	MaxHashtags      int
	MaxImageBytes    int64
	UploadDelay      time.Duration
	Now              func() time.Time
}

// OptionsFromConfig maps configuration onto Options.
func OptionsFromConfig(platform config.PlatformConfig, posting config.PostingConfig) Options {
	return Options{
		Account:          platform.Account,
		Credentials:      domain.Credentials{Username: platform.Username, Password: platform.Password},
		MaxCaptionLength: posting.MaxCaptionLength,
		MaxHashtags:      posting.MaxHashtags,
		MaxImageBytes:    platform.MaxImageBytes,
		UploadDelay:      platform.UploadDelay,
	}
}

// Publisher serialises every platform call for one account.
type Publisher struct {
	client   ports.PlatformClient
	sessions ports.SessionStore
	posts    ports.PostStore
	notifier ports.Notifier
	metrics  *metrics.Metrics
	opts     Options
	log      *slog.Logger

	mu        sync.Mutex
	connected bool
	session   domain.Session
	info      domain.AccountInfo
	device    domain.DeviceFingerprint
	// unrecorded holds uploads whose post row could not be updated.
	unrecorded map[int64]domain.Media
}

var _ ports.Publisher = (*Publisher)(nil)

const (
	recordAttempts = 3
	recordBackoff  = 100 * time.Millisecond
)

// New wires a publisher. notifier and m may be nil.
func New(client ports.PlatformClient, sessions ports.SessionStore, posts ports.PostStore, notifier ports.Notifier, m *metrics.Metrics, opts Options, log *slog.Logger) *Publisher {
	if opts.Account == "" {
		opts.Account = "default"
	}
	if opts.MaxCaptionLength <= 0 {
		opts.MaxCaptionLength = 2200
	}
	if opts.MaxHashtags <= 0 {
		opts.MaxHashtags = 30
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 8 << 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Publisher{
		client:   client,
		sessions: sessions,
		posts:    posts,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		log:      logger.For(log, "publisher"),
		device:   deviceFor(opts.Account),

		unrecorded: map[int64]domain.Media{},
	}
}

// Publish uploads one post. A caption override is stored only when the
// upload succeeds; on failure the post keeps its status and records the error.
func (p *Publisher) Publish(ctx context.Context, postID int64, captionOverride string) domain.PublishResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	result := p.publishLocked(ctx, postID, captionOverride)
	status := "success"
	if !result.Success {
		status = string(result.Kind)
	}
	p.metrics.RecordPublish(status, time.Since(start))
	return result
}

func (p *Publisher) publishLocked(ctx context.Context, postID int64, captionOverride string) domain.PublishResult {
	post, err := p.posts.GetPost(ctx, postID)
	if err != nil {
		return domain.Failed(postID, err)
	}
	if post.Status != domain.PostDraft && post.Status != domain.PostScheduled {
		return domain.Failed(postID, fmt.Errorf("post %d is %s: %w", postID, post.Status, domain.ErrInvalidTransition))
	}

	media, uploaded := p.unrecorded[postID]
	if !uploaded && post.ExternalID != "" {
		media, uploaded = domain.Media{ID: post.ExternalID, URL: post.ExternalURL}, true
	}
	if uploaded {
		p.log.Info("media already uploaded, recording only", "post_id", postID, "external_id", media.ID)
		return p.record(ctx, postID, media, captionOverride)
	}

	caption := post.Caption
	if captionOverride != "" {
		caption = captionOverride
	}
	if err := p.Validate(caption, post.ImageRef, post.Hashtags); err != nil {
		return p.fail(ctx, postID, err)
	}

	if err := p.connectLocked(ctx); err != nil {
		return p.fail(ctx, postID, err)
	}
	if p.opts.UploadDelay > 0 {
		select {
		case <-time.After(p.opts.UploadDelay):
		case <-ctx.Done():
			return p.fail(ctx, postID, ctx.Err())
		}
	}

	media, err = p.client.UploadPhoto(ctx, post.ImageRef, caption)
	if err != nil {
		switch domain.Classify(err) {
		case domain.KindLoginRequired:
			p.disconnect()
		case domain.KindAuthChallenge:
			p.disconnect()
			p.onAuthFailure(ctx, err)
		}
		return p.fail(ctx, postID, fmt.Errorf("upload: %w", err))
	}
	if err := p.persist(ctx); err != nil {
		p.log.Warn("refresh session", "error", err)
	}
	return p.record(ctx, postID, media, captionOverride)
}

// record moves the post to published once its media is live. A failure here
// keeps the media in memory so the next attempt records it instead of
// uploading again.
func (p *Publisher) record(ctx context.Context, postID int64, media domain.Media, captionOverride string) domain.PublishResult {
	publishedAt := p.opts.Now().UTC()
	noError := ""
	update := ports.PostUpdate{
		PublishedAt: &publishedAt,
		ExternalID:  media.ID,
		ExternalURL: media.URL,
		Error:       &noError,
	}
	if captionOverride != "" {
		update.Caption = &captionOverride
	}

	moved, err := p.posts.TransitionPost(ctx, postID, domain.PostPublished, update)
	for attempt := 1; err != nil && attempt < recordAttempts; attempt++ {
		p.log.Warn("record published post, retrying", "post_id", postID, "attempt", attempt, "error", err)
		if !sleep(ctx, time.Duration(attempt)*recordBackoff) {
			break
		}
		moved, err = p.posts.TransitionPost(ctx, postID, domain.PostPublished, update)
	}

	switch {
	case err != nil:
		p.unrecorded[postID] = media
		return p.failUnrecorded(ctx, postID, media, fmt.Errorf("record media %s: %w: %w", media.ID, domain.ErrUnrecorded, err))
	case !moved:
		delete(p.unrecorded, postID)
		return p.failUnrecorded(ctx, postID, media, fmt.Errorf("record media %s: %w: post %d changed status during publish: %w",
			media.ID, domain.ErrUnrecorded, postID, domain.ErrInvalidTransition))
	}
	delete(p.unrecorded, postID)

	p.log.Info("post published", "post_id", postID, "external_id", media.ID, "url", media.URL)
	return domain.PublishResult{PostID: postID, Success: true, ExternalID: media.ID, ExternalURL: media.URL}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// failUnrecorded reports live media that has no matching published post.
func (p *Publisher) failUnrecorded(ctx context.Context, postID int64, media domain.Media, err error) domain.PublishResult {
	p.log.Error("published media not recorded", "post_id", postID, "external_id", media.ID, "url", media.URL, "error", err)
	if rerr := p.posts.RecordPostError(ctx, postID, err.Error()); rerr != nil {
		p.log.Error("record post error", "post_id", postID, "error", rerr)
	}
	if p.notifier != nil {
		msg := fmt.Sprintf("Post %d is live at %s but could not be marked published: %v", postID, media.URL, err)
		if nerr := p.notifier.Notify(ctx, msg); nerr != nil {
			p.log.Warn("notify operator", "error", nerr)
		}
	}
	result := domain.Failed(postID, err)
	result.ExternalID = media.ID
	result.ExternalURL = media.URL
	return result
}

func (p *Publisher) fail(ctx context.Context, postID int64, err error) domain.PublishResult {
	p.log.Warn("publish failed", "post_id", postID, "kind", domain.Classify(err), "error", err)
	if rerr := p.posts.RecordPostError(ctx, postID, err.Error()); rerr != nil {
		p.log.Error("record post error", "post_id", postID, "error", rerr)
	}
	return domain.Failed(postID, err)
}

// Validate checks caption, image and hashtags before any network call and
// reports every problem at once.
func (p *Publisher) Validate(caption, imageRef string, hashtags []string) error {
	problems := &domain.ValidationError{}
	switch n := len([]rune(caption)); {
	case n == 0:
		problems.Add("caption is empty")
	case n > p.opts.MaxCaptionLength:
		problems.Add(fmt.Sprintf("caption has %d characters, limit is %d", n, p.opts.MaxCaptionLength))
	}

	if imageRef == "" {
		problems.Add("image is missing")
	} else if info, err := os.Stat(imageRef); err != nil {
		problems.Add(fmt.Sprintf("image %s not found", imageRef))
	} else if info.Size() > p.opts.MaxImageBytes {
		problems.Add(fmt.Sprintf("image is %d bytes, limit is %d", info.Size(), p.opts.MaxImageBytes))
	}

	if len(hashtags) > p.opts.MaxHashtags {
		problems.Add(fmt.Sprintf("%d hashtags, limit is %d", len(hashtags), p.opts.MaxHashtags))
	}
	return problems.Err()
}

// Engagement fetches metrics for a published media id.
func (p *Publisher) Engagement(ctx context.Context, externalID string) (domain.Engagement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(ctx); err != nil {
		return domain.Engagement{}, err
	}
	stats, err := p.client.MediaInsights(ctx, externalID)
	if err != nil {
		return domain.Engagement{}, fmt.Errorf("insights %s: %w", externalID, err)
	}
	return stats, nil
}

// AccountInfo returns the identity of the connected account.
func (p *Publisher) AccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(ctx); err != nil {
		return domain.AccountInfo{}, err
	}
	return p.info, nil
}

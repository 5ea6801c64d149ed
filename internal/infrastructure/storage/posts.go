package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

var postColumns = []string{
	"id", "article_id", "caption", "hashtags", "image_ref", "template", "scheduled_at",
	"published_at", "external_id", "external_url", "status", "engagement", "error", "created_at",
}

type postRow struct {
	ID          int64          `db:"id"`
	ArticleID   int64          `db:"article_id"`
	Caption     string         `db:"caption"`
	Hashtags    StringList     `db:"hashtags"`
	ImageRef    string         `db:"image_ref"`
	Template    string         `db:"template"`
	ScheduledAt sql.NullTime   `db:"scheduled_at"`
	PublishedAt sql.NullTime   `db:"published_at"`
	ExternalID  string         `db:"external_id"`
	ExternalURL string         `db:"external_url"`
	Status      string         `db:"status"`
	Engagement  EngagementJSON `db:"engagement"`
	Error       string         `db:"error"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r postRow) toDomain() domain.Post {
	return domain.Post{
		ID:          r.ID,
		ArticleID:   r.ArticleID,
		Caption:     r.Caption,
		Hashtags:    []string(r.Hashtags),
		ImageRef:    r.ImageRef,
		Template:    domain.Template(r.Template),
		ScheduledAt: fromNull(r.ScheduledAt),
		PublishedAt: fromNull(r.PublishedAt),
		ExternalID:  r.ExternalID,
		ExternalURL: r.ExternalURL,
		Status:      domain.PostStatus(r.Status),
		Engagement:  domain.Engagement(r.Engagement),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// CreatePost inserts a post; a missing status defaults to draft.
func (s *Store) CreatePost(ctx context.Context, post domain.Post) (domain.Post, error) {
	if post.Status == "" {
		post.Status = domain.PostDraft
	}
	if post.Template == "" {
		post.Template = domain.TemplateFeature
	}
	post.CreatedAt = s.stamp()

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := s.sb.Insert("posts").
			Columns(postColumns[1:]...).
			Values(
				post.ArticleID, post.Caption, StringList(post.Hashtags), post.ImageRef, string(post.Template),
				nullTime(post.ScheduledAt), nullTime(post.PublishedAt), post.ExternalID, post.ExternalURL,
				string(post.Status), EngagementJSON(post.Engagement), post.Error, post.CreatedAt,
			).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return persistErr("build insert post", err)
		}
		if err := sqlx.GetContext(ctx, tx, &post.ID, query, args...); err != nil {
			return persistErr("insert post", err)
		}
		return nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// GetPost loads one post by id.
func (s *Store) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	posts, err := s.listPosts(ctx, s.sb.Select(postColumns...).From("posts").Where(sq.Eq{"id": id}), "", 1)
	if err != nil {
		return domain.Post{}, err
	}
	if len(posts) == 0 {
		return domain.Post{}, fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	return posts[0], nil
}

// PostsByStatus lists the newest posts in a status.
func (s *Store) PostsByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]domain.Post, error) {
	return s.listPosts(ctx, s.sb.Select(postColumns...).From("posts").
		Where(sq.Eq{"status": string(status)}), "created_at DESC", limit)
}

// LatestDraft returns the most recently created draft.
func (s *Store) LatestDraft(ctx context.Context) (domain.Post, error) {
	posts, err := s.PostsByStatus(ctx, domain.PostDraft, 1)
	if err != nil {
		return domain.Post{}, err
	}
	if len(posts) == 0 {
		return domain.Post{}, fmt.Errorf("draft post: %w", domain.ErrNotFound)
	}
	return posts[0], nil
}

// ScheduledBefore lists scheduled posts due at or before t, oldest first.
func (s *Store) ScheduledBefore(ctx context.Context, t time.Time, limit int) ([]domain.Post, error) {
	return s.listPosts(ctx, s.sb.Select(postColumns...).From("posts").
		Where(sq.Eq{"status": string(domain.PostScheduled)}).
		Where(sq.LtOrEq{"scheduled_at": dbTime(t)}), "scheduled_at ASC", limit)
}

// UpcomingScheduled lists scheduled posts in publish order.
func (s *Store) UpcomingScheduled(ctx context.Context, limit int) ([]domain.Post, error) {
	return s.listPosts(ctx, s.sb.Select(postColumns...).From("posts").
		Where(sq.Eq{"status": string(domain.PostScheduled)}), "scheduled_at ASC", limit)
}

// PublishedSince lists posts published at or after since.
func (s *Store) PublishedSince(ctx context.Context, since time.Time) ([]domain.Post, error) {
	return s.listPosts(ctx, s.sb.Select(postColumns...).From("posts").
		Where(sq.Eq{"status": string(domain.PostPublished)}).
		Where(sq.GtOrEq{"published_at": dbTime(since)}), "published_at DESC", 0)
}

func (s *Store) listPosts(ctx context.Context, builder sq.SelectBuilder, order string, limit int) ([]domain.Post, error) {
	if order != "" {
		builder = builder.OrderBy(order, "id DESC")
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, persistErr("build list posts", err)
	}
	var rows []postRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, persistErr("list posts", err)
	}
	out := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// TransitionPost moves a post to status to, writing the optional fields in
// update. The update only applies when the current status may legally move to
// to; false means the post is missing or the move is not allowed.
func (s *Store) TransitionPost(ctx context.Context, id int64, to domain.PostStatus, update ports.PostUpdate) (bool, error) {
	from := domain.SourceStatuses(to)
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s: %w", to, domain.ErrInvalidTransition)
	}
	allowed := make([]string, 0, len(from))
	for _, st := range from {
		allowed = append(allowed, string(st))
	}

	fields := map[string]interface{}{"status": string(to)}
	if update.ScheduledAt != nil {
		fields["scheduled_at"] = nullTime(*update.ScheduledAt)
	}
	if update.PublishedAt != nil {
		fields["published_at"] = nullTime(*update.PublishedAt)
	}
	if update.Caption != nil {
		fields["caption"] = *update.Caption
	}
	if update.ExternalID != "" {
		fields["external_id"] = update.ExternalID
	}
	if update.ExternalURL != "" {
		fields["external_url"] = update.ExternalURL
	}
	if update.Error != nil {
		fields["error"] = *update.Error
	}

	var moved bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := s.sb.Update("posts").
			SetMap(fields).
			Where(sq.Eq{"id": id, "status": allowed}).
			ToSql()
		if err != nil {
			return persistErr("build transition post", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return persistErr("transition post", err)
		}
		n, err := rowsAffected(res, "transition post")
		moved = n > 0
		return err
	})
	return moved, err
}

// RecordPostError stores the last failure message without touching status.
func (s *Store) RecordPostError(ctx context.Context, id int64, message string) error {
	return s.updatePost(ctx, id, map[string]interface{}{"error": message})
}

// UpdateEngagement stores the latest metrics snapshot.
func (s *Store) UpdateEngagement(ctx context.Context, id int64, engagement domain.Engagement) error {
	return s.updatePost(ctx, id, map[string]interface{}{"engagement": EngagementJSON(engagement)})
}

func (s *Store) updatePost(ctx context.Context, id int64, fields map[string]interface{}) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := s.sb.Update("posts").SetMap(fields).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return persistErr("build update post", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return persistErr("update post", err)
		}
		n, err := rowsAffected(res, "update post")
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

// LastPublishedAt returns the newest publish time, if any post was published.
func (s *Store) LastPublishedAt(ctx context.Context) (time.Time, bool, error) {
	query, args, err := s.sb.Select("published_at").From("posts").
		Where(sq.Eq{"status": string(domain.PostPublished)}).
		Where(sq.NotEq{"published_at": nil}).
		OrderBy("published_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return time.Time{}, false, persistErr("build last published", err)
	}
	var last sql.NullTime
	if err := sqlx.GetContext(ctx, s.db, &last, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, persistErr("last published", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time.UTC(), true, nil
}

// CountPublishedBetween counts posts published in [from, to).
func (s *Store) CountPublishedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query, args, err := s.sb.Select("COUNT(1)").From("posts").
		Where(sq.Eq{"status": string(domain.PostPublished)}).
		Where(sq.GtOrEq{"published_at": dbTime(from)}).
		Where(sq.Lt{"published_at": dbTime(to)}).
		ToSql()
	if err != nil {
		return 0, persistErr("build count published", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, query, args...); err != nil {
		return 0, persistErr("count published", err)
	}
	return n, nil
}

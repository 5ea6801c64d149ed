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
)

var articleColumns = []string{
	"id", "url", "source", "headline", "body", "summary", "author", "published_at",
	"ingested_at", "category", "keywords", "image_url", "local_image_ref", "status", "notes",
}

type articleRow struct {
	ID            int64        `db:"id"`
	URL           string       `db:"url"`
	Source        string       `db:"source"`
	Headline      string       `db:"headline"`
	Body          string       `db:"body"`
	Summary       string       `db:"summary"`
	Author        string       `db:"author"`
	PublishedAt   sql.NullTime `db:"published_at"`
	IngestedAt    time.Time    `db:"ingested_at"`
	Category      string       `db:"category"`
	Keywords      StringList   `db:"keywords"`
	ImageURL      string       `db:"image_url"`
	LocalImageRef string       `db:"local_image_ref"`
	Status        string       `db:"status"`
	Notes         string       `db:"notes"`
}

func (r articleRow) toDomain() domain.Article {
	return domain.Article{
		ID:            r.ID,
		URL:           r.URL,
		Source:        r.Source,
		Headline:      r.Headline,
		Body:          r.Body,
		Summary:       r.Summary,
		Author:        r.Author,
		PublishedAt:   fromNull(r.PublishedAt),
		IngestedAt:    r.IngestedAt.UTC(),
		Category:      r.Category,
		Keywords:      []string(r.Keywords),
		ImageURL:      r.ImageURL,
		LocalImageRef: r.LocalImageRef,
		Status:        domain.ArticleStatus(r.Status),
		Notes:         r.Notes,
	}
}

// SaveArticle inserts a new article or returns the existing one with the
// same url. The boolean reports whether a row was created.
func (s *Store) SaveArticle(ctx context.Context, article domain.Article) (domain.Article, bool, error) {
	if article.URL == "" {
		return domain.Article{}, false, &domain.ValidationError{Problems: []string{"article url is empty"}}
	}
	if article.Status == "" {
		article.Status = domain.ArticleIngested
	}
	if article.IngestedAt.IsZero() {
		article.IngestedAt = s.now()
	}
	article.IngestedAt = dbTime(article.IngestedAt)
	if !article.PublishedAt.IsZero() {
		article.PublishedAt = dbTime(article.PublishedAt)
	}

	var (
		saved   domain.Article
		created bool
	)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.articleByURL(ctx, tx, article.URL)
		if err == nil {
			saved = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		query, args, err := s.sb.Insert("articles").
			Columns(articleColumns[1:]...).
			Values(
				article.URL, article.Source, article.Headline, article.Body, article.Summary,
				article.Author, nullTime(article.PublishedAt), article.IngestedAt, article.Category,
				StringList(article.Keywords), article.ImageURL, article.LocalImageRef,
				string(article.Status), article.Notes,
			).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return persistErr("build insert article", err)
		}
		if err := sqlx.GetContext(ctx, tx, &article.ID, query, args...); err != nil {
			return persistErr("insert article", err)
		}
		saved = article
		created = true
		return nil
	})
	if err != nil {
		// A concurrent writer may have inserted the same url first.
		if existing, lookupErr := s.articleByURL(ctx, s.db, article.URL); lookupErr == nil {
			return existing, false, nil
		}
		return domain.Article{}, false, err
	}
	return saved, created, nil
}

// ArticleExists reports whether an article with url is stored.
func (s *Store) ArticleExists(ctx context.Context, url string) (bool, error) {
	query, args, err := s.sb.Select("COUNT(1)").From("articles").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return false, persistErr("build exists", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, query, args...); err != nil {
		return false, persistErr("article exists", err)
	}
	return n > 0, nil
}

// GetArticle loads one article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	return s.oneArticle(ctx, s.db, sq.Eq{"id": id})
}

func (s *Store) articleByURL(ctx context.Context, q sqlx.QueryerContext, url string) (domain.Article, error) {
	return s.oneArticle(ctx, q, sq.Eq{"url": url})
}

func (s *Store) oneArticle(ctx context.Context, q sqlx.QueryerContext, where sq.Sqlizer) (domain.Article, error) {
	query, args, err := s.sb.Select(articleColumns...).From("articles").Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.Article{}, persistErr("build get article", err)
	}
	var row articleRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("article: %w", domain.ErrNotFound)
		}
		return domain.Article{}, persistErr("get article", err)
	}
	return row.toDomain(), nil
}

// ArticlesByStatus lists the newest articles in a status.
func (s *Store) ArticlesByStatus(ctx context.Context, status domain.ArticleStatus, limit int) ([]domain.Article, error) {
	return s.listArticles(ctx, s.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"status": string(status)}), limit)
}

// RecentArticles lists articles ingested at or after since.
func (s *Store) RecentArticles(ctx context.Context, since time.Time, limit int) ([]domain.Article, error) {
	return s.listArticles(ctx, s.sb.Select(articleColumns...).From("articles").
		Where(sq.GtOrEq{"ingested_at": dbTime(since)}), limit)
}

// ArticlesWithoutPosts lists articles in status, ingested since, that have no post yet.
func (s *Store) ArticlesWithoutPosts(ctx context.Context, status domain.ArticleStatus, since time.Time, limit int) ([]domain.Article, error) {
	return s.listArticles(ctx, s.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"status": string(status)}).
		Where(sq.GtOrEq{"ingested_at": dbTime(since)}).
		Where("NOT EXISTS (SELECT 1 FROM posts p WHERE p.article_id = articles.id)"), limit)
}

func (s *Store) listArticles(ctx context.Context, builder sq.SelectBuilder, limit int) ([]domain.Article, error) {
	builder = builder.OrderBy("ingested_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, persistErr("build list articles", err)
	}
	var rows []articleRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, persistErr("list articles", err)
	}
	out := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// UpdateArticleStatus sets status and notes; false means no such article.
func (s *Store) UpdateArticleStatus(ctx context.Context, id int64, status domain.ArticleStatus, notes string) (bool, error) {
	return s.updateArticle(ctx, id, map[string]interface{}{
		"status": string(status),
		"notes":  notes,
	})
}

// UpdateArticleAnalysis stores analysis output together with the new status.
func (s *Store) UpdateArticleAnalysis(ctx context.Context, id int64, analysis domain.Analysis, status domain.ArticleStatus, notes string) (bool, error) {
	fields := map[string]interface{}{
		"category": analysis.Category,
		"keywords": StringList(analysis.Keywords),
		"status":   string(status),
		"notes":    notes,
	}
	if analysis.Summary != "" {
		fields["summary"] = analysis.Summary
	}
	return s.updateArticle(ctx, id, fields)
}

// SetArticleImage records the locally stored image for an article.
func (s *Store) SetArticleImage(ctx context.Context, id int64, ref string) error {
	ok, err := s.updateArticle(ctx, id, map[string]interface{}{"local_image_ref": ref})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) updateArticle(ctx context.Context, id int64, fields map[string]interface{}) (bool, error) {
	var updated bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := s.sb.Update("articles").SetMap(fields).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return persistErr("build update article", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return persistErr("update article", err)
		}
		n, err := rowsAffected(res, "update article")
		updated = n > 0
		return err
	})
	return updated, err
}

package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"NewsRelay/internal/domain"
)

// CountIngestedBetween counts articles ingested in [from, to).
func (s *Store) CountIngestedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query, args, err := s.sb.Select("COUNT(1)").From("articles").
		Where(sq.GtOrEq{"ingested_at": dbTime(from)}).
		Where(sq.Lt{"ingested_at": dbTime(to)}).
		ToSql()
	if err != nil {
		return 0, persistErr("build count ingested", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, s.db, &n, query, args...); err != nil {
		return 0, persistErr("count ingested", err)
	}
	return n, nil
}

// Cleanup deletes articles ingested before the cutoff together with their
// posts and jobs, and reports how many rows of each went.
func (s *Store) Cleanup(ctx context.Context, before time.Time) (domain.CleanupReport, error) {
	cutoff := dbTime(before)
	stale := sq.Expr("article_id IN (SELECT id FROM articles WHERE ingested_at < ?)", cutoff)

	var report domain.CleanupReport
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct {
			name  string
			build sq.DeleteBuilder
			count *int
		}{
			{"jobs", s.sb.Delete("processing_jobs").Where(stale), &report.Jobs},
			{"posts", s.sb.Delete("posts").Where(stale), &report.Posts},
			{"articles", s.sb.Delete("articles").Where(sq.Lt{"ingested_at": cutoff}), &report.Articles},
		}
		for _, step := range steps {
			query, args, err := step.build.ToSql()
			if err != nil {
				return persistErr("build cleanup "+step.name, err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return persistErr("cleanup "+step.name, err)
			}
			n, err := rowsAffected(res, "cleanup "+step.name)
			if err != nil {
				return err
			}
			*step.count = int(n)
		}
		return nil
	})
	if err != nil {
		return domain.CleanupReport{}, err
	}
	return report, nil
}

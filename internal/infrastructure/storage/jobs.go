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

var jobColumns = []string{
	"id", "article_id", "kind", "status", "retry_count", "max_retries", "error",
	"created_at", "started_at", "completed_at",
}

type jobRow struct {
	ID          int64        `db:"id"`
	ArticleID   int64        `db:"article_id"`
	Kind        string       `db:"kind"`
	Status      string       `db:"status"`
	RetryCount  int          `db:"retry_count"`
	MaxRetries  int          `db:"max_retries"`
	Error       string       `db:"error"`
	CreatedAt   time.Time    `db:"created_at"`
	StartedAt   sql.NullTime `db:"started_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func (r jobRow) toDomain() domain.ProcessingJob {
	return domain.ProcessingJob{
		ID:          r.ID,
		ArticleID:   r.ArticleID,
		Kind:        domain.JobKind(r.Kind),
		Status:      domain.JobStatus(r.Status),
		RetryCount:  r.RetryCount,
		MaxRetries:  r.MaxRetries,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt.UTC(),
		StartedAt:   fromNull(r.StartedAt),
		CompletedAt: fromNull(r.CompletedAt),
	}
}

// GetOrCreateJob returns the job for (article, kind), creating a pending one.
func (s *Store) GetOrCreateJob(ctx context.Context, articleID int64, kind domain.JobKind, maxRetries int) (domain.ProcessingJob, error) {
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}

	var job domain.ProcessingJob
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.oneJob(ctx, tx, sq.Eq{"article_id": articleID, "kind": string(kind)})
		if err == nil {
			job = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		job = domain.ProcessingJob{
			ArticleID:  articleID,
			Kind:       kind,
			Status:     domain.JobPending,
			MaxRetries: maxRetries,
			CreatedAt:  s.stamp(),
		}
		query, args, err := s.sb.Insert("processing_jobs").
			Columns("article_id", "kind", "status", "retry_count", "max_retries", "error", "created_at").
			Values(articleID, string(kind), string(domain.JobPending), 0, maxRetries, "", job.CreatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return persistErr("build insert job", err)
		}
		if err := sqlx.GetContext(ctx, tx, &job.ID, query, args...); err != nil {
			return persistErr("insert job", err)
		}
		return nil
	})
	return job, err
}

// UpdateJob moves a job to status. Running stamps started_at; completed and
// failed stamp completed_at. A message on a pending or failed update counts as
// one more failed attempt.
func (s *Store) UpdateJob(ctx context.Context, id int64, status domain.JobStatus, message string) (domain.ProcessingJob, error) {
	now := s.stamp()
	builder := s.sb.Update("processing_jobs").Set("status", string(status)).Where(sq.Eq{"id": id})
	switch status {
	case domain.JobRunning:
		builder = builder.Set("started_at", now)
	case domain.JobCompleted:
		builder = builder.Set("completed_at", now).Set("error", "")
	case domain.JobFailed:
		builder = builder.Set("completed_at", now)
	}
	if message != "" && (status == domain.JobFailed || status == domain.JobPending) {
		builder = builder.Set("error", message).Set("retry_count", sq.Expr("retry_count + 1"))
	}

	var job domain.ProcessingJob
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := builder.ToSql()
		if err != nil {
			return persistErr("build update job", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return persistErr("update job", err)
		}
		n, err := rowsAffected(res, "update job")
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("job %d: %w", id, domain.ErrNotFound)
		}
		job, err = s.oneJob(ctx, tx, sq.Eq{"id": id})
		return err
	})
	return job, err
}

// PendingJobs lists jobs of kind still waiting to run.
func (s *Store) PendingJobs(ctx context.Context, kind domain.JobKind, limit int) ([]domain.ProcessingJob, error) {
	builder := s.sb.Select(jobColumns...).From("processing_jobs").
		Where(sq.Eq{"kind": string(kind), "status": string(domain.JobPending)}).
		OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, persistErr("build pending jobs", err)
	}
	var rows []jobRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, persistErr("pending jobs", err)
	}
	out := make([]domain.ProcessingJob, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) oneJob(ctx context.Context, q sqlx.QueryerContext, where sq.Sqlizer) (domain.ProcessingJob, error) {
	query, args, err := s.sb.Select(jobColumns...).From("processing_jobs").Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.ProcessingJob{}, persistErr("build get job", err)
	}
	var row jobRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProcessingJob{}, fmt.Errorf("job: %w", domain.ErrNotFound)
		}
		return domain.ProcessingJob{}, persistErr("get job", err)
	}
	return row.toDomain(), nil
}

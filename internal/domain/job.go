package domain

import "time"

// JobKind names the work a processing job tracks.
type JobKind string

const (
	JobAnalysis JobKind = "analysis"
	JobPublish  JobKind = "publish"
)

// JobStatus enumerates job states.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// DefaultMaxRetries bounds retries when a job is created without a limit.
const DefaultMaxRetries = 3

// ProcessingJob records attempts at analysing or publishing an article.
type ProcessingJob struct {
	ID          int64
	ArticleID   int64
	Kind        JobKind
	Status      JobStatus
	RetryCount  int
	MaxRetries  int
	Error       string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Exhausted reports whether no retries remain.
func (j ProcessingJob) Exhausted() bool {
	return j.RetryCount >= j.MaxRetries
}

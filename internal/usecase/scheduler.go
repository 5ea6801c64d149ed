package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

// Task names accepted by Trigger.
const (
	TaskIngest     = "ingest"
	TaskPublish    = "publish"
	TaskEngagement = "engagement"
	TaskCleanup    = "cleanup"
	TaskAnalytics  = "analytics"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrTaskBusy    = errors.New("task already running")
)

// Task is one named unit of background work with its cadence.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type taskState struct {
	running bool
	lastRun time.Time
	lastErr string
	runs    int
}

// TaskStatus reports a task's most recent run.
type TaskStatus struct {
	Name      string        `json:"name"`
	Every     time.Duration `json:"every"`
	Running   bool          `json:"running"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
	Runs      int           `json:"runs"`
}

// SchedulerStatus is the loop state plus the posts queued next.
type SchedulerStatus struct {
	Running    bool          `json:"running"`
	Tasks      []TaskStatus  `json:"tasks"`
	Upcoming   []domain.Post `json:"upcoming"`
	NextPostAt *time.Time    `json:"next_post_at,omitempty"`
}

// Scheduler wires the ticker driver with the pipeline tasks. The driver calls
// one tick at a time; each tick runs every task whose interval has elapsed.
type Scheduler struct {
	driver  ports.Scheduler
	posts   ports.PostStore
	tasks   []Task
	metrics *metrics.Metrics
	log     *slog.Logger

	mu      sync.Mutex
	state   map[string]*taskState
	started bool
}

// NewScheduler registers the standard tasks of the pipeline.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, cfg config.SchedulerConfig, m *metrics.Metrics, log *slog.Logger) *Scheduler {
	var tasks []Task
	if pipeline != nil {
		tasks = []Task{
			{Name: TaskIngest, Every: cfg.Ingest, Run: func(ctx context.Context) error {
				_, err := pipeline.AutoCycle(ctx)
				return err
			}},
			{Name: TaskPublish, Every: cfg.Publish, Run: func(ctx context.Context) error {
				_, err := pipeline.PublishDue(ctx)
				return err
			}},
			{Name: TaskEngagement, Every: cfg.Engagement, Run: func(ctx context.Context) error {
				_, err := pipeline.RefreshEngagement(ctx)
				return err
			}},
			{Name: TaskCleanup, Every: cfg.Cleanup, Run: func(ctx context.Context) error {
				_, err := pipeline.Cleanup(ctx, 0)
				return err
			}},
			{Name: TaskAnalytics, Every: cfg.Analytics, Run: func(ctx context.Context) error {
				_, err := pipeline.Analytics(ctx, 1)
				return err
			}},
		}
	}
	var posts ports.PostStore
	if pipeline != nil {
		posts = pipeline.store
	}
	return NewTaskScheduler(driver, posts, tasks, m, log)
}

// NewTaskScheduler builds a scheduler over an explicit task table.
func NewTaskScheduler(driver ports.Scheduler, posts ports.PostStore, tasks []Task, m *metrics.Metrics, log *slog.Logger) *Scheduler {
	state := make(map[string]*taskState, len(tasks))
	for _, t := range tasks {
		state[t.Name] = &taskState{}
	}
	return &Scheduler{
		driver:  driver,
		posts:   posts,
		tasks:   tasks,
		metrics: m,
		log:     logger.For(log, "scheduler"),
		state:   state,
	}
}

// Start registers the tick with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || len(s.tasks) == 0 {
		return nil
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	return s.driver.Start(ctx, func(now time.Time) {
		s.Tick(ctx, now)
	})
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Tick runs, in table order, every task that is due at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		if !s.due(task, now) {
			continue
		}
		if err := s.run(ctx, task, now); err != nil && !errors.Is(err, ErrTaskBusy) {
			s.log.Error("task failed", "task", task.Name, "error", err)
		}
	}
}

func (s *Scheduler) due(task Task, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state[task.Name]
	return st.lastRun.IsZero() || now.Sub(st.lastRun) >= task.Every
}

// Trigger runs one task immediately under the same overlap guard as the loop.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	for _, task := range s.tasks {
		if task.Name == name {
			return s.run(ctx, task, time.Now())
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownTask, name)
}

func (s *Scheduler) run(ctx context.Context, task Task, now time.Time) (err error) {
	s.mu.Lock()
	st := s.state[task.Name]
	if st.running {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", task.Name, ErrTaskBusy)
	}
	st.running = true
	s.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
		s.metrics.RecordTask(task.Name, err, time.Since(start))

		s.mu.Lock()
		st.running = false
		st.lastRun = now
		st.runs++
		st.lastErr = ""
		if err != nil {
			st.lastErr = err.Error()
		}
		s.mu.Unlock()
	}()

	s.log.Debug("task start", "task", task.Name)
	return task.Run(ctx)
}

// Status reports task state and the next scheduled posts.
func (s *Scheduler) Status(ctx context.Context) (SchedulerStatus, error) {
	s.mu.Lock()
	status := SchedulerStatus{Running: s.started}
	for _, task := range s.tasks {
		st := s.state[task.Name]
		status.Tasks = append(status.Tasks, TaskStatus{
			Name:      task.Name,
			Every:     task.Every,
			Running:   st.running,
			LastRun:   st.lastRun,
			LastError: st.lastErr,
			Runs:      st.runs,
		})
	}
	s.mu.Unlock()

	if s.posts == nil {
		return status, nil
	}
	upcoming, err := s.posts.UpcomingScheduled(ctx, upcomingLimit)
	if err != nil {
		return status, fmt.Errorf("scheduler status: %w", err)
	}
	status.Upcoming = upcoming
	if len(upcoming) > 0 {
		next := upcoming[0].ScheduledAt
		status.NextPostAt = &next
	}
	return status, nil
}

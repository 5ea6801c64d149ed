package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/config"
	"NewsRelay/internal/metrics"
)

// manualDriver hands the tick function back to the test.
type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func schedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Tick:       time.Minute,
		Ingest:     30 * time.Minute,
		Publish:    5 * time.Minute,
		Engagement: 2 * time.Hour,
		Cleanup:    24 * time.Hour,
		Analytics:  24 * time.Hour,
	}
}

func TestTickRunsDueTasksOnly(t *testing.T) {
	t.Parallel()
	var fast, slow atomic.Int32
	driver := &manualDriver{}
	s := NewTaskScheduler(driver, nil, []Task{
		{Name: "fast", Every: 5 * time.Minute, Run: func(context.Context) error { fast.Add(1); return nil }},
		{Name: "slow", Every: time.Hour, Run: func(context.Context) error { slow.Add(1); return nil }},
	}, nil, nil)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NotNil(t, driver.job)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	driver.job(start)
	driver.job(start.Add(time.Minute))
	driver.job(start.Add(5 * time.Minute))
	driver.job(start.Add(61 * time.Minute))

	assert.EqualValues(t, 3, fast.Load())
	assert.EqualValues(t, 2, slow.Load())

	require.NoError(t, s.Stop(ctx))
	assert.True(t, driver.stopped)
}

func TestFailingTaskDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	var after atomic.Int32
	m := metrics.New()
	s := NewTaskScheduler(&manualDriver{}, nil, []Task{
		{Name: "boom", Every: time.Minute, Run: func(context.Context) error { panic("exploded") }},
		{Name: "fails", Every: time.Minute, Run: func(context.Context) error { return errors.New("nope") }},
		{Name: "after", Every: time.Minute, Run: func(context.Context) error { after.Add(1); return nil }},
	}, m, nil)

	s.Tick(context.Background(), time.Now())
	assert.EqualValues(t, 1, after.Load())

	status, err := s.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status.Tasks, 3)
	assert.Contains(t, status.Tasks[0].LastError, "panicked")
	assert.Equal(t, "nope", status.Tasks[1].LastError)
	assert.Empty(t, status.Tasks[2].LastError)
	assert.Equal(t, 1, status.Tasks[2].Runs)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.TaskRuns.WithLabelValues("boom", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TaskRuns.WithLabelValues("after", "ok")))
}

func TestTriggerNeverOverlapsSameTask(t *testing.T) {
	t.Parallel()
	entered := make(chan struct{})
	release := make(chan struct{})
	s := NewTaskScheduler(&manualDriver{}, nil, []Task{
		{Name: TaskPublish, Every: time.Minute, Run: func(context.Context) error {
			close(entered)
			<-release
			return nil
		}},
	}, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), TaskPublish) }()
	<-entered

	err := s.Trigger(context.Background(), TaskPublish)
	require.ErrorIs(t, err, ErrTaskBusy)

	close(release)
	require.NoError(t, <-done)

	err = s.Trigger(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnknownTask)
}

func TestNewSchedulerRegistersPipelineTasks(t *testing.T) {
	t.Parallel()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newTestStore(t, clock)
	p := NewPipeline(PipelineDeps{Store: store, Now: clock.Now}, PipelineOptions{Posting: postingConfig()})

	s := NewScheduler(&manualDriver{}, p, schedulerConfig(), nil, nil)
	status, err := s.Status(context.Background())
	require.NoError(t, err)

	var names []string
	for _, task := range status.Tasks {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{TaskIngest, TaskPublish, TaskEngagement, TaskCleanup, TaskAnalytics}, names)
	assert.Empty(t, status.Upcoming)

	require.NoError(t, s.Trigger(context.Background(), TaskAnalytics))
}

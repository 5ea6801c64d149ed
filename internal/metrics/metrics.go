// Package metrics provides Prometheus metrics for the pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsrelay"

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ArticlesTotal    *prometheus.CounterVec
	ExtractionsTotal *prometheus.CounterVec
	PublishTotal     *prometheus.CounterVec
	PublishDuration  prometheus.Histogram
	TaskRuns         *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	DailyArticles    prometheus.Gauge
	DailyPublished   prometheus.Gauge
	ScheduledPosts   prometheus.Gauge
	SessionValid     prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ArticlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_total",
				Help:      "Articles seen during ingestion by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Successful extractions by strategy",
			},
			[]string{"strategy"},
		),
		PublishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_total",
				Help:      "Publish attempts by result kind",
			},
			[]string{"status"},
		),
		PublishDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Duration of publish attempts in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		TaskRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_runs_total",
				Help:      "Background task runs by task and status",
			},
			[]string{"task", "status"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Background task duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"task"},
		),
		DailyArticles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_articles_ingested",
			Help:      "Articles ingested during the last analytics day",
		}),
		DailyPublished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_posts_published",
			Help:      "Posts published during the last analytics day",
		}),
		ScheduledPosts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_posts",
			Help:      "Posts waiting for their slot",
		}),
		SessionValid: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_valid",
			Help:      "Platform session status (1 = valid, 0 = not connected)",
		}),
	}
}

// Registry exposes the underlying registry for tests and handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordArticle counts one ingestion outcome for a source.
func (m *Metrics) RecordArticle(source, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ArticlesTotal.WithLabelValues(source, outcome).Add(float64(n))
}

// RecordExtraction counts a successful extraction.
func (m *Metrics) RecordExtraction(strategy string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(strategy).Inc()
}

// RecordPublish records a publish attempt.
func (m *Metrics) RecordPublish(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PublishTotal.WithLabelValues(status).Inc()
	m.PublishDuration.Observe(d.Seconds())
}

// RecordTask records one background task run.
func (m *Metrics) RecordTask(task string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TaskRuns.WithLabelValues(task, status).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// SetDaily stores the last analytics snapshot.
func (m *Metrics) SetDaily(articles, published int) {
	if m == nil {
		return
	}
	m.DailyArticles.Set(float64(articles))
	m.DailyPublished.Set(float64(published))
}

// SetScheduled stores the number of queued posts.
func (m *Metrics) SetScheduled(n int) {
	if m == nil {
		return
	}
	m.ScheduledPosts.Set(float64(n))
}

// SetSessionValid flags whether the platform session is usable.
func (m *Metrics) SetSessionValid(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.SessionValid.Set(1)
		return
	}
	m.SessionValid.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

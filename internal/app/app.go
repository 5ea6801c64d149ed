package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"NewsRelay/internal/analysis"
	"NewsRelay/internal/config"
	"NewsRelay/internal/infrastructure/feed"
	"NewsRelay/internal/infrastructure/fetch"
	"NewsRelay/internal/infrastructure/llm"
	"NewsRelay/internal/infrastructure/ml"
	"NewsRelay/internal/infrastructure/parser"
	"NewsRelay/internal/infrastructure/platform"
	"NewsRelay/internal/infrastructure/render"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/sessionstore"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/infrastructure/telegram"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/metrics"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/publisher"
	"NewsRelay/internal/scanner"
	"NewsRelay/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	log       *slog.Logger
	closers   []io.Closer
	metrics   *metrics.Metrics
	publisher *publisher.Publisher
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New opens the store and session backend and builds every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &Application{cfg: cfg, log: baseLogger, closers: []io.Closer{store}}

	sessions, err := a.sessionStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.metrics = metrics.New()

	fetcher := fetch.NewClient(cfg.Fetch, baseLogger)
	registry := scanner.NewRegistry()
	parser.RegisterBuiltins(registry)
	engine := parser.NewEngine(registry, cfg.Ingest.MinBodyLength, baseLogger)
	source := parser.NewStrategySource(engine, fetcher, feed.NewReader(fetcher, baseLogger), cfg.EnabledSources(), parser.SourceOptions{
		Concurrency: cfg.Ingest.Concurrency,
		Delay:       cfg.Fetch.RequestDelay,
		PerSource:   cfg.Ingest.ArticlesPerFeed,
		Exists:      store.ArticleExists,
	}, baseLogger)

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram); tg.Enabled() {
		notifier = tg
	}

	a.publisher = publisher.New(
		platformClient(cfg.Platform),
		sessions,
		store,
		notifier,
		a.metrics,
		publisher.OptionsFromConfig(cfg.Platform, cfg.Posting),
		baseLogger,
	)

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Store:     store,
		Source:    source,
		Analyzer:  analyzer(cfg, baseLogger),
		Filter:    analysis.NewFilter(cfg.Analysis.Filters),
		Renderer:  render.NewCardRenderer(cfg.Render, baseLogger),
		Publisher: a.publisher,
		Notifier:  notifier,
		Images:    fetcher,
		Metrics:   a.metrics,
		Logger:    baseLogger,
	}, usecase.PipelineOptions{
		Posting:          cfg.Posting,
		Retention:        cfg.Retention,
		AnalysisBatch:    cfg.Analysis.BatchSize,
		MaxRetries:       cfg.Platform.MaxRetries,
		ImageDir:         cfg.Render.OutputDir,
		EngagementDelay:  cfg.Fetch.RequestDelay,
		DigestOnSnapshot: notifier != nil,
	})

	a.scheduler = usecase.NewScheduler(scheduler.NewTickerScheduler(cfg.Scheduler.Tick), a.pipeline, cfg.Scheduler, a.metrics, baseLogger)
	return a, nil
}

func (a *Application) sessionStore(ctx context.Context) (ports.SessionStore, error) {
	switch strings.ToLower(a.cfg.Session.Backend) {
	case "redis":
		rdb, err := sessionstore.Dial(ctx, a.cfg.Session.RedisAddr, a.cfg.Session.RedisDB, a.cfg.Session.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		a.closers = append(a.closers, rdb)
		return rdb, nil
	case "", "file":
		return sessionstore.NewFile(a.cfg.Session.Dir), nil
	default:
		return nil, fmt.Errorf("session store: unknown backend %q", a.cfg.Session.Backend)
	}
}

func platformClient(cfg config.PlatformConfig) ports.PlatformClient {
	if cfg.Demo {
		return platform.NewDemo(cfg.Account)
	}
	return platform.NewHTTPClient(cfg)
}

// analyzer wraps the configured backend so the heuristic covers its failures.
func analyzer(cfg config.Config, log *slog.Logger) ports.TextAnalyzer {
	heuristic := analysis.NewHeuristic(cfg.Analysis.Categories)

	var primary ports.TextAnalyzer
	switch strings.ToLower(cfg.Analysis.Backend) {
	case "chatgpt":
		if cfg.ChatGPT.APIKey != "" {
			primary = llm.NewChatGPTClient(cfg.ChatGPT, categoryNames(cfg.Analysis.Categories))
		} else {
			log.Warn("chatgpt backend selected without api key, using heuristics")
		}
	case "ml":
		if cfg.ML.InferenceURL != "" {
			primary = ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey)
		} else {
			log.Warn("ml backend selected without inference url, using heuristics")
		}
	}
	return analysis.NewResilient(primary, heuristic, log)
}

func categoryNames(categories map[string][]string) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline exposes the named operations.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Publisher exposes session management.
func (a *Application) Publisher() *publisher.Publisher { return a.publisher }

// Scheduler exposes the background loop.
func (a *Application) Scheduler() *usecase.Scheduler { return a.scheduler }

// Run starts the background loop and the metrics endpoint, then blocks until
// ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, addr); err != nil {
				a.log.Error("metrics server stopped", "addr", addr, "error", err)
			}
		}()
		a.log.Info("metrics listening", "addr", addr)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.log.Info("scheduler started", "tick", a.cfg.Scheduler.Tick)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.log.Info("scheduler stopped")
	return nil
}

// Close releases the store and session backend.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package analysis

import (
	"context"
	"log/slog"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/pkg/logger"
)

// Resilient runs a primary analyzer and falls back to the heuristic when it
// fails. Empty fields in a successful primary result are filled from the
// heuristic too.
type Resilient struct {
	primary  ports.TextAnalyzer
	fallback ports.TextAnalyzer
	log      *slog.Logger
}

var _ ports.TextAnalyzer = (*Resilient)(nil)

// NewResilient wraps primary. A nil primary means the fallback alone.
func NewResilient(primary, fallback ports.TextAnalyzer, log *slog.Logger) *Resilient {
	return &Resilient{primary: primary, fallback: fallback, log: logger.For(log, "analysis")}
}

// Primary returns the wrapped analyzer, nil when only the fallback runs.
func (r *Resilient) Primary() ports.TextAnalyzer { return r.primary }

// Analyze implements ports.TextAnalyzer.
func (r *Resilient) Analyze(ctx context.Context, headline, body string) (domain.Analysis, error) {
	base, err := r.fallback.Analyze(ctx, headline, body)
	if err != nil {
		return domain.Analysis{}, err
	}
	if r.primary == nil {
		return base, nil
	}

	result, err := r.primary.Analyze(ctx, headline, body)
	if err != nil {
		r.log.Warn("analyzer failed, using heuristic", "error", err)
		return base, nil
	}
	if result.Category == "" {
		result.Category = base.Category
	}
	if result.Sentiment == "" {
		result.Sentiment = base.Sentiment
	}
	if len(result.Keywords) == 0 {
		result.Keywords = base.Keywords
	}
	if result.Summary == "" {
		result.Summary = base.Summary
	}
	if result.Importance == 0 {
		result.Importance = base.Importance
	}
	return result, nil
}

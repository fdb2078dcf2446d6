package analyzers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-remediate/internal/metrics"
	"github.com/miradorstack/mirador-remediate/internal/models"
	"github.com/miradorstack/mirador-remediate/internal/patterns"
)

// Registry owns the analyzer set and fans an event out to every analyzer
// concurrently. A failing or slow analyzer never sinks the batch; its absence
// is reported back so the aggregator can discount confidence.
type Registry struct {
	mu        sync.RWMutex
	analyzers []Analyzer
	logger    *slog.Logger
	timeout   time.Duration
}

// NewRegistry builds an empty registry; timeout bounds each analyzer run.
func NewRegistry(logger *slog.Logger, timeout time.Duration) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{logger: logger, timeout: timeout}
}

// NewDefaultRegistry builds a registry loaded with the full analyzer set.
func NewDefaultRegistry(logger *slog.Logger, timeout time.Duration, history *patterns.History) *Registry {
	r := NewRegistry(logger, timeout)
	r.Register(
		NewPatternAnalyzer(),
		NewRiskAnalyzer(),
		NewQualityAnalyzer(),
		NewHealthAnalyzer(),
		NewTrendAnalyzer(),
		NewBusinessAnalyzer(),
		NewComplianceAnalyzer(),
		NewImpactAnalyzer(),
		NewAnomalyAnalyzer(),
		NewAuditAnalyzer(),
		NewResourceAnalyzer(),
		NewRecurrenceAnalyzer(history),
	)
	return r
}

// Register appends analyzers. Duplicate names are rejected so scores stay
// attributable.
func (r *Registry) Register(analyzers ...Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, candidate := range analyzers {
		duplicate := false
		for _, existing := range r.analyzers {
			if existing.Name() == candidate.Name() {
				duplicate = true
				break
			}
		}
		if duplicate {
			r.logger.Warn("duplicate analyzer ignored", slog.String("analyzer", candidate.Name()))
			continue
		}
		r.analyzers = append(r.analyzers, candidate)
	}
}

// Len returns the number of registered analyzers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.analyzers)
}

// BatchResult carries the fan-out outcome for one event.
type BatchResult struct {
	Results    []models.AnalyzerResult
	Failed     []string
	Registered int
}

// AnalyzeAll runs every analyzer against the event concurrently and collects
// whatever succeeded within the per-analyzer timeout.
func (r *Registry) AnalyzeAll(ctx context.Context, event models.ErrorEvent) BatchResult {
	r.mu.RLock()
	analyzers := make([]Analyzer, len(r.analyzers))
	copy(analyzers, r.analyzers)
	r.mu.RUnlock()

	type outcome struct {
		result models.AnalyzerResult
		name   string
		err    error
	}
	outcomes := make([]outcome, len(analyzers))

	g, gctx := errgroup.WithContext(ctx)
	for i, analyzer := range analyzers {
		i, analyzer := i, analyzer
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()

			result, err := runAnalyzer(runCtx, analyzer, event)
			outcomes[i] = outcome{result: result, name: analyzer.Name(), err: err}
			return nil
		})
	}
	// Workers swallow their own errors, so Wait only synchronises.
	_ = g.Wait()

	batch := BatchResult{Registered: len(analyzers)}
	for _, out := range outcomes {
		if out.err != nil {
			r.logger.Warn("analyzer failed",
				slog.String("analyzer", out.name),
				slog.String("event_id", event.ID),
				slog.Any("error", out.err))
			metrics.RecordAnalyzerFailure(out.name)
			batch.Failed = append(batch.Failed, out.name)
			continue
		}
		batch.Results = append(batch.Results, out.result)
	}
	sort.Strings(batch.Failed)
	return batch
}

type analyzerOutcome struct {
	result models.AnalyzerResult
	err    error
}

// runAnalyzer isolates one analyzer call, converting panics into errors and
// abandoning calls that outlive the timeout.
func runAnalyzer(ctx context.Context, analyzer Analyzer, event models.ErrorEvent) (models.AnalyzerResult, error) {
	done := make(chan analyzerOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- analyzerOutcome{err: fmt.Errorf("analyzer %s panicked: %v", analyzer.Name(), rec)}
			}
		}()
		result, err := analyzer.Analyze(ctx, event)
		done <- analyzerOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return models.AnalyzerResult{}, fmt.Errorf("analyzer %s: %w", analyzer.Name(), ctx.Err())
	}
}

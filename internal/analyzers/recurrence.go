package analyzers

import (
	"context"
	"fmt"

	"github.com/miradorstack/mirador-remediate/internal/models"
	"github.com/miradorstack/mirador-remediate/internal/patterns"
)

// RecurrenceAnalyzer consults the fix-history knowledge base to score how
// often this failure shape keeps coming back.
type RecurrenceAnalyzer struct {
	history *patterns.History
}

func NewRecurrenceAnalyzer(history *patterns.History) *RecurrenceAnalyzer {
	return &RecurrenceAnalyzer{history: history}
}

func (a *RecurrenceAnalyzer) Name() string    { return "history" }
func (a *RecurrenceAnalyzer) Version() string { return "1.0.0" }

func (a *RecurrenceAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	signature := patterns.Signature(event)
	recent := a.history.RecentlySeen(signature)
	occurrences := a.history.Occurrences(signature)

	// Reads only; the service records the occurrence once per analysis, so
	// re-analyzing the same event yields the same score. Prior sightings
	// raise the recurrence score, with a bump when the last one was inside
	// the recency window.
	score := clamp(0.15*float64(occurrences), 0, 0.8)
	if recent {
		score += 0.2
	}

	indicators := []models.Indicator{{
		Category:    "recurrence",
		Description: fmt.Sprintf("signature %s seen %d time(s) before", signature, occurrences),
		Severity:    "low",
	}}
	if action, rate, ok := a.history.BestAction(signature, 2); ok {
		indicators = append(indicators, models.Indicator{
			Category:    "prior_fix",
			Description: fmt.Sprintf("%s succeeded %.0f%% historically", action, rate*100),
			Severity:    "low",
		})
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"recurrence": clamp(score, 0, 1)},
		Confidence: 0.8,
		Indicators: indicators,
	}, nil
}

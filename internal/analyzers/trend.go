package analyzers

import (
	"context"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// TrendAnalyzer projects whether the error class is deteriorating from the
// reported frequency.
type TrendAnalyzer struct{}

func NewTrendAnalyzer() *TrendAnalyzer { return &TrendAnalyzer{} }

func (a *TrendAnalyzer) Name() string    { return "trend" }
func (a *TrendAnalyzer) Version() string { return "1.0.0" }

func (a *TrendAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	degradation := 0.4
	direction := "stable"
	switch event.Metadata["frequency"] {
	case "high", "very_high":
		degradation = 0.8
		direction = "deteriorating"
	case "low":
		degradation = 0.2
		direction = "improving"
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"degradation": degradation},
		Confidence: 0.78,
		Indicators: []models.Indicator{{
			Category:    "trend",
			Description: direction,
			Severity:    "low",
		}},
	}, nil
}

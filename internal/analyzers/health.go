package analyzers

import (
	"context"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// HealthAnalyzer scores how unstable the affected system looks from the
// event's environment and reported frequency.
type HealthAnalyzer struct{}

func NewHealthAnalyzer() *HealthAnalyzer { return &HealthAnalyzer{} }

func (a *HealthAnalyzer) Name() string    { return "health" }
func (a *HealthAnalyzer) Version() string { return "1.0.0" }

func (a *HealthAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	envInstability := 0.3
	if event.Context.Environment == models.EnvProduction {
		envInstability = 0.7
	}
	freqInstability := 0.3
	if event.Metadata["frequency"] == "high" || event.Metadata["frequency"] == "very_high" {
		freqInstability = 0.7
	}
	instability := (envInstability + freqInstability) / 2

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"instability": clamp(instability, 0, 1)},
		Confidence: 0.8,
	}, nil
}

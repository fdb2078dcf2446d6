package analyzers

import (
	"context"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var (
	environmentRisk = map[models.Environment]float64{
		models.EnvProduction:  0.8,
		models.EnvStaging:     0.4,
		models.EnvDevelopment: 0.1,
	}
	severityRisk = map[models.Severity]float64{
		models.SeverityCritical: 0.9,
		models.SeverityHigh:     0.7,
		models.SeverityMedium:   0.5,
		models.SeverityLow:      0.2,
	}
)

// RiskAnalyzer weighs environment and severity into a deployment risk score
// feeding the technical_complexity dimension.
type RiskAnalyzer struct{}

func NewRiskAnalyzer() *RiskAnalyzer { return &RiskAnalyzer{} }

func (a *RiskAnalyzer) Name() string    { return "risk" }
func (a *RiskAnalyzer) Version() string { return "1.0.0" }

func (a *RiskAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	envRisk, ok := environmentRisk[event.Context.Environment]
	if !ok {
		envRisk = 0.3
	}
	sevRisk, ok := severityRisk[event.Severity]
	if !ok {
		sevRisk = 0.5
	}
	score := (envRisk + sevRisk) / 2

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"risk_score": clamp(score, 0, 1)},
		Confidence: 0.85,
	}, nil
}

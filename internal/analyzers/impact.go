package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var userImpactFactors = map[string][]string{
	"user_facing_errors":         {"ui", "frontend", "client", "interface"},
	"critical_user_flows":        {"login", "payment", "checkout", "registration"},
	"user_experience_indicators": {"slow", "timeout", "loading", "response"},
}

// ImpactAnalyzer estimates how strongly the failure hits end users, scoring
// the business_impact dimension.
type ImpactAnalyzer struct{}

func NewImpactAnalyzer() *ImpactAnalyzer { return &ImpactAnalyzer{} }

func (a *ImpactAnalyzer) Name() string    { return "impact" }
func (a *ImpactAnalyzer) Version() string { return "1.0.0" }

func (a *ImpactAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)

	var score float64
	var indicators []models.Indicator

	for category, keywords := range userImpactFactors {
		if keyword, ok := containsAny(fullText, keywords); ok {
			level := "medium"
			if keyword == "payment" || keyword == "login" {
				level = "high"
			}
			indicators = append(indicators, models.Indicator{
				Category:    category,
				Description: "matched " + keyword,
				Severity:    level,
			})
			score += 0.3
		}
	}
	if freq := event.Metadata["frequency"]; freq == "high" || freq == "very_high" {
		score += 0.3
	}
	if event.Context.Environment == models.EnvProduction {
		score *= 1.5
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"impact_score": clamp(score, 0, 1)},
		Confidence: 0.79,
		Indicators: indicators,
	}, nil
}

package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var (
	positiveQualityWords = []string{"fix", "improve", "optimize"}
	negativeQualityWords = []string{"break", "fail", "error", "crash"}
)

// QualityAnalyzer reads the tone of an error message as a cheap proxy for
// code quality risk.
type QualityAnalyzer struct{}

func NewQualityAnalyzer() *QualityAnalyzer { return &QualityAnalyzer{} }

func (a *QualityAnalyzer) Name() string    { return "quality" }
func (a *QualityAnalyzer) Version() string { return "1.0.0" }

func (a *QualityAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	message := strings.ToLower(event.Message)

	positive := countMatches(message, positiveQualityWords)
	negative := countMatches(message, negativeQualityWords)

	qualityRisk := 0.5
	sentiment := "neutral"
	switch {
	case negative > positive:
		qualityRisk = 0.7
		sentiment = "negative"
	case positive > negative:
		qualityRisk = 0.3
		sentiment = "positive"
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"quality_risk": qualityRisk},
		Confidence: 0.75,
		Indicators: []models.Indicator{{
			Category:    "sentiment",
			Description: sentiment,
			Severity:    "low",
		}},
	}, nil
}

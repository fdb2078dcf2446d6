package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var resourceIndicators = map[string][]string{
	"compute": {"cpu", "memory", "processing"},
	"storage": {"disk", "database", "cache"},
	"network": {"bandwidth", "connection", "latency", "throughput"},
}

var severityAllocationWeight = map[models.Severity]float64{
	models.SeverityCritical: 1.5,
	models.SeverityHigh:     1.2,
	models.SeverityMedium:   1.0,
	models.SeverityLow:      0.8,
}

// ResourceAnalyzer estimates whether the failure signals a resource
// allocation problem that complicates remediation.
type ResourceAnalyzer struct{}

func NewResourceAnalyzer() *ResourceAnalyzer { return &ResourceAnalyzer{} }

func (a *ResourceAnalyzer) Name() string    { return "resource" }
func (a *ResourceAnalyzer) Version() string { return "1.0.0" }

func (a *ResourceAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)

	var score float64
	var indicators []models.Indicator

	for resourceType, keywords := range resourceIndicators {
		if keyword, ok := containsAny(fullText, keywords); ok {
			priority := "medium"
			if keyword == "cpu" || keyword == "memory" {
				priority = "high"
			}
			indicators = append(indicators, models.Indicator{
				Category:    resourceType,
				Description: "matched " + keyword,
				Severity:    priority,
			})
			score += 0.3
		}
	}

	weight, ok := severityAllocationWeight[event.Severity]
	if !ok {
		weight = 1.0
	}
	score *= weight

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"allocation_score": clamp(score, 0, 1)},
		Confidence: 0.76,
		Indicators: indicators,
	}, nil
}

package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var anomalyPatterns = map[string][]string{
	"unusual_access":          {"admin", "root", "sudo", "privilege"},
	"suspicious_transactions": {"bulk", "mass", "automated", "script"},
	"data_exfiltration":       {"export", "download", "backup"},
}

// AnomalyAnalyzer applies access and timing heuristics to spot events that
// look like abuse rather than plain failures.
type AnomalyAnalyzer struct{}

func NewAnomalyAnalyzer() *AnomalyAnalyzer { return &AnomalyAnalyzer{} }

func (a *AnomalyAnalyzer) Name() string    { return "anomaly" }
func (a *AnomalyAnalyzer) Version() string { return "1.0.0" }

func (a *AnomalyAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)

	var score float64
	var indicators []models.Indicator

	for category, patterns := range anomalyPatterns {
		if pattern, ok := containsAny(fullText, patterns); ok {
			level := "medium"
			if pattern == "admin" || pattern == "root" {
				level = "high"
			}
			indicators = append(indicators, models.Indicator{
				Category:    category,
				Description: "matched " + pattern,
				Severity:    level,
			})
			score += 0.3
		}
	}

	// Off-hours activity judged by the event's own timestamp so results are
	// reproducible from the audit trail.
	if !event.Timestamp.IsZero() {
		hour := event.Timestamp.Hour()
		if hour < 6 || hour > 22 {
			indicators = append(indicators, models.Indicator{
				Category:    "timing_anomalies",
				Description: "off_hours_activity",
				Severity:    "medium",
			})
			score += 0.2
		}
	}

	if event.Context.Environment == models.EnvProduction && score > 0 {
		score *= 1.3
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"anomaly_score": clamp(score, 0, 1)},
		Confidence: 0.81,
		Indicators: indicators,
	}, nil
}

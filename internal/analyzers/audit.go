package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var auditCategories = map[string][]string{
	"data_access":       {"query", "select", "fetch"},
	"data_modification": {"insert", "update", "delete", "modify"},
	"system_changes":    {"deploy", "config", "install", "upgrade"},
	"security_events":   {"auth", "permission", "access", "login"},
}

// AuditAnalyzer classifies the event for record-keeping and scores how
// urgently it needs an audit trail.
type AuditAnalyzer struct{}

func NewAuditAnalyzer() *AuditAnalyzer { return &AuditAnalyzer{} }

func (a *AuditAnalyzer) Name() string    { return "audit" }
func (a *AuditAnalyzer) Version() string { return "1.0.0" }

func (a *AuditAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)

	var score float64
	var indicators []models.Indicator

	for category, keywords := range auditCategories {
		if keyword, ok := containsAny(fullText, keywords); ok {
			level := "standard"
			if category == "data_modification" || category == "security_events" {
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

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"audit_priority": clamp(score, 0, 1)},
		Confidence: 0.84,
		Indicators: indicators,
	}, nil
}

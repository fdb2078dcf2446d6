package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var complianceRules = map[string][]string{
	"data_protection":       {"gdpr", "pii", "personal_data", "personal data", "privacy"},
	"security_standards":    {"pci", "sox", "iso27001", "encryption"},
	"audit_requirements":    {"audit_trail", "audit trail", "access_control", "access control"},
	"regulatory_frameworks": {"kyc", "aml", "finra", "sec filing"},
}

// ComplianceAnalyzer spots regulatory exposure in error text, scoring the
// compliance_risk dimension.
type ComplianceAnalyzer struct{}

func NewComplianceAnalyzer() *ComplianceAnalyzer { return &ComplianceAnalyzer{} }

func (a *ComplianceAnalyzer) Name() string    { return "compliance" }
func (a *ComplianceAnalyzer) Version() string { return "1.0.0" }

func (a *ComplianceAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)

	var score float64
	var indicators []models.Indicator

	for category, keywords := range complianceRules {
		if keyword, ok := containsAny(fullText, keywords); ok {
			severity := "medium"
			if keyword == "pii" || keyword == "personal_data" || keyword == "personal data" {
				severity = "high"
			}
			indicators = append(indicators, models.Indicator{
				Category:    category,
				Description: "matched " + keyword,
				Severity:    severity,
			})
			score += 0.4
		}
	}
	if len(indicators) > 0 {
		if event.Context.Environment == models.EnvProduction {
			score += 0.3
		}
		if event.Severity == models.SeverityCritical {
			score += 0.1
		}
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"compliance_risk": clamp(score, 0, 1)},
		Confidence: 0.83,
		Indicators: indicators,
	}, nil
}

package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var (
	paymentFlows         = []string{"charge", "refund", "transfer", "deposit"}
	criticalBusinessPath = []string{"payment_gateway", "transaction_handler", "billing", "payment"}
)

// BusinessAnalyzer detects disruption of revenue-bearing flows, scoring the
// business_impact dimension.
type BusinessAnalyzer struct{}

func NewBusinessAnalyzer() *BusinessAnalyzer { return &BusinessAnalyzer{} }

func (a *BusinessAnalyzer) Name() string    { return "business" }
func (a *BusinessAnalyzer) Version() string { return "1.0.0" }

func (a *BusinessAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)
	filePath := strings.ToLower(event.Context.FilePath)

	var score float64
	var indicators []models.Indicator

	for _, flow := range paymentFlows {
		if strings.Contains(fullText, flow) {
			severity := "medium"
			if flow == "charge" || flow == "refund" {
				severity = "high"
			}
			indicators = append(indicators, models.Indicator{
				Category:    "payment_flow_disruption",
				Description: flow + " flow affected",
				Severity:    severity,
			})
			score += 0.3
		}
	}
	if path, ok := containsAny(filePath, criticalBusinessPath); ok {
		indicators = append(indicators, models.Indicator{
			Category:    "critical_path_error",
			Description: "error in " + path,
			Severity:    "critical",
		})
		score += 0.4
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"transaction_risk": clamp(score, 0, 1)},
		Confidence: 0.87,
		Indicators: indicators,
	}, nil
}

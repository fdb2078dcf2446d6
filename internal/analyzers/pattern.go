package analyzers

import (
	"context"
	"strings"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

var (
	suspiciousCodePatterns = []string{
		"eval(", "exec(", "__import__", "subprocess.", "os.system",
	}
	injectionPatterns = []string{
		"sql injection", "injection", "drop table", "xss", "csrf", "../",
	}
	sensitiveFileHints = []string{"auth", "security", "crypto", "secrets", "config"}
)

// PatternAnalyzer flags suspicious code patterns in error text, scoring the
// security_risk dimension.
type PatternAnalyzer struct{}

func NewPatternAnalyzer() *PatternAnalyzer { return &PatternAnalyzer{} }

func (a *PatternAnalyzer) Name() string    { return "pattern" }
func (a *PatternAnalyzer) Version() string { return "1.0.0" }

func (a *PatternAnalyzer) Analyze(_ context.Context, event models.ErrorEvent) (models.AnalyzerResult, error) {
	fullText := strings.ToLower(event.Message + " " + event.Context.StackTrace)

	var score float64
	var indicators []models.Indicator

	suspicious := false
	for _, pattern := range suspiciousCodePatterns {
		if strings.Contains(fullText, pattern) {
			suspicious = true
			indicators = append(indicators, models.Indicator{
				Category:    "suspicious_code_pattern",
				Description: "matched " + pattern,
				Severity:    "high",
			})
		}
	}
	if pattern, ok := containsAny(fullText, injectionPatterns); ok {
		suspicious = true
		score += 0.4
		indicators = append(indicators, models.Indicator{
			Category:    "injection_pattern",
			Description: "matched " + pattern,
			Severity:    "high",
		})
	}
	if suspicious {
		score += 0.2
	}
	if hint, ok := containsAny(strings.ToLower(event.Context.FilePath), sensitiveFileHints); ok && suspicious {
		score += 0.1
		indicators = append(indicators, models.Indicator{
			Category:    "sensitive_path",
			Description: "error touches " + hint + " code",
			Severity:    "medium",
		})
	}
	if suspicious && event.Severity == models.SeverityCritical {
		score += 0.2
	}

	return models.AnalyzerResult{
		Analyzer:   a.Name(),
		Version:    a.Version(),
		Scores:     map[string]float64{"risk_score": clamp(score, 0, 1)},
		Confidence: 0.8,
		Indicators: indicators,
	}, nil
}

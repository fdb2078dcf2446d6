package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
	"github.com/miradorstack/mirador-remediate/internal/patterns"
)

func productionEvent(message, stack string, severity models.Severity) models.ErrorEvent {
	return models.ErrorEvent{
		ID:       "evt-1",
		Source:   "payments-api",
		Message:  message,
		Severity: severity,
		Context: models.EventContext{
			Environment: models.EnvProduction,
			StackTrace:  stack,
			FilePath:    "internal/handlers/orders.go",
		},
		Metadata: map[string]string{},
	}
}

func TestPatternAnalyzerScoresInjection(t *testing.T) {
	event := productionEvent("SQL injection attempt detected in query builder", "", models.SeverityCritical)

	result, err := NewPatternAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["risk_score"]; got < 0.75 {
		t.Fatalf("expected high risk score for injection, got %f", got)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %f", result.Confidence)
	}
	if len(result.Indicators) == 0 {
		t.Fatal("expected injection indicators")
	}
}

func TestPatternAnalyzerBenignMessage(t *testing.T) {
	event := productionEvent("connection reset by peer", "", models.SeverityLow)

	result, err := NewPatternAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["risk_score"]; got != 0 {
		t.Fatalf("expected zero risk for benign message, got %f", got)
	}
}

func TestRiskAnalyzerProductionCritical(t *testing.T) {
	event := productionEvent("panic in checkout", "", models.SeverityCritical)

	result, err := NewRiskAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["risk_score"]; got != 0.85 {
		t.Fatalf("expected (0.8+0.9)/2 = 0.85, got %f", got)
	}
}

func TestRiskAnalyzerDevelopmentLow(t *testing.T) {
	event := models.ErrorEvent{
		Severity: models.SeverityLow,
		Context:  models.EventContext{Environment: models.EnvDevelopment},
	}

	result, err := NewRiskAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["risk_score"]; got > 0.2 {
		t.Fatalf("expected low risk in development, got %f", got)
	}
}

func TestComplianceAnalyzerGDPRProduction(t *testing.T) {
	event := productionEvent("GDPR violation: PII exposed in logs", "", models.SeverityCritical)

	result, err := NewComplianceAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["compliance_risk"]; got <= 0.7 {
		t.Fatalf("expected compliance risk above 0.7, got %f", got)
	}
}

func TestComplianceAnalyzerNoViolation(t *testing.T) {
	event := productionEvent("index out of range", "", models.SeverityMedium)

	result, err := NewComplianceAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["compliance_risk"]; got != 0 {
		t.Fatalf("expected zero compliance risk, got %f", got)
	}
}

func TestBusinessAnalyzerPaymentPath(t *testing.T) {
	event := productionEvent("charge failed: gateway timeout", "", models.SeverityHigh)
	event.Context.FilePath = "services/payment_gateway/client.go"

	result, err := NewBusinessAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["transaction_risk"]; got <= 0.6 {
		t.Fatalf("expected elevated transaction risk, got %f", got)
	}
}

func TestImpactAnalyzerProductionMultiplier(t *testing.T) {
	devEvent := models.ErrorEvent{
		Message: "login timeout on frontend",
		Context: models.EventContext{Environment: models.EnvDevelopment},
	}
	prodEvent := devEvent
	prodEvent.Context.Environment = models.EnvProduction

	devResult, err := NewImpactAnalyzer().Analyze(context.Background(), devEvent)
	if err != nil {
		t.Fatalf("Analyze dev: %v", err)
	}
	prodResult, err := NewImpactAnalyzer().Analyze(context.Background(), prodEvent)
	if err != nil {
		t.Fatalf("Analyze prod: %v", err)
	}
	if prodResult.Scores["impact_score"] <= devResult.Scores["impact_score"] {
		t.Fatal("expected production impact to exceed development impact")
	}
}

func TestAnomalyAnalyzerOffHours(t *testing.T) {
	event := productionEvent("root access denied", "", models.SeverityHigh)
	event.Timestamp = time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)

	result, err := NewAnomalyAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["anomaly_score"]; got <= 0.3 {
		t.Fatalf("expected anomaly score above 0.3 for off-hours root access, got %f", got)
	}
}

func TestTrendAnalyzerFrequency(t *testing.T) {
	event := productionEvent("timeout", "", models.SeverityMedium)
	event.Metadata["frequency"] = "high"

	result, err := NewTrendAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["degradation"]; got != 0.8 {
		t.Fatalf("expected degradation 0.8 for high frequency, got %f", got)
	}
}

func TestQualityAnalyzerNegativeSentiment(t *testing.T) {
	event := models.ErrorEvent{Message: "crash during startup, all workers fail"}

	result, err := NewQualityAnalyzer().Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := result.Scores["quality_risk"]; got != 0.7 {
		t.Fatalf("expected quality risk 0.7 for negative sentiment, got %f", got)
	}
}

func TestRecurrenceAnalyzerGrowsWithRepeats(t *testing.T) {
	history := patterns.NewHistory(nil, time.Minute)
	analyzer := NewRecurrenceAnalyzer(history)
	event := productionEvent("ledger timeout", "", models.SeverityMedium)
	sig := patterns.Signature(event)

	first, err := analyzer.Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze first: %v", err)
	}
	history.Observe(sig)
	second, err := analyzer.Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze second: %v", err)
	}
	history.Observe(sig)
	third, err := analyzer.Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze third: %v", err)
	}
	if second.Scores["recurrence"] <= first.Scores["recurrence"] {
		t.Fatal("expected recurrence score to grow on repeat")
	}
	if third.Scores["recurrence"] <= second.Scores["recurrence"] {
		t.Fatal("expected recurrence score to keep growing")
	}
}

func TestRecurrenceAnalyzerLeavesHistoryUntouched(t *testing.T) {
	history := patterns.NewHistory(nil, time.Minute)
	analyzer := NewRecurrenceAnalyzer(history)
	event := productionEvent("ledger timeout", "", models.SeverityMedium)
	sig := patterns.Signature(event)
	history.Observe(sig)

	first, err := analyzer.Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze first: %v", err)
	}
	second, err := analyzer.Analyze(context.Background(), event)
	if err != nil {
		t.Fatalf("Analyze second: %v", err)
	}
	if first.Scores["recurrence"] != second.Scores["recurrence"] {
		t.Fatalf("re-analysis changed the score: %f then %f",
			first.Scores["recurrence"], second.Scores["recurrence"])
	}
	if history.Occurrences(sig) != 1 {
		t.Fatalf("analysis must not record occurrences, count is %d", history.Occurrences(sig))
	}
}

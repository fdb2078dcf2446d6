package engine

import (
	"testing"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

func result(analyzer string, confidence float64, scores map[string]float64) models.AnalyzerResult {
	return models.AnalyzerResult{Analyzer: analyzer, Confidence: confidence, Scores: scores}
}

func TestAggregateTakesDimensionMax(t *testing.T) {
	agg := NewAggregator(nil, 1, 0.5)

	intel := agg.Aggregate("evt", []models.AnalyzerResult{
		result("pattern", 0.8, map[string]float64{"risk_score": 0.3}),
		result("compliance", 0.83, map[string]float64{"compliance_risk": 0.8}),
		result("anomaly", 0.81, map[string]float64{"anomaly_score": 0.5}),
	}, nil, 12)

	if got := intel.Dimensions[models.DimSecurityRisk]; got != 0.8 {
		t.Fatalf("expected security_risk max 0.8, got %f", got)
	}
	if got := intel.Dimensions[models.DimRegulatoryImpact]; got != 0.8 {
		t.Fatalf("expected regulatory_impact 0.8 from compliance, got %f", got)
	}
	if intel.Contributing != 3 {
		t.Fatalf("expected 3 contributing, got %d", intel.Contributing)
	}
}

func TestAggregateConfidenceIsMeanOfSuccesses(t *testing.T) {
	agg := NewAggregator(nil, 2, 0.5)

	intel := agg.Aggregate("evt", []models.AnalyzerResult{
		result("pattern", 0.8, nil),
		result("risk", 0.9, nil),
	}, []string{"quality"}, 3)

	want := (0.8 + 0.9) / 2
	if intel.OverallConfidence != want {
		t.Fatalf("expected confidence %f, got %f", want, intel.OverallConfidence)
	}
}

func TestAggregateCapsConfidenceOnThinCoverage(t *testing.T) {
	agg := NewAggregator(nil, 0, 0.5)

	intel := agg.Aggregate("evt", []models.AnalyzerResult{
		result("pattern", 0.9, map[string]float64{"risk_score": 0.2}),
	}, []string{"a", "b", "c"}, 12)

	if intel.OverallConfidence != 0.5 {
		t.Fatalf("expected confidence capped at 0.5, got %f", intel.OverallConfidence)
	}
}

func TestAggregateNoSignals(t *testing.T) {
	agg := NewAggregator(nil, 0, 0.5)

	intel := agg.Aggregate("evt", nil, []string{"pattern"}, 12)
	if intel.OverallConfidence != 0 {
		t.Fatalf("expected zero confidence, got %f", intel.OverallConfidence)
	}
	for dim, value := range intel.Dimensions {
		if value != 0.5 {
			t.Fatalf("expected %s pinned to 0.5, got %f", dim, value)
		}
	}
}

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy("", nil, 0.8, 0.3)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func intelWith(confidence float64, dims map[models.Dimension]float64) models.AggregatedIntelligence {
	full := map[models.Dimension]float64{
		models.DimSecurityRisk:        0,
		models.DimBusinessImpact:      0,
		models.DimTechnicalComplexity: 0,
		models.DimRegulatoryImpact:    0,
	}
	for dim, value := range dims {
		full[dim] = value
	}
	return models.AggregatedIntelligence{
		EventID:           "evt",
		Dimensions:        full,
		OverallConfidence: confidence,
		Contributing:      12,
		Registered:        12,
	}
}

func TestDecideSecurityRuleWinsFirst(t *testing.T) {
	p := newTestPolicy(t)

	plan := p.Decide("evt", intelWith(0.85, map[models.Dimension]float64{
		models.DimSecurityRisk:   0.8,
		models.DimBusinessImpact: 0.9,
	}))

	if plan.ActionType != models.ActionSecurityFix {
		t.Fatalf("expected security_fix, got %s", plan.ActionType)
	}
	if plan.Strategy != models.StrategyBlueGreen {
		t.Fatalf("expected blue_green, got %s", plan.Strategy)
	}
	if plan.AutoApprove {
		t.Fatal("high security risk must never auto-approve")
	}
	want := []string{
		"apply immediate security patch",
		"add input sanitization",
		"review access controls",
	}
	if len(plan.PriorityActions) != len(want) {
		t.Fatalf("expected %d priority actions, got %v", len(want), plan.PriorityActions)
	}
	for i, action := range want {
		if plan.PriorityActions[i] != action {
			t.Fatalf("priority action %d: expected %q, got %q", i, action, plan.PriorityActions[i])
		}
	}
}

func TestDecideBusinessRule(t *testing.T) {
	p := newTestPolicy(t)

	plan := p.Decide("evt", intelWith(0.85, map[models.Dimension]float64{
		models.DimBusinessImpact: 0.75,
	}))

	if plan.ActionType != models.ActionBusinessCriticalFix {
		t.Fatalf("expected business_critical_fix, got %s", plan.ActionType)
	}
	if plan.Strategy != models.StrategyCanary || plan.TrafficPercent != 25 {
		t.Fatalf("expected 25%% canary, got %s@%d", plan.Strategy, plan.TrafficPercent)
	}
}

func TestDecideRegulatoryRule(t *testing.T) {
	p := newTestPolicy(t)

	plan := p.Decide("evt", intelWith(0.85, map[models.Dimension]float64{
		models.DimRegulatoryImpact: 0.8,
	}))

	if plan.ActionType != models.ActionComplianceFix {
		t.Fatalf("expected compliance_fix, got %s", plan.ActionType)
	}
	if plan.EstimateMin.Minutes() != 90 || plan.EstimateMax.Minutes() != 180 {
		t.Fatalf("unexpected estimate window %s-%s", plan.EstimateMin, plan.EstimateMax)
	}
	if len(plan.PriorityActions) != 2 ||
		plan.PriorityActions[0] != "preserve the audit trail" ||
		plan.PriorityActions[1] != "notify regulatory compliance owners" {
		t.Fatalf("unexpected compliance priority actions %v", plan.PriorityActions)
	}
}

func TestDecideFallbackBuckets(t *testing.T) {
	p := newTestPolicy(t)

	low := p.Decide("evt", intelWith(0.9, map[models.Dimension]float64{
		models.DimTechnicalComplexity: 0.2,
	}))
	if low.ActionType != models.ActionAutomatedFix || low.Strategy != models.StrategyImmediate {
		t.Fatalf("expected immediate automated fix, got %s/%s", low.ActionType, low.Strategy)
	}
	if !low.AutoApprove {
		t.Fatal("expected low-risk confident plan to auto-approve")
	}

	medium := p.Decide("evt", intelWith(0.9, map[models.Dimension]float64{
		models.DimTechnicalComplexity: 0.5,
	}))
	if medium.Strategy != models.StrategyBlueGreen {
		t.Fatalf("expected blue_green for medium risk, got %s", medium.Strategy)
	}

	// technical_complexity is not gated by a threshold rule, so a high value
	// still lands in the fallback but as a high-risk canary.
	high := p.Decide("evt", intelWith(0.9, map[models.Dimension]float64{
		models.DimTechnicalComplexity: 0.8,
	}))
	if high.Strategy != models.StrategyCanary || high.TrafficPercent != 25 {
		t.Fatalf("expected 25%% canary for high risk, got %s@%d", high.Strategy, high.TrafficPercent)
	}
}

func TestDecideZeroConfidenceManualReview(t *testing.T) {
	p := newTestPolicy(t)

	plan := p.Decide("evt", intelWith(0, nil))
	if plan.ActionType != models.ActionManualReview {
		t.Fatalf("expected manual_review, got %s", plan.ActionType)
	}
	if plan.Strategy != models.StrategyManualApproval {
		t.Fatalf("expected manual_approval strategy, got %s", plan.Strategy)
	}
}

func TestAutoFixEligibleBoundsInclusive(t *testing.T) {
	p := newTestPolicy(t)

	edge := intelWith(0.8, map[models.Dimension]float64{models.DimSecurityRisk: 0.3})
	if !p.AutoFixEligible(edge) {
		t.Fatal("confidence 0.8 with security 0.3 must be eligible")
	}

	lowConf := intelWith(0.79, map[models.Dimension]float64{models.DimSecurityRisk: 0.1})
	if p.AutoFixEligible(lowConf) {
		t.Fatal("confidence below 0.8 must not be eligible")
	}

	risky := intelWith(0.95, map[models.Dimension]float64{models.DimSecurityRisk: 0.31})
	if p.AutoFixEligible(risky) {
		t.Fatal("security risk above 0.3 must not be eligible")
	}
}

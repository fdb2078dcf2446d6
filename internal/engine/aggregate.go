package engine

import (
	"log/slog"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// dimensionSources maps each decision dimension to the analyzer scores that
// feed it. Dimensions take the max of their inputs: one strong signal should
// never be diluted by quiet analyzers.
var dimensionSources = map[models.Dimension][]scoreRef{
	models.DimSecurityRisk: {
		{analyzer: "pattern", score: "risk_score"},
		{analyzer: "compliance", score: "compliance_risk"},
		{analyzer: "anomaly", score: "anomaly_score"},
	},
	models.DimBusinessImpact: {
		{analyzer: "business", score: "transaction_risk"},
		{analyzer: "impact", score: "impact_score"},
		{analyzer: "trend", score: "degradation"},
	},
	models.DimTechnicalComplexity: {
		{analyzer: "risk", score: "risk_score"},
		{analyzer: "resource", score: "allocation_score"},
		{analyzer: "health", score: "instability"},
		{analyzer: "quality", score: "quality_risk"},
		{analyzer: "history", score: "recurrence"},
	},
	models.DimRegulatoryImpact: {
		{analyzer: "compliance", score: "compliance_risk"},
		{analyzer: "audit", score: "audit_priority"},
	},
}

type scoreRef struct {
	analyzer string
	score    string
}

// Aggregator folds per-analyzer results into the four decision dimensions
// and an overall confidence.
type Aggregator struct {
	logger *slog.Logger
	// minSignals is the contribution floor below which confidence is capped;
	// 0 means half of the registered analyzers.
	minSignals int
	ceiling    float64
}

// NewAggregator constructs an Aggregator. ceiling caps confidence when too
// few analyzers contributed.
func NewAggregator(logger *slog.Logger, minSignals int, ceiling float64) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if ceiling <= 0 || ceiling > 1 {
		ceiling = 0.5
	}
	return &Aggregator{logger: logger, minSignals: minSignals, ceiling: ceiling}
}

// Aggregate combines analyzer results for one event. With zero usable
// results every dimension pins to 0.5 and confidence to 0, which downstream
// policy turns into a manual review.
func (a *Aggregator) Aggregate(eventID string, results []models.AnalyzerResult, failed []string, registered int) models.AggregatedIntelligence {
	agg := models.AggregatedIntelligence{
		EventID:         eventID,
		Dimensions:      make(map[models.Dimension]float64, len(dimensionSources)),
		Contributing:    len(results),
		Registered:      registered,
		FailedAnalyzers: failed,
	}

	if len(results) == 0 {
		for dim := range dimensionSources {
			agg.Dimensions[dim] = 0.5
		}
		agg.OverallConfidence = 0
		a.logger.Warn("no analyzer signals, pinning dimensions to neutral", slog.String("event_id", eventID))
		return agg
	}

	byAnalyzer := make(map[string]models.AnalyzerResult, len(results))
	for _, result := range results {
		byAnalyzer[result.Analyzer] = result
	}

	for dim, sources := range dimensionSources {
		var peak float64
		for _, src := range sources {
			result, ok := byAnalyzer[src.analyzer]
			if !ok {
				continue
			}
			if value, ok := result.Scores[src.score]; ok && value > peak {
				peak = value
			}
		}
		agg.Dimensions[dim] = clamp(peak, 0, 1)
	}

	var confidenceSum float64
	for _, result := range results {
		confidenceSum += clamp(result.Confidence, 0, 1)
	}
	confidence := confidenceSum / float64(len(results))

	threshold := a.minSignals
	if threshold <= 0 {
		threshold = registered / 2
	}
	if len(results) < threshold && confidence > a.ceiling {
		a.logger.Info("capping confidence on thin signal coverage",
			slog.String("event_id", eventID),
			slog.Int("contributing", len(results)),
			slog.Int("registered", registered))
		confidence = a.ceiling
	}
	agg.OverallConfidence = clamp(confidence, 0, 1)

	return agg
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

package models

// AnalyzerResult is one analyzer's partial judgment about an event.
// All score values and the confidence are in [0,1]; results are never
// mutated after creation.
type AnalyzerResult struct {
	Analyzer   string
	Version    string
	Scores     map[string]float64
	Confidence float64
	Indicators []Indicator
}

// Indicator is a human-readable signal attached to an analyzer result.
// Severity here is a free-form label ("high", "standard") rather than an
// event Severity; analyzers grade their own findings.
type Indicator struct {
	Category    string
	Description string
	Severity    string
}

// Dimension names a composite risk axis derived across analyzers.
type Dimension string

const (
	DimSecurityRisk        Dimension = "security_risk"
	DimBusinessImpact      Dimension = "business_impact"
	DimTechnicalComplexity Dimension = "technical_complexity"
	DimRegulatoryImpact    Dimension = "regulatory_impact"
)

// AggregatedIntelligence is the combined cross-analyzer posture for one
// event. Computed fresh per event, never persisted independently of it.
type AggregatedIntelligence struct {
	EventID           string
	Dimensions        map[Dimension]float64
	OverallConfidence float64
	Contributing      int
	Registered        int
	FailedAnalyzers   []string
}

// Dimension returns the named dimension value, or 0 when absent.
func (a AggregatedIntelligence) Dimension(name Dimension) float64 {
	if a.Dimensions == nil {
		return 0
	}
	return a.Dimensions[name]
}

package engine

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Policy turns aggregated intelligence into a fix plan by walking an ordered
// rule table. The first matching rule wins; the final rule has no condition
// and always matches.
type Policy struct {
	rules  []DecisionRule
	logger *slog.Logger

	minAutoConfidence float64
	maxAutoSecurity   float64
}

// DecisionRule matches one dimension threshold and prescribes the response.
type DecisionRule struct {
	ID              string   `yaml:"id"`
	Dimension       string   `yaml:"dimension"`
	Above           float64  `yaml:"above"`
	Action          string   `yaml:"action"`
	Strategy        string   `yaml:"strategy"`
	Traffic         int      `yaml:"traffic"`
	EstimateMin     int      `yaml:"estimateMinutesMin"`
	EstimateMax     int      `yaml:"estimateMinutesMax"`
	PriorityActions []string `yaml:"priorityActions"`
}

// policyFile is the YAML root structure.
type policyFile struct {
	Rules []DecisionRule `yaml:"rules"`
}

// NewPolicy loads decision rules from path, falling back to the built-in
// table when the path is empty or missing.
func NewPolicy(path string, logger *slog.Logger, minAutoConfidence, maxAutoSecurity float64) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules := defaultRules()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("policy file absent, using built-in rules", slog.String("path", path))
		case err != nil:
			return nil, err
		default:
			var cfg policyFile
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
			if len(cfg.Rules) > 0 {
				rules = cfg.Rules
			}
		}
	}

	if minAutoConfidence <= 0 {
		minAutoConfidence = 0.8
	}
	if maxAutoSecurity <= 0 {
		maxAutoSecurity = 0.3
	}
	return &Policy{
		rules:             rules,
		logger:            logger,
		minAutoConfidence: minAutoConfidence,
		maxAutoSecurity:   maxAutoSecurity,
	}, nil
}

func defaultRules() []DecisionRule {
	return []DecisionRule{
		{
			ID: "security-critical", Dimension: "security_risk", Above: 0.7,
			Action: "security_fix", Strategy: "blue_green", Traffic: 100,
			EstimateMin: 60, EstimateMax: 120,
			PriorityActions: []string{
				"apply immediate security patch",
				"add input sanitization",
				"review access controls",
			},
		},
		{
			ID: "business-critical", Dimension: "business_impact", Above: 0.7,
			Action: "business_critical_fix", Strategy: "canary", Traffic: 25,
			EstimateMin: 15, EstimateMax: 45,
			PriorityActions: []string{
				"restore the affected transaction flow",
				"verify payment processing end to end",
			},
		},
		{
			ID: "regulatory-critical", Dimension: "regulatory_impact", Above: 0.7,
			Action: "compliance_fix", Strategy: "blue_green", Traffic: 100,
			EstimateMin: 90, EstimateMax: 180,
			PriorityActions: []string{
				"preserve the audit trail",
				"notify regulatory compliance owners",
			},
		},
	}
}

// Decide produces the fix plan for an event given its aggregated
// intelligence. Zero overall confidence always yields a manual review.
func (p *Policy) Decide(eventID string, intel models.AggregatedIntelligence) models.FixPlan {
	plan := models.FixPlan{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Confidence: intel.OverallConfidence,
		CreatedAt:  time.Now().UTC(),
	}

	if intel.OverallConfidence == 0 {
		plan.ActionType = models.ActionManualReview
		plan.Strategy = models.StrategyManualApproval
		plan.RiskLevel = models.RiskHigh
		plan.RuleID = "manual-no-signal"
		plan.PriorityActions = []string{"no analyzer signal available, triage manually"}
		return plan
	}

	for _, rule := range p.rules {
		if intel.Dimension(models.Dimension(rule.Dimension)) > rule.Above {
			plan.ActionType = models.ActionType(rule.Action)
			plan.Strategy = models.DeploymentStrategy(rule.Strategy)
			plan.TrafficPercent = rule.Traffic
			plan.EstimateMin = time.Duration(rule.EstimateMin) * time.Minute
			plan.EstimateMax = time.Duration(rule.EstimateMax) * time.Minute
			plan.RiskLevel = bucketRisk(maxDimension(intel))
			plan.RuleID = rule.ID
			if len(rule.PriorityActions) > 0 {
				plan.PriorityActions = append([]string(nil), rule.PriorityActions...)
			}
			plan.AutoApprove = p.AutoFixEligible(intel)
			return plan
		}
	}

	// Fallback: routine automated fix shaped by the strongest dimension.
	peak := maxDimension(intel)
	plan.ActionType = models.ActionAutomatedFix
	plan.RiskLevel = bucketRisk(peak)
	plan.RuleID = "default-automated"
	switch plan.RiskLevel {
	case models.RiskHigh:
		plan.Strategy = models.StrategyCanary
		plan.TrafficPercent = 25
		plan.EstimateMin = 30 * time.Minute
		plan.EstimateMax = 90 * time.Minute
	case models.RiskMedium:
		plan.Strategy = models.StrategyBlueGreen
		plan.TrafficPercent = 100
		plan.EstimateMin = 15 * time.Minute
		plan.EstimateMax = 60 * time.Minute
	default:
		plan.Strategy = models.StrategyImmediate
		plan.TrafficPercent = 100
		plan.EstimateMin = 5 * time.Minute
		plan.EstimateMax = 30 * time.Minute
	}
	plan.AutoApprove = p.AutoFixEligible(intel)
	return plan
}

// AutoFixEligible reports whether a plan may deploy without human approval:
// confidence at or above the floor and security risk at or below the cap.
func (p *Policy) AutoFixEligible(intel models.AggregatedIntelligence) bool {
	return intel.OverallConfidence >= p.minAutoConfidence &&
		intel.Dimensions[models.DimSecurityRisk] <= p.maxAutoSecurity
}

func maxDimension(intel models.AggregatedIntelligence) float64 {
	var peak float64
	for _, value := range intel.Dimensions {
		if value > peak {
			peak = value
		}
	}
	return peak
}

func bucketRisk(score float64) models.RiskLevel {
	switch {
	case score >= 0.7:
		return models.RiskHigh
	case score >= 0.4:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

package models

import "time"

// ActionType enumerates the remediation action categories.
type ActionType string

const (
	ActionAutomatedFix        ActionType = "automated_fix"
	ActionSecurityFix         ActionType = "security_fix"
	ActionBusinessCriticalFix ActionType = "business_critical_fix"
	ActionComplianceFix       ActionType = "compliance_fix"
	ActionManualReview        ActionType = "manual_review"
)

// DeploymentStrategy enumerates rollout strategies.
type DeploymentStrategy string

const (
	StrategyImmediate      DeploymentStrategy = "immediate"
	StrategyBlueGreen      DeploymentStrategy = "blue_green"
	StrategyCanary         DeploymentStrategy = "canary"
	StrategyRolling        DeploymentStrategy = "rolling"
	StrategyManualApproval DeploymentStrategy = "manual_approval"
)

// RiskLevel buckets the derived deployment risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FixPlan is the decided remediation for one event. Plans are immutable:
// a re-analysis produces a new plan rather than mutating an old one.
type FixPlan struct {
	ID              string
	EventID         string
	EventTimestamp  time.Time
	ActionType      ActionType
	Targets         []string
	EstimateMin     time.Duration
	EstimateMax     time.Duration
	RiskLevel       RiskLevel
	Strategy        DeploymentStrategy
	TrafficPercent  int
	PriorityActions []string
	AutoApprove     bool
	RuleID          string
	Confidence      float64
	CreatedAt       time.Time
}

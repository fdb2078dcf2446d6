package models

import "time"

// DeploymentState enumerates supervisor states.
type DeploymentState string

const (
	StatePending    DeploymentState = "pending"
	StateValidating DeploymentState = "validating"
	StateDeploying  DeploymentState = "deploying"
	StateMonitoring DeploymentState = "monitoring"
	StateSucceeded  DeploymentState = "succeeded"
	StateRolledBack DeploymentState = "rolled_back"
	StateFailed     DeploymentState = "failed"
)

// Terminal reports whether the state has no outgoing transitions.
func (s DeploymentState) Terminal() bool {
	switch s {
	case StateSucceeded, StateRolledBack, StateFailed:
		return true
	}
	return false
}

// DeploymentOutcome labels a terminal deployment.
type DeploymentOutcome string

const (
	OutcomeSuccess    DeploymentOutcome = "success"
	OutcomeFailed     DeploymentOutcome = "failed"
	OutcomeRolledBack DeploymentOutcome = "rolled_back"
)

// Transition records one state change in a deployment's life.
type Transition struct {
	From   DeploymentState
	To     DeploymentState
	At     time.Time
	Reason string
}

// Deployment is a supervised execution of a FixPlan's strategy. It is
// owned by the supervisor and mutated only through recorded transitions.
type Deployment struct {
	ID          string
	PlanID      string
	EventID     string
	IncidentAt  time.Time
	Strategy    DeploymentStrategy
	State       DeploymentState
	StartedAt   time.Time
	CompletedAt *time.Time
	Outcome     DeploymentOutcome
	Transitions []Transition
}

// Clone returns a deep copy safe to hand to readers while the supervisor
// continues mutating the original.
func (d Deployment) Clone() Deployment {
	out := d
	out.Transitions = append([]Transition(nil), d.Transitions...)
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

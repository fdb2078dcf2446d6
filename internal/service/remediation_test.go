package service

import (
	"context"
	"testing"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/analyzers"
	"github.com/miradorstack/mirador-remediate/internal/collab"
	"github.com/miradorstack/mirador-remediate/internal/deploy"
	"github.com/miradorstack/mirador-remediate/internal/engine"
	"github.com/miradorstack/mirador-remediate/internal/health"
	"github.com/miradorstack/mirador-remediate/internal/models"
	"github.com/miradorstack/mirador-remediate/internal/patterns"
	"github.com/miradorstack/mirador-remediate/internal/store"
)

type happyExecutor struct{}

func (happyExecutor) Execute(context.Context, models.FixPlan, int) (collab.ExecutionReport, error) {
	return collab.ExecutionReport{DeploymentID: "ext", Applied: true}, nil
}

func (happyExecutor) Rollback(context.Context, string, []string) error { return nil }

func (happyExecutor) Validate(_ context.Context, _ models.FixPlan, suite string) (collab.ValidationReport, error) {
	return collab.ValidationReport{Suite: suite, Passed: true}, nil
}

func (happyExecutor) Probe(context.Context, string) (collab.HealthSample, error) {
	return collab.HealthSample{ErrorRate: 0.001, LatencyMS: 40}, nil
}

func newTestService(t *testing.T, autoDeploy bool) (*RemediationService, *deploy.Supervisor) {
	t.Helper()

	history := patterns.NewHistory(nil, time.Minute)
	policy, err := engine.NewPolicy("", nil, 0.8, 0.3)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	supervisor := deploy.NewSupervisor(happyExecutor{}, nil, nil, deploy.Options{
		Timeout:         2 * time.Second,
		MonitorWindow:   30 * time.Millisecond,
		MonitorInterval: 10 * time.Millisecond,
	})
	t.Cleanup(supervisor.Close)

	svc := NewRemediationService(nil, Config{
		Registry:     analyzers.NewDefaultRegistry(nil, time.Second, history),
		Aggregator:   engine.NewAggregator(nil, 0, 0.5),
		Policy:       policy,
		Supervisor:   supervisor,
		Monitor:      health.NewMonitor(nil, nil, health.Options{FailureSampleSize: 100}),
		History:      history,
		Store:        store.New(),
		Audit:        store.NewAuditStream(256),
		AutoDeploy:   autoDeploy,
		BatchTimeout: 2 * time.Second,
	})
	return svc, supervisor
}

func secureEvent() models.ErrorEvent {
	return models.ErrorEvent{
		Source:   "payments-api",
		Message:  "SQL injection attempt: GDPR personal data exposed",
		Severity: models.SeverityCritical,
		Context: models.EventContext{
			Environment: models.EnvProduction,
			FilePath:    "internal/auth/session.go",
		},
	}
}

func routineEvent() models.ErrorEvent {
	return models.ErrorEvent{
		Source:   "batch-worker",
		Message:  "nil pointer dereference in report generator",
		Severity: models.SeverityLow,
		Context: models.EventContext{
			Environment: models.EnvDevelopment,
			FilePath:    "internal/report/render.go",
		},
	}
}

func TestAnalyzeErrorSecurityScenario(t *testing.T) {
	svc, _ := newTestService(t, true)

	outcome, err := svc.AnalyzeError(context.Background(), secureEvent())
	if err != nil {
		t.Fatalf("AnalyzeError: %v", err)
	}

	if outcome.Intelligence.Dimensions[models.DimSecurityRisk] <= 0.7 {
		t.Fatalf("expected security risk above 0.7, got %f", outcome.Intelligence.Dimensions[models.DimSecurityRisk])
	}
	if outcome.Plan.ActionType != models.ActionSecurityFix {
		t.Fatalf("expected security_fix, got %s", outcome.Plan.ActionType)
	}
	if outcome.Plan.Strategy != models.StrategyBlueGreen {
		t.Fatalf("expected blue_green, got %s", outcome.Plan.Strategy)
	}
	if outcome.Deployment != nil {
		t.Fatal("high security risk must never auto-deploy")
	}
}

func TestAnalyzeErrorRoutineAutoDeploys(t *testing.T) {
	svc, sup := newTestService(t, true)

	outcome, err := svc.AnalyzeError(context.Background(), routineEvent())
	if err != nil {
		t.Fatalf("AnalyzeError: %v", err)
	}
	if outcome.Plan.ActionType != models.ActionAutomatedFix {
		t.Fatalf("expected automated_fix, got %s", outcome.Plan.ActionType)
	}
	if !outcome.Plan.AutoApprove {
		t.Fatalf("expected auto-approval, confidence %f security %f",
			outcome.Intelligence.OverallConfidence,
			outcome.Intelligence.Dimensions[models.DimSecurityRisk])
	}
	if outcome.Deployment == nil {
		t.Fatal("expected auto-deployment")
	}

	// lifecycle completes and feeds history + audit
	deadline := time.After(3 * time.Second)
	for {
		dep, ok := sup.Get(outcome.Deployment.ID)
		if !ok {
			t.Fatal("deployment lost")
		}
		if dep.State.Terminal() {
			if dep.State != models.StateSucceeded {
				t.Fatalf("expected success, got %s", dep.State)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("deployment never finished")
		case <-time.After(5 * time.Millisecond):
		}
	}

	records := svc.Audit(outcome.Event.ID, "", time.Time{}, 0)
	if len(records) < 3 {
		t.Fatalf("expected analysis, decision, and transition audit records, got %d", len(records))
	}
}

func TestAnalyzeErrorNoAutoDeployWhenDisabled(t *testing.T) {
	svc, _ := newTestService(t, false)

	outcome, err := svc.AnalyzeError(context.Background(), routineEvent())
	if err != nil {
		t.Fatalf("AnalyzeError: %v", err)
	}
	if outcome.Deployment != nil {
		t.Fatal("auto-deploy disabled, no deployment expected")
	}

	// operator approves explicitly
	dep, err := svc.Deploy(outcome.Plan.ID)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if dep.PlanID != outcome.Plan.ID {
		t.Fatalf("deployment bound to wrong plan %s", dep.PlanID)
	}
}

func TestAnalyzeErrorRequiresMessage(t *testing.T) {
	svc, _ := newTestService(t, false)
	if _, err := svc.AnalyzeError(context.Background(), models.ErrorEvent{}); err == nil {
		t.Fatal("expected validation error for empty message")
	}
}

func TestDeployUnknownPlan(t *testing.T) {
	svc, _ := newTestService(t, false)
	if _, err := svc.Deploy("nope"); err == nil {
		t.Fatal("expected error for unknown plan")
	}
}

func TestHealthSnapshot(t *testing.T) {
	svc, _ := newTestService(t, false)
	snap := svc.Health()
	if len(snap.ActiveAlarms) != 0 {
		t.Fatalf("expected no alarms on fresh service, got %v", snap.ActiveAlarms)
	}
}

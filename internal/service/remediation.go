package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-remediate/internal/analyzers"
	"github.com/miradorstack/mirador-remediate/internal/deploy"
	"github.com/miradorstack/mirador-remediate/internal/engine"
	"github.com/miradorstack/mirador-remediate/internal/health"
	"github.com/miradorstack/mirador-remediate/internal/metrics"
	"github.com/miradorstack/mirador-remediate/internal/models"
	"github.com/miradorstack/mirador-remediate/internal/patterns"
	"github.com/miradorstack/mirador-remediate/internal/store"
	"github.com/miradorstack/mirador-remediate/internal/utils"
)

// AnalysisOutcome bundles everything one analysis produced.
type AnalysisOutcome struct {
	Event        models.ErrorEvent
	Intelligence models.AggregatedIntelligence
	Plan         models.FixPlan
	Deployment   *models.Deployment
}

// RemediationService is the orchestration facade: analyzer fan-out,
// aggregation, policy decision, optional auto-deployment, and audit.
type RemediationService struct {
	logger     *slog.Logger
	registry   *analyzers.Registry
	aggregator *engine.Aggregator
	policy     *engine.Policy
	supervisor *deploy.Supervisor
	monitor    *health.Monitor
	history    *patterns.History
	store      *store.Store
	audit      *store.AuditStream
	latencies  *utils.LatencyTracker

	autoDeploy   bool
	batchTimeout time.Duration
}

// Config wires the service's collaborators.
type Config struct {
	Registry     *analyzers.Registry
	Aggregator   *engine.Aggregator
	Policy       *engine.Policy
	Supervisor   *deploy.Supervisor
	Monitor      *health.Monitor
	History      *patterns.History
	Store        *store.Store
	Audit        *store.AuditStream
	AutoDeploy   bool
	BatchTimeout time.Duration
}

// NewRemediationService constructs the facade and hooks supervisor and
// monitor feedback loops together.
func NewRemediationService(logger *slog.Logger, cfg Config) *RemediationService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Second
	}

	s := &RemediationService{
		logger:       logger,
		registry:     cfg.Registry,
		aggregator:   cfg.Aggregator,
		policy:       cfg.Policy,
		supervisor:   cfg.Supervisor,
		monitor:      cfg.Monitor,
		history:      cfg.History,
		store:        cfg.Store,
		audit:        cfg.Audit,
		latencies:    utils.NewLatencyTracker(1024),
		autoDeploy:   cfg.AutoDeploy,
		batchTimeout: cfg.BatchTimeout,
	}

	if s.supervisor != nil {
		s.supervisor.OnFinish = s.onDeploymentFinished
	}
	if s.monitor != nil {
		s.monitor.OnAlarm = s.onAlarm
	}
	return s
}

// AnalyzeError runs the full pipeline for one event. A plan is always
// produced; a deployment is launched only when the plan auto-approves and
// auto-deploy is enabled.
func (s *RemediationService) AnalyzeError(ctx context.Context, event models.ErrorEvent) (AnalysisOutcome, error) {
	if event.Message == "" {
		return AnalysisOutcome{}, &utils.AppError{Op: "AnalyzeError", Msg: "event message is required"}
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}

	start := time.Now()
	batchCtx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	batch := s.registry.AnalyzeAll(batchCtx, event)
	// Analyzers only read the knowledge base; the occurrence is recorded
	// here, once per analysis, after the fan-out has seen the prior state.
	s.history.Observe(patterns.Signature(event))
	intel := s.aggregator.Aggregate(event.ID, batch.Results, batch.Failed, batch.Registered)
	plan := s.policy.Decide(event.ID, intel)
	if len(plan.Targets) == 0 && event.Source != "" {
		plan.Targets = []string{event.Source}
	}
	plan.EventTimestamp = event.Timestamp

	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	s.store.SaveAnalysis(event, intel, plan)
	s.audit.Append(store.AuditAnalysis, event.ID, "analysis",
		fmt.Sprintf("%d/%d analyzers contributed, confidence %.2f", intel.Contributing, intel.Registered, intel.OverallConfidence),
		map[string]string{"failed": fmt.Sprintf("%v", intel.FailedAnalyzers)})
	s.audit.Append(store.AuditDecision, event.ID, plan.ID,
		fmt.Sprintf("%s via %s (rule %s, risk %s)", plan.ActionType, plan.Strategy, plan.RuleID, plan.RiskLevel),
		map[string]string{"auto_approve": fmt.Sprintf("%t", plan.AutoApprove)})

	outcome := AnalysisOutcome{Event: event, Intelligence: intel, Plan: plan}

	if plan.AutoApprove && s.autoDeploy && plan.ActionType != models.ActionManualReview {
		dep, err := s.supervisor.Launch(plan)
		if err != nil {
			s.logger.Warn("auto-deploy declined",
				slog.String("event_id", event.ID),
				slog.Any("error", err))
		} else {
			outcome.Deployment = &dep
			s.audit.Append(store.AuditTransition, event.ID, dep.ID, "deployment launched", nil)
		}
	}

	return outcome, nil
}

// Deploy launches a deployment for a previously produced plan, for operators
// approving a plan that did not auto-deploy.
func (s *RemediationService) Deploy(planID string) (models.Deployment, error) {
	plan, ok := s.store.Plan(planID)
	if !ok {
		return models.Deployment{}, &utils.AppError{Op: "Deploy", Msg: "plan not found: " + planID}
	}
	dep, err := s.supervisor.Launch(plan)
	if err != nil {
		return models.Deployment{}, &utils.AppError{Op: "Deploy", Msg: "launch failed", Err: err}
	}
	s.audit.Append(store.AuditTransition, plan.EventID, dep.ID, "deployment launched by operator", nil)
	return dep, nil
}

// Plan returns a stored fix plan.
func (s *RemediationService) Plan(planID string) (models.FixPlan, bool) {
	return s.store.Plan(planID)
}

// Intelligence returns the stored aggregation for an event.
func (s *RemediationService) Intelligence(eventID string) (models.AggregatedIntelligence, bool) {
	return s.store.Intelligence(eventID)
}

// Deployment returns a deployment snapshot.
func (s *RemediationService) Deployment(id string) (models.Deployment, bool) {
	return s.supervisor.Get(id)
}

// Deployments lists all deployment snapshots.
func (s *RemediationService) Deployments() []models.Deployment {
	return s.supervisor.List()
}

// CancelDeployment aborts an in-flight deployment.
func (s *RemediationService) CancelDeployment(id string) error {
	return s.supervisor.Cancel(id)
}

// HealthSnapshot summarises the monitor's view of the system.
type HealthSnapshot struct {
	ActiveAlarms []health.Alarm `json:"active_alarms"`
	MTTR         time.Duration  `json:"mttr"`
	FailureRate  float64        `json:"failure_rate"`
	SampleCount  int            `json:"sample_count"`
}

// Health returns the current health snapshot.
func (s *RemediationService) Health() HealthSnapshot {
	rate, samples := s.monitor.FailureRate()
	return HealthSnapshot{
		ActiveAlarms: s.monitor.ActiveAlarms(),
		MTTR:         s.monitor.MeanTimeToRecovery(),
		FailureRate:  rate,
		SampleCount:  samples,
	}
}

// Audit queries the audit stream.
func (s *RemediationService) Audit(eventID string, kind store.AuditKind, since time.Time, limit int) []store.AuditRecord {
	return s.audit.Query(eventID, kind, since, limit)
}

// onDeploymentFinished feeds terminal deployments back into health windows,
// fix history, and the audit stream.
func (s *RemediationService) onDeploymentFinished(dep models.Deployment) {
	s.monitor.RecordDeployment(dep)

	if event, ok := s.store.Event(dep.EventID); ok {
		if plan, okPlan := s.store.Plan(dep.PlanID); okPlan {
			s.history.RecordOutcome(patterns.FixOutcome{
				Signature:  patterns.Signature(event),
				ActionType: plan.ActionType,
				Success:    dep.Outcome == models.OutcomeSuccess,
				RecordedAt: time.Now().UTC(),
			})
		}
	}

	reason := ""
	if n := len(dep.Transitions); n > 0 {
		reason = dep.Transitions[n-1].Reason
	}
	s.audit.Append(store.AuditTransition, dep.EventID, dep.ID,
		fmt.Sprintf("deployment %s (%s)", dep.State, reason), nil)
}

// onAlarm audits alarm edges and forces rollbacks of in-flight deployments
// when overall system health collapses.
func (s *RemediationService) onAlarm(alarm health.Alarm, raised bool, detail string) {
	edge := "cleared"
	if raised {
		edge = "raised"
	}
	s.audit.Append(store.AuditAlarm, "", string(alarm), edge+": "+detail, nil)

	if !raised || alarm != health.AlarmHighFailureRate {
		return
	}
	for _, dep := range s.supervisor.List() {
		if dep.State.Terminal() || dep.State == models.StatePending {
			continue
		}
		if err := s.supervisor.ForceRollback(dep.ID, "forced rollback: "+detail); err != nil {
			s.logger.Warn("forced rollback failed",
				slog.String("deployment_id", dep.ID),
				slog.Any("error", err))
		}
	}
}

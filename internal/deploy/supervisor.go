package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-remediate/internal/collab"
	"github.com/miradorstack/mirador-remediate/internal/metrics"
	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Executor applies, validates, probes, and rolls back fixes on targets.
type Executor interface {
	Execute(ctx context.Context, plan models.FixPlan, trafficPercent int) (collab.ExecutionReport, error)
	Rollback(ctx context.Context, deploymentID string, targets []string) error
	Validate(ctx context.Context, plan models.FixPlan, suite string) (collab.ValidationReport, error)
	Probe(ctx context.Context, deploymentID string) (collab.HealthSample, error)
}

// validationSuites lists the suites each action type must pass before any
// traffic moves.
var validationSuites = map[models.ActionType][]string{
	models.ActionSecurityFix:         {"security_scan", "unit", "integration"},
	models.ActionBusinessCriticalFix: {"unit", "integration", "smoke"},
	models.ActionComplianceFix:       {"compliance_audit", "unit"},
	models.ActionAutomatedFix:        {"unit", "smoke"},
}

// Options tunes supervisor behaviour.
type Options struct {
	Timeout            time.Duration
	MonitorWindow      time.Duration
	MonitorInterval    time.Duration
	ErrorRateThreshold float64
	LatencyThreshold   time.Duration
	CanaryHold         time.Duration
	RollingBatches     int
	ConflictPolicy     ConflictPolicy
}

func (o *Options) fillDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Minute
	}
	if o.MonitorWindow <= 0 {
		o.MonitorWindow = 2 * time.Minute
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = 10 * time.Second
	}
	if o.ErrorRateThreshold <= 0 {
		o.ErrorRateThreshold = 0.05
	}
	if o.LatencyThreshold <= 0 {
		o.LatencyThreshold = 2 * time.Second
	}
	if o.ConflictPolicy != ConflictSupersede {
		o.ConflictPolicy = ConflictReject
	}
}

// Supervisor drives deployments through their lifecycle. Each deployment is
// owned by a single goroutine; observers only ever see cloned snapshots.
type Supervisor struct {
	executor Executor
	notifier collab.Notifier
	logger   *slog.Logger
	opts     Options
	tracker  *tracker

	// OnFinish, when set, receives a snapshot of every deployment that
	// reaches a terminal state.
	OnFinish func(models.Deployment)

	mu      sync.RWMutex
	managed map[string]*managedDeployment

	rootCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

type managedDeployment struct {
	mu           sync.Mutex
	dep          *models.Deployment
	plan         models.FixPlan
	cancel       context.CancelFunc
	cancelReason string
	rollbackOnce sync.Once
	applied      bool

	// done closes when the deployment reaches a terminal state; a
	// superseding deployment blocks on it before starting.
	done chan struct{}
}

// NewSupervisor constructs a Supervisor.
func NewSupervisor(executor Executor, notifier collab.Notifier, logger *slog.Logger, opts Options) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = collab.NewLogNotifier(logger)
	}
	opts.fillDefaults()

	rootCtx, stop := context.WithCancel(context.Background())
	return &Supervisor{
		executor: executor,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		tracker:  newTracker(),
		managed:  make(map[string]*managedDeployment),
		rootCtx:  rootCtx,
		stop:     stop,
	}
}

// Launch starts a deployment for the plan. The event may hold at most one
// active deployment; the conflict policy decides whether a second request is
// rejected or supersedes the first.
func (s *Supervisor) Launch(plan models.FixPlan) (models.Deployment, error) {
	if plan.ActionType == models.ActionManualReview {
		return models.Deployment{}, fmt.Errorf("manual review plans cannot be deployed")
	}

	deploymentID := uuid.NewString()
	var handoff <-chan struct{}
	if current, err := s.tracker.acquire(plan.EventID, deploymentID); err != nil {
		if s.opts.ConflictPolicy == ConflictReject {
			return models.Deployment{}, fmt.Errorf("event %s: %w (deployment %s)", plan.EventID, ErrDeploymentInFlight, current)
		}
		s.logger.Info("superseding in-flight deployment",
			slog.String("event_id", plan.EventID),
			slog.String("old", current),
			slog.String("new", deploymentID))
		s.mu.RLock()
		prev, tracked := s.managed[current]
		s.mu.RUnlock()
		if err := s.CancelWithReason(current, "superseded"); err != nil {
			s.logger.Warn("supersede cancel failed", slog.String("deployment_id", current), slog.Any("error", err))
		}
		if tracked {
			// The event holds one live deployment at a time: the
			// replacement stays pending until the incumbent has
			// finished unwinding.
			handoff = prev.done
		}
		s.tracker.replace(plan.EventID, deploymentID)
	}

	now := time.Now().UTC()
	incidentAt := plan.EventTimestamp
	if incidentAt.IsZero() {
		incidentAt = now
	}
	dep := &models.Deployment{
		ID:          deploymentID,
		PlanID:      plan.ID,
		EventID:     plan.EventID,
		IncidentAt:  incidentAt,
		Strategy:    plan.Strategy,
		State:       models.StatePending,
		StartedAt:   now,
		Transitions: []models.Transition{{
			To: models.StatePending, At: now, Reason: "deployment requested",
		}},
	}

	ctx, cancel := context.WithTimeout(s.rootCtx, s.opts.Timeout)
	md := &managedDeployment{dep: dep, plan: plan, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.managed[deploymentID] = md
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if handoff != nil {
			select {
			case <-handoff:
			case <-ctx.Done():
				s.finish(md, models.StateFailed, models.OutcomeFailed, s.abortReason(md, ctx.Err()))
				return
			}
		}
		s.run(ctx, md)
	}()

	return dep.Clone(), nil
}

// Get returns a snapshot of a deployment.
func (s *Supervisor) Get(deploymentID string) (models.Deployment, bool) {
	s.mu.RLock()
	md, ok := s.managed[deploymentID]
	s.mu.RUnlock()
	if !ok {
		return models.Deployment{}, false
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	return md.dep.Clone(), true
}

// List returns snapshots of all known deployments.
func (s *Supervisor) List() []models.Deployment {
	s.mu.RLock()
	managed := make([]*managedDeployment, 0, len(s.managed))
	for _, md := range s.managed {
		managed = append(managed, md)
	}
	s.mu.RUnlock()

	out := make([]models.Deployment, 0, len(managed))
	for _, md := range managed {
		md.mu.Lock()
		out = append(out, md.dep.Clone())
		md.mu.Unlock()
	}
	return out
}

// Cancel aborts an in-flight deployment, rolling back anything applied.
func (s *Supervisor) Cancel(deploymentID string) error {
	return s.CancelWithReason(deploymentID, "cancelled by operator")
}

// CancelWithReason aborts an in-flight deployment recording why.
func (s *Supervisor) CancelWithReason(deploymentID, reason string) error {
	s.mu.RLock()
	md, ok := s.managed[deploymentID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("deployment %s not found", deploymentID)
	}

	md.mu.Lock()
	if md.dep.State.Terminal() {
		md.mu.Unlock()
		return fmt.Errorf("deployment %s already %s", deploymentID, md.dep.State)
	}
	md.cancelReason = reason
	md.mu.Unlock()

	md.cancel()
	return nil
}

// ForceRollback rolls back a deployment immediately regardless of state,
// used by the health monitor when system health degrades.
func (s *Supervisor) ForceRollback(deploymentID, reason string) error {
	s.mu.RLock()
	md, ok := s.managed[deploymentID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("deployment %s not found", deploymentID)
	}

	md.mu.Lock()
	terminal := md.dep.State.Terminal()
	md.cancelReason = reason
	md.mu.Unlock()
	if terminal {
		return fmt.Errorf("deployment %s already finished", deploymentID)
	}

	md.cancel()
	return nil
}

// Close cancels all in-flight deployments and waits for their goroutines.
func (s *Supervisor) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context, md *managedDeployment) {
	if !s.validate(ctx, md) {
		return
	}
	if !s.deployStages(ctx, md) {
		return
	}
	if !s.monitor(ctx, md) {
		return
	}
	s.finish(md, models.StateSucceeded, models.OutcomeSuccess, "monitoring window clean")
}

// validate runs the action type's suites. Nothing has been applied yet, so a
// failure here finishes as Failed without rollback.
func (s *Supervisor) validate(ctx context.Context, md *managedDeployment) bool {
	s.transition(md, models.StateValidating, "running validation suites")

	suites := validationSuites[md.plan.ActionType]
	for _, suite := range suites {
		if err := ctx.Err(); err != nil {
			s.finish(md, models.StateFailed, models.OutcomeFailed, s.abortReason(md, err))
			return false
		}
		report, err := s.executor.Validate(ctx, md.plan, suite)
		if err != nil {
			s.finish(md, models.StateFailed, models.OutcomeFailed, fmt.Sprintf("validation %s errored: %v", suite, err))
			return false
		}
		if !report.Passed {
			s.finish(md, models.StateFailed, models.OutcomeFailed, fmt.Sprintf("validation %s failed: %s", suite, report.Detail))
			return false
		}
	}
	return true
}

func (s *Supervisor) deployStages(ctx context.Context, md *managedDeployment) bool {
	s.transition(md, models.StateDeploying, "applying fix via "+string(md.plan.Strategy))

	strategy := StrategyFor(md.plan.Strategy, s.opts.CanaryHold, s.opts.RollingBatches)
	for _, stage := range strategy.Stages(md.plan) {
		if err := ctx.Err(); err != nil {
			s.abort(md, err)
			return false
		}
		report, err := s.executor.Execute(ctx, md.plan, stage.TrafficPercent)
		if err != nil {
			s.failOrRollback(md, fmt.Sprintf("stage at %d%% failed: %v", stage.TrafficPercent, err))
			return false
		}
		if !report.Applied {
			s.failOrRollback(md, fmt.Sprintf("executor declined stage at %d%%: %s", stage.TrafficPercent, report.Detail))
			return false
		}

		md.mu.Lock()
		md.applied = true
		md.mu.Unlock()

		if stage.Hold > 0 {
			select {
			case <-time.After(stage.Hold):
			case <-ctx.Done():
				s.abort(md, ctx.Err())
				return false
			}
		}
	}
	return true
}

func (s *Supervisor) monitor(ctx context.Context, md *managedDeployment) bool {
	s.transition(md, models.StateMonitoring, "watching post-deploy health")

	deadline := time.NewTimer(s.opts.MonitorWindow)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.abort(md, ctx.Err())
			return false
		case <-deadline.C:
			return true
		case <-ticker.C:
			sample, err := s.executor.Probe(ctx, md.dep.ID)
			if err != nil {
				s.logger.Warn("health probe failed",
					slog.String("deployment_id", md.dep.ID),
					slog.Any("error", err))
				continue
			}
			if sample.ErrorRate > s.opts.ErrorRateThreshold {
				s.rollbackAndFinish(md, fmt.Sprintf("error rate %.3f above threshold %.3f", sample.ErrorRate, s.opts.ErrorRateThreshold))
				return false
			}
			if time.Duration(sample.LatencyMS)*time.Millisecond > s.opts.LatencyThreshold {
				s.rollbackAndFinish(md, fmt.Sprintf("latency %.0fms above threshold %s", sample.LatencyMS, s.opts.LatencyThreshold))
				return false
			}
		}
	}
}

// abort handles context cancellation or timeout mid-flight.
func (s *Supervisor) abort(md *managedDeployment, cause error) {
	md.mu.Lock()
	reason := md.cancelReason
	applied := md.applied
	md.mu.Unlock()

	if reason == "" {
		reason = fmt.Sprintf("deployment aborted: %v", cause)
	}
	if applied {
		s.rollbackAndFinish(md, reason)
		return
	}
	s.finish(md, models.StateFailed, models.OutcomeFailed, reason)
}

func (s *Supervisor) abortReason(md *managedDeployment, cause error) string {
	md.mu.Lock()
	defer md.mu.Unlock()
	if md.cancelReason != "" {
		return md.cancelReason
	}
	return fmt.Sprintf("deployment aborted: %v", cause)
}

// failOrRollback decides the terminal state after a deploy-stage failure:
// rolled back when a prior good state exists, failed otherwise.
func (s *Supervisor) failOrRollback(md *managedDeployment, reason string) {
	md.mu.Lock()
	applied := md.applied
	md.mu.Unlock()

	if applied {
		s.rollbackAndFinish(md, reason)
		return
	}
	s.finish(md, models.StateFailed, models.OutcomeFailed, reason)
}

// rollbackAndFinish restores the prior good state exactly once and finishes
// as rolled back. Rollback uses a fresh context so a cancelled deployment
// can still be unwound.
func (s *Supervisor) rollbackAndFinish(md *managedDeployment, reason string) {
	md.rollbackOnce.Do(func() {
		rbCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.executor.Rollback(rbCtx, md.dep.ID, md.plan.Targets); err != nil {
			s.logger.Error("rollback failed",
				slog.String("deployment_id", md.dep.ID),
				slog.Any("error", err))
			s.finish(md, models.StateFailed, models.OutcomeFailed, reason+"; rollback errored: "+err.Error())
			return
		}

		note := collab.Notification{
			Title:    "deployment rolled back",
			Body:     reason,
			Severity: "warning",
			Labels:   map[string]string{"deployment_id": md.dep.ID, "event_id": md.dep.EventID},
		}
		if err := s.notifier.Notify(context.Background(), note); err != nil {
			s.logger.Warn("rollback notification failed", slog.Any("error", err))
		}

		s.finish(md, models.StateRolledBack, models.OutcomeRolledBack, reason)
	})
}

func (s *Supervisor) transition(md *managedDeployment, to models.DeploymentState, reason string) {
	md.mu.Lock()
	defer md.mu.Unlock()

	now := time.Now().UTC()
	md.dep.Transitions = append(md.dep.Transitions, models.Transition{
		From: md.dep.State, To: to, At: now, Reason: reason,
	})
	md.dep.State = to

	s.logger.Info("deployment transition",
		slog.String("deployment_id", md.dep.ID),
		slog.String("state", string(to)),
		slog.String("reason", reason))
}

func (s *Supervisor) finish(md *managedDeployment, state models.DeploymentState, outcome models.DeploymentOutcome, reason string) {
	md.mu.Lock()
	if md.dep.State.Terminal() {
		md.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	md.dep.Transitions = append(md.dep.Transitions, models.Transition{
		From: md.dep.State, To: state, At: now, Reason: reason,
	})
	md.dep.State = state
	md.dep.Outcome = outcome
	md.dep.CompletedAt = &now
	snapshot := md.dep.Clone()
	md.mu.Unlock()
	close(md.done)

	s.tracker.release(snapshot.EventID, snapshot.ID)
	metrics.ObserveDeployment(string(snapshot.Strategy), string(outcome), now.Sub(snapshot.StartedAt))
	s.logger.Info("deployment finished",
		slog.String("deployment_id", snapshot.ID),
		slog.String("state", string(state)),
		slog.String("reason", reason))

	if s.OnFinish != nil {
		s.OnFinish(snapshot)
	}
}

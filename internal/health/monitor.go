package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/collab"
	"github.com/miradorstack/mirador-remediate/internal/metrics"
	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Alarm names a health condition the monitor watches.
type Alarm string

const (
	AlarmHighMTTR          Alarm = "HighMTTR"
	AlarmFrequentRollbacks Alarm = "FrequentRollbacks"
	AlarmHighFailureRate   Alarm = "HighFailureRate"
)

// Options tunes the monitor's thresholds.
type Options struct {
	MTTRThreshold        time.Duration
	RollbackWindow       time.Duration
	RollbackThreshold    int
	FailureRateThreshold float64
	FailureSampleSize    int
	// HysteresisMargin widens the clear threshold below the raise threshold
	// so alarms do not flap. 0 clears as soon as the condition subsides.
	HysteresisMargin float64
	AutoClear        bool
}

func (o *Options) fillDefaults() {
	if o.MTTRThreshold <= 0 {
		o.MTTRThreshold = 600 * time.Second
	}
	if o.RollbackWindow <= 0 {
		o.RollbackWindow = 5 * time.Minute
	}
	if o.RollbackThreshold <= 0 {
		o.RollbackThreshold = 5
	}
	if o.FailureRateThreshold <= 0 {
		o.FailureRateThreshold = 0.20
	}
	if o.FailureSampleSize <= 0 {
		o.FailureSampleSize = 20
	}
	if o.HysteresisMargin < 0 || o.HysteresisMargin >= 1 {
		o.HysteresisMargin = 0
	}
}

// Monitor watches deployment outcomes through sliding windows and raises
// level-triggered alarms. An alarm fires once when its condition becomes
// true and will not fire again until it has cleared.
type Monitor struct {
	opts     Options
	notifier collab.Notifier
	logger   *slog.Logger

	rollbacks *rollbackWindow
	outcomes  *outcomeRing
	mttr      *mttrTracker

	// OnAlarm, when set, observes every raise (true) and clear (false).
	// The remediation service uses it to force-roll-back in-flight work
	// when system health collapses.
	OnAlarm func(alarm Alarm, raised bool, detail string)

	mu     sync.Mutex
	active map[Alarm]bool
}

// NewMonitor constructs a Monitor.
func NewMonitor(notifier collab.Notifier, logger *slog.Logger, opts Options) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = collab.NewLogNotifier(logger)
	}
	opts.fillDefaults()
	return &Monitor{
		opts:      opts,
		notifier:  notifier,
		logger:    logger,
		rollbacks: newRollbackWindow(opts.RollbackWindow),
		outcomes:  newOutcomeRing(opts.FailureSampleSize),
		mttr:      newMTTRTracker(0),
		active:    make(map[Alarm]bool),
	}
}

// RecordDeployment folds one finished deployment into the health windows and
// re-evaluates every alarm.
func (m *Monitor) RecordDeployment(dep models.Deployment) {
	failed := dep.Outcome != models.OutcomeSuccess
	rate, samples := m.outcomes.record(failed)

	if dep.Outcome == models.OutcomeRolledBack {
		at := time.Now()
		if dep.CompletedAt != nil {
			at = *dep.CompletedAt
		}
		count := m.rollbacks.record(at)
		m.evaluateRollbacks(count)
	} else if m.opts.AutoClear {
		m.evaluateRollbacks(m.rollbacks.countAt(time.Now()))
	}

	if dep.CompletedAt != nil {
		// Resolution time runs from the incident, not from deployment start.
		start := dep.IncidentAt
		if start.IsZero() {
			start = dep.StartedAt
		}
		duration := dep.CompletedAt.Sub(start)
		mean := m.mttr.record(duration)
		m.evaluateMTTR(duration, mean)
	}

	m.evaluateFailureRate(rate, samples)
}

// RecordRecovery registers an incident recovery duration independent of a
// deployment, for incidents resolved out of band.
func (m *Monitor) RecordRecovery(duration time.Duration) {
	mean := m.mttr.record(duration)
	m.evaluateMTTR(duration, mean)
}

// ActiveAlarms lists the alarms currently raised.
func (m *Monitor) ActiveAlarms() []Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alarm, 0, len(m.active))
	for alarm, raised := range m.active {
		if raised {
			out = append(out, alarm)
		}
	}
	return out
}

// MeanTimeToRecovery exposes the current MTTR estimate.
func (m *Monitor) MeanTimeToRecovery() time.Duration {
	return m.mttr.mean()
}

// FailureRate exposes the current failure rate over the outcome sample.
func (m *Monitor) FailureRate() (float64, int) {
	return m.outcomes.rate()
}

func (m *Monitor) evaluateMTTR(last, mean time.Duration) {
	threshold := m.opts.MTTRThreshold
	clearBelow := time.Duration(float64(threshold) * (1 - m.opts.HysteresisMargin))

	switch {
	case last > threshold || mean > threshold:
		m.raise(AlarmHighMTTR, fmt.Sprintf("recovery took %s (mean %s, threshold %s)", last, mean, threshold))
	case m.opts.AutoClear && mean < clearBelow:
		m.clear(AlarmHighMTTR, fmt.Sprintf("mean recovery %s back under %s", mean, clearBelow))
	}
}

func (m *Monitor) evaluateRollbacks(count int) {
	threshold := m.opts.RollbackThreshold
	clearBelow := int(float64(threshold) * (1 - m.opts.HysteresisMargin))

	switch {
	case count >= threshold:
		m.raise(AlarmFrequentRollbacks, fmt.Sprintf("%d rollbacks within %s", count, m.opts.RollbackWindow))
	case m.opts.AutoClear && count < clearBelow:
		m.clear(AlarmFrequentRollbacks, fmt.Sprintf("rollbacks down to %d within %s", count, m.opts.RollbackWindow))
	}
}

func (m *Monitor) evaluateFailureRate(rate float64, samples int) {
	// Too few samples would make the rate jumpy; wait for half the ring.
	if samples < m.opts.FailureSampleSize/2 {
		return
	}
	threshold := m.opts.FailureRateThreshold
	clearBelow := threshold * (1 - m.opts.HysteresisMargin)

	switch {
	case rate >= threshold:
		m.raise(AlarmHighFailureRate, fmt.Sprintf("failure rate %.0f%% over last %d deployments", rate*100, samples))
	case m.opts.AutoClear && rate < clearBelow:
		m.clear(AlarmHighFailureRate, fmt.Sprintf("failure rate %.0f%% back under %.0f%%", rate*100, clearBelow*100))
	}
}

func (m *Monitor) raise(alarm Alarm, detail string) {
	m.mu.Lock()
	if m.active[alarm] {
		m.mu.Unlock()
		return
	}
	m.active[alarm] = true
	m.mu.Unlock()

	metrics.AlarmRaised(string(alarm))
	m.logger.Warn("health alarm raised", slog.String("alarm", string(alarm)), slog.String("detail", detail))

	if err := m.notifier.Notify(context.Background(), collab.Notification{
		Title:    string(alarm),
		Body:     detail,
		Severity: "critical",
		Labels:   map[string]string{"alarm": string(alarm)},
	}); err != nil {
		m.logger.Warn("alarm notification failed", slog.Any("error", err))
	}

	if m.OnAlarm != nil {
		m.OnAlarm(alarm, true, detail)
	}
}

func (m *Monitor) clear(alarm Alarm, detail string) {
	m.mu.Lock()
	if !m.active[alarm] {
		m.mu.Unlock()
		return
	}
	m.active[alarm] = false
	m.mu.Unlock()

	metrics.AlarmCleared(string(alarm))
	m.logger.Info("health alarm cleared", slog.String("alarm", string(alarm)), slog.String("detail", detail))

	if err := m.notifier.Notify(context.Background(), collab.Notification{
		Title:    string(alarm) + " cleared",
		Body:     detail,
		Severity: "info",
		Labels:   map[string]string{"alarm": string(alarm)},
	}); err != nil {
		m.logger.Warn("alarm notification failed", slog.Any("error", err))
	}

	if m.OnAlarm != nil {
		m.OnAlarm(alarm, false, detail)
	}
}

package patterns

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Signature derives a stable fingerprint for an error event so recurring
// failures map to the same history bucket regardless of IDs and timestamps.
func Signature(event models.ErrorEvent) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(event.Source)))
	h.Write([]byte("|"))
	h.Write([]byte(normalizeMessage(event.Message)))
	h.Write([]byte("|"))
	h.Write([]byte(event.Context.FilePath))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func normalizeMessage(msg string) string {
	msg = strings.ToLower(strings.TrimSpace(msg))
	fields := strings.Fields(msg)
	kept := fields[:0]
	for _, f := range fields {
		if isVolatileToken(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isVolatileToken(f string) bool {
	digits := 0
	for _, r := range f {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > len(f)/2
}

// FixOutcome records one remediation attempt for a failure signature.
type FixOutcome struct {
	Signature  string
	ActionType models.ActionType
	Success    bool
	RecordedAt time.Time
}

// ActionStats aggregates outcomes for one action type under a signature.
type ActionStats struct {
	Attempts  int
	Successes int
}

// SuccessRate returns the fraction of successful attempts, 0 if none.
func (s ActionStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// History is an in-memory knowledge base of past fixes keyed by failure
// signature. It feeds the recurrence analyzer and lets the decision layer
// prefer action types that worked before.
type History struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	entries map[string]*historyEntry
	recency *RecencyCache
}

type historyEntry struct {
	firstSeen time.Time
	lastSeen  time.Time
	count     int
	byAction  map[models.ActionType]*ActionStats
}

// NewHistory constructs an empty knowledge base. recencyTTL bounds how long a
// signature counts as "recently seen" for recurrence scoring.
func NewHistory(logger *slog.Logger, recencyTTL time.Duration) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{
		logger:  logger,
		entries: make(map[string]*historyEntry),
		recency: NewRecencyCache(recencyTTL),
	}
}

// Observe registers that an event with the given signature occurred and
// returns how many times it has been seen including this occurrence.
func (h *History) Observe(signature string) int {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[signature]
	if !ok {
		entry = &historyEntry{firstSeen: now, byAction: make(map[models.ActionType]*ActionStats)}
		h.entries[signature] = entry
	}
	entry.count++
	entry.lastSeen = now
	h.recency.Touch(signature)
	return entry.count
}

// RecentlySeen reports whether the signature occurred within the recency TTL
// before the current observation window.
func (h *History) RecentlySeen(signature string) bool {
	return h.recency.Seen(signature)
}

// RecordOutcome folds a finished remediation back into the knowledge base.
func (h *History) RecordOutcome(outcome FixOutcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[outcome.Signature]
	if !ok {
		entry = &historyEntry{firstSeen: time.Now(), byAction: make(map[models.ActionType]*ActionStats)}
		h.entries[outcome.Signature] = entry
	}
	stats, ok := entry.byAction[outcome.ActionType]
	if !ok {
		stats = &ActionStats{}
		entry.byAction[outcome.ActionType] = stats
	}
	stats.Attempts++
	if outcome.Success {
		stats.Successes++
		// A fixed pattern is no longer hot: the next sighting scores as a
		// fresh occurrence, not a recurring one.
		h.recency.Forget(outcome.Signature)
	}
	h.logger.Debug("fix outcome recorded",
		slog.String("signature", outcome.Signature),
		slog.String("action", string(outcome.ActionType)),
		slog.Bool("success", outcome.Success))
}

// Occurrences returns how many times a signature has been observed.
func (h *History) Occurrences(signature string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if entry, ok := h.entries[signature]; ok {
		return entry.count
	}
	return 0
}

// BestAction returns the action type with the highest historical success rate
// for the signature, requiring at least minAttempts data points.
func (h *History) BestAction(signature string, minAttempts int) (models.ActionType, float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.entries[signature]
	if !ok {
		return "", 0, false
	}

	type candidate struct {
		action models.ActionType
		rate   float64
	}
	candidates := make([]candidate, 0, len(entry.byAction))
	for action, stats := range entry.byAction {
		if stats.Attempts < minAttempts {
			continue
		}
		candidates = append(candidates, candidate{action: action, rate: stats.SuccessRate()})
	}
	if len(candidates) == 0 {
		return "", 0, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].action < candidates[j].action
	})
	return candidates[0].action, candidates[0].rate, true
}

package store

import (
	"sort"
	"sync"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Store keeps analysed events, fix plans, and aggregated intelligence in
// memory. Persistence across restarts is out of scope; the audit stream is
// the durable narrative and is exported through the API.
type Store struct {
	mu     sync.RWMutex
	events map[string]models.ErrorEvent
	plans  map[string]models.FixPlan
	intel  map[string]models.AggregatedIntelligence // keyed by event ID
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		events: make(map[string]models.ErrorEvent),
		plans:  make(map[string]models.FixPlan),
		intel:  make(map[string]models.AggregatedIntelligence),
	}
}

// SaveAnalysis records one completed analysis.
func (s *Store) SaveAnalysis(event models.ErrorEvent, intel models.AggregatedIntelligence, plan models.FixPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	s.intel[event.ID] = intel
	s.plans[plan.ID] = plan
}

// Event returns a stored event by ID.
func (s *Store) Event(id string) (models.ErrorEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	return event, ok
}

// Plan returns a stored fix plan by ID.
func (s *Store) Plan(id string) (models.FixPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[id]
	return plan, ok
}

// Intelligence returns the aggregated intelligence for an event.
func (s *Store) Intelligence(eventID string) (models.AggregatedIntelligence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intel, ok := s.intel[eventID]
	return intel, ok
}

// AuditKind labels audit record types.
type AuditKind string

const (
	AuditAnalysis   AuditKind = "analysis"
	AuditDecision   AuditKind = "decision"
	AuditTransition AuditKind = "transition"
	AuditAlarm      AuditKind = "alarm"
)

// AuditRecord is one entry in the append-only audit stream.
type AuditRecord struct {
	Seq     uint64            `json:"seq"`
	Kind    AuditKind         `json:"kind"`
	At      time.Time         `json:"at"`
	EventID string            `json:"event_id,omitempty"`
	Subject string            `json:"subject"`
	Detail  string            `json:"detail"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// AuditStream is a bounded append-only ring of audit records. When full the
// oldest records fall off; Seq stays monotonic so readers can detect gaps.
type AuditStream struct {
	mu      sync.RWMutex
	records []AuditRecord
	nextSeq uint64
	limit   int
}

// NewAuditStream creates a stream bounded to limit records.
func NewAuditStream(limit int) *AuditStream {
	if limit <= 0 {
		limit = 4096
	}
	return &AuditStream{limit: limit, nextSeq: 1}
}

// Append adds one record, stamping sequence and time.
func (a *AuditStream) Append(kind AuditKind, eventID, subject, detail string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = append(a.records, AuditRecord{
		Seq:     a.nextSeq,
		Kind:    kind,
		At:      time.Now().UTC(),
		EventID: eventID,
		Subject: subject,
		Detail:  detail,
		Fields:  fields,
	})
	a.nextSeq++
	if len(a.records) > a.limit {
		a.records = a.records[len(a.records)-a.limit:]
	}
}

// Query returns records matching the filters, newest last. Zero values match
// everything; limit <= 0 means no cap.
func (a *AuditStream) Query(eventID string, kind AuditKind, since time.Time, limit int) []AuditRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]AuditRecord, 0)
	for _, rec := range a.records {
		if eventID != "" && rec.EventID != eventID {
			continue
		}
		if kind != "" && rec.Kind != kind {
			continue
		}
		if !since.IsZero() && rec.At.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of retained records.
func (a *AuditStream) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

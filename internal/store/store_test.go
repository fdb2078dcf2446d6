package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

func TestStoreSaveAndLookup(t *testing.T) {
	s := New()

	event := models.ErrorEvent{ID: "evt-1", Message: "boom"}
	intel := models.AggregatedIntelligence{EventID: "evt-1", OverallConfidence: 0.8}
	plan := models.FixPlan{ID: "plan-1", EventID: "evt-1"}
	s.SaveAnalysis(event, intel, plan)

	if got, ok := s.Event("evt-1"); !ok || got.Message != "boom" {
		t.Fatalf("event lookup failed: %+v %v", got, ok)
	}
	if got, ok := s.Plan("plan-1"); !ok || got.EventID != "evt-1" {
		t.Fatalf("plan lookup failed: %+v %v", got, ok)
	}
	if got, ok := s.Intelligence("evt-1"); !ok || got.OverallConfidence != 0.8 {
		t.Fatalf("intelligence lookup failed: %+v %v", got, ok)
	}
	if _, ok := s.Plan("missing"); ok {
		t.Fatal("missing plan should not resolve")
	}
}

func TestAuditStreamFilters(t *testing.T) {
	a := NewAuditStream(100)
	a.Append(AuditAnalysis, "evt-1", "analysis", "12 analyzers ran", nil)
	a.Append(AuditDecision, "evt-1", "plan-1", "security_fix chosen", nil)
	a.Append(AuditTransition, "evt-2", "dep-1", "pending -> validating", nil)

	all := a.Query("", "", time.Time{}, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].Seq >= all[1].Seq {
		t.Fatal("records must be ordered by sequence")
	}

	byEvent := a.Query("evt-1", "", time.Time{}, 0)
	if len(byEvent) != 2 {
		t.Fatalf("expected 2 records for evt-1, got %d", len(byEvent))
	}

	byKind := a.Query("", AuditTransition, time.Time{}, 0)
	if len(byKind) != 1 || byKind[0].Subject != "dep-1" {
		t.Fatalf("unexpected transition query result %+v", byKind)
	}

	limited := a.Query("", "", time.Time{}, 1)
	if len(limited) != 1 || limited[0].Kind != AuditTransition {
		t.Fatalf("limit should keep the newest record, got %+v", limited)
	}
}

func TestAuditStreamBounded(t *testing.T) {
	a := NewAuditStream(10)
	for i := 0; i < 25; i++ {
		a.Append(AuditAnalysis, "evt", "s", fmt.Sprintf("record %d", i), nil)
	}
	if a.Len() != 10 {
		t.Fatalf("expected ring bounded to 10, got %d", a.Len())
	}
	records := a.Query("", "", time.Time{}, 0)
	if records[0].Seq != 16 || records[len(records)-1].Seq != 25 {
		t.Fatalf("expected newest 10 records retained, got %d..%d", records[0].Seq, records[len(records)-1].Seq)
	}
}

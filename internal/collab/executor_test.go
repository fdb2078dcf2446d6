package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

func TestExecutorClientExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/execute" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["strategy"] != "canary" {
			t.Fatalf("unexpected strategy %v", payload["strategy"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"deployment_id": "dep-1",
			"applied":       true,
			"detail":        "canary at 25%",
		})
	}))
	defer server.Close()

	client := NewExecutorClient(server.URL, "/api/v1/execute", "/api/v1/rollback", "/api/v1/validate", time.Second)
	report, err := client.Execute(context.Background(), models.FixPlan{
		ID:       "plan-1",
		Strategy: models.StrategyCanary,
	}, 25)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !report.Applied || report.DeploymentID != "dep-1" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestExecutorClientRollbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewExecutorClient(server.URL, "/e", "/r", "/v", time.Second)
	if err := client.Rollback(context.Background(), "dep-1", nil); err == nil {
		t.Fatal("expected rollback error on 502")
	}
}

func TestExecutorClientUnconfigured(t *testing.T) {
	client := NewExecutorClient("", "/e", "/r", "/v", time.Second)
	if _, err := client.Execute(context.Background(), models.FixPlan{}, 0); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestHTTPNotifier(t *testing.T) {
	var got Notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, time.Second)
	err := n.Notify(context.Background(), Notification{Title: "HighMTTR", Severity: "warning"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.Title != "HighMTTR" {
		t.Fatalf("unexpected notification %+v", got)
	}
}

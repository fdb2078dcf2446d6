package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/execute", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req struct {
			PlanID         string `json:"plan_id"`
			TrafficPercent int    `json:"traffic_percent"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, map[string]any{
			"deployment_id": "mock-" + req.PlanID,
			"applied":       true,
			"detail":        "mock apply accepted",
		})
	})

	mux.HandleFunc("/api/v1/execute/probe", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"error_rate": rand.Float64() * 0.02,
			"latency_ms": 40 + rand.Float64()*60,
		})
	})

	mux.HandleFunc("/api/v1/rollback", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{"restored": true})
	})

	mux.HandleFunc("/api/v1/validate", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req struct {
			Suite string `json:"suite"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, map[string]any{
			"passed": true,
			"detail": req.Suite + " suite passed",
		})
	})

	mux.HandleFunc("/api/v1/notify", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var note map[string]any
		_ = json.NewDecoder(r.Body).Decode(&note)
		log.Printf("notification: %v", note)
		w.WriteHeader(http.StatusAccepted)
	})

	addr := ":9095"
	log.Printf("mock collaborator listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

package deploy

import (
	"fmt"
	"sync"
)

// ConflictPolicy decides what happens when a second deployment is requested
// for an event that already has one in flight.
type ConflictPolicy string

const (
	// ConflictReject refuses the new deployment.
	ConflictReject ConflictPolicy = "reject"
	// ConflictSupersede cancels the in-flight deployment and admits the new one.
	ConflictSupersede ConflictPolicy = "supersede"
)

// ErrDeploymentInFlight is returned when an event already has an active
// deployment and the policy rejects concurrents.
var ErrDeploymentInFlight = fmt.Errorf("deployment already in flight for event")

// tracker enforces the one-active-deployment-per-event rule.
type tracker struct {
	mu     sync.Mutex
	active map[string]string // event ID -> deployment ID
}

func newTracker() *tracker {
	return &tracker{active: make(map[string]string)}
}

// acquire registers deploymentID as the active deployment for eventID. When
// another deployment holds the slot it returns that deployment's ID and
// ErrDeploymentInFlight; the caller applies the conflict policy.
func (t *tracker) acquire(eventID, deploymentID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.active[eventID]; ok {
		return current, ErrDeploymentInFlight
	}
	t.active[eventID] = deploymentID
	return deploymentID, nil
}

// replace swaps the active deployment for an event, used on supersede.
func (t *tracker) replace(eventID, deploymentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[eventID] = deploymentID
}

// release frees the event slot if deploymentID still owns it.
func (t *tracker) release(eventID, deploymentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[eventID] == deploymentID {
		delete(t.active, eventID)
	}
}

package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// ExecutionReport summarises one fix execution step on the target system.
type ExecutionReport struct {
	DeploymentID string
	Applied      bool
	Detail       string
}

// ValidationReport carries the outcome of a pre-deployment validation suite.
type ValidationReport struct {
	Suite  string
	Passed bool
	Detail string
}

// HealthSample is one probe of the target system during monitoring.
type HealthSample struct {
	ErrorRate float64
	LatencyMS float64
	At        time.Time
}

// ExecutorClient talks to the deployment executor that actually applies,
// probes, and rolls back fixes on target systems.
type ExecutorClient struct {
	baseURL      string
	executePath  string
	rollbackPath string
	validatePath string
	httpClient   *http.Client
}

// NewExecutorClient constructs a client for the configured executor instance.
func NewExecutorClient(baseURL, executePath, rollbackPath, validatePath string, timeout time.Duration) *ExecutorClient {
	return &ExecutorClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		executePath:  executePath,
		rollbackPath: rollbackPath,
		validatePath: validatePath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Execute asks the executor to apply the fix plan with the given strategy
// parameters.
func (c *ExecutorClient) Execute(ctx context.Context, plan models.FixPlan, trafficPercent int) (ExecutionReport, error) {
	if c == nil || c.baseURL == "" {
		return ExecutionReport{}, fmt.Errorf("executor client not configured")
	}

	payload := map[string]any{
		"plan_id":         plan.ID,
		"event_id":        plan.EventID,
		"action_type":     string(plan.ActionType),
		"strategy":        string(plan.Strategy),
		"traffic_percent": trafficPercent,
		"targets":         plan.Targets,
	}

	var response struct {
		DeploymentID string `json:"deployment_id"`
		Applied      bool   `json:"applied"`
		Detail       string `json:"detail"`
	}
	if err := c.postJSON(ctx, c.baseURL+c.executePath, payload, &response); err != nil {
		return ExecutionReport{}, fmt.Errorf("execute request failed: %w", err)
	}
	return ExecutionReport{
		DeploymentID: response.DeploymentID,
		Applied:      response.Applied,
		Detail:       response.Detail,
	}, nil
}

// Rollback asks the executor to restore the last known-good state for the
// deployment's targets.
func (c *ExecutorClient) Rollback(ctx context.Context, deploymentID string, targets []string) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("executor client not configured")
	}

	payload := map[string]any{
		"deployment_id": deploymentID,
		"targets":       targets,
	}
	if err := c.postJSON(ctx, c.baseURL+c.rollbackPath, payload, nil); err != nil {
		return fmt.Errorf("rollback request failed: %w", err)
	}
	return nil
}

// Validate runs one named validation suite against the staged fix.
func (c *ExecutorClient) Validate(ctx context.Context, plan models.FixPlan, suite string) (ValidationReport, error) {
	if c == nil || c.baseURL == "" {
		return ValidationReport{}, fmt.Errorf("executor client not configured")
	}

	payload := map[string]any{
		"plan_id":     plan.ID,
		"action_type": string(plan.ActionType),
		"suite":       suite,
	}

	var response struct {
		Passed bool   `json:"passed"`
		Detail string `json:"detail"`
	}
	if err := c.postJSON(ctx, c.baseURL+c.validatePath, payload, &response); err != nil {
		return ValidationReport{}, fmt.Errorf("validate request failed: %w", err)
	}
	return ValidationReport{Suite: suite, Passed: response.Passed, Detail: response.Detail}, nil
}

// Probe samples the health of a running deployment.
func (c *ExecutorClient) Probe(ctx context.Context, deploymentID string) (HealthSample, error) {
	if c == nil || c.baseURL == "" {
		return HealthSample{}, fmt.Errorf("executor client not configured")
	}

	payload := map[string]any{"deployment_id": deploymentID}

	var response struct {
		ErrorRate float64 `json:"error_rate"`
		LatencyMS float64 `json:"latency_ms"`
	}
	if err := c.postJSON(ctx, c.baseURL+c.executePath+"/probe", payload, &response); err != nil {
		return HealthSample{}, fmt.Errorf("probe request failed: %w", err)
	}
	return HealthSample{ErrorRate: response.ErrorRate, LatencyMS: response.LatencyMS, At: time.Now()}, nil
}

func (c *ExecutorClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("executor returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/mirador-remediate/internal/models"
	"github.com/miradorstack/mirador-remediate/internal/service"
	"github.com/miradorstack/mirador-remediate/internal/store"
	"github.com/miradorstack/mirador-remediate/internal/utils"
)

// Handlers binds the remediation service to HTTP routes.
type Handlers struct {
	svc    *service.RemediationService
	logger *slog.Logger
}

// NewHandlers constructs the handler set.
func NewHandlers(svc *service.RemediationService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// analyzeRequest is the inbound error event payload.
type analyzeRequest struct {
	ErrorID   string            `json:"error_id"`
	Source    string            `json:"source"`
	Message   string            `json:"message" binding:"required"`
	Severity  string            `json:"severity"`
	Timestamp string            `json:"timestamp"`
	Context   analyzeContext    `json:"context"`
	Metadata  map[string]string `json:"metadata"`
}

type analyzeContext struct {
	Environment string `json:"environment"`
	FilePath    string `json:"file_path"`
	StackTrace  string `json:"stack_trace"`
}

type intelligenceDTO struct {
	EventID         string             `json:"event_id"`
	Dimensions      map[string]float64 `json:"dimensions"`
	Confidence      float64            `json:"confidence"`
	Contributing    int                `json:"contributing"`
	Registered      int                `json:"registered"`
	FailedAnalyzers []string           `json:"failed_analyzers,omitempty"`
}

type planDTO struct {
	ID              string   `json:"id"`
	EventID         string   `json:"event_id"`
	ActionType      string   `json:"action_type"`
	Strategy        string   `json:"strategy"`
	TrafficPercent  int      `json:"traffic_percent"`
	RiskLevel       string   `json:"risk_level"`
	EstimateMinutes [2]int   `json:"estimate_minutes"`
	PriorityActions []string `json:"priority_actions,omitempty"`
	Targets         []string `json:"targets,omitempty"`
	AutoApprove     bool     `json:"auto_approve"`
	RuleID          string   `json:"rule_id"`
	Confidence      float64  `json:"confidence"`
	CreatedAt       string   `json:"created_at"`
}

type transitionDTO struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	At     string `json:"at"`
	Reason string `json:"reason"`
}

type deploymentDTO struct {
	ID          string          `json:"id"`
	PlanID      string          `json:"plan_id"`
	EventID     string          `json:"event_id"`
	Strategy    string          `json:"strategy"`
	State       string          `json:"state"`
	Outcome     string          `json:"outcome,omitempty"`
	StartedAt   string          `json:"started_at"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Transitions []transitionDTO `json:"transitions"`
}

func toIntelligenceDTO(intel models.AggregatedIntelligence) intelligenceDTO {
	dims := make(map[string]float64, len(intel.Dimensions))
	for dim, value := range intel.Dimensions {
		dims[string(dim)] = value
	}
	return intelligenceDTO{
		EventID:         intel.EventID,
		Dimensions:      dims,
		Confidence:      intel.OverallConfidence,
		Contributing:    intel.Contributing,
		Registered:      intel.Registered,
		FailedAnalyzers: intel.FailedAnalyzers,
	}
}

func toPlanDTO(plan models.FixPlan) planDTO {
	return planDTO{
		ID:              plan.ID,
		EventID:         plan.EventID,
		ActionType:      string(plan.ActionType),
		Strategy:        string(plan.Strategy),
		TrafficPercent:  plan.TrafficPercent,
		RiskLevel:       string(plan.RiskLevel),
		EstimateMinutes: [2]int{int(plan.EstimateMin.Minutes()), int(plan.EstimateMax.Minutes())},
		PriorityActions: plan.PriorityActions,
		Targets:         plan.Targets,
		AutoApprove:     plan.AutoApprove,
		RuleID:          plan.RuleID,
		Confidence:      plan.Confidence,
		CreatedAt:       plan.CreatedAt.Format(time.RFC3339),
	}
}

func toDeploymentDTO(dep models.Deployment) deploymentDTO {
	dto := deploymentDTO{
		ID:        dep.ID,
		PlanID:    dep.PlanID,
		EventID:   dep.EventID,
		Strategy:  string(dep.Strategy),
		State:     string(dep.State),
		Outcome:   string(dep.Outcome),
		StartedAt: dep.StartedAt.Format(time.RFC3339),
	}
	if dep.CompletedAt != nil {
		dto.CompletedAt = dep.CompletedAt.Format(time.RFC3339)
	}
	dto.Transitions = make([]transitionDTO, 0, len(dep.Transitions))
	for _, tr := range dep.Transitions {
		dto.Transitions = append(dto.Transitions, transitionDTO{
			From:   string(tr.From),
			To:     string(tr.To),
			At:     tr.At.Format(time.RFC3339),
			Reason: tr.Reason,
		})
	}
	return dto
}

// Analyze handles POST /api/v1/remediate/analyze.
func (h *Handlers) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	event := models.ErrorEvent{
		ID:       req.ErrorID,
		Source:   req.Source,
		Message:  req.Message,
		Severity: models.Severity(req.Severity),
		Context: models.EventContext{
			Environment: models.Environment(req.Context.Environment),
			FilePath:    req.Context.FilePath,
			StackTrace:  req.Context.StackTrace,
		},
		Metadata: req.Metadata,
	}
	if req.Timestamp != "" {
		ts, err := utils.ParseRFC3339(req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp must be RFC3339"})
			return
		}
		event.Timestamp = ts
	}

	outcome, err := h.svc.AnalyzeError(c.Request.Context(), event)
	if err != nil {
		h.logger.Error("analysis failed",
			slog.String("op", utils.OpOf(err)),
			slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"event_id":     outcome.Event.ID,
		"intelligence": toIntelligenceDTO(outcome.Intelligence),
		"plan":         toPlanDTO(outcome.Plan),
	}
	if outcome.Deployment != nil {
		resp["deployment"] = toDeploymentDTO(*outcome.Deployment)
	}
	c.JSON(http.StatusOK, resp)
}

// GetPlan handles GET /api/v1/remediate/plans/:id.
func (h *Handlers) GetPlan(c *gin.Context) {
	plan, ok := h.svc.Plan(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	c.JSON(http.StatusOK, toPlanDTO(plan))
}

// DeployPlan handles POST /api/v1/remediate/plans/:id/deploy.
func (h *Handlers) DeployPlan(c *gin.Context) {
	dep, err := h.svc.Deploy(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, toDeploymentDTO(dep))
}

// ListDeployments handles GET /api/v1/remediate/deployments.
func (h *Handlers) ListDeployments(c *gin.Context) {
	deployments := h.svc.Deployments()
	out := make([]deploymentDTO, 0, len(deployments))
	for _, dep := range deployments {
		out = append(out, toDeploymentDTO(dep))
	}
	c.JSON(http.StatusOK, gin.H{"deployments": out})
}

// GetDeployment handles GET /api/v1/remediate/deployments/:id.
func (h *Handlers) GetDeployment(c *gin.Context) {
	dep, ok := h.svc.Deployment(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "deployment not found"})
		return
	}
	c.JSON(http.StatusOK, toDeploymentDTO(dep))
}

// CancelDeployment handles POST /api/v1/remediate/deployments/:id/cancel.
func (h *Handlers) CancelDeployment(c *gin.Context) {
	if err := h.svc.CancelDeployment(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

// Health handles GET /api/v1/remediate/health.
func (h *Handlers) Health(c *gin.Context) {
	snap := h.svc.Health()
	alarms := make([]string, 0, len(snap.ActiveAlarms))
	for _, alarm := range snap.ActiveAlarms {
		alarms = append(alarms, string(alarm))
	}
	c.JSON(http.StatusOK, gin.H{
		"active_alarms": alarms,
		"mttr_seconds":  snap.MTTR.Seconds(),
		"failure_rate":  snap.FailureRate,
		"sample_count":  snap.SampleCount,
	})
}

// Audit handles GET /api/v1/remediate/audit.
func (h *Handlers) Audit(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := utils.ParseRFC3339(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = parsed
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	records := h.svc.Audit(
		c.Query("event_id"),
		store.AuditKind(c.Query("kind")),
		since,
		limit,
	)
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Healthz handles GET /healthz for liveness probes.
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cortex/internal/ai/provider"
	"cortex/internal/ai/router"
	"cortex/internal/ai/shape"
	sessionmodels "cortex/internal/session/models"
	"cortex/internal/transport/http/httperror"
	jsonResponse "cortex/internal/transport/http/json"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
	s "cortex/pkg/string"
	"cortex/pkg/validation"
)

// Service defines the task execution operation exposed over HTTP.
type Service interface {
	Execute(ctx context.Context, req router.ExecuteRequest) (*router.ExecuteResult, error)
}

// SessionResolver yields the acting session for tenant attribution.
type SessionResolver interface {
	Resolve(ctx context.Context) (*sessionmodels.Session, error)
}

// Handler exposes the AI task execution endpoint.
type Handler struct {
	routerSvc Service
	sessions  SessionResolver
	logger    *slog.Logger
}

func New(routerSvc Service, sessions SessionResolver, logger *slog.Logger) *Handler {
	return &Handler{routerSvc: routerSvc, sessions: sessions, logger: logger}
}

// Register registers the AI routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ai/execute", h.HandleExecute)
}

type executeRequest struct {
	ModuleID     string      `json:"moduleId,omitempty"`
	TaskType     string      `json:"taskType" validate:"required,notblank"`
	SystemPrompt string      `json:"systemPrompt" validate:"required,notblank"`
	UserPrompt   string      `json:"userPrompt" validate:"required,notblank"`
	OutputShape  outputShape `json:"outputShape"`
	Model        string      `json:"model,omitempty"`
	Provider     string      `json:"provider,omitempty" validate:"omitempty,oneof=anthropic openai deepseek"`
}

type outputShape struct {
	Fields []shapeField `json:"fields"`
}

type shapeField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type usagePayload struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	Estimated        bool `json:"estimated"`
}

// HandleExecute implements POST /api/ai/execute.
//
// Input: { "moduleId": "agency", "taskType": "agency.scope", "systemPrompt": "...", "userPrompt": "...", "outputShape": { "fields": [...] } }
// Output: { "success": true, "data": {...}, "usage": {...} } or the error envelope.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode execute request", "error", err)
		httperror.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}

	s.TrimStrings(&req.ModuleID, &req.TaskType, &req.Model, &req.Provider)
	if err := validation.Validate(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid execute request", "error", err)
		httperror.WriteError(w, err)
		return
	}

	sess, err := h.sessions.Resolve(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve session", "error", err)
		httperror.WriteError(w, err)
		return
	}
	if sess == nil {
		httperror.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if !sess.HasTenant() {
		httperror.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "an active tenant is required"))
		return
	}

	taskType, err := id.ParseTaskType(req.TaskType)
	if err != nil {
		httperror.WriteError(w, err)
		return
	}

	exec := router.ExecuteRequest{
		TenantID:     *sess.TenantID,
		TaskType:     taskType,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		OutputShape:  toShape(req.OutputShape),
		Model:        req.Model,
		Provider:     provider.Kind(req.Provider),
	}
	if req.ModuleID != "" {
		exec.ModuleID = id.ModuleID(req.ModuleID)
	}

	res, err := h.routerSvc.Execute(ctx, exec)
	if err != nil {
		h.logger.WarnContext(ctx, "task execution failed",
			"error", err,
			"task_type", taskType,
			"tenant_id", sess.TenantID,
		)
		httperror.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res.Data,
		"usage": usagePayload{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
			Estimated:        res.Usage.Estimated,
		},
		"model":      res.Model,
		"provider":   string(res.Provider),
		"units":      res.Units,
		"durationMs": res.Duration.Milliseconds(),
	})
}

func toShape(in outputShape) shape.Shape {
	out := shape.Shape{Fields: make([]shape.Field, 0, len(in.Fields))}
	for _, f := range in.Fields {
		out.Fields = append(out.Fields, shape.Field{
			Name:     f.Name,
			Type:     shape.FieldType(f.Type),
			Required: f.Required,
		})
	}
	return out
}

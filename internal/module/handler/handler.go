package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cortex/internal/module/models"
	sessionmodels "cortex/internal/session/models"
	"cortex/internal/transport/http/httperror"
	jsonResponse "cortex/internal/transport/http/json"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
	s "cortex/pkg/string"
	"cortex/pkg/validation"
)

// Service defines the module gate operations exposed over HTTP.
type Service interface {
	Install(ctx context.Context, moduleID id.ModuleID, settings json.RawMessage) (*models.Installation, error)
	Uninstall(ctx context.Context, moduleID id.ModuleID, hardDelete bool) error
	IsModuleEnabled(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) bool
}

// SessionResolver yields the acting session for the enabled-check endpoint.
type SessionResolver interface {
	Resolve(ctx context.Context) (*sessionmodels.Session, error)
}

// Handler exposes module install, uninstall and entitlement endpoints.
type Handler struct {
	modules  Service
	sessions SessionResolver
	logger   *slog.Logger
}

func New(modules Service, sessions SessionResolver, logger *slog.Logger) *Handler {
	return &Handler{modules: modules, sessions: sessions, logger: logger}
}

// Register registers the module routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/modules/install", h.HandleInstall)
	r.Post("/modules/uninstall", h.HandleUninstall)
	r.Get("/modules/{module_id}/enabled", h.HandleEnabled)
}

// HandleInstall implements POST /modules/install.
//
// Input: { "moduleId": "agency", "settings": {...} }
// Output: { "success": true, "id": "...", "moduleId": "agency" }
func (h *Handler) HandleInstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		ModuleID string          `json:"moduleId" validate:"required,notblank"`
		Settings json.RawMessage `json:"settings,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode install request", "error", err)
		httperror.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}

	s.TrimStrings(&req.ModuleID)
	if err := validation.Validate(&req); err != nil {
		httperror.WriteError(w, err)
		return
	}

	moduleID, err := id.ParseModuleID(req.ModuleID)
	if err != nil {
		httperror.WriteError(w, err)
		return
	}

	inst, err := h.modules.Install(ctx, moduleID, req.Settings)
	if err != nil {
		h.logger.WarnContext(ctx, "module install failed",
			"error", err,
			"module_id", moduleID,
		)
		httperror.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"id":       inst.ID.String(),
		"moduleId": inst.ModuleID.String(),
	})
}

// HandleUninstall implements POST /modules/uninstall.
//
// Input: { "moduleId": "agency", "hardDelete": false }
// Output: { "success": true, "moduleId": "agency", "hardDeleted": false }
func (h *Handler) HandleUninstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		ModuleID   string `json:"moduleId" validate:"required,notblank"`
		HardDelete bool   `json:"hardDelete,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode uninstall request", "error", err)
		httperror.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return
	}

	s.TrimStrings(&req.ModuleID)
	if err := validation.Validate(&req); err != nil {
		httperror.WriteError(w, err)
		return
	}

	moduleID, err := id.ParseModuleID(req.ModuleID)
	if err != nil {
		httperror.WriteError(w, err)
		return
	}

	if err := h.modules.Uninstall(ctx, moduleID, req.HardDelete); err != nil {
		h.logger.WarnContext(ctx, "module uninstall failed",
			"error", err,
			"module_id", moduleID,
			"hard_delete", req.HardDelete,
		)
		httperror.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"moduleId":    moduleID.String(),
		"hardDeleted": req.HardDelete,
	})
}

// HandleEnabled implements GET /modules/{module_id}/enabled for the caller's
// active tenant. Without a tenant the answer is always false.
func (h *Handler) HandleEnabled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	moduleID, err := id.ParseModuleID(chi.URLParam(r, "module_id"))
	if err != nil {
		httperror.WriteError(w, err)
		return
	}

	sess, err := h.sessions.Resolve(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve session", "error", err)
		httperror.WriteError(w, err)
		return
	}

	enabled := false
	if sess != nil && sess.HasTenant() {
		enabled = h.modules.IsModuleEnabled(ctx, *sess.TenantID, moduleID)
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"moduleId": moduleID.String(),
		"enabled":  enabled,
	})
}

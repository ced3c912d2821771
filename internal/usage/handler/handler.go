package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	sessionmodels "cortex/internal/session/models"
	"cortex/internal/transport/http/httperror"
	jsonResponse "cortex/internal/transport/http/json"
	"cortex/internal/usage/models"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

// Service defines the ledger read operations exposed over HTTP.
type Service interface {
	ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]models.Event, error)
	SumUnits(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID, since time.Time) (int64, error)
}

// SessionResolver yields the acting session for tenant scoping.
type SessionResolver interface {
	Resolve(ctx context.Context) (*sessionmodels.Session, error)
}

// Handler exposes read-only usage reporting endpoints. Writes happen only
// through the router's execution path.
type Handler struct {
	usage    Service
	sessions SessionResolver
	logger   *slog.Logger
}

func New(usage Service, sessions SessionResolver, logger *slog.Logger) *Handler {
	return &Handler{usage: usage, sessions: sessions, logger: logger}
}

// Register registers the usage routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/usage/events", h.HandleListEvents)
	r.Get("/usage/summary", h.HandleSummary)
}

// HandleListEvents implements GET /usage/events?limit=N for the caller's
// active tenant.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.activeTenant(ctx, w)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httperror.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	events, err := h.usage.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list usage events",
			"error", err,
			"tenant_id", tenantID,
		)
		httperror.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
	})
}

// HandleSummary implements GET /usage/summary?moduleId=...&since=RFC3339.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := h.activeTenant(ctx, w)
	if !ok {
		return
	}

	moduleID, err := id.ParseModuleID(r.URL.Query().Get("moduleId"))
	if err != nil {
		httperror.WriteError(w, err)
		return
	}

	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			httperror.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "since must be RFC3339"))
			return
		}
	}

	total, err := h.usage.SumUnits(ctx, tenantID, moduleID, since)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to summarize usage",
			"error", err,
			"tenant_id", tenantID,
			"module_id", moduleID,
		)
		httperror.WriteError(w, err)
		return
	}

	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{
		"moduleId":   moduleID.String(),
		"totalUnits": total,
	})
}

func (h *Handler) activeTenant(ctx context.Context, w http.ResponseWriter) (id.TenantID, bool) {
	sess, err := h.sessions.Resolve(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve session", "error", err)
		httperror.WriteError(w, err)
		return id.TenantID{}, false
	}
	if sess == nil {
		httperror.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.TenantID{}, false
	}
	if !sess.HasTenant() {
		httperror.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "an active tenant is required"))
		return id.TenantID{}, false
	}
	return *sess.TenantID, true
}

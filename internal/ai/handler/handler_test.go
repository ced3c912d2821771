package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/ai/provider"
	"cortex/internal/ai/router"
	"cortex/internal/ai/shape"
	sessionmodels "cortex/internal/session/models"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

type fakeRouter struct {
	executeFn func(ctx context.Context, req router.ExecuteRequest) (*router.ExecuteResult, error)
}

func (f *fakeRouter) Execute(ctx context.Context, req router.ExecuteRequest) (*router.ExecuteResult, error) {
	return f.executeFn(ctx, req)
}

type fakeResolver struct {
	session *sessionmodels.Session
}

func (f *fakeResolver) Resolve(context.Context) (*sessionmodels.Session, error) {
	return f.session, nil
}

func tenantSession(tenantID id.TenantID) *sessionmodels.Session {
	return &sessionmodels.Session{
		UserID:   id.UserID(uuid.New()),
		TenantID: &tenantID,
		Role:     sessionmodels.RoleMember,
	}
}

func newRouter(svc *fakeRouter, resolver *fakeResolver) chi.Router {
	h := New(svc, resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

const executeBody = `{
	"moduleId": "agency",
	"taskType": "agency.scope",
	"systemPrompt": "You scope agency projects.",
	"userPrompt": "Scope a website redesign.",
	"outputShape": {
		"fields": [
			{"name": "summary", "type": "string", "required": true},
			{"name": "estimated_hours", "type": "number", "required": true}
		]
	}
}`

func TestHandleExecuteSuccess(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	svc := &fakeRouter{
		executeFn: func(_ context.Context, req router.ExecuteRequest) (*router.ExecuteResult, error) {
			assert.Equal(t, tenantID, req.TenantID)
			assert.Equal(t, id.TaskType("agency.scope"), req.TaskType)
			assert.Equal(t, id.ModuleID("agency"), req.ModuleID)
			require.Len(t, req.OutputShape.Fields, 2)
			assert.Equal(t, shape.TypeNumber, req.OutputShape.Fields[1].Type)
			return &router.ExecuteResult{
				Data:     map[string]any{"summary": "redesign", "estimated_hours": 120.0},
				Usage:    provider.Usage{PromptTokens: 40, CompletionTokens: 60, TotalTokens: 100},
				Model:    "claude-3-5-sonnet-20241022",
				Provider: provider.KindAnthropic,
				Duration: 750 * time.Millisecond,
				Units:    50,
			}, nil
		},
	}
	r := newRouter(svc, &fakeResolver{session: tenantSession(tenantID)})

	req := httptest.NewRequest(http.MethodPost, "/ai/execute", bytes.NewBufferString(executeBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "redesign", resp["data"].(map[string]any)["summary"])
	usage := resp["usage"].(map[string]any)
	assert.Equal(t, float64(100), usage["totalTokens"])
	assert.Equal(t, float64(50), resp["units"])
}

func TestHandleExecuteModuleNotEnabled(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	svc := &fakeRouter{
		executeFn: func(context.Context, router.ExecuteRequest) (*router.ExecuteResult, error) {
			return nil, dErrors.New(dErrors.CodeModuleNotEnabled, "module is not enabled for this workspace")
		},
	}
	r := newRouter(svc, &fakeResolver{session: tenantSession(tenantID)})

	req := httptest.NewRequest(http.MethodPost, "/ai/execute", bytes.NewBufferString(executeBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "module_not_enabled", resp["code"])
}

func TestHandleExecuteUnauthenticated(t *testing.T) {
	r := newRouter(&fakeRouter{}, &fakeResolver{})

	req := httptest.NewRequest(http.MethodPost, "/ai/execute", bytes.NewBufferString(executeBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleExecutePersonalModeRejected(t *testing.T) {
	personal := &sessionmodels.Session{UserID: id.UserID(uuid.New()), Role: sessionmodels.RoleOwner}
	r := newRouter(&fakeRouter{}, &fakeResolver{session: personal})

	req := httptest.NewRequest(http.MethodPost, "/ai/execute", bytes.NewBufferString(executeBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleExecuteBadJSON(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	r := newRouter(&fakeRouter{}, &fakeResolver{session: tenantSession(tenantID)})

	req := httptest.NewRequest(http.MethodPost, "/ai/execute", bytes.NewBufferString(`{`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExecuteMissingTaskType(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	r := newRouter(&fakeRouter{}, &fakeResolver{session: tenantSession(tenantID)})

	req := httptest.NewRequest(http.MethodPost, "/ai/execute", bytes.NewBufferString(`{"systemPrompt":"a","userPrompt":"b"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

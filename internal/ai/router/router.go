// Package router dispatches validated AI tasks to provider backends behind
// the module access gate and meters every successful execution exactly once.
package router

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cortex/internal/ai/provider"
	routermetrics "cortex/internal/ai/router/metrics"
	"cortex/internal/ai/shape"
	usagemodels "cortex/internal/usage/models"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

// AccessChecker answers whether a module is enabled for a tenant.
type AccessChecker interface {
	IsModuleEnabled(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) bool
}

// UsageRecorder appends one metered event per successful execution.
type UsageRecorder interface {
	Record(ctx context.Context, event usagemodels.Event) error
}

// Generator executes a single validated AI call.
type Generator interface {
	Kind() provider.Kind
	Generate(ctx context.Context, req provider.Request) (*provider.Result, error)
}

// ExecuteRequest is one routed task execution on behalf of a tenant.
type ExecuteRequest struct {
	TenantID id.TenantID
	ModuleID id.ModuleID
	TaskType id.TaskType

	SystemPrompt string
	UserPrompt   string
	OutputShape  shape.Shape

	// Model and Provider override the catalog defaults when set.
	Model    string
	Provider provider.Kind
}

// ExecuteResult is a validated generation plus its metering summary.
type ExecuteResult struct {
	Data     map[string]any
	Usage    provider.Usage
	Model    string
	Provider provider.Kind
	Duration time.Duration
	Units    int
}

const defaultMaxPromptBytes = 32 << 10

// Service routes task executions. It owns the order of enforcement: input
// validation, catalog lookup, access gate, provider call, then metering.
type Service struct {
	catalog        *Catalog
	gate           AccessChecker
	ledger         UsageRecorder
	generators     map[provider.Kind]Generator
	logger         *slog.Logger
	metrics        *routermetrics.Metrics
	tracer         trace.Tracer
	maxPromptBytes int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *routermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithMaxPromptBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPromptBytes = n
		}
	}
}

func New(catalog *Catalog, gate AccessChecker, ledger UsageRecorder, generators []Generator, opts ...Option) *Service {
	byKind := make(map[provider.Kind]Generator, len(generators))
	for _, g := range generators {
		byKind[g.Kind()] = g
	}
	s := &Service{
		catalog:        catalog,
		gate:           gate,
		ledger:         ledger,
		generators:     byKind,
		tracer:         otel.Tracer("cortex/router"),
		maxPromptBytes: defaultMaxPromptBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs one task end to end. A successful return means the generated
// value passed shape validation AND its usage event was durably recorded; a
// generation whose metering fails is discarded rather than given away.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "router.Execute", trace.WithAttributes(
		attribute.String("task.type", req.TaskType.String()),
		attribute.String("tenant.id", req.TenantID.String()),
	))
	defer span.End()

	spec, err := s.admit(ctx, &req)
	if err != nil {
		s.finish(span, req, spec, start, err)
		return nil, err
	}

	gen, ok := s.generators[s.kindFor(req, spec)]
	if !ok {
		err := dErrors.New(dErrors.CodeInternal, "provider is not available")
		s.finish(span, req, spec, start, err)
		return nil, err
	}

	model := spec.Model
	if req.Model != "" {
		model = req.Model
	}

	result, err := gen.Generate(ctx, provider.Request{
		System:    req.SystemPrompt,
		User:      req.UserPrompt,
		Shape:     req.OutputShape,
		Model:     model,
		MaxTokens: spec.MaxTokens,
	})
	if err != nil {
		s.finish(span, req, spec, start, err)
		return nil, err
	}

	event := usagemodels.Event{
		TenantID:         req.TenantID,
		ModuleID:         spec.Module,
		Action:           spec.Action,
		Units:            spec.UnitCost,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		DurationMS:       result.Duration.Milliseconds(),
	}
	if err := s.ledger.Record(ctx, event); err != nil {
		// The generated value is intentionally dropped: an unmetered
		// giveaway is worse than a retried task.
		s.logLedgerFailure(ctx, req, spec, err)
		werr := dErrors.Wrap(err, dErrors.CodeUsageRecordFailed, "task completed but usage could not be recorded")
		s.finish(span, req, spec, start, werr)
		return nil, werr
	}

	s.logExecution(ctx, req, spec, result)
	s.finish(span, req, spec, start, nil)

	return &ExecuteResult{
		Data:     result.Data,
		Usage:    result.Usage,
		Model:    result.Model,
		Provider: gen.Kind(),
		Duration: result.Duration,
		Units:    spec.UnitCost,
	}, nil
}

// admit performs everything that must pass before a provider is contacted.
func (s *Service) admit(ctx context.Context, req *ExecuteRequest) (TaskSpec, error) {
	if req.TenantID.IsNil() {
		return TaskSpec{}, dErrors.New(dErrors.CodeUnauthorized, "an active tenant is required")
	}
	if req.TaskType.IsNil() {
		return TaskSpec{}, dErrors.New(dErrors.CodeInvalidTaskType, "task type required")
	}
	if len(req.SystemPrompt)+len(req.UserPrompt) > s.maxPromptBytes {
		return TaskSpec{}, dErrors.New(dErrors.CodePromptTooLong, "combined prompt exceeds the size limit")
	}

	spec, err := s.catalog.Lookup(req.TaskType)
	if err != nil {
		return TaskSpec{}, err
	}
	if req.ModuleID.IsNil() {
		req.ModuleID = spec.Module
	}
	if req.ModuleID != spec.Module {
		return TaskSpec{}, dErrors.New(dErrors.CodeInvalidTaskType, "task type does not belong to the requested module")
	}

	if !s.gate.IsModuleEnabled(ctx, req.TenantID, spec.Module) {
		if s.metrics != nil {
			s.metrics.GateDenied(spec.Module.String())
		}
		return TaskSpec{}, dErrors.New(dErrors.CodeModuleNotEnabled, "module is not enabled for this workspace")
	}
	return spec, nil
}

func (s *Service) kindFor(req ExecuteRequest, spec TaskSpec) provider.Kind {
	if req.Provider != "" {
		return req.Provider
	}
	return spec.Provider
}

func (s *Service) finish(span trace.Span, req ExecuteRequest, spec TaskSpec, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	if s.metrics != nil {
		s.metrics.Execution(req.TaskType.String(), string(s.kindFor(req, spec)), status, time.Since(start))
	}
}

func (s *Service) logExecution(ctx context.Context, req ExecuteRequest, spec TaskSpec, result *provider.Result) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "task executed",
		"task_type", req.TaskType,
		"tenant_id", req.TenantID,
		"module_id", spec.Module,
		"action", spec.Action,
		"units", spec.UnitCost,
		"total_tokens", result.Usage.TotalTokens,
		"estimated_tokens", result.Usage.Estimated,
		"attempts", result.Attempts,
		"duration_ms", result.Duration.Milliseconds(),
	)
}

func (s *Service) logLedgerFailure(ctx context.Context, req ExecuteRequest, spec TaskSpec, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, "usage record failed, discarding generated value",
		"task_type", req.TaskType,
		"tenant_id", req.TenantID,
		"action", spec.Action,
		"error", err,
	)
}

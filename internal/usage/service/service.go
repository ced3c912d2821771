// Package service implements the usage ledger, the single sanctioned write
// path for billing-relevant events.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	usagemetrics "cortex/internal/usage/metrics"
	"cortex/internal/usage/models"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

// Store persists usage events. Append must never mutate existing rows.
type Store interface {
	Append(ctx context.Context, event *models.Event) error
	ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]models.Event, error)
	SumUnits(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID, since time.Time) (int64, error)
}

// Publisher fans recorded events out to downstream consumers (reporting,
// billing pipelines). Publishing is best-effort and never fails the write.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Service is the usage ledger. Callers must invoke Record at most once per
// successful task execution; the ledger performs no deduplication.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *usagemetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *usagemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record validates and appends one usage event. A persistence failure
// surfaces as usage_record_failed so the router can decide how to propagate.
func (s *Service) Record(ctx context.Context, event models.Event) error {
	if event.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant ID required")
	}
	if event.ModuleID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "module ID required")
	}
	if event.Action.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "action key required")
	}
	if event.Units < 0 {
		return dErrors.New(dErrors.CodeValidation, "units cannot be negative")
	}

	if event.ID.IsNil() {
		event.ID = id.EventID(uuid.New())
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Append(ctx, &event); err != nil {
		s.recordFailureMetric()
		return dErrors.Wrap(err, dErrors.CodeUsageRecordFailed, "failed to record usage event")
	}
	s.recordSuccessMetric(event)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "usage event fan-out failed",
				"event_id", event.ID,
				"tenant_id", event.TenantID,
				"action", event.Action,
				"error", err,
			)
		}
	}

	return nil
}

// ListByTenant returns the most recent events for one tenant.
func (s *Service) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]models.Event, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	if limit <= 0 {
		limit = 100
	}
	events, err := s.store.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list usage events")
	}
	return events, nil
}

// SumUnits aggregates billed units for one tenant and module since a point
// in time.
func (s *Service) SumUnits(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID, since time.Time) (int64, error) {
	if tenantID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	if moduleID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "module ID required")
	}
	total, err := s.store.SumUnits(ctx, tenantID, moduleID, since)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate usage")
	}
	return total, nil
}

func (s *Service) recordSuccessMetric(event models.Event) {
	if s.metrics != nil {
		s.metrics.RecordEvent(event.ModuleID.String(), event.Units, event.TotalTokens)
	}
}

func (s *Service) recordFailureMetric() {
	if s.metrics != nil {
		s.metrics.RecordFailure()
	}
}

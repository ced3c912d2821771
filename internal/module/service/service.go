// Package service implements the module access gate: install, uninstall and
// cached entitlement checks for per-tenant modules.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"cortex/internal/module/cache"
	modulemetrics "cortex/internal/module/metrics"
	"cortex/internal/module/models"
	"cortex/internal/sentinel"
	sessionmodels "cortex/internal/session/models"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

// InstallationStore persists module installation rows.
type InstallationStore interface {
	Create(ctx context.Context, inst *models.Installation) error
	Update(ctx context.Context, inst *models.Installation) error
	Find(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) (*models.Installation, error)
	Delete(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) error
}

// SessionResolver yields the acting session for authorization checks.
type SessionResolver interface {
	Resolve(ctx context.Context) (*sessionmodels.Session, error)
}

// Service orchestrates module installation state and the entitlement cache.
type Service struct {
	installs InstallationStore
	cache    cache.EntitlementCache
	sessions SessionResolver
	logger   *slog.Logger
	metrics  *modulemetrics.Metrics

	// group dedupes concurrent cache fills for the same key.
	group singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *modulemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(installs InstallationStore, entitlements cache.EntitlementCache, sessions SessionResolver, opts ...Option) *Service {
	s := &Service{
		installs: installs,
		cache:    entitlements,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Install enables a module for the caller's active tenant. Installing over a
// disabled row re-enables it and keeps the original installation ID;
// installing over an enabled row is a conflict.
func (s *Service) Install(ctx context.Context, moduleID id.ModuleID, settings json.RawMessage) (*models.Installation, error) {
	sess, tenantID, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if moduleID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "module ID required")
	}

	now := time.Now().UTC()
	existing, err := s.installs.Find(ctx, tenantID, moduleID)
	switch {
	case err == nil:
		if existing.Enabled {
			return nil, dErrors.New(dErrors.CodeModuleAlreadyInstalled, "module is already installed")
		}
		// Idempotent re-enable of a soft-uninstalled module.
		existing.Enabled = true
		if len(settings) > 0 {
			existing.Settings = settings
		}
		existing.UpdatedAt = now
		if err := s.installs.Update(ctx, existing); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeModuleInstallFailed, "failed to re-enable module")
		}
		s.cache.Invalidate(ctx, tenantID, moduleID)
		s.logGate(ctx, "module_reenabled", sess, tenantID, moduleID)
		s.installMetric()
		return existing, nil

	case errors.Is(err, sentinel.ErrNotFound):
		inst := &models.Installation{
			ID:        id.InstallationID(uuid.New()),
			TenantID:  tenantID,
			ModuleID:  moduleID,
			Enabled:   true,
			Settings:  settings,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.installs.Create(ctx, inst); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return nil, dErrors.New(dErrors.CodeModuleAlreadyInstalled, "module is already installed")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeModuleInstallFailed, "failed to install module")
		}
		s.cache.Invalidate(ctx, tenantID, moduleID)
		s.logGate(ctx, "module_installed", sess, tenantID, moduleID)
		s.installMetric()
		return inst, nil

	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load installation")
	}
}

// Uninstall disables (soft) or deletes (hard) a module installation. Soft
// mode requires an enabled row; hard mode deletes the row in either state.
// Module-owned data deletion is the module's own responsibility.
func (s *Service) Uninstall(ctx context.Context, moduleID id.ModuleID, hardDelete bool) error {
	sess, tenantID, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	if moduleID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "module ID required")
	}

	existing, err := s.installs.Find(ctx, tenantID, moduleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeModuleNotFound, "module is not installed")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load installation")
	}

	if hardDelete {
		if err := s.installs.Delete(ctx, tenantID, moduleID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeModuleNotFound, "module is not installed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete installation")
		}
		s.cache.Invalidate(ctx, tenantID, moduleID)
		s.logGate(ctx, "module_hard_deleted", sess, tenantID, moduleID)
		s.uninstallMetric(true)
		return nil
	}

	if !existing.Enabled {
		return dErrors.New(dErrors.CodeConflict, "module is already disabled")
	}
	existing.Enabled = false
	existing.UpdatedAt = time.Now().UTC()
	if err := s.installs.Update(ctx, existing); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to disable module")
	}
	s.cache.Invalidate(ctx, tenantID, moduleID)
	s.logGate(ctx, "module_disabled", sess, tenantID, moduleID)
	s.uninstallMetric(false)
	return nil
}

// IsModuleEnabled answers the entitlement question. Absent or unknown state
// is false; there is no error channel. Cache misses fall through to the
// store and populate the cache.
func (s *Service) IsModuleEnabled(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) bool {
	if tenantID.IsNil() || moduleID.IsNil() {
		return false
	}

	if enabled, ok := s.cache.Get(ctx, tenantID, moduleID); ok {
		s.cacheHitMetric()
		if !enabled {
			s.deniedMetric()
		}
		return enabled
	}
	s.cacheMissMetric()

	v, err, _ := s.group.Do(cache.Key(tenantID, moduleID), func() (any, error) {
		inst, err := s.installs.Find(ctx, tenantID, moduleID)
		switch {
		case err == nil:
			s.cache.Set(ctx, tenantID, moduleID, inst.Enabled)
			return inst.Enabled, nil
		case errors.Is(err, sentinel.ErrNotFound):
			s.cache.Set(ctx, tenantID, moduleID, false)
			return false, nil
		default:
			return false, err
		}
	})
	if err != nil {
		// Underestimating access is self-correcting; the next read after
		// the store recovers is authoritative.
		s.storeFailedMetric()
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "entitlement lookup failed",
				"tenant_id", tenantID,
				"module_id", moduleID,
				"error", err,
			)
		}
		return false
	}

	enabled := v.(bool)
	if !enabled {
		s.deniedMetric()
	}
	return enabled
}

// authorize resolves the caller and checks the admin-role requirement shared
// by all gate mutations.
func (s *Service) authorize(ctx context.Context) (*sessionmodels.Session, id.TenantID, error) {
	sess, err := s.sessions.Resolve(ctx)
	if err != nil {
		return nil, id.TenantID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve session")
	}
	if sess == nil {
		return nil, id.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !sess.HasTenant() {
		return nil, id.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "an active tenant is required")
	}
	if !sess.Role.CanManageModules() {
		return nil, id.TenantID{}, dErrors.New(dErrors.CodeUnauthorized, "owner or admin role required")
	}
	return sess, *sess.TenantID, nil
}

func (s *Service) logGate(ctx context.Context, event string, sess *sessionmodels.Session, tenantID id.TenantID, moduleID id.ModuleID) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, event,
		"event", event,
		"log_type", "audit",
		"tenant_id", tenantID,
		"module_id", moduleID,
		"user_id", sess.UserID,
		"role", sess.Role,
	)
}

func (s *Service) installMetric() {
	if s.metrics != nil {
		s.metrics.Install()
	}
}

func (s *Service) uninstallMetric(hard bool) {
	if s.metrics != nil {
		s.metrics.Uninstall(hard)
	}
}

func (s *Service) cacheHitMetric() {
	if s.metrics != nil {
		s.metrics.CacheHit()
	}
}

func (s *Service) cacheMissMetric() {
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}
}

func (s *Service) deniedMetric() {
	if s.metrics != nil {
		s.metrics.Denied()
	}
}

func (s *Service) storeFailedMetric() {
	if s.metrics != nil {
		s.metrics.StoreFailed()
	}
}

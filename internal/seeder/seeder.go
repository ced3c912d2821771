// Package seeder populates in-memory stores with demo data so the service is
// usable without a database. Never runs against a relational store.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	modulemodels "cortex/internal/module/models"
	sessionmodels "cortex/internal/session/models"
	id "cortex/pkg/domain"
)

// Stable demo identifiers so tokengen invocations line up across restarts.
var (
	DemoOwnerID  = id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	DemoMemberID = id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
	DemoTenantID = id.TenantID(uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"))
)

// MembershipStore seeds tenant memberships.
type MembershipStore interface {
	Put(m *sessionmodels.Membership)
}

// InstallationStore seeds module installations.
type InstallationStore interface {
	Create(ctx context.Context, inst *modulemodels.Installation) error
}

// Seeder populates demo memberships and module installations.
type Seeder struct {
	memberships MembershipStore
	installs    InstallationStore
	logger      *slog.Logger
}

func New(memberships MembershipStore, installs InstallationStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		memberships: memberships,
		installs:    installs,
		logger:      logger,
	}
}

// SeedAll populates all stores with demo data.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	now := time.Now().UTC()
	s.memberships.Put(&sessionmodels.Membership{
		TenantID:  DemoTenantID,
		UserID:    DemoOwnerID,
		Role:      sessionmodels.RoleOwner,
		CreatedAt: now,
	})
	s.memberships.Put(&sessionmodels.Membership{
		TenantID:  DemoTenantID,
		UserID:    DemoMemberID,
		Role:      sessionmodels.RoleMember,
		CreatedAt: now,
	})

	for _, moduleID := range []id.ModuleID{"agency", "crm"} {
		inst := &modulemodels.Installation{
			ID:        id.InstallationID(uuid.New()),
			TenantID:  DemoTenantID,
			ModuleID:  moduleID,
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.installs.Create(ctx, inst); err != nil {
			return fmt.Errorf("seed installation %s: %w", moduleID, err)
		}
	}

	s.logger.Info("demo data seeded",
		"tenant_id", DemoTenantID,
		"owner_id", DemoOwnerID,
		"member_id", DemoMemberID,
	)
	return nil
}

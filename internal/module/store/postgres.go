package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"cortex/internal/module/models"
	"cortex/internal/sentinel"
	id "cortex/pkg/domain"
)

// Postgres persists module installations in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed installation store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Create inserts a new installation row; the unique (tenant_id, module_id)
// constraint enforces at most one row per pair.
func (s *Postgres) Create(ctx context.Context, inst *models.Installation) error {
	if inst == nil {
		return fmt.Errorf("installation is required")
	}
	query := `
		INSERT INTO module_installations (id, tenant_id, module_id, enabled, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(inst.ID),
		uuid.UUID(inst.TenantID),
		string(inst.ModuleID),
		inst.Enabled,
		nullableSettings(inst),
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("installation exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create installation: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an existing installation row.
func (s *Postgres) Update(ctx context.Context, inst *models.Installation) error {
	if inst == nil {
		return fmt.Errorf("installation is required")
	}
	query := `
		UPDATE module_installations
		SET enabled = $1, settings = $2, updated_at = $3
		WHERE tenant_id = $4 AND module_id = $5
	`
	res, err := s.db.ExecContext(ctx, query,
		inst.Enabled,
		nullableSettings(inst),
		inst.UpdatedAt,
		uuid.UUID(inst.TenantID),
		string(inst.ModuleID),
	)
	if err != nil {
		return fmt.Errorf("update installation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update installation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Find retrieves the installation for a (tenant, module) pair.
func (s *Postgres) Find(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) (*models.Installation, error) {
	query := `
		SELECT id, tenant_id, module_id, enabled, settings, created_at, updated_at
		FROM module_installations
		WHERE tenant_id = $1 AND module_id = $2
	`
	var inst models.Installation
	var instID, tenant uuid.UUID
	var module string
	var settings sql.NullString
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), string(moduleID)).
		Scan(&instID, &tenant, &module, &inst.Enabled, &settings, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find installation: %w", err)
	}
	inst.ID = id.InstallationID(instID)
	inst.TenantID = id.TenantID(tenant)
	inst.ModuleID = id.ModuleID(module)
	if settings.Valid {
		inst.Settings = []byte(settings.String)
	}
	return &inst, nil
}

// Delete removes the installation row outright.
func (s *Postgres) Delete(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM module_installations WHERE tenant_id = $1 AND module_id = $2`,
		uuid.UUID(tenantID), string(moduleID),
	)
	if err != nil {
		return fmt.Errorf("delete installation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete installation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullableSettings(inst *models.Installation) any {
	if len(inst.Settings) == 0 {
		return nil
	}
	return string(inst.Settings)
}

// isUniqueViolation checks for PostgreSQL unique constraint violations.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cortex/internal/sentinel"
	"cortex/internal/session/models"
	id "cortex/pkg/domain"
)

// Postgres reads tenant memberships from PostgreSQL. The core never writes
// this table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed membership store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Find retrieves the membership for a (tenant, user) pair.
func (s *Postgres) Find(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error) {
	query := `
		SELECT tenant_id, user_id, role, created_at
		FROM tenant_memberships
		WHERE tenant_id = $1 AND user_id = $2
	`
	var m models.Membership
	var tenant, user uuid.UUID
	var role string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(userID)).
		Scan(&tenant, &user, &role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	m.TenantID = id.TenantID(tenant)
	m.UserID = id.UserID(user)
	m.Role = models.Role(role)
	return &m, nil
}

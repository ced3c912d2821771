package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cortex/internal/usage/models"
	id "cortex/pkg/domain"
)

// Postgres persists usage events in PostgreSQL. The table is append-only;
// this store exposes no update or delete path.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed usage event store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Append inserts one usage event.
func (s *Postgres) Append(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	query := `
		INSERT INTO usage_events (
			id, tenant_id, module_id, action, units,
			prompt_tokens, completion_tokens, total_tokens,
			duration_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.TenantID),
		string(event.ModuleID),
		string(event.Action),
		event.Units,
		event.PromptTokens,
		event.CompletionTokens,
		event.TotalTokens,
		event.DurationMS,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

// ListByTenant returns the most recent events for a tenant, newest first.
func (s *Postgres) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]models.Event, error) {
	query := `
		SELECT id, tenant_id, module_id, action, units,
			prompt_tokens, completion_tokens, total_tokens,
			duration_ms, created_at
		FROM usage_events
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), limit)
	if err != nil {
		return nil, fmt.Errorf("list usage events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var eventID, tenant uuid.UUID
		var module, action string
		if err := rows.Scan(&eventID, &tenant, &module, &action, &e.Units,
			&e.PromptTokens, &e.CompletionTokens, &e.TotalTokens,
			&e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage event: %w", err)
		}
		e.ID = id.EventID(eventID)
		e.TenantID = id.TenantID(tenant)
		e.ModuleID = id.ModuleID(module)
		e.Action = id.ActionKey(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage events: %w", err)
	}
	return events, nil
}

// SumUnits aggregates billed units for a tenant and module since a point in time.
func (s *Postgres) SumUnits(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(units), 0)
		FROM usage_events
		WHERE tenant_id = $1 AND module_id = $2 AND created_at >= $3
	`
	var total int64
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), string(moduleID), since).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum usage units: %w", err)
	}
	return total, nil
}

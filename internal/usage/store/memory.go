package store

import (
	"context"
	"sync"
	"time"

	"cortex/internal/usage/models"
	id "cortex/pkg/domain"
)

// InMemory keeps usage events in memory for tests and the demo environment.
// Events are appended only; nothing here can mutate an existing row.
type InMemory struct {
	mu     sync.RWMutex
	events []models.Event
}

// NewInMemory creates an in-memory usage event store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append stores a copy of the event.
func (s *InMemory) Append(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// ListByTenant returns the most recent events for a tenant, newest first.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].TenantID == tenantID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// SumUnits aggregates billed units for a tenant and module since a point in time.
func (s *InMemory) SumUnits(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.events {
		if e.TenantID == tenantID && e.ModuleID == moduleID && !e.CreatedAt.Before(since) {
			total += int64(e.Units)
		}
	}
	return total, nil
}

// All returns every stored event; test helper.
func (s *InMemory) All() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

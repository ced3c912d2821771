package store

import (
	"context"
	"fmt"
	"sync"

	"cortex/internal/module/models"
	"cortex/internal/sentinel"
	id "cortex/pkg/domain"
)

// InMemory stores module installations in memory for tests and the demo
// environment.
type InMemory struct {
	mu       sync.RWMutex
	installs map[string]*models.Installation
}

// NewInMemory creates an in-memory installation store.
func NewInMemory() *InMemory {
	return &InMemory{installs: make(map[string]*models.Installation)}
}

// Create inserts a new installation row; at most one per (tenant, module).
func (s *InMemory) Create(_ context.Context, inst *models.Installation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := installKey(inst.TenantID, inst.ModuleID)
	if _, exists := s.installs[key]; exists {
		return fmt.Errorf("installation exists for %s: %w", key, sentinel.ErrAlreadyUsed)
	}
	cp := *inst
	s.installs[key] = &cp
	return nil
}

// Update replaces an existing installation row.
func (s *InMemory) Update(_ context.Context, inst *models.Installation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := installKey(inst.TenantID, inst.ModuleID)
	if _, exists := s.installs[key]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *inst
	s.installs[key] = &cp
	return nil
}

// Find retrieves the installation for a (tenant, module) pair.
func (s *InMemory) Find(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID) (*models.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.installs[installKey(tenantID, moduleID)]; ok {
		cp := *inst
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

// Delete removes the installation row outright.
func (s *InMemory) Delete(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := installKey(tenantID, moduleID)
	if _, exists := s.installs[key]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.installs, key)
	return nil
}

func installKey(tenantID id.TenantID, moduleID id.ModuleID) string {
	return tenantID.String() + "/" + moduleID.String()
}

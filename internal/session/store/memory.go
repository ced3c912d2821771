package store

import (
	"context"
	"sync"

	"cortex/internal/sentinel"
	"cortex/internal/session/models"
	id "cortex/pkg/domain"
)

// InMemory stores tenant memberships in memory for tests and the demo
// environment.
type InMemory struct {
	mu          sync.RWMutex
	memberships map[string]*models.Membership
}

// NewInMemory creates an in-memory membership store.
func NewInMemory() *InMemory {
	return &InMemory{memberships: make(map[string]*models.Membership)}
}

// Put registers a membership; seeding helper for environments without a
// relational store.
func (s *InMemory) Put(m *models.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[memberKey(m.TenantID, m.UserID)] = m
}

// Find retrieves the membership for a (tenant, user) pair.
func (s *InMemory) Find(_ context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.memberships[memberKey(tenantID, userID)]; ok {
		return m, nil
	}
	return nil, sentinel.ErrNotFound
}

func memberKey(tenantID id.TenantID, userID id.UserID) string {
	return tenantID.String() + "/" + userID.String()
}

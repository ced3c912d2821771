// Package cache holds the module entitlement cache. Invalidation is the
// consistency mechanism: every gate mutation evicts the exact
// (tenant, module) key synchronously after the store write commits, so the
// next read is guaranteed fresh. There is no background refresh.
package cache

import (
	"context"
	"sync"

	id "cortex/pkg/domain"
)

// EntitlementCache answers "is module M enabled for tenant T" from memory.
type EntitlementCache interface {
	// Get returns the cached state and whether an entry exists.
	Get(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) (enabled, ok bool)

	// Set records the state for a key.
	Set(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID, enabled bool)

	// Invalidate evicts a key.
	Invalidate(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID)
}

// Memory is a process-local entitlement cache. It tolerates a read racing a
// concurrent invalidation; the read after an invalidation is authoritative.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]bool
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]bool)}
}

func (c *Memory) Get(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	enabled, ok := c.entries[Key(tenantID, moduleID)]
	return enabled, ok
}

func (c *Memory) Set(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(tenantID, moduleID)] = enabled
}

func (c *Memory) Invalidate(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key(tenantID, moduleID))
}

// Key builds the cache key for a (tenant, module) pair.
func Key(tenantID id.TenantID, moduleID id.ModuleID) string {
	return "entitlement:" + tenantID.String() + ":" + moduleID.String()
}

package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "cortex/pkg/domain"
)

func TestMemoryCacheLifecycle(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	_, ok := c.Get(ctx, tenantID, "agency")
	assert.False(t, ok)

	c.Set(ctx, tenantID, "agency", true)
	enabled, ok := c.Get(ctx, tenantID, "agency")
	assert.True(t, ok)
	assert.True(t, enabled)

	// Disabled state is cached too; a miss and a cached false are
	// different answers.
	c.Set(ctx, tenantID, "agency", false)
	enabled, ok = c.Get(ctx, tenantID, "agency")
	assert.True(t, ok)
	assert.False(t, enabled)

	c.Invalidate(ctx, tenantID, "agency")
	_, ok = c.Get(ctx, tenantID, "agency")
	assert.False(t, ok)
}

func TestMemoryCacheKeysAreScoped(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	tenantA := id.TenantID(uuid.New())
	tenantB := id.TenantID(uuid.New())

	c.Set(ctx, tenantA, "agency", true)

	_, ok := c.Get(ctx, tenantB, "agency")
	assert.False(t, ok)
	_, ok = c.Get(ctx, tenantA, "crm")
	assert.False(t, ok)
}

func TestKeyFormat(t *testing.T) {
	tenantID := id.TenantID(uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"))
	assert.Equal(t, "entitlement:aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa:agency", Key(tenantID, "agency"))
}

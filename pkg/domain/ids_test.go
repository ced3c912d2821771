package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cortex/pkg/domain-errors"
)

func TestParseTenantID(t *testing.T) {
	raw := uuid.New().String()

	id, err := ParseTenantID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id.String())
	assert.False(t, id.IsNil())
}

func TestParseTenantIDInvalid(t *testing.T) {
	_, err := ParseTenantID("not-a-uuid")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseTenantID("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseModuleIDTrimsWhitespace(t *testing.T) {
	id, err := ParseModuleID("  agency  ")
	require.NoError(t, err)
	assert.Equal(t, ModuleID("agency"), id)

	_, err = ParseModuleID("   ")
	require.Error(t, err)
}

func TestTaskTypeModule(t *testing.T) {
	assert.Equal(t, ModuleID("agency"), TaskType("agency.scope").Module())
	assert.Equal(t, ModuleID("crm"), TaskType("crm.draft_email").Module())
	assert.Equal(t, ModuleID("solo"), TaskType("solo").Module())
}

func TestIsNil(t *testing.T) {
	assert.True(t, TenantID{}.IsNil())
	assert.True(t, ModuleID("").IsNil())
	assert.False(t, TenantID(uuid.New()).IsNil())
	assert.False(t, ModuleID("agency").IsNil())
}

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/session/models"
	"cortex/internal/session/store"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

func newResolver(memberships MembershipStore) *Resolver {
	return NewResolver(memberships, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestResolveUnauthenticated(t *testing.T) {
	r := newResolver(store.NewInMemory())

	sess, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestResolveTenantSession(t *testing.T) {
	userID := id.UserID(uuid.New())
	tenantID := id.TenantID(uuid.New())

	memberships := store.NewInMemory()
	memberships.Put(&models.Membership{
		TenantID: tenantID,
		UserID:   userID,
		Role:     models.RoleAdmin,
	})
	r := newResolver(memberships)

	ctx := WithIdentity(context.Background(), Identity{UserID: userID, ActiveTenant: tenantID})
	sess, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, userID, sess.UserID)
	require.True(t, sess.HasTenant())
	assert.Equal(t, tenantID, *sess.TenantID)
	assert.Equal(t, models.RoleAdmin, sess.Role)
}

func TestResolvePersonalModeWithoutIndicator(t *testing.T) {
	userID := id.UserID(uuid.New())
	r := newResolver(store.NewInMemory())

	ctx := WithIdentity(context.Background(), Identity{UserID: userID})
	sess, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, userID, sess.UserID)
	assert.False(t, sess.HasTenant())
	assert.Equal(t, models.RoleOwner, sess.Role)
}

func TestResolveRejectedIndicatorFallsToPersonal(t *testing.T) {
	userID := id.UserID(uuid.New())
	foreignTenant := id.TenantID(uuid.New())
	r := newResolver(store.NewInMemory())

	ctx := WithIdentity(context.Background(), Identity{UserID: userID, ActiveTenant: foreignTenant})
	sess, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)

	// Not a member of the indicated tenant: personal mode, never a
	// borrowed tenant context.
	assert.False(t, sess.HasTenant())
	assert.Equal(t, models.RoleOwner, sess.Role)
}

type failingMemberships struct{}

func (failingMemberships) Find(context.Context, id.TenantID, id.UserID) (*models.Membership, error) {
	return nil, errors.New("connection refused")
}

func TestResolveStoreFailure(t *testing.T) {
	r := newResolver(failingMemberships{})

	ctx := WithIdentity(context.Background(), Identity{
		UserID:       id.UserID(uuid.New()),
		ActiveTenant: id.TenantID(uuid.New()),
	})
	sess, err := r.Resolve(ctx)
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestRoleCanManageModules(t *testing.T) {
	assert.True(t, models.RoleOwner.CanManageModules())
	assert.True(t, models.RoleAdmin.CanManageModules())
	assert.False(t, models.RoleMember.CanManageModules())
}

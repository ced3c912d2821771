// Package session resolves the acting user, active tenant and caller role
// from the ambient request identity. Privileged gate operations depend on
// it for authorization; every usage event and entitlement check is stamped
// with the tenant it resolves.
package session

import (
	"context"
	"errors"
	"log/slog"

	"cortex/internal/sentinel"
	"cortex/internal/session/models"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

// Identity is what the authentication layer places on the request context:
// a verified user plus an optional explicit active-tenant indicator.
type Identity struct {
	UserID       id.UserID
	ActiveTenant id.TenantID
}

type ctxKey struct{}

// WithIdentity stamps a verified identity onto the context. Only the
// authentication middleware should call this.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// IdentityFromContext extracts the verified identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}

// MembershipStore reads tenant memberships.
type MembershipStore interface {
	Find(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error)
}

// Resolver turns an ambient identity into a Session.
type Resolver struct {
	memberships MembershipStore
	logger      *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(memberships MembershipStore, opts ...Option) *Resolver {
	r := &Resolver{memberships: memberships}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the session for the calling identity, or nil when the
// caller is unauthenticated. Resolution order: the explicit active-tenant
// indicator when the caller belongs to that tenant, else personal mode.
func (r *Resolver) Resolve(ctx context.Context) (*models.Session, error) {
	ident, ok := IdentityFromContext(ctx)
	if !ok || ident.UserID.IsNil() {
		return nil, nil
	}

	if !ident.ActiveTenant.IsNil() {
		membership, err := r.memberships.Find(ctx, ident.ActiveTenant, ident.UserID)
		switch {
		case err == nil:
			tenantID := membership.TenantID
			return &models.Session{
				UserID:   ident.UserID,
				TenantID: &tenantID,
				Role:     membership.Role,
			}, nil
		case errors.Is(err, sentinel.ErrNotFound):
			// Caller does not belong to the indicated tenant; fall
			// through to personal mode rather than leaking membership.
			if r.logger != nil {
				r.logger.WarnContext(ctx, "active tenant indicator rejected",
					"user_id", ident.UserID,
					"tenant_id", ident.ActiveTenant,
				)
			}
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve membership")
		}
	}

	return &models.Session{
		UserID: ident.UserID,
		Role:   models.RoleOwner,
	}, nil
}

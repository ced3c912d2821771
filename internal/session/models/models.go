package models

import (
	"time"

	id "cortex/pkg/domain"
)

// Role is the caller's standing within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanManageModules reports whether the role may install or uninstall modules.
func (r Role) CanManageModules() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Membership links a user to a tenant with a role. The core only reads
// memberships; it never mutates them.
type Membership struct {
	TenantID  id.TenantID
	UserID    id.UserID
	Role      Role
	CreatedAt time.Time
}

// Session is the resolved acting context for one request. TenantID is nil
// in personal/no-tenant mode.
type Session struct {
	UserID   id.UserID
	TenantID *id.TenantID
	Role     Role
}

// HasTenant reports whether the session is scoped to a tenant.
func (s *Session) HasTenant() bool {
	return s != nil && s.TenantID != nil && !s.TenantID.IsNil()
}

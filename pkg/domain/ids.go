// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "cortex/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	UserID         uuid.UUID
	TenantID       uuid.UUID
	InstallationID uuid.UUID
	EventID        uuid.UUID
)

// ModuleID identifies an installable feature unit (e.g. "agency").
type ModuleID string

// TaskType is a namespaced AI capability identifier, by convention "<module>.<task>".
type TaskType string

// ActionKey is a metered billing action, by convention "<module>:<domain>:<verb>".
type ActionKey string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseInstallationID(s string) (InstallationID, error) {
	id, err := parseUUID(s, "installation ID")
	return InstallationID(id), err
}

// ParseModuleID validates a module identifier. The router trusts callers to
// follow naming conventions beyond non-emptiness.
func ParseModuleID(s string) (ModuleID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "module ID cannot be empty")
	}
	return ModuleID(s), nil
}

func ParseTaskType(s string) (TaskType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "task type cannot be empty")
	}
	return TaskType(s), nil
}

func ParseActionKey(s string) (ActionKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action key cannot be empty")
	}
	return ActionKey(s), nil
}

// String methods - for logging and debugging.

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id InstallationID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id ModuleID) String() string       { return string(id) }
func (t TaskType) String() string        { return string(t) }
func (a ActionKey) String() string       { return string(a) }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id InstallationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ModuleID) IsNil() bool       { return id == "" }
func (t TaskType) IsNil() bool        { return t == "" }
func (a ActionKey) IsNil() bool       { return a == "" }

// Module extracts the "<module>" prefix of a task type, or the whole value
// when it carries no namespace separator.
func (t TaskType) Module() ModuleID {
	if i := strings.IndexByte(string(t), '.'); i > 0 {
		return ModuleID(t[:i])
	}
	return ModuleID(t)
}

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; use IsNil() at the service layer for business
// validation, which lets store lookups return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}

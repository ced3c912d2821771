package models

import (
	"encoding/json"
	"time"

	id "cortex/pkg/domain"
)

// Installation is one (tenant, module) enablement row. A tenant has at most
// one row per module; an absent row means the module was never installed.
// Soft uninstall flips Enabled and preserves the row along with any
// module-owned data; hard uninstall deletes the row.
type Installation struct {
	ID        id.InstallationID
	TenantID  id.TenantID
	ModuleID  id.ModuleID
	Enabled   bool
	Settings  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

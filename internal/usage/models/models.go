package models

import (
	"time"

	id "cortex/pkg/domain"
)

// Event is one append-only metered billing record. It is never updated or
// deleted once written.
type Event struct {
	ID               id.EventID   `json:"id"`
	TenantID         id.TenantID  `json:"tenant_id"`
	ModuleID         id.ModuleID  `json:"module_id"`
	Action           id.ActionKey `json:"action"`
	Units            int          `json:"units"`
	PromptTokens     int          `json:"prompt_tokens"`
	CompletionTokens int          `json:"completion_tokens"`
	TotalTokens      int          `json:"total_tokens"`
	DurationMS       int64        `json:"duration_ms"`
	CreatedAt        time.Time    `json:"created_at"`
}

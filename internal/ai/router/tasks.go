package router

import (
	"sync"

	"cortex/internal/ai/provider"
	id "cortex/pkg/domain"
	dErrors "cortex/pkg/domain-errors"
)

// TaskSpec binds a task type to its execution defaults and billing terms.
type TaskSpec struct {
	Type      id.TaskType
	Module    id.ModuleID
	Provider  provider.Kind
	Model     string
	MaxTokens int

	// Action and UnitCost define how one successful execution is metered.
	Action   id.ActionKey
	UnitCost int
}

// Catalog is the registry of executable task types. Registration happens at
// startup; lookups are concurrent.
type Catalog struct {
	mu    sync.RWMutex
	tasks map[id.TaskType]TaskSpec
}

func NewCatalog() *Catalog {
	return &Catalog{tasks: make(map[id.TaskType]TaskSpec)}
}

// Register adds or replaces a task spec. A spec without an explicit module
// inherits the task type's namespace prefix.
func (c *Catalog) Register(spec TaskSpec) error {
	if spec.Type.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "task type required")
	}
	if spec.Provider == "" {
		return dErrors.New(dErrors.CodeValidation, "task provider required")
	}
	if spec.Action.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "task action key required")
	}
	if spec.UnitCost < 0 {
		return dErrors.New(dErrors.CodeValidation, "task unit cost cannot be negative")
	}
	if spec.Module.IsNil() {
		spec.Module = spec.Type.Module()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[spec.Type] = spec
	return nil
}

// Lookup resolves a task type to its spec.
func (c *Catalog) Lookup(taskType id.TaskType) (TaskSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.tasks[taskType]
	if !ok {
		return TaskSpec{}, dErrors.New(dErrors.CodeInvalidTaskType, "unknown task type")
	}
	return spec, nil
}

// Types lists the registered task types, for diagnostics.
func (c *Catalog) Types() []id.TaskType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]id.TaskType, 0, len(c.tasks))
	for t := range c.tasks {
		out = append(out, t)
	}
	return out
}

package tool

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"toolrelay/internal/domain"
)

// Registry holds exactly one agent per tool name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		agents: make(map[string]domain.Agent),
		logger: logger,
	}
}

// Register adds an agent. A second agent with the same name is rejected.
func (r *Registry) Register(a domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if name == "" {
		return fmt.Errorf("agent %T has an empty name", a)
	}
	if _, dup := r.agents[name]; dup {
		return fmt.Errorf("tool %q is already registered", name)
	}
	r.agents[name] = a
	r.logger.Debug("registered tool", "name", name)
	return nil
}

// MustRegister is Register for wiring code where a duplicate is a programming error.
func (r *Registry) MustRegister(agents ...domain.Agent) {
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[name]
}

// Lookup returns the agent for name or a descriptive error listing what exists.
func (r *Registry) Lookup(name string) (domain.Agent, error) {
	a := r.Get(name)
	if a == nil {
		return nil, domain.Validationf("unknown tool: %s (available: %v)", name, r.Names())
	}
	return a, nil
}

// Definitions returns the catalog advertised to the planner, sorted by name.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.ToolDefinition, 0, len(r.agents))
	for _, a := range r.agents {
		defs = append(defs, domain.ToolDefinition{
			Name:        a.Name(),
			Description: a.Description(),
			Parameters:  a.Parameters(),
		})
	}
	slices.SortFunc(defs, func(a, b domain.ToolDefinition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

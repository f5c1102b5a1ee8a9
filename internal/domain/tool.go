package domain

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Agent is a capability the planner can call by name.
// Execute never panics on bad input; failures come back as ERROR responses.
type Agent interface {
	Name() string
	Description() string
	Parameters() *jsonschema.Schema
	Execute(ctx context.Context, req Request) Response
}

// BufferOwner is implemented by agents that write the result buffer
// themselves, so the dispatcher leaves it alone after they run.
type BufferOwner interface {
	OwnsResultBuffer() bool
}

// ToolCall is a decoded planner call.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// ToolDefinition advertises an agent to the planner.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

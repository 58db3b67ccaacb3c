// Package agent runs the tool-calling loop that answers natural language
// questions about a cluster.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kubewise/kubewise/internal/llm"
)

// Tool is a named operation the model can invoke. Handler receives the raw
// JSON arguments from the tool call.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Handler     func(ctx context.Context, args json.RawMessage) (string, error)
}

// Definition renders the tool for the provider API.
func (t Tool) Definition() llm.ToolDefinition {
	params := t.Parameters
	if params == nil {
		params = map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}
	return llm.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

// Registry holds the tools available to the agent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name is an error.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions renders all tools for the provider API, in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs one tool call and always returns result text. Unknown tools
// and handler errors come back as text so the model sees what went wrong
// instead of the loop aborting.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) string {
	tool, ok := r.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Tool '%s' not found.", call.Name)
	}
	result, err := tool.Handler(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	return result
}

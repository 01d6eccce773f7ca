// Package tools implements the functions exposed to the reasoning backend
// and the registry that dispatches tool calls to them.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

// Tool is one function the backend may call during a run. Execute receives
// the ID of the user whose turn is being processed and the parsed tool-call
// arguments, and returns a JSON-serialized result.
type Tool interface {
	Name() string
	GetToolDefinition() openai.ChatCompletionToolParam
	Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error)
}

// Registry holds the tool set for a deployment. It is validated once at
// construction so a misconfigured tool fails startup rather than a user turn.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools, rejecting empty or
// duplicate names and definitions whose function name disagrees with Name().
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		def := tool.GetToolDefinition()
		if def.Function.Name != name {
			return nil, fmt.Errorf("tool %q definition declares function name %q", name, def.Function.Name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	slog.Debug("NewRegistry: tool registry built", "toolCount", len(tools), "tools", r.order)
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the OpenAI tool definitions in registration order.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	defs := make([]openai.ChatCompletionToolParam, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].GetToolDefinition())
	}
	return defs
}

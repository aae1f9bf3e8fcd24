package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zero-day-ai/lab/fault"
	"github.com/zero-day-ai/lab/llm"
	"github.com/zero-day-ai/lab/schema"
)

// HandlerFunc implements a tool's execution logic. It receives the raw
// argument JSON the model produced and returns the text handed back to
// the model as the tool result.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is a locally executed tool exposed to the model: a name, a
// description, a JSON-schema input contract, and a handler.
type Tool struct {
	Name        string
	Description string
	Parameters  schema.JSON
	Handler     HandlerFunc
}

// Registry holds the tools available to one executor run and preserves
// their declaration order for the provider-facing definitions.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. Tool names must be
// non-empty and unique, and every tool needs a handler.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fault.Configuration("tool name is required")
		}
		if t.Handler == nil {
			return nil, fault.Configuration("tool %q has no handler", t.Name)
		}
		if _, dup := r.tools[t.Name]; dup {
			return nil, fault.Configuration("duplicate tool name %q", t.Name)
		}
		r.order = append(r.order, t.Name)
		r.tools[t.Name] = t
	}
	return r, nil
}

// Defs returns the provider-facing tool definitions in declaration order.
func (r *Registry) Defs() ([]llm.ToolDef, error) {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		params, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fault.Configuration("tool %q has an unencodable parameter schema: %v", name, err)
		}
		defs = append(defs, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return defs, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Call executes the named tool. An unregistered name is a tool-name
// error, the one error class the driver retries.
func (r *Registry) Call(ctx context.Context, call llm.ToolCall) (string, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return "", fault.ToolName(call.Name)
	}

	out, err := t.Handler(ctx, json.RawMessage(call.Arguments))
	if err != nil {
		return "", fmt.Errorf("tool %q failed: %w", call.Name, err)
	}
	return out, nil
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Registry is a fixed set of tools. It is read-only after construction and
// safe for concurrent Invoke calls.
type Registry struct {
	defs  map[string]ToolDefinition
	descs []Descriptor
}

// NewRegistry validates defs and indexes them by name.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{defs: make(map[string]ToolDefinition, len(defs))}
	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, errors.New("tools: tool name is empty")
		}
		if d.Function == nil {
			return nil, fmt.Errorf("tools: tool %q has no function", d.Name)
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("tools: duplicate tool name %q", d.Name)
		}
		r.defs[d.Name] = d
		r.descs = append(r.descs, d.Descriptor())
	}
	sort.Slice(r.descs, func(i, j int) bool { return r.descs[i].Name < r.descs[j].Name })
	return r, nil
}

// Describe lists every tool, sorted by name.
func (r *Registry) Describe() []Descriptor {
	out := make([]Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Names lists tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.descs))
	for i, d := range r.descs {
		names[i] = d.Name
	}
	return names
}

func (r *Registry) Len() int { return len(r.defs) }

// Invoke runs the named tool. Every failure, including a panic inside the
// handler, is returned as a *ToolError.
func (r *Registry) Invoke(ctx context.Context, name string, params json.RawMessage) (out string, err error) {
	def, ok := r.defs[name]
	if !ok {
		return "", &ToolError{
			Code:    CodeUnknownTool,
			Tool:    name,
			Message: fmt.Sprintf("no tool named %q; available: %s", name, strings.Join(r.Names(), ", ")),
		}
	}

	if len(bytes.TrimSpace(params)) == 0 {
		params = json.RawMessage("{}")
	}
	if err := validateParams(def.InputSchema, params); err != nil {
		return "", &ToolError{Code: CodeInvalidParams, Tool: name, Message: err.Error(), err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			out = ""
			err = &ToolError{Code: CodeExecutionFailed, Tool: name, Message: fmt.Sprintf("panic: %v", p)}
		}
	}()

	out, err = def.Function(ctx, params)
	if err != nil {
		var pe *paramsError
		if errors.As(err, &pe) {
			return "", &ToolError{Code: CodeInvalidParams, Tool: name, Message: pe.Error(), err: err}
		}
		return "", &ToolError{Code: CodeExecutionFailed, Tool: name, Message: err.Error(), err: err}
	}
	return out, nil
}

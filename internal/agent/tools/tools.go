package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
)

// ToolSearchEntity is the wire name of the entity-resolution tool.
const ToolSearchEntity = "searchEntity"

// GetQueryTools returns the tools the answer model may call during a
// conversation turn.
func GetQueryTools() []tool.BaseTool {
	return []tool.BaseTool{
		createSearchEntityTool(),
	}
}

// ===================================
// Registry
// ===================================

type registeredTool struct {
	invokable tool.InvokableTool
	params    *openapi3.Schema
}

// Registry indexes invokable tools by name and validates call arguments
// against each tool's declared parameter schema before execution.
type Registry struct {
	tools map[string]registeredTool
	infos []*schema.ToolInfo
}

func NewRegistry(ctx context.Context, baseTools []tool.BaseTool) (*Registry, error) {
	r := &Registry{tools: make(map[string]registeredTool, len(baseTools))}
	for _, t := range baseTools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve tool info: %w", err)
		}
		invokable, ok := t.(tool.InvokableTool)
		if !ok {
			return nil, fmt.Errorf("tool %s is not invokable", info.Name)
		}

		var params *openapi3.Schema
		if info.ParamsOneOf != nil {
			params, err = info.ParamsOneOf.ToOpenAPIV3()
			if err != nil {
				return nil, fmt.Errorf("tool %s params schema: %w", info.Name, err)
			}
		}

		r.tools[info.Name] = registeredTool{invokable: invokable, params: params}
		r.infos = append(r.infos, info)
	}
	return r, nil
}

func (r *Registry) Infos() []*schema.ToolInfo {
	return r.infos
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Validate checks that args is a JSON object carrying every required
// parameter of the named tool. It does not execute anything.
func (r *Registry) Validate(name, args string) error {
	rt, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return fmt.Errorf("tool %s arguments are not a JSON object: %w", name, err)
	}

	if rt.params == nil {
		return nil
	}
	for _, required := range rt.params.Required {
		raw, ok := parsed[required]
		if !ok {
			return fmt.Errorf("tool %s missing required argument %q", name, required)
		}
		if string(raw) == `""` || string(raw) == "null" {
			return fmt.Errorf("tool %s argument %q is empty", name, required)
		}
	}
	return nil
}

// Execute runs the named tool with the given JSON arguments and returns the
// tool's serialized result.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	rt, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return rt.invokable.InvokableRun(ctx, args)
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Handler executes one tool against the dispatcher's collaborators.
type Handler func(ctx context.Context, d *Dispatcher, p Params) Result

// ParamSpec describes one flat tool parameter. Only primitive types and
// bounded enums are allowed; nested schemas make function calling unreliable.
type ParamSpec struct {
	Name        string
	Type        string // string, number, boolean
	Description string
	Required    bool
	Enum        []string
}

// ToolSpec is the contract between natural language and deterministic
// execution: a globally unique name, a description the model selects on, the
// parameter schema, a stable visual hint, and the handler.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ParamSpec
	Visual      string
	Handler     Handler
}

// Registry holds every callable tool. It is assembled once at startup and
// never mutated afterwards; nothing the dispatcher can do is invisible here.
type Registry struct {
	order []string
	tools map[string]ToolSpec
}

// NewRegistry builds the full tool set.
func NewRegistry() *Registry {
	r := &Registry{tools: map[string]ToolSpec{}}
	for _, group := range [][]ToolSpec{
		leadTools(),
		projectTools(),
		financeTools(),
		scheduleTools(),
		workOrderTools(),
		ticketTools(),
		todoTools(),
		incidentTools(),
		teamTools(),
		timeTools(),
		navigationTools(),
	} {
		for _, spec := range group {
			r.add(spec)
		}
	}
	return r
}

func (r *Registry) add(spec ToolSpec) {
	if _, exists := r.tools[spec.Name]; exists {
		panic(fmt.Sprintf("duplicate tool name %q", spec.Name))
	}
	if spec.Handler == nil {
		panic(fmt.Sprintf("tool %q has no handler", spec.Name))
	}
	r.tools[spec.Name] = spec
	r.order = append(r.order, spec.Name)
}

// Get returns the spec for a tool name.
func (r *Registry) Get(name string) (ToolSpec, bool) {
	spec, ok := r.tools[name]
	return spec, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// OpenAITools renders the registry as chat-completions function definitions.
func (r *Registry) OpenAITools() []openai.Tool {
	out := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		spec := r.tools[name]
		props := map[string]any{}
		var required []string
		for _, p := range spec.Params {
			prop := map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		schema := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			schema["required"] = required
		}
		raw, _ := json.Marshal(schema)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  json.RawMessage(raw),
			},
		})
	}
	return out
}

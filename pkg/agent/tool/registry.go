package tool

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Registry is a sealed name-to-tool mapping built at startup. Lookups of
// unknown names are rejected explicitly instead of falling through.
type Registry struct {
	byName map[string]gollem.Tool
	tools  []gollem.Tool
}

// NewRegistry builds a registry from the given tools. Duplicate or empty
// tool names are configuration errors.
func NewRegistry(tools ...gollem.Tool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]gollem.Tool, len(tools)),
	}
	for _, t := range tools {
		name := t.Spec().Name
		if name == "" {
			return nil, goerr.New("tool name must not be empty")
		}
		if _, ok := r.byName[name]; ok {
			return nil, goerr.New("duplicate tool name", goerr.V("name", name))
		}
		r.byName[name] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Resolve returns the tool registered under name
func (r *Registry) Resolve(name string) (gollem.Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns all registered tools in registration order
func (r *Registry) Tools() []gollem.Tool {
	return r.tools
}

// Names returns all registered tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Spec().Name)
	}
	return names
}

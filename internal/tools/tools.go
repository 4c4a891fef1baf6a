// Package tools provides the tool registry shared by agent runs.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

var (
	ErrToolNotFound   = errors.New("tool not found")
	ErrDuplicateTool  = errors.New("tool already registered")
	ErrRegistryFrozen = errors.New("registry is frozen")
	ErrNilHandler     = errors.New("tool handler is nil")
)

// Handler executes one tool call. userMessage is the task text of the run
// that requested the call.
type Handler func(ctx context.Context, userMessage string, args map[string]any) (any, error)

type entry struct {
	decl    types.ToolDeclaration
	handler Handler
}

// Registry maps tool names to handlers and declarations.
//
// Registering a name twice is an error; the first registration wins. After
// Freeze the registry is read-only and may be shared by concurrent runs.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]entry
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(decl types.ToolDeclaration, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, decl.Name)
	}
	if err := decl.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, decl.Name)
	}
	if _, exists := r.tools[decl.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, decl.Name)
	}

	r.tools[decl.Name] = entry{decl: decl, handler: handler}
	return nil
}

// MustRegister adds a tool to the registry, panicking on error.
func (r *Registry) MustRegister(decl types.ToolDeclaration, handler Handler) {
	if err := r.Register(decl, handler); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Resolve returns the handler registered under name.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return e.handler, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Declaration returns the declaration registered under name.
func (r *Registry) Declaration(name string) (types.ToolDeclaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.decl, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Declarations returns every declaration, sorted by name.
func (r *Registry) Declarations() []types.ToolDeclaration {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]types.ToolDeclaration, 0, len(names))
	for _, name := range names {
		decls = append(decls, r.tools[name].decl)
	}
	return decls
}

// Subset returns the declarations for the named tools in the given order.
// An empty list selects every tool.
func (r *Registry) Subset(names ...string) ([]types.ToolDeclaration, error) {
	if len(names) == 0 {
		return r.Declarations(), nil
	}

	decls := make([]types.ToolDeclaration, 0, len(names))
	for _, name := range names {
		decl, ok := r.Declaration(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// replaceDeclaration swaps the declaration of an already registered tool.
func (r *Registry) replaceDeclaration(decl types.ToolDeclaration) error {
	if err := decl.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot update %s", ErrRegistryFrozen, decl.Name)
	}
	e, ok := r.tools[decl.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, decl.Name)
	}
	e.decl = decl
	r.tools[decl.Name] = e
	return nil
}

// Package builtin provides the example tools shipped with taskloop.
package builtin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
)

const (
	defaultMaxFileBytes  = 64 * 1024
	defaultMaxFetchChars = 20000
)

// Options configures the tools that touch the outside world.
type Options struct {
	// ReadRoot is the directory read_file is confined to.
	ReadRoot      string
	MaxFileBytes  int64
	HTTPClient    *http.Client
	MaxFetchChars int
}

func (o Options) withDefaults() Options {
	if o.ReadRoot == "" {
		o.ReadRoot = "."
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = defaultMaxFileBytes
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if o.MaxFetchChars <= 0 {
		o.MaxFetchChars = defaultMaxFetchChars
	}
	return o
}

type tool struct {
	decl    types.ToolDeclaration
	handler tools.Handler
}

func all(opts Options) []tool {
	return []tool{
		{weatherDecl, getWeather},
		{calculateDecl, calculate},
		{readFileDecl, readFile(opts.ReadRoot, opts.MaxFileBytes)},
		{webSearchDecl, webSearch},
		{createPlanDecl, createPlan},
		{fetchURLDecl, fetchURL(opts.HTTPClient, opts.MaxFetchChars)},
		{addDecl, add},
	}
}

// Register adds every built-in tool to reg.
func Register(reg *tools.Registry, opts Options) error {
	for _, t := range all(opts.withDefaults()) {
		if err := reg.Register(t.decl, t.handler); err != nil {
			return fmt.Errorf("register %s: %w", t.decl.Name, err)
		}
	}
	return nil
}

// NewRegistry returns a frozen registry holding the built-in tools.
func NewRegistry(opts Options) (*tools.Registry, error) {
	reg := tools.NewRegistry()
	if err := Register(reg, opts); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func object(props map[string]*types.Schema, required ...string) types.Schema {
	return types.Schema{Type: types.TypeObject, Properties: props, Required: required}
}

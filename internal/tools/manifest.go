package tools

import (
	"fmt"
	"os"

	"github.com/ashutoshrp06/taskloop/internal/types"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML file that describes tools to the model. It can only
// describe tools that have a registered handler.
type Manifest struct {
	Tools []types.ToolDeclaration `yaml:"tools"`
}

// LoadManifest reads a tool manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	seen := make(map[string]bool, len(m.Tools))
	for _, decl := range m.Tools {
		if seen[decl.Name] {
			return nil, fmt.Errorf("manifest %s: %w: %s", path, ErrDuplicateTool, decl.Name)
		}
		seen[decl.Name] = true
	}

	return &m, nil
}

// Apply overrides the declarations of registered tools with the manifest
// entries. Entries naming unregistered tools are rejected.
func (m *Manifest) Apply(r *Registry) error {
	for _, decl := range m.Tools {
		if err := r.replaceDeclaration(decl); err != nil {
			return fmt.Errorf("apply manifest: %w", err)
		}
	}
	return nil
}

// Names returns the tool names listed in the manifest, in file order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Tools))
	for _, decl := range m.Tools {
		names = append(names, decl.Name)
	}
	return names
}

package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

var weatherDecl = types.ToolDeclaration{
	Name:        "get_weather",
	Description: "Get current weather for a location",
	Parameters: types.Schema{
		Type: types.TypeObject,
		Properties: map[string]*types.Schema{
			"location": {Type: types.TypeString, Description: "City name"},
			"unit":     {Type: types.TypeString, Enum: []string{"celsius", "fahrenheit"}},
		},
		Required: []string{"location"},
	},
}

func TestBuildSystemInstruction_Fallback(t *testing.T) {
	prompt := BuildSystemInstruction("", []types.ToolDeclaration{weatherDecl})

	for _, want := range []string{
		"- get_weather: Get current weather for a location",
		"location (string, required): City name",
		"unit (string, optional) [one of: celsius, fahrenheit]",
		"Task completed",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, toolsPlaceholder) {
		t.Error("placeholder was not substituted")
	}
}

func TestBuildSystemInstruction_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("Tools:\n{{TOOLS}}END"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	prompt := BuildSystemInstruction(path, nil)
	if prompt != "Tools:\nNo tools available.\nEND" {
		t.Errorf("unexpected prompt: %q", prompt)
	}
}

func TestBuildSystemInstruction_MissingFile(t *testing.T) {
	prompt := BuildSystemInstruction(filepath.Join(t.TempDir(), "absent.txt"), nil)
	if !strings.Contains(prompt, "No tools available.") {
		t.Errorf("expected fallback prompt, got %q", prompt)
	}
}

package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

const toolsPlaceholder = "{{TOOLS}}"

const defaultSystemInstruction = `You are a helpful assistant that completes tasks step by step.

Use the available tools when they help. Call at most one tool per turn and wait
for its result before continuing.

Available tools:
{{TOOLS}}
When the task is fully done, give the final answer and say "Task completed".
If you need more information from the user, ask a clear question.`

// BuildSystemInstruction loads the prompt template at path and substitutes
// {{TOOLS}}. Falls back to a built-in template if path is empty or unreadable.
func BuildSystemInstruction(path string, decls []types.ToolDeclaration) string {
	template := defaultSystemInstruction
	if path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			template = string(raw)
		}
	}
	return strings.ReplaceAll(template, toolsPlaceholder, buildToolList(decls))
}

// ─── template section builders ────────────────────────────────────────────────

// buildToolList formats declarations with parameter details so the model knows
// exact names, kinds and whether they are required.
func buildToolList(decls []types.ToolDeclaration) string {
	if len(decls) == 0 {
		return "No tools available.\n"
	}

	var sb strings.Builder
	for _, decl := range decls {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", decl.Name, decl.Description))
		for _, name := range decl.Parameters.PropertyNames() {
			prop := decl.Parameters.Properties[name]
			req := "optional"
			if decl.Parameters.IsRequired(name) {
				req = "required"
			}
			line := fmt.Sprintf("    - %s (%s, %s)", name, prop.Type, req)
			if prop.Description != "" {
				line += ": " + prop.Description
			}
			if len(prop.Enum) > 0 {
				line += fmt.Sprintf(" [one of: %s]", strings.Join(prop.Enum, ", "))
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

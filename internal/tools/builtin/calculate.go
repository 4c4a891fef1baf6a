package builtin

import (
	"context"
	"fmt"

	"github.com/ashutoshrp06/taskloop/internal/calc"
	"github.com/ashutoshrp06/taskloop/internal/types"
)

var calculateDecl = types.ToolDeclaration{
	Name:        "calculate",
	Description: "Perform a mathematical calculation",
	Parameters: object(map[string]*types.Schema{
		"expression": {
			Type:        types.TypeString,
			Description: `Mathematical expression to evaluate, e.g. "2 + 2" or "Math.sqrt(16)"`,
		},
	}, "expression"),
}

func calculate(_ context.Context, _ string, args map[string]any) (any, error) {
	expression := stringArg(args, "expression")
	result, err := calc.Eval(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	return map[string]any{
		"expression": expression,
		"result":     result,
	}, nil
}

package builtin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

var weatherDecl = types.ToolDeclaration{
	Name:        "get_weather",
	Description: "Get the current weather for a given location",
	Parameters: object(map[string]*types.Schema{
		"location": {Type: types.TypeString, Description: "The city and state, e.g. San Francisco, CA"},
	}, "location"),
}

// getWeather returns canned data; there is no weather backend.
func getWeather(_ context.Context, _ string, args map[string]any) (any, error) {
	return map[string]any{
		"location":    stringArg(args, "location"),
		"temperature": 72,
		"condition":   "sunny",
		"humidity":    45,
	}, nil
}

var webSearchDecl = types.ToolDeclaration{
	Name:        "web_search",
	Description: "Search the web for information",
	Parameters: object(map[string]*types.Schema{
		"query": {Type: types.TypeString, Description: "The search query"},
	}, "query"),
}

func webSearch(_ context.Context, _ string, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	escaped := url.QueryEscape(query)
	return map[string]any{
		"query": query,
		"results": []map[string]any{
			{
				"title":   "Search result for: " + query,
				"url":     "https://example.com/search?q=" + escaped,
				"snippet": fmt.Sprintf("This is a mock search result for the query %q.", query),
			},
			{
				"title":   "Another result for: " + query,
				"url":     "https://example.org/info?q=" + escaped,
				"snippet": fmt.Sprintf("Additional information related to %q would appear here.", query),
			},
		},
	}, nil
}

var createPlanDecl = types.ToolDeclaration{
	Name:        "create_plan",
	Description: "Create a step-by-step plan for a task",
	Parameters: object(map[string]*types.Schema{
		"task":  {Type: types.TypeString, Description: "The task to plan"},
		"steps": {Type: types.TypeArray, Description: "Optional custom steps", Items: &types.Schema{Type: types.TypeString}},
	}, "task"),
}

var defaultPlanSteps = []string{
	"Analyze the requirements",
	"Break down the task into smaller components",
	"Execute each component step by step",
	"Validate the results",
	"Provide final summary",
}

func createPlan(_ context.Context, _ string, args map[string]any) (any, error) {
	plan := make([]string, 0, len(defaultPlanSteps))
	if steps, ok := args["steps"].([]any); ok && len(steps) > 0 {
		for _, step := range steps {
			plan = append(plan, fmt.Sprint(step))
		}
	} else {
		plan = append(plan, defaultPlanSteps...)
	}

	return map[string]any{
		"task":          stringArg(args, "task"),
		"plan":          plan,
		"estimatedTime": "15-30 minutes",
		"created":       time.Now().UTC().Format(time.RFC3339),
	}, nil
}

var addDecl = types.ToolDeclaration{
	Name:        "add",
	Description: "Add two numbers and return the sum",
	Parameters: object(map[string]*types.Schema{
		"a": {Type: types.TypeNumber, Description: "First number"},
		"b": {Type: types.TypeNumber, Description: "Second number"},
	}, "a", "b"),
}

func add(_ context.Context, _ string, args map[string]any) (any, error) {
	a, okA := number(args["a"])
	b, okB := number(args["b"])
	if !okA || !okB {
		return nil, errors.New("a and b must be numbers")
	}
	return a + b, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

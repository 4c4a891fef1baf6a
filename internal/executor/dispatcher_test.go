package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"go.uber.org/zap"
)

var addDecl = types.ToolDeclaration{
	Name:        "add",
	Description: "Add two numbers",
	Parameters: types.Schema{
		Type: types.TypeObject,
		Properties: map[string]*types.Schema{
			"a": {Type: types.TypeNumber},
			"b": {Type: types.TypeNumber},
		},
		Required: []string{"a", "b"},
	},
}

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()

	reg.MustRegister(addDecl, func(_ context.Context, _ string, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
	reg.MustRegister(types.ToolDeclaration{Name: "echo_task"}, func(_ context.Context, userMessage string, _ map[string]any) (any, error) {
		return map[string]any{"task": userMessage}, nil
	})
	reg.MustRegister(types.ToolDeclaration{Name: "broken"}, func(context.Context, string, map[string]any) (any, error) {
		return nil, errors.New("disk on fire")
	})
	reg.MustRegister(types.ToolDeclaration{Name: "panicky"}, func(context.Context, string, map[string]any) (any, error) {
		panic("boom")
	})
	reg.MustRegister(types.ToolDeclaration{Name: "slow"}, func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	})

	reg.Freeze()
	return reg
}

func TestDispatcher_Invoke(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t), 100*time.Millisecond, zap.NewNop())

	tests := []struct {
		name       string
		call       types.FunctionCall
		wantOK     bool
		wantReason string
	}{
		{"add", types.FunctionCall{Name: "add", Args: map[string]any{"a": 2.0, "b": 3.0}}, true, ""},
		{"unknown tool", types.FunctionCall{Name: "nonexistent"}, false, "tool not found: nonexistent"},
		{"missing arg", types.FunctionCall{Name: "add", Args: map[string]any{"a": 2.0}}, false, "invalid arguments: missing required parameter: b"},
		{"wrong kind", types.FunctionCall{Name: "add", Args: map[string]any{"a": "2", "b": 3.0}}, false, "invalid arguments: invalid type for a"},
		{"handler error", types.FunctionCall{Name: "broken"}, false, "disk on fire"},
		{"panic", types.FunctionCall{Name: "panicky"}, false, "tool panicked: boom"},
		{"timeout", types.FunctionCall{Name: "slow"}, false, "timed out"},
	}

	for _, tt := range tests {
		outcome := d.Invoke(context.Background(), tt.call, "task")
		if outcome.Success != tt.wantOK {
			t.Errorf("%s: success = %v, want %v (reason %q)", tt.name, outcome.Success, tt.wantOK, outcome.Reason)
			continue
		}
		if !tt.wantOK && !strings.Contains(outcome.Reason, tt.wantReason) {
			t.Errorf("%s: reason = %q, want it to contain %q", tt.name, outcome.Reason, tt.wantReason)
		}
		if tt.name == "timeout" && outcome.Duration < 100*time.Millisecond {
			t.Errorf("%s: duration %v shorter than the timeout", tt.name, outcome.Duration)
		}
	}
}

func TestDispatcher_AddPayload(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t), 0, nil)

	outcome := d.Invoke(context.Background(), types.FunctionCall{Name: "add", Args: map[string]any{"a": 2.0, "b": 3.0}}, "add")
	if !outcome.Success {
		t.Fatalf("expected success, got %q", outcome.Reason)
	}
	if outcome.Payload != 5.0 {
		t.Fatalf("expected payload 5, got %v", outcome.Payload)
	}
}

func TestDispatcher_PassesUserMessage(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t), 0, nil)

	outcome := d.Invoke(context.Background(), types.FunctionCall{Name: "echo_task"}, "plan my week")
	payload, ok := outcome.Payload.(map[string]any)
	if !ok || payload["task"] != "plan my week" {
		t.Fatalf("unexpected payload: %#v", outcome.Payload)
	}
}

func TestDispatcher_CancelledContext(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t), 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := d.Invoke(ctx, types.FunctionCall{Name: "slow"}, "x")
	if outcome.Success {
		t.Fatal("expected failure for cancelled context")
	}
	if !strings.Contains(outcome.Reason, "cancelled") {
		t.Fatalf("unexpected reason: %q", outcome.Reason)
	}
}

func TestDispatcher_FailedOutcomeFeedsTranscript(t *testing.T) {
	d := NewDispatcher(newTestRegistry(t), 0, nil)
	call := types.FunctionCall{Name: "nonexistent"}

	msg := types.FunctionResult(call, d.Invoke(context.Background(), call, "x"))
	payload, ok := msg.Payload.(map[string]any)
	if !msg.Failed || !ok || payload["error"] != "tool not found: nonexistent" {
		t.Fatalf("unexpected result message: %#v", msg)
	}
}

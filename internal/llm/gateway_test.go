package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ashutoshrp06/taskloop/internal/llm"
	"github.com/ashutoshrp06/taskloop/internal/llm/llmtest"
	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(addDecl, func(context.Context, string, map[string]any) (any, error) {
		return nil, nil
	}))
	reg.Freeze()
	return reg
}

func newGateway(t *testing.T, provider llm.Provider) *llm.Gateway {
	t.Helper()
	gw, err := llm.NewGateway(llm.GatewayConfig{
		Provider:          provider,
		Registry:          newRegistry(t),
		SystemInstruction: "be brief",
	})
	require.NoError(t, err)
	return gw
}

func TestNewGateway_RequiresProvider(t *testing.T) {
	_, err := llm.NewGateway(llm.GatewayConfig{})
	assert.Error(t, err)
}

func TestConverse_FinalAnswer(t *testing.T) {
	provider := llmtest.NewScriptedProvider(llmtest.Text("Hello there. Task completed"))
	gw := newGateway(t, provider)

	reply, err := gw.Converse(context.Background(), []types.Message{types.UserText("hi")}, nil)
	require.NoError(t, err)

	assert.Equal(t, llm.FinalAnswer, reply.Kind)
	assert.Equal(t, "Hello there. Task completed", reply.Text)
	_, ok := reply.Call()
	assert.False(t, ok)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "be brief", reqs[0].System)
}

func TestConverse_ToolRequest(t *testing.T) {
	provider := llmtest.NewScriptedProvider(llmtest.Call("add", map[string]any{"a": 2.0, "b": 3.0}))
	gw := newGateway(t, provider)

	reply, err := gw.Converse(context.Background(), []types.Message{types.UserText("add 2 and 3")}, []types.ToolDeclaration{addDecl})
	require.NoError(t, err)

	assert.Equal(t, llm.ToolRequest, reply.Kind)
	call, ok := reply.Call()
	require.True(t, ok)
	assert.Equal(t, "add", call.Name)
	assert.Equal(t, 0, reply.Discarded)
	assert.Len(t, provider.Requests()[0].Declarations, 1)
}

func TestConverse_FirstCallOnly(t *testing.T) {
	provider := llmtest.NewScriptedProvider(llmtest.Response{Calls: []types.FunctionCall{
		{Name: "add", Args: map[string]any{"a": 1.0, "b": 1.0}},
		{Name: "add", Args: map[string]any{"a": 2.0, "b": 2.0}},
		{Name: "add", Args: map[string]any{"a": 3.0, "b": 3.0}},
	}})
	gw := newGateway(t, provider)

	reply, err := gw.Converse(context.Background(), []types.Message{types.UserText("go")}, []types.ToolDeclaration{addDecl})
	require.NoError(t, err)

	require.Len(t, reply.Calls, 1)
	assert.Equal(t, 1.0, reply.Calls[0].Args["a"])
	assert.Equal(t, 2, reply.Discarded)
}

func TestConverse_CallsIgnoredWithoutDeclarations(t *testing.T) {
	provider := llmtest.NewScriptedProvider(llmtest.Response{
		Text:  "I would add them",
		Calls: []types.FunctionCall{{Name: "add"}},
	})
	gw := newGateway(t, provider)

	reply, err := gw.Converse(context.Background(), []types.Message{types.UserText("go")}, nil)
	require.NoError(t, err)
	assert.Equal(t, llm.FinalAnswer, reply.Kind)
	assert.Empty(t, reply.Calls)
}

func TestConverse_UndeclaredTool(t *testing.T) {
	provider := llmtest.NewScriptedProvider(llmtest.Text("unused"))
	gw := newGateway(t, provider)

	decls := []types.ToolDeclaration{addDecl, {Name: "launch_rockets"}}
	_, err := gw.Converse(context.Background(), []types.Message{types.UserText("go")}, decls)

	assert.ErrorIs(t, err, llm.ErrUndeclaredTool)
	assert.Equal(t, 0, provider.Calls(), "nothing must be sent")
}

func TestConverse_ProviderError(t *testing.T) {
	cause := errors.New("503 unavailable")
	provider := llmtest.NewScriptedProvider(llmtest.Response{Err: cause})
	gw := newGateway(t, provider)

	_, err := gw.Converse(context.Background(), []types.Message{types.UserText("go")}, nil)

	var gwErr *llm.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "scripted", gwErr.Provider)
	assert.ErrorIs(t, err, cause)
}

func TestValidateHistory(t *testing.T) {
	call := types.FunctionCall{Name: "add", Args: map[string]any{"a": 1.0, "b": 2.0}}
	other := types.FunctionCall{Name: "get_weather"}

	tests := []struct {
		name    string
		history []types.Message
		wantErr bool
	}{
		{"single user text", []types.Message{types.UserText("hi")}, false},
		{"tool round trip", []types.Message{
			types.UserText("hi"),
			types.ModelCall("", call),
			types.FunctionResult(call, types.Succeeded(3.0)),
		}, false},
		{"continuation", []types.Message{
			types.UserText("hi"),
			types.ModelText("still working"),
			types.UserText("continue"),
		}, false},
		{"empty", nil, true},
		{"starts with model", []types.Message{types.ModelText("hi"), types.UserText("x")}, true},
		{"ends with model text", []types.Message{types.UserText("hi"), types.ModelText("ok")}, true},
		{"orphan result", []types.Message{
			types.UserText("hi"),
			types.FunctionResult(call, types.Succeeded(3.0)),
		}, true},
		{"mismatched result", []types.Message{
			types.UserText("hi"),
			types.ModelCall("", other),
			types.FunctionResult(call, types.Succeeded(3.0)),
		}, true},
		{"call without result", []types.Message{
			types.UserText("hi"),
			types.ModelCall("", call),
			types.UserText("again"),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := llm.ValidateHistory(tt.history)
			if tt.wantErr {
				assert.ErrorIs(t, err, llm.ErrInvalidHistory)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConverse_RejectsInvalidHistory(t *testing.T) {
	provider := llmtest.NewScriptedProvider(llmtest.Text("unused"))
	gw := newGateway(t, provider)

	_, err := gw.Converse(context.Background(), nil, nil)
	assert.ErrorIs(t, err, llm.ErrInvalidHistory)
	assert.Equal(t, 0, provider.Calls())
}

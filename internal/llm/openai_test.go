package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"","tool_calls":[
			{"id":"call_abc","type":"function","function":{"name":"add","arguments":"{\"a\":2,\"b\":3}"}}
		]}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.LLMConfig{Endpoint: srv.URL + "/", APIKey: "sk-test", Model: "local"}, nil)

	prev := types.FunctionCall{Name: "get_weather", Args: map[string]any{"location": "Paris"}}
	completion, err := p.Complete(context.Background(), Request{
		System: "sys",
		Messages: []types.Message{
			types.UserText("weather then add"),
			types.ModelCall("", prev),
			types.FunctionResult(prev, types.Succeeded(map[string]any{"temp": 20.0})),
		},
		Declarations: []types.ToolDeclaration{{
			Name: "add",
			Parameters: types.Schema{
				Type:       types.TypeObject,
				Properties: map[string]*types.Schema{"a": {Type: types.TypeNumber}},
			},
		}},
	})
	require.NoError(t, err)

	require.Len(t, completion.Calls, 1)
	assert.Equal(t, "call_abc", completion.Calls[0].ID)
	assert.Equal(t, "add", completion.Calls[0].Name)
	assert.Equal(t, 2.0, completion.Calls[0].Args["a"])

	assert.Equal(t, "local", got["model"])
	assert.Equal(t, "auto", got["tool_choice"])
	assert.Equal(t, false, got["parallel_tool_calls"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 4)
	roles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)

	assistant := msgs[2].(map[string]any)
	toolCalls := assistant["tool_calls"].([]any)
	id := toolCalls[0].(map[string]any)["id"]
	assert.Equal(t, id, msgs[3].(map[string]any)["tool_call_id"], "tool message must answer the assistant call")
	assert.JSONEq(t, `{"temp":20}`, msgs[3].(map[string]any)["content"].(string))

	tools := got["tools"].([]any)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "add", fn["name"])
	assert.Equal(t, "object", fn["parameters"].(map[string]any)["type"])
}

func TestOpenAIProvider_NoToolsOmitsToolChoice(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"Hello! Task completed"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.LLMConfig{Endpoint: srv.URL}, nil)
	completion, err := p.Complete(context.Background(), Request{Messages: []types.Message{types.UserText("hi")}})
	require.NoError(t, err)

	assert.Equal(t, "Hello! Task completed", completion.Text)
	assert.Empty(t, completion.Calls)
	assert.NotContains(t, got, "tools")
	assert.NotContains(t, got, "tool_choice")
	assert.NotContains(t, got, "parallel_tool_calls")
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, `boom`, "status 500"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no candidates"},
		{"bad json", http.StatusOK, `{`, "decode failed"},
		{"bad arguments", http.StatusOK, `{"choices":[{"message":{"tool_calls":[{"id":"x","type":"function","function":{"name":"add","arguments":"not json"}}]}}]}`, "decode arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAIProvider(config.LLMConfig{Endpoint: srv.URL}, nil)
			_, err := p.Complete(context.Background(), Request{Messages: []types.Message{types.UserText("hi")}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOpenAIProvider_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.LLMConfig{Endpoint: srv.URL}, nil)
	assert.NoError(t, p.Ping(context.Background()))

	bad := NewOpenAIProvider(config.LLMConfig{Endpoint: srv.URL + "/v2"}, nil)
	assert.Error(t, bad.Ping(context.Background()))
}

func TestOpenAIMessages_SynthesizesCallIDs(t *testing.T) {
	call := types.FunctionCall{Name: "add"}
	msgs := openAIMessages("", []types.Message{
		types.UserText("x"),
		types.ModelCall("", call),
		types.FunctionResult(call, types.Succeeded(1.0)),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)
	assert.Equal(t, "{}", msgs[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, `{"output":1}`, msgs[2].Content)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.LLMConfig{Provider: "OpenAI"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, DefaultOpenAIModel, p.Model())

	_, err = NewProvider(context.Background(), config.LLMConfig{Provider: "carrier-pigeon"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

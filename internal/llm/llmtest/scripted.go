// Package llmtest provides a deterministic provider for agent and gateway tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashutoshrp06/taskloop/internal/llm"
	"github.com/ashutoshrp06/taskloop/internal/types"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Text  string
	Calls []types.FunctionCall
	Err   error
	// Wait blocks the turn until the context is done.
	Wait bool
}

// Text returns a plain text turn.
func Text(text string) Response {
	return Response{Text: text}
}

// Call returns a turn requesting a single tool.
func Call(name string, args map[string]any) Response {
	return Response{Calls: []types.FunctionCall{{Name: name, Args: args}}}
}

// ScriptedProvider replays responses in order. Once the script is exhausted it
// keeps returning the fallback, or fails if there is none.
type ScriptedProvider struct {
	mu        sync.Mutex
	index     int
	responses []Response
	fallback  *Response
	requests  []llm.Request
}

func NewScriptedProvider(responses ...Response) *ScriptedProvider {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedProvider{
		responses: cloned,
	}
}

// Repeat returns a provider that answers every turn with resp.
func Repeat(resp Response) *ScriptedProvider {
	p := NewScriptedProvider()
	p.fallback = &resp
	return p
}

var _ llm.Provider = (*ScriptedProvider)(nil)

func (p *ScriptedProvider) Name() string  { return "scripted" }
func (p *ScriptedProvider) Model() string { return "scripted" }

func (p *ScriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	p.mu.Lock()
	cloned := req
	cloned.Messages = append([]types.Message(nil), req.Messages...)
	p.requests = append(p.requests, cloned)

	var current Response
	switch {
	case p.index < len(p.responses):
		current = p.responses[p.index]
		p.index++
	case p.fallback != nil:
		current = *p.fallback
	default:
		step := p.index + 1
		p.mu.Unlock()
		return nil, fmt.Errorf("script exhausted at step %d", step)
	}
	p.mu.Unlock()

	if current.Wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if current.Err != nil {
		return nil, current.Err
	}

	calls := make([]types.FunctionCall, len(current.Calls))
	copy(calls, current.Calls)
	return &llm.Completion{Text: current.Text, Calls: calls}, nil
}

// Calls returns how many requests were made.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of every request received.
func (p *ScriptedProvider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

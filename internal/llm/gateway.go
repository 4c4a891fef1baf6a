package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"go.uber.org/zap"
)

// ReplyKind tells the controller what the model asked for.
type ReplyKind int

const (
	FinalAnswer ReplyKind = iota
	ToolRequest
)

func (k ReplyKind) String() string {
	if k == ToolRequest {
		return "ToolRequest"
	}
	return "FinalAnswer"
}

// Reply is the interpreted model answer. For a ToolRequest, Calls holds
// exactly one call; Discarded counts the extra calls dropped by the
// first-call-only policy.
type Reply struct {
	Kind      ReplyKind
	Text      string
	Calls     []types.FunctionCall
	Discarded int
}

// Call returns the requested call of a ToolRequest.
func (r Reply) Call() (types.FunctionCall, bool) {
	if r.Kind != ToolRequest || len(r.Calls) == 0 {
		return types.FunctionCall{}, false
	}
	return r.Calls[0], true
}

// GatewayConfig holds gateway dependencies.
type GatewayConfig struct {
	Provider          Provider
	Registry          *tools.Registry
	SystemInstruction string
	Logger            *zap.Logger
}

// Gateway is the single place where the transcript meets a model provider.
type Gateway struct {
	provider Provider
	registry *tools.Registry
	system   string
	logger   *zap.Logger
}

// NewGateway creates a gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Provider == nil {
		return nil, errors.New("gateway requires a provider")
	}
	if cfg.Registry == nil {
		cfg.Registry = tools.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Gateway{
		provider: cfg.Provider,
		registry: cfg.Registry,
		system:   cfg.SystemInstruction,
		logger:   cfg.Logger,
	}, nil
}

// Provider returns the underlying provider.
func (g *Gateway) Provider() Provider {
	return g.provider
}

// Converse sends history and the active tool declarations to the model and
// classifies the answer. At most one call is returned per turn.
func (g *Gateway) Converse(ctx context.Context, history []types.Message, decls []types.ToolDeclaration) (Reply, error) {
	if err := ValidateHistory(history); err != nil {
		return Reply{}, err
	}

	for _, decl := range decls {
		if !g.registry.Has(decl.Name) {
			return Reply{}, fmt.Errorf("%w: %s", ErrUndeclaredTool, decl.Name)
		}
	}

	completion, err := g.provider.Complete(ctx, Request{
		System:       g.system,
		Messages:     history,
		Declarations: decls,
	})
	if err != nil {
		return Reply{}, &GatewayError{Provider: g.provider.Name(), Cause: err}
	}

	reply := Reply{Kind: FinalAnswer, Text: completion.Text}

	if len(completion.Calls) == 0 {
		return reply, nil
	}

	if len(decls) == 0 {
		g.logger.Warn("Ignoring function calls, no tools were declared",
			zap.Int("calls", len(completion.Calls)),
		)
		return reply, nil
	}

	reply.Kind = ToolRequest
	reply.Calls = completion.Calls[:1]
	reply.Discarded = len(completion.Calls) - 1

	if reply.Discarded > 0 {
		discarded := make([]string, 0, reply.Discarded)
		for _, call := range completion.Calls[1:] {
			discarded = append(discarded, call.Name)
		}
		g.logger.Warn("Discarding extra function calls",
			zap.String("kept", reply.Calls[0].Name),
			zap.Strings("discarded", discarded),
		)
	}

	return reply, nil
}

// ValidateHistory checks the transcript shape every provider relies on.
func ValidateHistory(history []types.Message) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: empty history", ErrInvalidHistory)
	}
	if history[0].Kind != types.KindUserText {
		return fmt.Errorf("%w: first message is %s, want UserText", ErrInvalidHistory, history[0].Kind)
	}

	last := history[len(history)-1]
	if last.Kind != types.KindUserText && last.Kind != types.KindFunctionResult {
		return fmt.Errorf("%w: last message is %s, want UserText or FunctionResult", ErrInvalidHistory, last.Kind)
	}

	for i, msg := range history {
		switch {
		case msg.Kind == types.KindFunctionResult:
			if i == 0 || !history[i-1].IsToolRequest() || history[i-1].Call.Name != msg.ToolName {
				return fmt.Errorf("%w: result for %q at %d has no matching call", ErrInvalidHistory, msg.ToolName, i)
			}
		case msg.IsToolRequest():
			if i+1 >= len(history) || history[i+1].Kind != types.KindFunctionResult {
				return fmt.Errorf("%w: call to %q at %d has no result", ErrInvalidHistory, msg.Call.Name, i)
			}
		}
	}

	return nil
}

// Package llm normalizes the transcript into provider requests and interprets
// the provider's answer as either plain text or a function-call request.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"go.uber.org/zap"
)

var (
	ErrInvalidHistory  = errors.New("invalid history")
	ErrUndeclaredTool  = errors.New("declared tool is not registered")
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrEmptyCompletion = errors.New("provider returned no candidates")
)

// GatewayError wraps a provider or transport failure. It is never retried.
type GatewayError struct {
	Provider string
	Cause    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Cause)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Request is the provider-neutral input for one model call.
type Request struct {
	System       string
	Messages     []types.Message
	Declarations []types.ToolDeclaration
}

// Completion is the provider-neutral model answer. Calls is empty for a plain
// text answer and may hold several calls when the provider ignores the
// non-parallel setting.
type Completion struct {
	Text  string
	Calls []types.FunctionCall
}

// Provider sends one normalized request to a model backend.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGeminiProvider(ctx, cfg, logger)
	case "openai":
		return NewOpenAIProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// responsePayload turns a FunctionResult payload into the JSON object the
// providers expect.
func responsePayload(msg types.Message) map[string]any {
	if obj, ok := msg.Payload.(map[string]any); ok {
		return obj
	}
	return map[string]any{"output": msg.Payload}
}

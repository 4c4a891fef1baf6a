// Package executor runs the tool calls requested by the model.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"github.com/ashutoshrp06/taskloop/internal/validator"
	"go.uber.org/zap"
)

// Dispatcher resolves a call in the registry, validates its arguments and
// runs the handler. Every failure is packaged as a failed ToolOutcome so the
// model can adapt; nothing escapes as an error.
type Dispatcher struct {
	registry *tools.Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. A zero timeout disables the per-call
// deadline; the caller's context still applies.
func NewDispatcher(registry *tools.Registry, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
		logger:   logger,
	}
}

type handlerResult struct {
	payload any
	err     error
}

// Invoke executes one call. userMessage is the text that started the run.
func (d *Dispatcher) Invoke(ctx context.Context, call types.FunctionCall, userMessage string) types.ToolOutcome {
	start := time.Now()
	outcome := d.invoke(ctx, call, userMessage)
	outcome.Duration = time.Since(start)

	if outcome.Success {
		d.logger.Info("Tool succeeded",
			zap.String("tool", call.Name),
			zap.Duration("duration", outcome.Duration),
		)
	} else {
		d.logger.Warn("Tool failed",
			zap.String("tool", call.Name),
			zap.String("reason", outcome.Reason),
			zap.Duration("duration", outcome.Duration),
		)
	}
	return outcome
}

func (d *Dispatcher) invoke(ctx context.Context, call types.FunctionCall, userMessage string) types.ToolOutcome {
	handler, err := d.registry.Resolve(call.Name)
	if err != nil {
		return types.Failed("tool not found: %s", call.Name)
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}

	if decl, ok := d.registry.Declaration(call.Name); ok {
		if err := validator.ValidateArgs(decl.Parameters, args); err != nil {
			return types.Failed("invalid arguments: %v", err)
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	d.logger.Debug("Executing tool",
		zap.String("tool", call.Name),
		zap.Any("args", args),
	)

	done := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handlerResult{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		payload, err := handler(ctx, userMessage, args)
		done <- handlerResult{payload: payload, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctx.Err() != nil {
				return contextFailure(call.Name, ctx.Err())
			}
			return types.Failed("%s", res.err.Error())
		}
		return types.Succeeded(res.payload)
	case <-ctx.Done():
		return contextFailure(call.Name, ctx.Err())
	}
}

func contextFailure(name string, err error) types.ToolOutcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.Failed("tool %s timed out", name)
	}
	return types.Failed("tool %s cancelled: %v", name, err)
}

// Package agent implements the loop that drives the model through a task.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/executor"
	"github.com/ashutoshrp06/taskloop/internal/llm"
	"github.com/ashutoshrp06/taskloop/internal/transcript"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"github.com/ashutoshrp06/taskloop/internal/validator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxIterations = 10

	// MaxIterationsNotice is appended when the iteration budget runs out.
	MaxIterationsNotice = "Maximum iterations reached. The task may not be complete."

	// IgnoredCallNotice replaces an empty follow-up answer in single-turn
	// mode when the model asked for another tool.
	IgnoredCallNotice = "Stopped before running %s: single-turn mode allows one tool call. Use --loop for multi-step tasks."

	// DefaultContinuationPrompt is sent after a final answer the judge did
	// not accept, so the next request again ends with user text.
	DefaultContinuationPrompt = `Continue with the task. When it is fully complete, give the final result and say "Task completed".`
)

// Observer receives progress events. It is called from the goroutine running
// the task and must be safe for concurrent use when runs overlap.
type Observer func(types.AgentEvent)

// Config holds agent dependencies and loop policy.
type Config struct {
	Gateway    *llm.Gateway
	Dispatcher *executor.Dispatcher
	// Declarations are the tools offered to the model. Empty means the run
	// has no tools and the first answer completes it.
	Declarations       []types.ToolDeclaration
	Judge              Judge
	MaxIterations      int
	Pause              time.Duration
	RunTimeout         time.Duration
	ContinuationPrompt string
	Observer           Observer
	Logger             *zap.Logger
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	Status     types.RunStatus
	Iterations int
	Transcript []types.Message
	// Discarded counts function calls dropped because the model asked for
	// more than one in a turn.
	Discarded int
}

// FinalText returns the text of the last model message.
func (r *Result) FinalText() string {
	for i := len(r.Transcript) - 1; i >= 0; i-- {
		if r.Transcript[i].Kind == types.KindModelText && r.Transcript[i].Text != "" {
			return r.Transcript[i].Text
		}
	}
	return ""
}

// Agent runs tasks. It holds no per-run state, so one Agent can serve
// concurrent runs.
type Agent struct {
	gateway        *llm.Gateway
	dispatcher     *executor.Dispatcher
	decls          []types.ToolDeclaration
	judge          Judge
	maxIterations  int
	pause          time.Duration
	runTimeout     time.Duration
	continuation   string
	observer       Observer
	inputValidator *validator.InputValidator
	logger         *zap.Logger
}

// New creates an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("agent requires a gateway")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("agent requires a dispatcher")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Judge == nil {
		cfg.Judge = DefaultJudge()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ContinuationPrompt == "" {
		cfg.ContinuationPrompt = DefaultContinuationPrompt
	}

	decls := make([]types.ToolDeclaration, len(cfg.Declarations))
	copy(decls, cfg.Declarations)

	return &Agent{
		gateway:        cfg.Gateway,
		dispatcher:     cfg.Dispatcher,
		decls:          decls,
		judge:          cfg.Judge,
		maxIterations:  cfg.MaxIterations,
		pause:          cfg.Pause,
		runTimeout:     cfg.RunTimeout,
		continuation:   cfg.ContinuationPrompt,
		observer:       cfg.Observer,
		inputValidator: validator.NewInputValidator(),
		logger:         cfg.Logger,
	}, nil
}

// run is the state owned by a single task execution.
type run struct {
	id        string
	task      string
	store     *transcript.Store
	status    types.RunStatus
	discarded int
	logger    *zap.Logger
}

func (a *Agent) start(task string) (*run, error) {
	if err := a.inputValidator.Validate(task); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	task = a.inputValidator.Sanitize(task)

	r := &run{
		id:     uuid.NewString(),
		task:   task,
		store:  transcript.NewStore(),
		status: types.StatusRunning,
	}
	r.logger = a.logger.With(zap.String("run_id", r.id))

	if err := r.store.Append(types.UserText(task)); err != nil {
		return nil, err
	}

	r.logger.Info("Run started",
		zap.String("task", truncate(task, 80)),
		zap.Int("tools", len(a.decls)),
		zap.Int("max_iterations", a.maxIterations),
	)
	a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusRunning, Phase: types.PhaseThinking})
	return r, nil
}

func (a *Agent) finish(r *run, status types.RunStatus, iterations int) *Result {
	r.status = status
	r.logger.Info("Run finished",
		zap.String("status", status.String()),
		zap.Int("iterations", iterations),
		zap.Int("discarded_calls", r.discarded),
	)
	a.emit(types.AgentEvent{RunID: r.id, Status: status, Phase: types.PhaseDone, Iteration: iterations})

	return &Result{
		RunID:      r.id,
		Status:     status,
		Iterations: iterations,
		Transcript: r.store.Messages(),
		Discarded:  r.discarded,
	}
}

// fail ends the run without touching the transcript.
func (a *Agent) fail(r *run, iterations int, err error) (*Result, error) {
	r.logger.Error("Run failed", zap.Error(err), zap.Int("iteration", iterations))
	a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusFailed, Phase: types.PhaseDone, Iteration: iterations, Message: err.Error()})

	r.status = types.StatusFailed
	return &Result{
		RunID:      r.id,
		Status:     types.StatusFailed,
		Iterations: iterations,
		Transcript: r.store.Messages(),
		Discarded:  r.discarded,
	}, err
}

// Run drives the model until the judge accepts an answer or the iteration
// budget runs out. A provider failure or context cancellation ends the run
// with StatusFailed and returns the error alongside the partial result.
func (a *Agent) Run(ctx context.Context, task string) (*Result, error) {
	r, err := a.start(task)
	if err != nil {
		return nil, err
	}

	if a.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.runTimeout)
		defer cancel()
	}

	pacer := a.newPacer()
	state := types.LoopState{MaxIterations: a.maxIterations}

	for !state.Done {
		state.Iteration++
		if state.Iteration > state.MaxIterations {
			r.logger.Warn("Iteration budget exhausted", zap.Int("max_iterations", state.MaxIterations))
			if err := r.store.Append(types.ModelText(MaxIterationsNotice)); err != nil {
				return a.fail(r, state.MaxIterations, err)
			}
			return a.finish(r, types.StatusMaxIterationsReached, state.MaxIterations), nil
		}

		if err := ctx.Err(); err != nil {
			return a.fail(r, state.Iteration, fmt.Errorf("run stopped: %w", err))
		}
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				return a.fail(r, state.Iteration, fmt.Errorf("run stopped: %w", err))
			}
		}

		if last, ok := r.store.Last(); ok && last.Kind == types.KindModelText && !last.IsToolRequest() {
			if err := r.store.Append(types.UserText(a.continuation)); err != nil {
				return a.fail(r, state.Iteration, err)
			}
		}

		reply, err := a.converse(ctx, r, state.Iteration)
		if err != nil {
			return a.fail(r, state.Iteration, err)
		}

		if call, ok := reply.Call(); ok {
			if err := a.runTool(ctx, r, state.Iteration, reply.Text, call); err != nil {
				return a.fail(r, state.Iteration, err)
			}
			continue
		}

		if err := r.store.Append(types.ModelText(reply.Text)); err != nil {
			return a.fail(r, state.Iteration, err)
		}
		a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusRunning, Phase: types.PhaseAnswer, Iteration: state.Iteration, Message: reply.Text})

		if len(a.decls) == 0 || a.judge.Complete(reply.Text) {
			state.Done = true
		}
	}

	return a.finish(r, types.StatusCompleted, state.Iteration), nil
}

// RunOnce makes a single model call. If the model asks for a tool, the tool
// runs and one follow-up call produces the answer. No judge and no cap apply.
func (a *Agent) RunOnce(ctx context.Context, task string) (*Result, error) {
	r, err := a.start(task)
	if err != nil {
		return nil, err
	}

	if a.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.runTimeout)
		defer cancel()
	}

	reply, err := a.converse(ctx, r, 1)
	if err != nil {
		return a.fail(r, 1, err)
	}

	if call, ok := reply.Call(); ok {
		if err := a.runTool(ctx, r, 1, reply.Text, call); err != nil {
			return a.fail(r, 1, err)
		}
		reply, err = a.converse(ctx, r, 1)
		if err != nil {
			return a.fail(r, 1, err)
		}
		if follow, ok := reply.Call(); ok {
			r.logger.Warn("Ignoring tool request in follow-up turn", zap.String("tool", follow.Name))
			if strings.TrimSpace(reply.Text) == "" {
				reply.Text = fmt.Sprintf(IgnoredCallNotice, follow.Name)
			}
		}
	}

	if err := r.store.Append(types.ModelText(reply.Text)); err != nil {
		return a.fail(r, 1, err)
	}
	a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusRunning, Phase: types.PhaseAnswer, Iteration: 1, Message: reply.Text})

	return a.finish(r, types.StatusCompleted, 1), nil
}

// RunCmd returns a Bubble Tea command that runs task and reports a ResultMsg.
func (a *Agent) RunCmd(ctx context.Context, task string, loop bool) tea.Cmd {
	return func() tea.Msg {
		var (
			result *Result
			err    error
		)
		if loop {
			result, err = a.Run(ctx, task)
		} else {
			result, err = a.RunOnce(ctx, task)
		}
		return ResultMsg{Result: result, Err: err}
	}
}

// ResultMsg carries a finished run back into a Bubble Tea program.
type ResultMsg struct {
	Result *Result
	Err    error
}

func (a *Agent) converse(ctx context.Context, r *run, iteration int) (llm.Reply, error) {
	if err := ctx.Err(); err != nil {
		return llm.Reply{}, fmt.Errorf("run stopped: %w", err)
	}

	a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusRunning, Phase: types.PhaseThinking, Iteration: iteration})

	start := time.Now()
	reply, err := a.gateway.Converse(ctx, r.store.Messages(), a.decls)
	if err != nil {
		return llm.Reply{}, fmt.Errorf("model call failed: %w", err)
	}
	r.discarded += reply.Discarded

	r.logger.Debug("Model replied",
		zap.Int("iteration", iteration),
		zap.String("kind", reply.Kind.String()),
		zap.Duration("latency", time.Since(start)),
		zap.String("text", truncate(reply.Text, 200)),
	)
	return reply, nil
}

// runTool records the model's request, dispatches it and records the result.
func (a *Agent) runTool(ctx context.Context, r *run, iteration int, text string, call types.FunctionCall) error {
	if err := r.store.Append(types.ModelCall(text, call)); err != nil {
		return err
	}
	a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusRunning, Phase: types.PhaseToolCall, Iteration: iteration, ToolCall: &call, Message: text})

	outcome := a.dispatcher.Invoke(ctx, call, r.task)

	if err := r.store.Append(types.FunctionResult(call, outcome)); err != nil {
		return err
	}
	a.emit(types.AgentEvent{RunID: r.id, Status: types.StatusRunning, Phase: types.PhaseToolResult, Iteration: iteration, ToolCall: &call, Outcome: &outcome})
	return nil
}

// newPacer spaces model calls by the configured pause. The first call is not
// delayed.
func (a *Agent) newPacer() *rate.Limiter {
	if a.pause <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(a.pause), 1)
}

func (a *Agent) emit(event types.AgentEvent) {
	if a.observer != nil {
		a.observer(event)
	}
}

// Pinger is implemented by providers that can check connectivity cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that the model endpoint is reachable when the provider
// supports it.
func (a *Agent) Ping(ctx context.Context) error {
	p, ok := a.gateway.Provider().(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("LLM not reachable: %w", err)
	}
	return nil
}

// Tools returns the declarations offered to the model.
func (a *Agent) Tools() []types.ToolDeclaration {
	out := make([]types.ToolDeclaration, len(a.decls))
	copy(out, a.decls)
	return out
}

// LLMInfo describes the configured model.
func (a *Agent) LLMInfo() string {
	p := a.gateway.Provider()
	return fmt.Sprintf("%s @ %s", p.Model(), p.Name())
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

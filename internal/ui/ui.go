// Package ui renders run progress and transcripts in the terminal.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/agent"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Progress shows a spinner and the current phase while a run executes.
// Observe is the agent observer; it forwards events into the program.
type Progress struct {
	mu      sync.Mutex
	program *tea.Program
	styles  Styles
	out     io.Writer
}

func NewProgress(out io.Writer) *Progress {
	return &Progress{
		styles: DefaultStyles(),
		out:    out,
	}
}

// Observe forwards an agent event to the running program.
func (p *Progress) Observe(event types.AgentEvent) {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program != nil {
		program.Send(event)
	}
}

// Run executes cmd under the spinner. cancel is called on ctrl+c; the program
// then waits for the run to report its failure.
func (p *Progress) Run(cmd tea.Cmd, cancel context.CancelFunc) (agent.ResultMsg, error) {
	program := tea.NewProgram(newModel(p.styles, cmd, cancel), tea.WithOutput(p.out))

	p.mu.Lock()
	p.program = program
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.program = nil
		p.mu.Unlock()
	}()

	final, err := program.Run()
	if err != nil {
		return agent.ResultMsg{}, fmt.Errorf("progress display failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok || !m.done {
		return agent.ResultMsg{}, errors.New("run did not finish")
	}
	return m.result, nil
}

// Model is the Bubble Tea model for the progress display.
type Model struct {
	spinner   spinner.Model
	styles    Styles
	status    string
	iteration int
	run       tea.Cmd
	cancel    context.CancelFunc
	result    agent.ResultMsg
	done      bool
}

func newModel(styles Styles, run tea.Cmd, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return Model{
		spinner: s,
		styles:  styles,
		status:  types.PhaseThinking.String(),
		run:     run,
		cancel:  cancel,
	}
}

// Init starts the spinner and the run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.cancel != nil {
				m.cancel()
			}
			m.status = "Cancelling"
		}
		return m, nil

	case agent.ResultMsg:
		m.result = msg
		m.done = true
		return m, tea.Quit

	case types.AgentEvent:
		m.iteration = msg.Iteration
		m.status = Describe(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner line. It is empty once the run is done so the
// transcript printed afterwards starts on a clean line.
func (m Model) View() string {
	if m.done {
		return ""
	}
	line := fmt.Sprintf("%s %s", m.spinner.View(), m.styles.StateLabel.Render(m.status+"..."))
	if m.iteration > 0 {
		line += m.styles.StatusText.Render(fmt.Sprintf(" (iteration %d)", m.iteration))
	}
	return line + "\n"
}

// Describe turns an event into a one-line status.
func Describe(event types.AgentEvent) string {
	switch event.Phase {
	case types.PhaseToolCall:
		if event.ToolCall != nil {
			return "Calling tool " + event.ToolCall.Name
		}
	case types.PhaseToolResult:
		if event.ToolCall != nil && event.Outcome != nil {
			if event.Outcome.Success {
				return fmt.Sprintf("Tool %s finished in %s", event.ToolCall.Name, event.Outcome.Duration.Round(time.Millisecond))
			}
			return fmt.Sprintf("Tool %s failed", event.ToolCall.Name)
		}
	case types.PhaseDone:
		return event.Status.String()
	}
	return event.Phase.String()
}

// PlainObserver writes one status line per event. It is used when stderr is
// not a terminal or the spinner is disabled.
func PlainObserver(w io.Writer) agent.Observer {
	var mu sync.Mutex
	return func(event types.AgentEvent) {
		if event.Phase != types.PhaseToolCall && event.Phase != types.PhaseToolResult && event.Phase != types.PhaseDone {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[%d] %s\n", event.Iteration, Describe(event))
	}
}

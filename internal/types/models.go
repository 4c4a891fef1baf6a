// Package types defines shared data structures for the agent runner.
package types

import (
	"fmt"
	"time"
)

// MessageKind discriminates the entries of a transcript.
type MessageKind int

const (
	KindUserText MessageKind = iota
	KindModelText
	KindFunctionResult
)

// String returns a human-readable kind name.
func (k MessageKind) String() string {
	names := [...]string{
		"UserText",
		"ModelText",
		"FunctionResult",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// FunctionCall is a structured request from the model to run a registered tool.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one transcript entry. Providers translate it into their own wire
// shape; nothing else branches on provider formats.
//
// A ModelText with a non-nil Call is a model turn that requested a tool; its
// Text is the intermediate text and may be empty. A FunctionResult always
// follows such a turn and repeats the call it answers.
type Message struct {
	Kind      MessageKind   `json:"kind"`
	Text      string        `json:"text,omitempty"`
	Call      *FunctionCall `json:"call,omitempty"`
	ToolName  string        `json:"tool_name,omitempty"`
	Payload   any           `json:"payload,omitempty"`
	Failed    bool          `json:"failed,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// UserText builds a user message.
func UserText(text string) Message {
	return Message{Kind: KindUserText, Text: text, Timestamp: time.Now()}
}

// ModelText builds a final or intermediate model message without a tool call.
func ModelText(text string) Message {
	return Message{Kind: KindModelText, Text: text, Timestamp: time.Now()}
}

// ModelCall builds a model turn that requested call.
func ModelCall(text string, call FunctionCall) Message {
	c := call
	return Message{Kind: KindModelText, Text: text, Call: &c, Timestamp: time.Now()}
}

// FunctionResult builds the tool response message for call.
func FunctionResult(call FunctionCall, outcome ToolOutcome) Message {
	c := call
	msg := Message{
		Kind:      KindFunctionResult,
		ToolName:  call.Name,
		Call:      &c,
		Timestamp: time.Now(),
	}
	if outcome.Success {
		msg.Payload = outcome.Payload
	} else {
		msg.Failed = true
		msg.Payload = map[string]any{"error": outcome.Reason}
	}
	return msg
}

// IsToolRequest reports whether the message is a model turn asking for a tool.
func (m Message) IsToolRequest() bool {
	return m.Kind == KindModelText && m.Call != nil
}

// ToolOutcome is the packaged result of one tool invocation.
type ToolOutcome struct {
	Success  bool          `json:"success"`
	Payload  any           `json:"payload,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Succeeded returns a successful outcome carrying payload.
func Succeeded(payload any) ToolOutcome {
	return ToolOutcome{Success: true, Payload: payload}
}

// Failed returns a failed outcome with a diagnostic reason.
func Failed(format string, args ...any) ToolOutcome {
	return ToolOutcome{Success: false, Reason: fmt.Sprintf(format, args...)}
}

// LoopState is the controller's private iteration bookkeeping.
type LoopState struct {
	Iteration     int
	MaxIterations int
	Done          bool
}

// RunStatus is the state of an agent run.
type RunStatus int

const (
	StatusIdle RunStatus = iota
	StatusRunning
	StatusCompleted
	StatusMaxIterationsReached
	StatusFailed
)

// String returns a human-readable status name.
func (s RunStatus) String() string {
	names := [...]string{
		"Idle",
		"Running",
		"Completed",
		"Max iterations reached",
		"Failed",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusMaxIterationsReached || s == StatusFailed
}

// AgentPhase describes what the controller is doing within an iteration.
type AgentPhase int

const (
	PhaseThinking AgentPhase = iota
	PhaseToolCall
	PhaseToolResult
	PhaseAnswer
	PhaseDone
)

// String returns a human-readable phase name.
func (p AgentPhase) String() string {
	names := [...]string{
		"Thinking",
		"Calling tool",
		"Tool finished",
		"Answering",
		"Done",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "Unknown"
}

// AgentEvent is sent during a run to update the UI.
type AgentEvent struct {
	RunID     string
	Status    RunStatus
	Phase     AgentPhase
	Iteration int
	ToolCall  *FunctionCall
	Outcome   *ToolOutcome
	Message   string
}

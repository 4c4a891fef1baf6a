package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ashutoshrp06/taskloop/internal/agent"
	"github.com/ashutoshrp06/taskloop/internal/types"
)

const maxPayloadLen = 300

// RenderTranscript writes every message with its role styling.
func RenderTranscript(w io.Writer, styles Styles, msgs []types.Message) {
	for _, msg := range msgs {
		fmt.Fprintln(w, renderMessage(styles, msg))
	}
}

// RenderSummary writes the run status line.
func RenderSummary(w io.Writer, styles Styles, result *agent.Result) {
	var status string
	switch result.Status {
	case types.StatusCompleted:
		status = styles.Completed.Render(result.Status.String())
	case types.StatusMaxIterationsReached:
		status = styles.Stopped.Render(result.Status.String())
	default:
		status = styles.Failed.Render(result.Status.String())
	}

	line := fmt.Sprintf("%s %s  %s %d",
		styles.Label.Render("Status:"), status,
		styles.Label.Render("Iterations:"), result.Iterations,
	)
	if result.Discarded > 0 {
		line += fmt.Sprintf("  %s %d", styles.Label.Render("Discarded calls:"), result.Discarded)
	}
	fmt.Fprintln(w, line)
}

func renderMessage(styles Styles, msg types.Message) string {
	switch msg.Kind {
	case types.KindUserText:
		return styles.UserMessage.Render("You: " + msg.Text)

	case types.KindModelText:
		if msg.IsToolRequest() {
			var b strings.Builder
			if msg.Text != "" {
				b.WriteString(styles.ModelMessage.Render("Model: " + msg.Text))
				b.WriteString("\n")
			}
			b.WriteString(styles.ToolBox.Render(
				styles.ToolName.Render("Tool: "+msg.Call.Name) + " " +
					styles.ToolParams.Render("("+FormatArgs(msg.Call.Args)+")"),
			))
			return b.String()
		}
		return styles.ModelMessage.Render("Model: " + msg.Text)

	case types.KindFunctionResult:
		return renderResult(styles, msg)
	}
	return ""
}

func renderResult(styles Styles, msg types.Message) string {
	var b strings.Builder
	if msg.Failed {
		b.WriteString(styles.ToolError.Render("Failed: " + msg.ToolName))
	} else {
		b.WriteString(styles.ToolSuccess.Render("Success: " + msg.ToolName))
	}
	b.WriteString("\n")

	for _, line := range strings.Split(FormatPayload(msg.Payload), "\n") {
		if line != "" {
			b.WriteString(styles.ToolOutput.Render("| " + line))
			b.WriteString("\n")
		}
	}
	return styles.ToolBox.Render(strings.TrimRight(b.String(), "\n"))
}

// FormatArgs renders call arguments as sorted key=value pairs.
func FormatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, ", ")
}

// FormatPayload renders a tool payload as truncated JSON.
func FormatPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return truncate(string(data), maxPayloadLen)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

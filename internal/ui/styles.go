package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for taskloop.
type Theme struct {
	// Brand colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	// Text colors
	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// DefaultTheme returns the default color theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Accent:    lipgloss.Color("#F59E0B"), // Amber

		Success: lipgloss.Color("#10B981"), // Emerald
		Warning: lipgloss.Color("#F59E0B"), // Amber
		Error:   lipgloss.Color("#EF4444"), // Red
		Muted:   lipgloss.Color("#6B7280"), // Gray

		Text:    lipgloss.Color("#F9FAFB"), // Near white
		TextDim: lipgloss.Color("#9CA3AF"), // Gray
	}
}

// Styles contains all the styled components for the UI.
type Styles struct {
	Title lipgloss.Style

	// Transcript roles
	UserMessage   lipgloss.Style
	ModelMessage  lipgloss.Style
	SystemMessage lipgloss.Style

	// Tool calls
	ToolBox     lipgloss.Style
	ToolName    lipgloss.Style
	ToolParams  lipgloss.Style
	ToolOutput  lipgloss.Style
	ToolSuccess lipgloss.Style
	ToolError   lipgloss.Style

	// Status
	Spinner    lipgloss.Style
	StatusText lipgloss.Style
	StateLabel lipgloss.Style
	Completed  lipgloss.Style
	Stopped    lipgloss.Style
	Failed     lipgloss.Style

	// Key/value listings
	Label lipgloss.Style
	Value lipgloss.Style
}

// NewStyles creates styled components from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		UserMessage: lipgloss.NewStyle().
			Foreground(t.Secondary).
			Bold(true),

		ModelMessage: lipgloss.NewStyle().
			Foreground(t.Text).
			PaddingLeft(2),

		SystemMessage: lipgloss.NewStyle().
			Foreground(t.Muted).
			Italic(true).
			PaddingLeft(2),

		ToolBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent).
			Padding(0, 1).
			MarginLeft(2),

		ToolName: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true),

		ToolParams: lipgloss.NewStyle().
			Foreground(t.TextDim),

		ToolOutput: lipgloss.NewStyle().
			Foreground(t.Text).
			PaddingLeft(1),

		ToolSuccess: lipgloss.NewStyle().
			Foreground(t.Success).
			Bold(true),

		ToolError: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(t.Primary),

		StatusText: lipgloss.NewStyle().
			Foreground(t.TextDim),

		StateLabel: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		Completed: lipgloss.NewStyle().
			Foreground(t.Success).
			Bold(true),

		Stopped: lipgloss.NewStyle().
			Foreground(t.Warning).
			Bold(true),

		Failed: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(t.TextDim),

		Value: lipgloss.NewStyle().
			Foreground(t.Secondary),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() Styles {
	return NewStyles(DefaultTheme())
}

// Banner is the ASCII art shown in the root command help.
const Banner = `
 _            _    _
| |_ __ _ ___| | _| | ___   ___  _ __
| __/ _' / __| |/ / |/ _ \ / _ \| '_ \
| || (_| \__ \   <| | (_) | (_) | |_) |
 \__\__,_|___/_|\_\_|\___/ \___/| .__/
                                |_|
`

package main

import (
	"fmt"
	"runtime"

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Set with -ldflags at build time.
var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and default model information",
	Run:   runVersion,
}

// versionRows lists what the binary was built from and what it talks to when
// nothing is configured.
func versionRows() [][2]string {
	d := config.DefaultConfig()
	return [][2]string{
		{"Version:", Version},
		{"Git Commit:", GitCommit},
		{"Build Date:", BuildDate},
		{"Go Version:", runtime.Version()},
		{"Platform:", runtime.GOOS + "/" + runtime.GOARCH},
		{"Default Provider:", d.LLM.Provider},
		{"Gemini Model:", config.DefaultGeminiModel},
		{"OpenAI Model:", config.DefaultOpenAIModel},
		{"Max Iterations:", fmt.Sprint(d.Agent.MaxIterations)},
		{"Env Prefix:", config.EnvPrefix + "_"},
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF")).
		Width(18)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	fmt.Println(titleStyle.Render("taskloop"))
	fmt.Println()
	for _, row := range versionRows() {
		fmt.Printf("%s %s\n", labelStyle.Render(row[0]), valueStyle.Render(row[1]))
	}
}

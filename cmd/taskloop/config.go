package main

import (
	"fmt"
	"os"

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long:  "View the current configuration or create a default config file.",
	Run:   runConfig,
}

var (
	configInit bool
	configShow bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", true, "Show current configuration")
}

func runConfig(cmd *cobra.Command, args []string) {
	if configInit {
		initConfig()
		return
	}
	if configShow {
		showConfig()
	}
}

func initConfig() {
	if _, err := os.Stat("config.yaml"); err == nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render("config.yaml already exists. Use --show to view it."))
		return
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save("config.yaml"); err != nil {
		printError("Failed to create config", err)
		os.Exit(1)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
		Render("Created config.yaml with default settings."))
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Model provider, model and endpoint")
	fmt.Println("  - Iteration budget, pause and run timeout")
	fmt.Println("  - Enabled tools and the tool manifest")
	fmt.Println("\nThe API key is read from GEMINI_API_KEY or OPENAI_API_KEY.")
}

func showConfig() {
	cfg, err := loadConfig()
	if err != nil {
		printError("Could not load config", err)
		cfg = config.DefaultConfig()
	}

	if cfg.Path == "" {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render("No config file found. Showing defaults:\n"))
	} else {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true).
			Render(fmt.Sprintf("Current Configuration (%s):\n", cfg.Path)))
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(string(data))

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).
		Render("Config file locations (in order of precedence):"))
	for i, path := range config.DefaultPaths() {
		fmt.Printf("  %d. %s\n", i+1, path)
	}
	fmt.Printf("\nEnvironment overrides use the %s_ prefix, e.g. %s_AGENT_MAX_ITERATIONS.\n", config.EnvPrefix, config.EnvPrefix)
}

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the tools offered to the model.

Tools are filtered by tools.enabled in the config (or --tools on the
root command) and described by the optional tool manifest.

Examples:
  taskloop tools           # List all tools
  taskloop tools --verbose # Show parameter details`,
	Run: func(cmd *cobra.Command, args []string) {
		runTools()
	},
}

func runTools() {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	toolStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	paramStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	cfg, err := loadConfig()
	if err != nil {
		printError("Could not load config", err)
		return
	}

	decls, err := describeTools(cfg)
	if err != nil {
		printError("Failed to load tools", err)
		return
	}

	fmt.Println(headerStyle.Render("Available Tools"))
	fmt.Println()

	for _, decl := range decls {
		fmt.Printf("  %s\n", toolStyle.Render(decl.Name))
		fmt.Printf("    %s\n", descStyle.Render(decl.Description))

		if !verbose {
			continue
		}
		names := decl.Parameters.PropertyNames()
		if len(names) == 0 {
			continue
		}
		fmt.Println("    Parameters:")
		for _, name := range names {
			prop := decl.Parameters.Properties[name]
			req := ""
			if decl.Parameters.IsRequired(name) {
				req = " (required)"
			}
			fmt.Printf("      %s %s%s\n", paramStyle.Render(name), descStyle.Render(string(prop.Type)), req)
			if prop.Description != "" {
				fmt.Printf("        %s\n", descStyle.Render(prop.Description))
			}
			if len(prop.Enum) > 0 {
				fmt.Printf("        %s\n", descStyle.Render("one of: "+strings.Join(prop.Enum, ", ")))
			}
		}
	}
	fmt.Println()

	fmt.Println(descStyle.Render(fmt.Sprintf("  Total: %d tools available", len(decls))))
	if !verbose {
		fmt.Println(descStyle.Render("  Use --verbose for parameter details"))
	}
}

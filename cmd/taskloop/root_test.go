package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/ashutoshrp06/taskloop/internal/llm/llmtest"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "test"
	cfg.Agent.PauseMillis = 0
	cfg.Tools.ReadRoot = t.TempDir()
	return cfg
}

// ─── Wiring ──────────────────────────────────────────────────────────────────

func TestBuildAgent_LoopAddRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Enabled = []string{"add"}

	provider := llmtest.NewScriptedProvider(
		llmtest.Call("add", map[string]any{"a": 2.0, "b": 3.0}),
		llmtest.Text("The sum is 5. Task completed"),
	)

	a, err := buildAgent(cfg, provider, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("buildAgent: %v", err)
	}

	result, err := execute(context.Background(), func() {}, a, nil, "add 2 and 3", true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != types.StatusCompleted {
		t.Errorf("expected Completed, got %v", result.Status)
	}
	if len(result.Transcript) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result.Transcript))
	}

	if got := result.Transcript[2].Payload; got != 5.0 {
		t.Errorf("expected payload 5, got %#v", got)
	}

	reqs := provider.Requests()
	if len(reqs[0].Declarations) != 1 || reqs[0].Declarations[0].Name != "add" {
		t.Errorf("expected only add to be offered, got %v", reqs[0].Declarations)
	}
}

func TestBuildAgent_SingleTurn(t *testing.T) {
	cfg := testConfig(t)
	provider := llmtest.NewScriptedProvider(llmtest.Text("Hello"))

	a, err := buildAgent(cfg, provider, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("buildAgent: %v", err)
	}

	result, err := execute(context.Background(), func() {}, a, nil, "hi", false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.FinalText() != "Hello" {
		t.Errorf("unexpected final text %q", result.FinalText())
	}
	if provider.Calls() != 1 {
		t.Errorf("expected 1 model call, got %d", provider.Calls())
	}
}

func TestBuildAgent_UnknownEnabledTool(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Enabled = []string{"teleport"}

	if _, err := buildAgent(cfg, llmtest.NewScriptedProvider(), nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestBuildRegistry_Manifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.ManifestPath = filepath.Join(t.TempDir(), "tools.yaml")
	manifest := `
tools:
  - name: add
    description: Adds two numbers together.
    parameters:
      type: object
      properties:
        a: {type: number}
        b: {type: number}
      required: [a, b]
`
	if err := os.WriteFile(cfg.Tools.ManifestPath, []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	if !reg.Frozen() {
		t.Error("expected frozen registry")
	}
	decl, ok := reg.Declaration("add")
	if !ok || decl.Description != "Adds two numbers together." {
		t.Errorf("manifest was not applied: %+v", decl)
	}
}

// ─── Flags ───────────────────────────────────────────────────────────────────

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		maxIterations, runTimeout, providerName, modelName, enabledTools = 0, 0, "", "", nil
		for _, name := range []string{"max-iterations", "timeout", "provider", "model", "tools"} {
			rootCmd.Flags().Lookup(name).Changed = false
		}
	})
}

func TestApplyFlags(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("TASKLOOP_LLM_API_KEY", "")
	resetFlags(t)

	args := []string{"--max-iterations", "4", "--timeout", "90s", "--provider", "openai", "--model", "gpt-4o", "--tools", "add,calculate"}
	if err := rootCmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "gemini-key"
	applyFlags(rootCmd, cfg)

	if cfg.Agent.MaxIterations != 4 {
		t.Errorf("expected 4 iterations, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.RunTimeout() != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.Agent.RunTimeout())
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("unexpected llm section %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "openai-key" {
		t.Errorf("expected the openai key after switching provider, got %q", cfg.LLM.APIKey)
	}
	if len(cfg.Tools.Enabled) != 2 {
		t.Errorf("expected 2 enabled tools, got %v", cfg.Tools.Enabled)
	}
}

func TestCreateLogger_InvalidLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "loud"
	if createLogger(cfg) == nil {
		t.Fatal("expected a logger")
	}
}

func TestApplyFlags_ProviderSwitchResetsModel(t *testing.T) {
	t.Setenv("TASKLOOP_LLM_MODEL", "")
	resetFlags(t)

	if err := rootCmd.Flags().Parse([]string{"--provider", "openai"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.DefaultConfig()
	applyFlags(rootCmd, cfg)

	if cfg.LLM.Model != config.DefaultOpenAIModel {
		t.Errorf("expected %q after switching provider, got %q", config.DefaultOpenAIModel, cfg.LLM.Model)
	}
}

func TestApplyFlags_SubSecondTimeout(t *testing.T) {
	tests := []struct {
		arg  string
		want time.Duration
	}{
		{"1500ms", 1500 * time.Millisecond},
		{"500ms", 500 * time.Millisecond},
		{"2m", 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			resetFlags(t)
			if err := rootCmd.Flags().Parse([]string{"--timeout", tt.arg}); err != nil {
				t.Fatalf("parse flags: %v", err)
			}

			cfg := config.DefaultConfig()
			applyFlags(rootCmd, cfg)

			if cfg.Agent.RunTimeout() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, cfg.Agent.RunTimeout())
			}
		})
	}
}

func TestVersionRows(t *testing.T) {
	rows := map[string]string{}
	for _, row := range versionRows() {
		rows[row[0]] = row[1]
	}

	if rows["Version:"] != Version {
		t.Errorf("expected version %q, got %q", Version, rows["Version:"])
	}
	if rows["Default Provider:"] != "gemini" {
		t.Errorf("unexpected default provider %q", rows["Default Provider:"])
	}
	if rows["OpenAI Model:"] != config.DefaultOpenAIModel {
		t.Errorf("unexpected openai model %q", rows["OpenAI Model:"])
	}
}

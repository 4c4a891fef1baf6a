package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ashutoshrp06/taskloop/internal/agent"
	"github.com/ashutoshrp06/taskloop/internal/config"
	"github.com/ashutoshrp06/taskloop/internal/executor"
	"github.com/ashutoshrp06/taskloop/internal/llm"
	"github.com/ashutoshrp06/taskloop/internal/tools"
	"github.com/ashutoshrp06/taskloop/internal/tools/builtin"
	"github.com/ashutoshrp06/taskloop/internal/types"
	"github.com/ashutoshrp06/taskloop/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath    string
	verbose       bool
	loopMode      bool
	maxIterations int
	runTimeout    time.Duration
	providerName  string
	modelName     string
	noSpinner     bool
	enabledTools  []string
)

var rootCmd = &cobra.Command{
	Use:   "taskloop [task]",
	Short: "Run a task through an LLM that can call tools",
	Long: ui.Banner + `
  Sends a task to a language model and runs the tools it asks for
  until the task is done or the iteration budget runs out.

Usage:
  taskloop "What's the weather in Paris?"
  taskloop --loop "Read go.mod and summarize the dependencies"
  taskloop --loop --tools add,calculate "What is (2+3)*sqrt(16)?"`,

	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		task := strings.TrimSpace(strings.Join(args, " "))
		if task == "" {
			_ = cmd.Usage()
			os.Exit(1)
		}
		os.Exit(runTask(cmd, task))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&loopMode, "loop", false, "Keep calling the model until the task is complete")
	rootCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration budget in loop mode (default from config)")
	rootCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Abort the run after this long (default from config)")
	rootCmd.Flags().StringVar(&providerName, "provider", "", "Model provider: gemini or openai")
	rootCmd.Flags().StringVar(&modelName, "model", "", "Model name")
	rootCmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "Disable the progress spinner")
	rootCmd.Flags().StringSliceVar(&enabledTools, "tools", nil, "Comma-separated list of tools to enable")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

// runTask executes one task and returns the process exit code.
func runTask(cmd *cobra.Command, task string) int {
	cfg, err := loadConfig()
	if err != nil {
		printError("Could not load config", err)
		return 1
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		printError("Invalid configuration", err)
		if errors.Is(err, config.ErrMissingAPIKey) {
			printKeyHelp(cfg)
		}
		return 1
	}

	logger := createLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	provider, err := llm.NewProvider(ctx, cfg.LLM, logger)
	if err != nil {
		printError("Failed to create model provider", err)
		return 1
	}

	var progress *ui.Progress
	var observer agent.Observer
	switch {
	case !noSpinner && ui.IsTerminal(os.Stderr):
		progress = ui.NewProgress(os.Stderr)
		observer = progress.Observe
	case verbose:
		observer = ui.PlainObserver(os.Stderr)
	}

	agentInstance, err := buildAgent(cfg, provider, observer, logger)
	if err != nil {
		printError("Failed to initialize agent", err)
		return 1
	}

	if err := checkConnection(ctx, provider, agentInstance, cfg); err != nil {
		return 1
	}

	result, err := execute(ctx, stop, agentInstance, progress, task, loopMode)
	if result != nil {
		styles := ui.DefaultStyles()
		fmt.Println()
		ui.RenderTranscript(os.Stdout, styles, result.Transcript)
		fmt.Println()
		ui.RenderSummary(os.Stdout, styles, result)
	}
	if err != nil {
		printError("Run failed", err)
		return 1
	}
	return 0
}

// execute runs the task under the spinner when progress is set, otherwise
// directly on this goroutine.
func execute(ctx context.Context, cancel context.CancelFunc, a *agent.Agent, progress *ui.Progress, task string, loop bool) (*agent.Result, error) {
	if progress == nil {
		if loop {
			return a.Run(ctx, task)
		}
		return a.RunOnce(ctx, task)
	}

	msg, err := progress.Run(a.RunCmd(ctx, task, loop), cancel)
	if err != nil {
		return nil, err
	}
	return msg.Result, msg.Err
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("max-iterations") {
		cfg.Agent.MaxIterations = maxIterations
	}
	if flags.Changed("timeout") {
		cfg.Agent.RunTimeoutOverride = runTimeout
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = providerName
		// A key or model from the file belongs to the file's provider.
		cfg.LLM.APIKey = os.Getenv(config.EnvPrefix + "_LLM_API_KEY")
		cfg.ResolveAPIKey()
		if !flags.Changed("model") {
			cfg.LLM.Model = os.Getenv(config.EnvPrefix + "_LLM_MODEL")
			cfg.ResolveModel()
		}
	}
	if flags.Changed("model") {
		cfg.LLM.Model = modelName
	}
	if flags.Changed("tools") {
		cfg.Tools.Enabled = enabledTools
	}
	if verbose {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}
}

// buildRegistry registers the built-in tools, applies the optional manifest
// and freezes the registry.
func buildRegistry(cfg *config.Config) (*tools.Registry, error) {
	reg := tools.NewRegistry()
	if err := builtin.Register(reg, builtin.Options{ReadRoot: cfg.Tools.ReadRoot}); err != nil {
		return nil, err
	}

	if cfg.Tools.ManifestPath != "" {
		manifest, err := tools.LoadManifest(cfg.Tools.ManifestPath)
		if err != nil {
			return nil, err
		}
		if err := manifest.Apply(reg); err != nil {
			return nil, err
		}
	}

	reg.Freeze()
	return reg, nil
}

func buildAgent(cfg *config.Config, provider llm.Provider, observer agent.Observer, logger *zap.Logger) (*agent.Agent, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}

	decls, err := reg.Subset(cfg.Tools.Enabled...)
	if err != nil {
		return nil, fmt.Errorf("select tools: %w", err)
	}

	gateway, err := llm.NewGateway(llm.GatewayConfig{
		Provider:          provider,
		Registry:          reg,
		SystemInstruction: llm.BuildSystemInstruction(cfg.Agent.SystemPromptPath, decls),
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	return agent.New(agent.Config{
		Gateway:       gateway,
		Dispatcher:    executor.NewDispatcher(reg, cfg.Tools.Timeout(), logger),
		Declarations:  decls,
		MaxIterations: cfg.Agent.MaxIterations,
		Pause:         cfg.Agent.Pause(),
		RunTimeout:    cfg.Agent.RunTimeout(),
		Observer:      observer,
		Logger:        logger,
	})
}

// checkConnection pings providers that support it.
func checkConnection(ctx context.Context, provider llm.Provider, a *agent.Agent, cfg *config.Config) error {
	if _, ok := provider.(agent.Pinger); !ok {
		return nil
	}

	fmt.Fprint(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("Connecting to LLM... "))
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.Ping(pingCtx); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("✗"))
		fmt.Fprintln(os.Stderr)
		printConnectionHelp(os.Stderr, cfg)
		return err
	}
	fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✓"))
	if verbose {
		fmt.Fprintf(os.Stderr, "Using model: %s\n", a.LLMInfo())
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromPaths(config.DefaultPaths()...)
}

func createLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printError(msg string, err error) {
	fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
		Render(fmt.Sprintf("Error: %s: %v", msg, err)))
}

func printKeyHelp(cfg *config.Config) {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))

	env := "GEMINI_API_KEY"
	if strings.EqualFold(cfg.LLM.Provider, "openai") {
		env = "OPENAI_API_KEY"
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, helpStyle.Render("Export an API key before running:"))
	fmt.Fprintln(os.Stderr, cmdStyle.Render("  export "+env+"=..."))
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, helpStyle.Render("Or set llm.api_key in config.yaml (see: taskloop config --init)"))
}

func printConnectionHelp(w io.Writer, cfg *config.Config) {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	endpoint := cfg.LLM.Endpoint
	if endpoint == "" {
		endpoint = llm.DefaultOpenAIEndpoint
	}
	fmt.Fprintln(w, errStyle.Render("Could not connect to LLM at "+endpoint))
	fmt.Fprintln(w)
	fmt.Fprintln(w, helpStyle.Render("Check that the server is running and the key is valid,"))
	fmt.Fprintln(w, helpStyle.Render("or configure a different endpoint:"))
	fmt.Fprintln(w, cmdStyle.Render("  Edit config.yaml and set llm.endpoint"))
}

// describeTools is shared by the tools command.
func describeTools(cfg *config.Config) ([]types.ToolDeclaration, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return reg.Subset(cfg.Tools.Enabled...)
}

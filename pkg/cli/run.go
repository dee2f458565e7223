package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/executor"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
	"github.com/devicelab-dev/gesture-runner/pkg/report"
	"github.com/devicelab-dev/gesture-runner/pkg/validator"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run scenarios on a device",
	ArgsUsage: "[scenario-file | folder | glob | built-in name]...",
	Description: `Run scenario files or built-in scenarios. With no arguments the
scenarios listed in config.yaml run, or every built-in scenario.

Results are written to the output directory:
  - Default: ./reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/

Examples:
  gesture-runner run
  gesture-runner run drag-drop long-click
  gesture-runner run scenarios/ -e USER=test
  gesture-runner run scenarios/ --include-tags smoke --output ./results --flatten`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Variables for ${...} expansion (KEY=VALUE)",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only run scenarios with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip scenarios with these tags",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for results (default: ./reports)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},
		&cli.IntFlag{
			Name:  "max-scrolls",
			Usage: "Scroll ceiling for scrollToEnd steps (default: config or 50)",
		},
		&cli.DurationFlag{
			Name:  "scroll-timeout",
			Usage: "Time budget for one scrollToEnd step (default: config or 60s)",
		},
		&cli.DurationFlag{
			Name:  "settle-timeout",
			Usage: "Default timeout for wait steps (default: config or 5s)",
		},
		&cli.BoolFlag{
			Name:  "no-html",
			Usage: "Skip report.html",
		},
		&cli.BoolFlag{
			Name:  "allure",
			Usage: "Also write Allure results to <output>/allure-results",
		},
	},
	Action: runScenarios,
}

// RunConfig holds the resolved settings of one run.
type RunConfig struct {
	Args        []string
	Env         map[string]string
	IncludeTags []string
	ExcludeTags []string
	OutputDir   string
	LogFile     string
	Verbose     bool
	NoHTML      bool
	Allure      bool
	Session     *SessionOptions
	Runner      executor.RunnerConfig
}

func runScenarios(c *cli.Context) error {
	opts, err := loadSessionOptions(c)
	if err != nil {
		return err
	}
	ws := opts.Workspace

	outputDir, err := resolveOutputDir(c.String("output"), c.Bool("flatten"))
	if err != nil {
		return err
	}

	cfg := &RunConfig{
		Args:        c.Args().Slice(),
		Env:         parseEnvVars(c.StringSlice("env")),
		IncludeTags: c.StringSlice("include-tags"),
		ExcludeTags: c.StringSlice("exclude-tags"),
		OutputDir:   outputDir,
		LogFile:     c.String("log-file"),
		Verbose:     c.Bool("verbose"),
		NoHTML:      c.Bool("no-html"),
		Allure:      c.Bool("allure"),
		Session:     opts,
		Runner: executor.RunnerConfig{
			Scroll:    executor.ScrollLimits{MaxIterations: ws.Scroll.MaxIterations, Timeout: ws.Scroll.Timeout},
			Settle:    executor.WaitOptions{Timeout: ws.Settle.Timeout, Interval: ws.Settle.Interval},
			Artifacts: ws.Artifacts,
			OutputDir: outputDir,
		},
	}
	if len(cfg.Args) == 0 {
		cfg.Args = ws.Scenarios
	}
	if v := c.Int("max-scrolls"); v > 0 {
		cfg.Runner.Scroll.MaxIterations = v
	}
	if v := c.Duration("scroll-timeout"); v > 0 {
		cfg.Runner.Scroll.Timeout = v
	}
	if v := c.Duration("settle-timeout"); v > 0 {
		cfg.Runner.Settle.Timeout = v
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite, err := executeRun(ctx, cfg)
	if err != nil {
		return err
	}
	if !suite.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

// executeRun loads the scenarios, runs them and writes the reports.
func executeRun(ctx context.Context, cfg *RunConfig) (*core.SuiteResult, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(cfg.OutputDir, "gesture-runner.log")
	}
	if err := logger.Init(logPath); err != nil {
		fmt.Printf("Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()
	logger.SetVerbose(cfg.Verbose)

	logger.Info("=== Run started ===")
	logger.Info("Output directory: %s", cfg.OutputDir)
	logger.Info("Driver: %s", cfg.Session.Driver)

	validation := validator.New(cfg.IncludeTags, cfg.ExcludeTags).Validate(cfg.Args)
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			logger.Error("Validation: %v", e)
			fmt.Printf("  %s✗%s %v\n", color(colorRed), color(colorReset), e)
		}
		return nil, fmt.Errorf("%d scenario validation error(s)", len(validation.Errors))
	}
	scenarios := validation.Scenarios
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios to run")
	}
	logger.Info("Loaded %d scenario(s)", len(scenarios))

	printer := newProgressPrinter(len(cfg.Session.Devices) > 1)
	runnerCfg := cfg.Runner
	runnerCfg.Env = cfg.Env
	runnerCfg.OnScenarioStart = printer.onScenarioStart
	runnerCfg.OnStepComplete = printer.onStepComplete
	runnerCfg.OnScenarioEnd = printer.onScenarioEnd

	var suite *core.SuiteResult
	var err error
	if len(cfg.Session.Devices) > 1 {
		workers := make([]executor.DeviceWorker, 0, len(cfg.Session.Devices))
		for i, id := range cfg.Session.Devices {
			factory, err := cfg.Session.Factory(id, i)
			if err != nil {
				return nil, err
			}
			workers = append(workers, executor.DeviceWorker{DeviceID: id, Factory: factory})
		}
		logger.Info("Parallel execution on %d devices: %v", len(workers), cfg.Session.Devices)
		suite, err = executor.NewParallelRunner(workers, runnerCfg).Run(ctx, scenarios)
		if err != nil {
			return nil, err
		}
	} else {
		var deviceID string
		if len(cfg.Session.Devices) == 1 {
			deviceID = cfg.Session.Devices[0]
		}
		factory, err := cfg.Session.Factory(deviceID, 0)
		if err != nil {
			return nil, err
		}
		runnerCfg.DeviceID = deviceID
		suite = executor.New(factory, runnerCfg).Run(ctx, scenarios)
	}

	logger.Info("Run completed: %d passed, %d failed, %d skipped",
		suite.PassedScenarios, suite.FailedScenarios, suite.SkippedScenarios)

	printSummary(suite)

	writeReports(cfg, suite)
	return suite, nil
}

// resolveOutputDir determines the output directory based on flags.
// - No --output: ./reports/<timestamp>/
// - --output given: <output>/<timestamp>/
// - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	baseDir := output
	if baseDir == "" {
		baseDir = "./reports"
	}

	if flatten {
		return filepath.Clean(baseDir), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		if k, v, ok := strings.Cut(e, "="); ok {
			result[k] = v
		}
	}
	return result
}

// writeReports writes report.json and, unless disabled, report.html and
// Allure results. Failures are warnings; the run result stands.
func writeReports(cfg *RunConfig, suite *core.SuiteResult) {
	warn := func(what string, err error) {
		logger.Warn("failed to write %s: %v", what, err)
		fmt.Printf("  %s⚠%s Warning: failed to write %s: %v\n", color(colorYellow), color(colorReset), what, err)
	}

	fmt.Println("  Reports:")
	if path, err := report.WriteJSON(cfg.OutputDir, suite); err != nil {
		warn("JSON report", err)
	} else {
		fmt.Printf("    JSON:   %s\n", path)
	}

	if !cfg.NoHTML {
		if path, err := report.GenerateHTML(cfg.OutputDir, suite, report.HTMLConfig{}); err != nil {
			warn("HTML report", err)
		} else {
			fmt.Printf("    HTML:   %s\n", path)
		}
	}

	if cfg.Allure {
		env := report.AllureEnvironment{
			Driver:    cfg.Session.Driver,
			ServerURL: cfg.Session.Workspace.Server.URL,
			Version:   Version,
		}
		if err := report.GenerateAllure(cfg.OutputDir, suite, env); err != nil {
			warn("Allure results", err)
		} else {
			fmt.Printf("    Allure: %s\n", filepath.Join(cfg.OutputDir, report.AllureDir))
		}
	}
	fmt.Println()
}

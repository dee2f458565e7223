// Package executor runs scenarios against automation sessions.
package executor

import (
	"context"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/scenario"
)

// SessionFactory opens a new session. The runner calls it once per
// scenario and always stops what it returns.
type SessionFactory func(ctx context.Context) (core.Session, error)

// RunnerConfig configures the scenario runner.
type RunnerConfig struct {
	Scroll    ScrollLimits        // Bounds for scrollToEnd steps
	Settle    WaitOptions         // Defaults for waitForDisplayed and waitForStable
	Artifacts core.ArtifactConfig // When to capture the UI hierarchy
	OutputDir string              // Where hierarchy attachments are written ("" keeps them in memory)
	DeviceID  string              // Reported in results and exposed to scripts
	Env       map[string]string   // Variables available to every scenario
	SuiteName string

	// Live progress callbacks. With a ParallelRunner they are called from
	// several goroutines.
	OnScenarioStart func(idx, total int, name, file string)
	OnStepComplete  func(idx int, desc string, status core.StepStatus, duration time.Duration, err string)
	OnScenarioEnd   func(name string, status core.StepStatus, duration time.Duration)
}

// Runner executes scenarios one after another, each on a fresh session.
type Runner struct {
	config  RunnerConfig
	factory SessionFactory
}

// New creates a new Runner.
func New(factory SessionFactory, cfg RunnerConfig) *Runner {
	return &Runner{
		config:  cfg,
		factory: factory,
	}
}

// Run executes all scenarios in order. Scenarios not started before ctx is
// cancelled are reported as skipped.
func (r *Runner) Run(ctx context.Context, scenarios []*scenario.Scenario) *core.SuiteResult {
	suite := core.NewSuiteResult(r.config.suiteName())
	suite.Scenarios = make([]core.ScenarioResult, len(scenarios))

	for i, sc := range scenarios {
		if ctx.Err() != nil {
			suite.Scenarios[i] = skippedScenario(sc, r.config.DeviceID, "run cancelled")
			continue
		}
		suite.Scenarios[i] = r.runScenario(ctx, sc, i, len(scenarios))
	}

	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()
	return suite
}

// RunScenario executes a single scenario on a fresh session.
func (r *Runner) RunScenario(ctx context.Context, sc *scenario.Scenario) core.ScenarioResult {
	return r.runScenario(ctx, sc, 0, 1)
}

func (r *Runner) runScenario(ctx context.Context, sc *scenario.Scenario, idx, total int) core.ScenarioResult {
	run := &ScenarioRunner{
		ctx:      ctx,
		scenario: sc,
		factory:  r.factory,
		config:   r.config,
		idx:      idx,
		total:    total,
	}
	return run.Run()
}

func (c RunnerConfig) suiteName() string {
	if c.SuiteName != "" {
		return c.SuiteName
	}
	return "gesture-runner"
}

// skippedScenario reports a scenario that never acquired a session.
func skippedScenario(sc *scenario.Scenario, deviceID, reason string) core.ScenarioResult {
	result := core.ScenarioResult{
		ID:        core.NewID(),
		Name:      sc.Name(),
		FilePath:  sc.SourcePath,
		DeviceID:  deviceID,
		Status:    core.StatusSkipped,
		StartTime: time.Now(),
		Message:   reason,
	}
	result.Steps = skippedSteps(sc.Steps, 0, reason)
	result.ComputeSummary()
	return result
}

func skippedSteps(steps []scenario.Step, from int, reason string) []core.StepResult {
	var out []core.StepResult
	for i := from; i < len(steps); i++ {
		out = append(out, core.StepResult{
			Index:       i,
			Command:     string(steps[i].Type()),
			Description: steps[i].Describe(),
			Status:      core.StatusSkipped,
			Message:     reason,
		})
	}
	return out
}

package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
	"github.com/devicelab-dev/gesture-runner/pkg/scenario"
)

// stopTimeout bounds session teardown, which runs even after cancellation.
const stopTimeout = 30 * time.Second

// ScenarioRunner executes a single scenario.
type ScenarioRunner struct {
	ctx      context.Context
	scenario *scenario.Scenario
	factory  SessionFactory
	config   RunnerConfig
	session  core.Session
	script   *ScriptEngine
	result   core.ScenarioResult
	idx      int // Current scenario index (0-based)
	total    int // Total number of scenarios
}

// Run acquires a session, executes every step and stops the session.
// Execution stops at the first failed required step; later steps are
// reported as skipped.
func (sr *ScenarioRunner) Run() core.ScenarioResult {
	sc := sr.scenario
	start := time.Now()
	sr.result = core.ScenarioResult{
		ID:        core.NewID(),
		Name:      sc.Name(),
		FilePath:  sc.SourcePath,
		DeviceID:  sr.config.DeviceID,
		StartTime: start,
	}

	if sr.config.OnScenarioStart != nil {
		sr.config.OnScenarioStart(sr.idx, sr.total, sc.Name(), filepath.Base(sc.SourcePath))
	}
	logger.Info("scenario %q: starting (%d steps)", sc.Name(), len(sc.Steps))

	status := sr.execute()

	sr.result.Status = status
	sr.result.Duration = time.Since(start)
	sr.result.ComputeSummary()

	if sr.config.OnScenarioEnd != nil {
		sr.config.OnScenarioEnd(sc.Name(), status, sr.result.Duration)
	}
	logger.Info("scenario %q: %s in %s", sc.Name(), status, sr.result.Duration.Round(time.Millisecond))
	return sr.result
}

func (sr *ScenarioRunner) execute() core.StepStatus {
	sc := sr.scenario

	session, err := sr.factory(sr.ctx)
	if err != nil {
		cat := core.CategoryOf(err)
		logger.Error("scenario %q: session start failed: %v", sc.Name(), err)
		sr.result.Error = err.Error()
		sr.result.Message = "session could not be started"
		sr.result.Steps = skippedSteps(sc.Steps, 0, "session could not be started")
		return core.StatusFor(cat)
	}
	sr.session = session
	sr.result.SessionID = session.ID()
	defer sr.stopSession()

	sr.script = NewScriptEngine()
	sr.script.ImportSystemEnv()
	sr.script.SetVariables(sr.config.Env)
	sr.script.SetVariables(sc.Config.Env)
	sr.script.SetSession(session.ID(), sr.config.DeviceID)

	for i, step := range sc.Steps {
		if sr.ctx.Err() != nil {
			sr.result.Steps = append(sr.result.Steps, skippedSteps(sc.Steps, i, "execution cancelled")...)
			sr.result.Message = "execution cancelled"
			if status := sr.result.AggregateStatus(); status != core.StatusPassed {
				return status
			}
			return core.StatusSkipped
		}

		res := sr.executeStep(i, step)

		if res.Status != core.StatusPassed && step.IsOptional() {
			logger.Warn("scenario %q: optional step %d failed: %s", sc.Name(), i, res.Error)
			res.Status = core.StatusSkipped
			res.Message = "optional step failed"
		}
		sr.result.Steps = append(sr.result.Steps, res)

		if sr.config.OnStepComplete != nil {
			sr.config.OnStepComplete(i, res.Description, res.Status, res.Duration, res.Error)
		}

		if res.Status == core.StatusFailed || res.Status == core.StatusErrored {
			sr.result.Steps = append(sr.result.Steps, skippedSteps(sc.Steps, i+1, "previous step failed")...)
			sr.result.Error = res.Error
			sr.result.Message = fmt.Sprintf("step %d (%s) %s", i, res.Command, res.Status)
			return res.Status
		}
	}
	return sr.result.AggregateStatus()
}

// stopSession tears the session down even when the run was cancelled.
func (sr *ScenarioRunner) stopSession() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sr.ctx), stopTimeout)
	defer cancel()
	if err := sr.session.Stop(ctx); err != nil {
		logger.Warn("scenario %q: session stop failed: %v", sr.scenario.Name(), err)
		msg := fmt.Sprintf("session stop failed: %v", err)
		if sr.result.Message != "" {
			msg = sr.result.Message + "; " + msg
		}
		sr.result.Message = msg
	}
}

// executeStep runs one step and returns its result.
func (sr *ScenarioRunner) executeStep(idx int, step scenario.Step) core.StepResult {
	start := time.Now()
	res := core.StepResult{
		Index:       idx,
		Command:     string(step.Type()),
		Description: step.Describe(),
		StartTime:   start,
	}

	ctx := sr.ctx
	if t, ok := step.(interface{ Timeout(time.Duration) time.Duration }); ok && !isWaitStep(step) {
		if d := t.Timeout(0); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	err := sr.dispatch(ctx, step, &res)

	res.Duration = time.Since(start)
	if err == nil {
		res.Status = core.StatusPassed
		logger.Info("step %d %s: passed", idx, res.Description)
	} else {
		applyError(&res, err)
		logger.Warn("step %d %s: %s: %v", idx, res.Description, res.Status, err)
	}

	if sr.config.Artifacts.ShouldCapture(res.Status) {
		sr.captureHierarchy(&res)
	}
	return res
}

//nolint:gocyclo
func (sr *ScenarioRunner) dispatch(ctx context.Context, step scenario.Step, res *core.StepResult) error {
	switch s := step.(type) {
	case scenario.GestureStep:
		h, err := sr.locate(ctx, s.Target())
		if err != nil {
			return err
		}
		res.Element = &h
		_, err = sr.session.Act(ctx, s.Gesture(h))
		return err

	case *scenario.ScrollToEndStep:
		g, err := s.Gesture()
		if err != nil {
			return err
		}
		limits := sr.config.Scroll
		if s.MaxScrolls > 0 {
			limits.MaxIterations = s.MaxScrolls
		}
		limits.Timeout = s.Timeout(limits.Timeout)
		n, err := ScrollUntilExhausted(ctx, sr.session, g, limits)
		res.Data = map[string]interface{}{"scrolls": n}
		return err

	case *scenario.RotateStep:
		return sr.session.Rotate(ctx, s.Gesture())

	case *scenario.WaitForDisplayedStep:
		loc, err := sr.script.ExpandSelector(s.Target()).Locator()
		if err != nil {
			return err
		}
		opts := sr.config.Settle.withDefaults()
		opts.Timeout = s.Timeout(opts.Timeout)
		h, err := WaitForDisplayed(ctx, sr.session, loc, opts)
		if err != nil {
			return err
		}
		res.Element = &h
		return nil

	case *scenario.WaitForStableStep:
		opts := sr.config.Settle.withDefaults()
		opts.Timeout = s.Timeout(opts.Timeout)
		opts.Interval = s.Interval(opts.Interval)
		return WaitForStable(ctx, sr.session, opts)

	case *scenario.AssertTextStep:
		h, err := sr.locate(ctx, s.Target())
		if err != nil {
			return err
		}
		res.Element = &h
		text, err := sr.session.Text(ctx, h)
		if err != nil {
			return err
		}
		return assertText(s, text, sr.script, res)

	case *scenario.AssertDisplayedStep:
		h, err := sr.locate(ctx, s.Target())
		if err != nil {
			return err
		}
		res.Element = &h
		visible, err := sr.session.Displayed(ctx, h)
		if err != nil {
			return err
		}
		if !visible {
			return core.ErrElementNotVisible.WithMessage(fmt.Sprintf("element %s is not displayed", s.Selector))
		}
		return nil

	case *scenario.AssertTrueStep:
		return sr.script.ExecuteAssertTrue(s)

	case *scenario.CopyTextStep:
		h, err := sr.locate(ctx, s.Target())
		if err != nil {
			return err
		}
		res.Element = &h
		text, err := sr.session.Text(ctx, h)
		if err != nil {
			return err
		}
		sr.script.StoreCopiedText(s, text)
		res.Data = text
		return nil

	default:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unsupported step type %q", step.Type()))
	}
}

func (sr *ScenarioRunner) locate(ctx context.Context, sel scenario.Selector) (core.ElementHandle, error) {
	loc, err := sr.script.ExpandSelector(sel).Locator()
	if err != nil {
		return core.ElementHandle{}, err
	}
	return sr.session.Locate(ctx, loc)
}

func assertText(s *scenario.AssertTextStep, actual string, script *ScriptEngine, res *core.StepResult) error {
	if s.Contains != "" {
		want := script.ExpandVariables(s.Contains)
		res.Data = map[string]interface{}{"contains": want, "actual": actual}
		if !strings.Contains(actual, want) {
			return core.ErrTextMismatch.WithMessage(fmt.Sprintf("expected text containing %q, got %q", want, actual))
		}
		return nil
	}

	want := script.ExpandVariables(s.Equals)
	res.Data = map[string]interface{}{"expected": want, "actual": actual}
	if actual != want {
		return core.ErrTextMismatch.WithMessage(fmt.Sprintf("expected text %q, got %q", want, actual))
	}
	return nil
}

func isWaitStep(step scenario.Step) bool {
	switch step.(type) {
	case *scenario.WaitForDisplayedStep, *scenario.WaitForStableStep, *scenario.ScrollToEndStep:
		return true
	}
	return false
}

// captureHierarchy attaches the current page source to the step result.
// Capture failures are logged and otherwise ignored.
func (sr *ScenarioRunner) captureHierarchy(res *core.StepResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sr.ctx), DefaultWaitOptions().Timeout)
	defer cancel()

	src, err := sr.session.Source(ctx)
	if err != nil || src == "" {
		logger.Debug("hierarchy capture skipped for step %d: %v", res.Index, err)
		return
	}

	var rel string
	if sr.config.OutputDir != "" {
		rel = filepath.Join(sr.result.ID, fmt.Sprintf("step-%02d-hierarchy.xml", res.Index))
		path := filepath.Join(sr.config.OutputDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			logger.Warn("hierarchy capture: %v", err)
			rel = ""
		} else if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			logger.Warn("hierarchy capture: %v", err)
			rel = ""
		}
	}
	res.Attachments = append(res.Attachments, core.NewHierarchyAttachment(rel, []byte(src)))
}

package executor

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/jsengine"
	"github.com/devicelab-dev/gesture-runner/pkg/scenario"
)

// envVarPattern matches ALL_CAPS identifiers that look like env variables
var envVarPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,}$`)

// ScriptEngine handles variable expansion and JavaScript assertions for
// one scenario run.
type ScriptEngine struct {
	js *jsengine.Engine
}

// NewScriptEngine creates a new script engine.
func NewScriptEngine() *ScriptEngine {
	return &ScriptEngine{js: jsengine.New()}
}

// ImportSystemEnv imports ALL_CAPS process environment variables.
func (se *ScriptEngine) ImportSystemEnv() {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if ok && envVarPattern.MatchString(name) {
			se.js.SetVariable(name, value)
		}
	}
}

// SetVariables sets multiple variables.
func (se *ScriptEngine) SetVariables(vars map[string]string) {
	se.js.SetVariables(vars)
}

// SetSession exposes the session and device ids to scripts.
func (se *ScriptEngine) SetSession(sessionID, deviceID string) {
	se.js.SetSession(sessionID, deviceID)
}

// ExpandVariables expands ${expr} in text.
func (se *ScriptEngine) ExpandVariables(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return se.js.ExpandVariables(text)
}

// ExpandSelector returns a copy of sel with variables expanded.
func (se *ScriptEngine) ExpandSelector(sel scenario.Selector) scenario.Selector {
	return scenario.Selector{
		AccessibilityID: se.ExpandVariables(sel.AccessibilityID),
		ID:              se.ExpandVariables(sel.ID),
		XPath:           se.ExpandVariables(sel.XPath),
	}
}

// StoreCopiedText records text from a copyText step.
func (se *ScriptEngine) StoreCopiedText(step *scenario.CopyTextStep, text string) {
	se.js.SetCopiedText(text)
	if step.As != "" {
		se.js.SetOutput(step.As, text)
	}
}

// ExecuteAssertTrue evaluates an assertTrue condition.
func (se *ScriptEngine) ExecuteAssertTrue(step *scenario.AssertTrueStep) error {
	ok, err := se.js.EvalBool(step.Condition)
	if err != nil {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("assertTrue %q could not be evaluated", step.Condition)).WithCause(err)
	}
	if !ok {
		return core.ErrAssertion.WithMessage(fmt.Sprintf("assertTrue failed: %s", step.Condition))
	}
	return nil
}

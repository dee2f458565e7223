// Package jsengine evaluates the JavaScript used by assertTrue steps and
// ${...} interpolation in scenario fields.
package jsengine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/devicelab-dev/gesture-runner/pkg/logger"
	"github.com/dop251/goja"
)

// Engine is a goja runtime holding one scenario's script state. Scripts see
// every scenario variable as a global, the output object written by copyText
// steps, and the read-only runner.copiedText, runner.sessionId and
// runner.deviceId.
type Engine struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	output map[string]interface{}

	copiedText string
	sessionID  string
	deviceID   string
}

// New returns an engine with the runner globals installed.
func New() *Engine {
	e := &Engine{vm: goja.New(), output: map[string]interface{}{}}
	e.vm.Set("output", e.output)

	runner := e.vm.NewObject()
	getters := map[string]func() string{
		"copiedText": func() string { return e.copiedText },
		"sessionId":  func() string { return e.sessionID },
		"deviceId":   func() string { return e.deviceID },
	}
	for name, get := range getters {
		_ = runner.DefineAccessorProperty(name, e.vm.ToValue(get), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}
	e.vm.Set("runner", runner)
	return e
}

// SetVariable defines a global.
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Set(name, value)
}

// SetVariables defines one string global per entry.
func (e *Engine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// SetCopiedText sets runner.copiedText.
func (e *Engine) SetCopiedText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.copiedText = text
}

// SetSession sets runner.sessionId and runner.deviceId.
func (e *Engine) SetSession(sessionID, deviceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionID = sessionID
	e.deviceID = deviceID
}

// SetOutput stores output[name].
func (e *Engine) SetOutput(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output[name] = value
}

func (e *Engine) eval(expr string) (goja.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.vm.RunString(expr)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}
	return v, nil
}

// EvalBool evaluates expr and reports its JavaScript truthiness. A ${...}
// wrapper around the whole expression is accepted.
func (e *Engine) EvalBool(expr string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if inner, ok := strings.CutPrefix(expr, "${"); ok && strings.HasSuffix(inner, "}") {
		expr = inner[:len(inner)-1]
	}
	v, err := e.eval(expr)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

// ExpandVariables replaces each ${expr} in text with its value. null and
// undefined expand to "". An expression that fails to evaluate, or has no
// closing brace, is kept verbatim.
func (e *Engine) ExpandVariables(text string) string {
	var b strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "${")
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := closingBrace(rest, open+2)
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}

		b.WriteString(rest[:open])
		expr := rest[open+2 : end]
		if v, err := e.eval(expr); err != nil {
			logger.Debug("Leaving ${%s} unexpanded: %v", expr, err)
			b.WriteString(rest[open : end+1])
		} else if !goja.IsUndefined(v) && !goja.IsNull(v) {
			b.WriteString(v.String())
		}
		rest = rest[end+1:]
	}
}

// closingBrace returns the index of the brace closing the one opened just
// before from, or -1.
func closingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

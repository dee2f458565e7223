// Package validator checks scenarios before execution. It parses every
// argument upfront and collects all errors instead of stopping at the first.
package validator

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/scenario"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Source  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Scenarios that passed validation and the tag filters, in argument order.
	Scenarios []*scenario.Scenario
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Err joins all validation errors, or returns nil.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Validator validates scenario arguments.
type Validator struct {
	includeTags []string
	excludeTags []string
}

// New creates a new Validator.
func New(includeTags, excludeTags []string) *Validator {
	return &Validator{
		includeTags: includeTags,
		excludeTags: excludeTags,
	}
}

// Validate resolves each argument (built-in name, file, directory or glob),
// parses every scenario, and applies the tag filters. No arguments selects
// every built-in. A source named twice is validated once.
func (v *Validator) Validate(args []string) *Result {
	if len(args) == 0 {
		args = scenario.BuiltinNames()
	}

	result := &Result{}
	seen := make(map[string]bool)
	names := make(map[string]string)

	add := func(sc *scenario.Scenario) {
		if !ShouldInclude(sc, v.includeTags, v.excludeTags) {
			return
		}
		if prev, ok := names[sc.Name()]; ok {
			result.Errors = append(result.Errors, &ValidationError{
				Source:  sc.SourcePath,
				Message: fmt.Sprintf("duplicate scenario name %q (also in %s)", sc.Name(), prev),
			})
			return
		}
		names[sc.Name()] = sc.SourcePath
		result.Scenarios = append(result.Scenarios, sc)
	}

	for _, arg := range args {
		paths, err := scenario.Expand(arg)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{Source: arg, Message: err.Error()})
			continue
		}

		if paths == nil {
			name := strings.TrimPrefix(arg, scenario.BuiltinPrefix)
			key := scenario.BuiltinPrefix + name
			if seen[key] {
				continue
			}
			seen[key] = true
			sc, err := scenario.Builtin(name)
			if err != nil {
				result.Errors = append(result.Errors, &ValidationError{Source: arg, Message: err.Error()})
				continue
			}
			add(sc)
			continue
		}

		for _, p := range paths {
			key := cleanPath(p)
			if seen[key] {
				continue
			}
			seen[key] = true
			sc, err := scenario.ParseFile(p)
			if err != nil {
				result.Errors = append(result.Errors, parseError(p, err))
				continue
			}
			add(sc)
		}
	}

	return result
}

// ShouldInclude reports whether a scenario passes the tag filters: it must
// carry any include tag (when given) and no exclude tag.
func ShouldInclude(sc *scenario.Scenario, include, exclude []string) bool {
	if len(include) > 0 && !hasAnyTag(sc, include) {
		return false
	}
	return !hasAnyTag(sc, exclude)
}

func hasAnyTag(sc *scenario.Scenario, tags []string) bool {
	for _, t := range tags {
		if sc.HasTag(t) {
			return true
		}
	}
	return false
}

// parseError keeps ParseError as is since it already names the file.
func parseError(path string, err error) error {
	var pe *scenario.ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &ValidationError{Source: path, Message: err.Error()}
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

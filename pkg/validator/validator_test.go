package validator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/gesture-runner/pkg/scenario"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func names(scs []*scenario.Scenario) string {
	var out []string
	for _, sc := range scs {
		out = append(out, sc.Name())
	}
	return strings.Join(out, ",")
}

func TestValidate_SingleFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "test.yaml", `
name: open-views
---
- tap: Views
- waitForStable: {}
`)

	result := New(nil, nil).Validate([]string{file})

	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Scenarios) != 1 || result.Scenarios[0].Name() != "open-views" {
		t.Errorf("unexpected scenarios: %s", names(result.Scenarios))
	}
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `- tap: Button1`)
	writeFile(t, dir, "b.yml", `- tap: Button2`)
	writeFile(t, dir, "notes.txt", `not a scenario`)

	result := New(nil, nil).Validate([]string{dir})

	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Scenarios) != 2 {
		t.Errorf("expected 2 scenarios, got %d", len(result.Scenarios))
	}
}

func TestValidate_DefaultsToBuiltins(t *testing.T) {
	result := New(nil, nil).Validate(nil)

	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if got := names(result.Scenarios); got != strings.Join(scenario.BuiltinNames(), ",") {
		t.Errorf("got %s", got)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", `- tap: Views`)
	bad1 := writeFile(t, dir, "bad1.yaml", `- swipe: Views`)
	bad2 := writeFile(t, dir, "bad2.yaml", `- longPress: {id: x, duration: -1}`)

	result := New(nil, nil).Validate([]string{bad1, good, "no-such-builtin", bad2, filepath.Join(dir, "missing.yaml")})

	if result.IsValid() {
		t.Fatal("expected errors")
	}
	if len(result.Errors) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if len(result.Scenarios) != 1 || result.Scenarios[0].SourcePath != good {
		t.Errorf("expected only the good scenario, got %s", names(result.Scenarios))
	}

	var pe *scenario.ParseError
	if !errors.As(result.Errors[0], &pe) || pe.Path != bad1 {
		t.Errorf("expected ParseError for %s, got %v", bad1, result.Errors[0])
	}
	var ve *ValidationError
	if !errors.As(result.Errors[1], &ve) || ve.Source != "no-such-builtin" {
		t.Errorf("expected ValidationError for unknown built-in, got %v", result.Errors[1])
	}

	joined := result.Err().Error()
	for _, want := range []string{"bad1.yaml", "bad2.yaml", "no-such-builtin", "missing.yaml"} {
		if !strings.Contains(joined, want) {
			t.Errorf("joined error missing %q: %s", want, joined)
		}
	}
}

func TestValidate_DeduplicatesSources(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.yaml", `- tap: Views`)

	result := New(nil, nil).Validate([]string{file, dir, "drag-drop", "builtin:drag-drop"})

	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Scenarios) != 2 {
		t.Errorf("expected 2 scenarios, got %d: %s", len(result.Scenarios), names(result.Scenarios))
	}
}

func TestValidate_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: same\n---\n- tap: A\n")
	writeFile(t, dir, "b.yaml", "name: same\n---\n- tap: B\n")

	result := New(nil, nil).Validate([]string{dir})

	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Error(), `duplicate scenario name "same"`) {
		t.Errorf("expected duplicate name error, got %v", result.Errors)
	}
	if len(result.Scenarios) != 1 {
		t.Errorf("expected first scenario kept, got %d", len(result.Scenarios))
	}
}

func TestValidate_TagFilters(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		want    string
	}{
		{"no filters", nil, nil, "drag-drop,landscape,long-click,scroll-down"},
		{"include gesture", []string{"gesture"}, nil, "drag-drop,long-click,scroll-down"},
		{"include gesture exclude scroll", []string{"gesture"}, []string{"scroll"}, "drag-drop,long-click"},
		{"exclude only", nil, []string{"device"}, "drag-drop,long-click,scroll-down"},
		{"no match", []string{"nightly"}, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.include, tt.exclude).Validate(nil)
			if !result.IsValid() {
				t.Fatalf("unexpected errors: %v", result.Errors)
			}
			if got := names(result.Scenarios); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldInclude(t *testing.T) {
	sc := &scenario.Scenario{Config: scenario.Config{Tags: []string{"smoke", "gesture"}}}

	if !ShouldInclude(sc, nil, nil) {
		t.Error("no filters should include")
	}
	if !ShouldInclude(sc, []string{"smoke"}, nil) {
		t.Error("matching include should include")
	}
	if ShouldInclude(sc, []string{"nightly"}, nil) {
		t.Error("non-matching include should exclude")
	}
	if ShouldInclude(sc, nil, []string{"gesture"}) {
		t.Error("matching exclude should exclude")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Source: "x.yaml", Message: "bad"}
	if err.Error() != "x.yaml: bad" {
		t.Errorf("got %q", err.Error())
	}
	if (&Result{}).Err() != nil {
		t.Error("empty result should have nil Err")
	}
}

package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

func sampleSuite() *core.SuiteResult {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	suite := &core.SuiteResult{
		Name:      "gesture-runner",
		RunID:     "run-1",
		StartTime: start,
		Duration:  3 * time.Second,
		Scenarios: []core.ScenarioResult{
			{
				ID:        "sc-pass",
				Name:      "drag-drop",
				FilePath:  "builtin:drag-drop",
				DeviceID:  "emulator-5554",
				SessionID: "s1",
				Status:    core.StatusPassed,
				StartTime: start,
				Duration:  time.Second,
				Steps: []core.StepResult{
					{Index: 0, Command: "tap", Description: "tap accessibilityId=Views", Status: core.StatusPassed, StartTime: start, Duration: 200 * time.Millisecond},
				},
			},
			{
				ID:        "sc-fail",
				Name:      "long-click",
				FilePath:  "builtin:long-click",
				Status:    core.StatusFailed,
				Error:     "text mismatch",
				StartTime: start,
				Duration:  2 * time.Second,
				Steps: []core.StepResult{
					{
						Index: 0, Command: "assertText", Status: core.StatusFailed,
						Category: core.ErrCategoryAssertion, Error: "expected <b>Sample menu</b>",
						StartTime:   start,
						Attachments: []core.Attachment{core.NewHierarchyAttachment("sc-fail/step-00-hierarchy.xml", nil)},
					},
					{Index: 1, Command: "assertDisplayed", Status: core.StatusSkipped, Message: "previous step failed"},
				},
			},
		},
		TotalScenarios:  2,
		PassedScenarios: 1,
		FailedScenarios: 1,
	}
	return suite
}

func TestWriteAndReadJSON(t *testing.T) {
	dir := t.TempDir()
	suite := sampleSuite()

	path, err := WriteJSON(dir, suite)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if path != filepath.Join(dir, JSONFile) {
		t.Errorf("unexpected path %s", path)
	}

	got, err := ReadJSON(dir)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.RunID != "run-1" || len(got.Scenarios) != 2 {
		t.Fatalf("unexpected suite: %+v", got)
	}
	if got.Scenarios[1].Status != core.StatusFailed {
		t.Errorf("status = %s", got.Scenarios[1].Status)
	}
	if got.Scenarios[1].Steps[0].Category != core.ErrCategoryAssertion {
		t.Errorf("category = %s", got.Scenarios[1].Steps[0].Category)
	}
	if got.Scenarios[0].Duration != time.Second {
		t.Errorf("duration = %v", got.Scenarios[0].Duration)
	}
}

func TestReadJSON_Missing(t *testing.T) {
	if _, err := ReadJSON(t.TempDir()); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestGenerateHTML(t *testing.T) {
	dir := t.TempDir()

	path, err := GenerateHTML(dir, sampleSuite(), HTMLConfig{})
	if err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}
	if path != filepath.Join(dir, HTMLFile) {
		t.Errorf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)

	for _, want := range []string{
		"<title>Gesture Report</title>",
		"drag-drop",
		"long-click",
		"emulator-5554",
		"[assertion]",
		`href="sc-fail/step-00-hierarchy.xml"`,
		"previous step failed",
		"50%",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(html, "<b>Sample menu</b>") {
		t.Error("error text must be escaped")
	}
}

func TestGenerateHTML_CustomTitleAndPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "custom.html")

	path, err := GenerateHTML(dir, &core.SuiteResult{RunID: "empty"}, HTMLConfig{Title: "Nightly", OutputPath: out})
	if err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}
	if path != out {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), "<title>Nightly</title>") {
		t.Error("custom title not rendered")
	}
}

func TestGenerateAllure(t *testing.T) {
	dir := t.TempDir()
	hierarchyPath := filepath.Join(dir, "sc-fail", "step-00-hierarchy.xml")
	if err := os.MkdirAll(filepath.Dir(hierarchyPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(hierarchyPath, []byte("<hierarchy/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := GenerateAllure(dir, sampleSuite(), AllureEnvironment{Driver: "mock", Version: "1.2.3"})
	if err != nil {
		t.Fatalf("GenerateAllure: %v", err)
	}

	allureDir := filepath.Join(dir, AllureDir)
	data, err := os.ReadFile(filepath.Join(allureDir, "sc-fail-result.json"))
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var result AllureResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != "failed" || result.StatusDetails.Message != "text mismatch" {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Steps) != 2 || result.Steps[1].Status != "skipped" {
		t.Fatalf("unexpected steps: %+v", result.Steps)
	}
	if result.Steps[0].StatusDetails.Trace != "category: assertion" {
		t.Errorf("trace = %q", result.Steps[0].StatusDetails.Trace)
	}
	if len(result.Attachments) != 1 || result.Attachments[0].Type != "application/xml" {
		t.Fatalf("unexpected attachments: %+v", result.Attachments)
	}
	if _, err := os.Stat(filepath.Join(allureDir, result.Attachments[0].Source)); err != nil {
		t.Errorf("attachment not copied: %v", err)
	}

	env, err := os.ReadFile(filepath.Join(allureDir, "environment.properties"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"run.id=run-1", "runner.driver=mock", "runner.version=1.2.3", "devices=emulator-5554"} {
		if !strings.Contains(string(env), want) {
			t.Errorf("environment.properties missing %q", want)
		}
	}
	if _, err := os.Stat(filepath.Join(allureDir, "categories.json")); err != nil {
		t.Errorf("categories.json missing: %v", err)
	}
}

func TestMapAllureStatus(t *testing.T) {
	tests := map[core.StepStatus]string{
		core.StatusPassed:  "passed",
		core.StatusFailed:  "failed",
		core.StatusErrored: "broken",
		core.StatusSkipped: "skipped",
		core.StatusPending: "unknown",
	}
	for in, want := range tests {
		if got := mapAllureStatus(in); got != want {
			t.Errorf("mapAllureStatus(%s) = %s, want %s", in, got, want)
		}
	}
}

package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestScenarioResult_ComputeSummary(t *testing.T) {
	sc := &ScenarioResult{
		Name: "long-click",
		Steps: []StepResult{
			{Index: 0, Status: StatusPassed},
			{Index: 1, Status: StatusPassed},
			{Index: 2, Status: StatusFailed},
			{Index: 3, Status: StatusSkipped},
			{Index: 4, Status: StatusErrored},
		},
	}

	sc.ComputeSummary()

	if sc.TotalSteps != 5 {
		t.Errorf("TotalSteps = %d, want 5", sc.TotalSteps)
	}
	if sc.PassedSteps != 2 {
		t.Errorf("PassedSteps = %d, want 2", sc.PassedSteps)
	}
	if sc.FailedSteps != 2 { // Failed + Errored
		t.Errorf("FailedSteps = %d, want 2", sc.FailedSteps)
	}
	if sc.SkippedSteps != 1 {
		t.Errorf("SkippedSteps = %d, want 1", sc.SkippedSteps)
	}
}

func TestScenarioResult_ComputeSummary_Empty(t *testing.T) {
	sc := &ScenarioResult{Name: "empty"}
	sc.ComputeSummary()

	if sc.TotalSteps != 0 {
		t.Errorf("TotalSteps = %d, want 0", sc.TotalSteps)
	}
}

func TestScenarioResult_AggregateStatus(t *testing.T) {
	tests := []struct {
		name  string
		steps []StepResult
		want  StepStatus
	}{
		{"all passed", []StepResult{{Status: StatusPassed}, {Status: StatusPassed}}, StatusPassed},
		{"assertion failed", []StepResult{{Status: StatusPassed}, {Status: StatusFailed}, {Status: StatusSkipped}}, StatusFailed},
		{"errored wins", []StepResult{{Status: StatusFailed}, {Status: StatusErrored}}, StatusErrored},
		{"no steps", nil, StatusPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &ScenarioResult{Steps: tt.steps}
			if got := sc.AggregateStatus(); got != tt.want {
				t.Errorf("AggregateStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSuiteResult_ComputeSummary(t *testing.T) {
	suite := &SuiteResult{
		Scenarios: []ScenarioResult{
			{Status: StatusPassed},
			{Status: StatusPassed},
			{Status: StatusFailed},
			{Status: StatusErrored},
			{Status: StatusSkipped},
		},
	}

	suite.ComputeSummary()

	if suite.TotalScenarios != 5 {
		t.Errorf("TotalScenarios = %d, want 5", suite.TotalScenarios)
	}
	if suite.PassedScenarios != 2 {
		t.Errorf("PassedScenarios = %d, want 2", suite.PassedScenarios)
	}
	if suite.FailedScenarios != 2 {
		t.Errorf("FailedScenarios = %d, want 2", suite.FailedScenarios)
	}
	if suite.SkippedScenarios != 1 {
		t.Errorf("SkippedScenarios = %d, want 1", suite.SkippedScenarios)
	}
}

func TestSuiteResult_Success(t *testing.T) {
	tests := []struct {
		name      string
		scenarios []ScenarioResult
		expected  bool
	}{
		{"all passed", []ScenarioResult{{Status: StatusPassed}, {Status: StatusPassed}}, true},
		{"one failed", []ScenarioResult{{Status: StatusPassed}, {Status: StatusFailed}}, false},
		{"one errored", []ScenarioResult{{Status: StatusErrored}}, false},
		{"empty suite", []ScenarioResult{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := &SuiteResult{Scenarios: tt.scenarios}
			if got := suite.Success(); got != tt.expected {
				t.Errorf("Success() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewSuiteResult(t *testing.T) {
	a := NewSuiteResult("nightly")
	b := NewSuiteResult("nightly")

	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("RunIDs should be unique and non-empty: %q, %q", a.RunID, b.RunID)
	}
	if a.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestStepResult_JSON(t *testing.T) {
	step := StepResult{
		Index:     2,
		Command:   "drag",
		Status:    StatusErrored,
		Category:  ErrCategoryGesture,
		StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Element:   &ElementHandle{ID: "H1", SessionID: "s1"},
	}

	data, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"status":"errored"`) {
		t.Errorf("status should serialize by name: %s", s)
	}
	if !strings.Contains(s, `"errorCategory":"gesture"`) {
		t.Errorf("category should serialize by name: %s", s)
	}
}

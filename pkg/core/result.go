package core

import (
	"time"

	"github.com/google/uuid"
)

// StepResult captures the complete outcome of executing a single scenario step
type StepResult struct {
	// Identity
	Index       int    `json:"index"`                 // 0-based position in scenario
	Command     string `json:"command"`               // Step type: tap, drag, assertText, etc.
	Description string `json:"description,omitempty"` // Human-readable step summary

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Output
	Message string         `json:"message,omitempty"` // Human-readable explanation
	Element *ElementHandle `json:"element,omitempty"` // Element the step acted on
	Data    interface{}    `json:"data,omitempty"`    // Step-specific data (scroll count, copied text, expected/actual)

	// Error Details
	Error string `json:"error,omitempty"` // Technical error message

	// Debug Artifacts
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ScenarioResult captures the complete outcome of executing one scenario
type ScenarioResult struct {
	// Identity
	ID       string `json:"id"`
	Name     string `json:"name"`
	FilePath string `json:"filePath,omitempty"`

	// Where it ran
	DeviceID  string `json:"deviceId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`

	// Status (aggregated from steps)
	Status StepStatus `json:"status"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Steps []StepResult `json:"steps"`

	// Summary (computed)
	TotalSteps   int `json:"totalSteps"`
	PassedSteps  int `json:"passedSteps"`
	FailedSteps  int `json:"failedSteps"`
	SkippedSteps int `json:"skippedSteps"`

	// Error info (if scenario failed)
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ComputeSummary calculates step counts from the Steps slice
func (s *ScenarioResult) ComputeSummary() {
	s.TotalSteps = len(s.Steps)
	s.PassedSteps = 0
	s.FailedSteps = 0
	s.SkippedSteps = 0

	for _, step := range s.Steps {
		switch step.Status {
		case StatusPassed:
			s.PassedSteps++
		case StatusFailed, StatusErrored:
			s.FailedSteps++
		case StatusSkipped:
			s.SkippedSteps++
		}
	}
}

// AggregateStatus determines the scenario status from step results.
// Scenarios are all-or-nothing: an errored step errors the scenario, a
// failed assertion fails it, otherwise it passed.
func (s *ScenarioResult) AggregateStatus() StepStatus {
	status := StatusPassed
	for _, step := range s.Steps {
		switch step.Status {
		case StatusErrored:
			return StatusErrored
		case StatusFailed:
			status = StatusFailed
		}
	}
	return status
}

// SuiteResult captures the complete outcome of executing multiple scenarios
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Scenarios []ScenarioResult `json:"scenarios"`

	// Summary
	TotalScenarios   int `json:"totalScenarios"`
	PassedScenarios  int `json:"passedScenarios"`
	FailedScenarios  int `json:"failedScenarios"`
	SkippedScenarios int `json:"skippedScenarios"`
}

// NewSuiteResult starts a suite with a fresh run ID.
func NewSuiteResult(name string) *SuiteResult {
	return &SuiteResult{
		Name:      name,
		RunID:     NewID(),
		StartTime: time.Now(),
	}
}

// NewID returns a unique identifier for runs and scenario executions.
func NewID() string {
	return uuid.New().String()
}

// ComputeSummary calculates scenario counts from the Scenarios slice
func (s *SuiteResult) ComputeSummary() {
	s.TotalScenarios = len(s.Scenarios)
	s.PassedScenarios = 0
	s.FailedScenarios = 0
	s.SkippedScenarios = 0

	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.PassedScenarios++
		case StatusFailed, StatusErrored:
			s.FailedScenarios++
		case StatusSkipped:
			s.SkippedScenarios++
		}
	}
}

// Success returns true if all scenarios passed
func (s *SuiteResult) Success() bool {
	for _, sc := range s.Scenarios {
		if !sc.Status.IsSuccess() {
			return false
		}
	}
	return len(s.Scenarios) > 0
}

package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrElementNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrWaitTimeout
	newErr := original.WithMessage("custom timeout message")

	if newErr.Message != "custom timeout message" {
		t.Errorf("Message = %q, want 'custom timeout message'", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message == "custom timeout message" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"locator":  "id=android:id/title",
		"duration": 2000,
	})

	if newErr.Details["locator"] != "id=android:id/title" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["locator"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrAssertion, ErrCategoryAssertion, "assertion_failed"},
		{ErrTextMismatch, ErrCategoryAssertion, "text_mismatch"},
		{ErrElementNotVisible, ErrCategoryAssertion, "element_not_visible"},
		{ErrWaitTimeout, ErrCategoryTimeout, "wait_timeout"},
		{ErrScrollNotExhausted, ErrCategoryTimeout, "scroll_not_exhausted"},
		{ErrConnection, ErrCategoryConnection, "connection_failed"},
		{ErrServerStartup, ErrCategoryConnection, "server_startup_failed"},
		{ErrElementNotFound, ErrCategoryElement, "element_not_found"},
		{ErrStaleElement, ErrCategoryElement, "stale_element"},
		{ErrGestureExecution, ErrCategoryGesture, "gesture_failed"},
		{ErrInvalidGesture, ErrCategoryGesture, "invalid_gesture"},
		{ErrDevice, ErrCategoryDevice, "device_operation_failed"},
		{ErrSessionClosed, ErrCategorySession, "session_closed"},
		{ErrInvalidConfig, ErrCategoryConfig, "invalid_config"},
		{ErrInvalidLocator, ErrCategoryConfig, "invalid_locator"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewExecutionError(t *testing.T) {
	err := NewExecutionError(ErrCategoryDevice, "custom_error", "custom message")

	if err.Category != ErrCategoryDevice {
		t.Errorf("Category = %s, want %s", err.Category, ErrCategoryDevice)
	}
	if err.Code != "custom_error" {
		t.Errorf("Code = %s, want 'custom_error'", err.Code)
	}
	if err.Message != "custom message" {
		t.Errorf("Message = %s, want 'custom message'", err.Message)
	}
}

func TestExecutionError_ErrorsIs(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrWaitTimeout.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
	if !errors.Is(err, ErrWaitTimeout) {
		t.Error("errors.Is() should match the predefined error by code")
	}
	if errors.Is(err, ErrScrollNotExhausted) {
		t.Error("errors.Is() matched an error with a different code")
	}

	wrapped := fmt.Errorf("step 3: %w", ErrSessionClosed.WithMessage("locate after stop"))
	if !errors.Is(wrapped, ErrSessionClosed) {
		t.Error("errors.Is() should see through fmt.Errorf wrapping")
	}
}

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf(nil); got != ErrCategoryNone {
		t.Errorf("CategoryOf(nil) = %s, want none", got)
	}
	if got := CategoryOf(fmt.Errorf("wrap: %w", ErrDevice)); got != ErrCategoryDevice {
		t.Errorf("CategoryOf(device) = %s, want device", got)
	}
	if got := CategoryOf(errors.New("plain")); got != ErrCategoryGesture {
		t.Errorf("CategoryOf(plain) = %s, want gesture", got)
	}
}

package scenario

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// StepType represents the type of step.
type StepType string

// Step type constants.
const (
	// Gestures
	StepTap         StepType = "tap"
	StepDrag        StepType = "drag"
	StepLongPress   StepType = "longPress"
	StepScrollToEnd StepType = "scrollToEnd"
	StepRotate      StepType = "rotate"

	// Waits
	StepWaitForDisplayed StepType = "waitForDisplayed"
	StepWaitForStable    StepType = "waitForStable"

	// Assertions
	StepAssertText      StepType = "assertText"
	StepAssertDisplayed StepType = "assertDisplayed"
	StepAssertTrue      StepType = "assertTrue"

	// Data
	StepCopyText StepType = "copyText"
)

// DefaultLongPressMs is the hold time when a longPress step omits duration.
const DefaultLongPressMs = 1000

// placeholder stands in for a located element when validating gesture
// parameters at parse time.
var placeholder = core.ElementHandle{ID: "placeholder"}

// Step is the interface for all scenario steps.
type Step interface {
	Type() StepType
	IsOptional() bool
	Label() string
	Describe() string
	Validate() error
}

// Targeted is implemented by steps that act on a located element.
type Targeted interface {
	Step
	Target() Selector
}

// GestureStep is a targeted step that performs one element gesture.
type GestureStep interface {
	Targeted
	Gesture(h core.ElementHandle) core.Gesture
}

// BaseStep contains common fields for all steps.
type BaseStep struct {
	StepType  StepType `yaml:"-"`
	Optional  bool     `yaml:"optional"`
	StepLabel string   `yaml:"label"`
	TimeoutMs int      `yaml:"timeout"`
}

// Type returns the step type.
func (b *BaseStep) Type() StepType { return b.StepType }

// IsOptional returns whether the step is optional.
func (b *BaseStep) IsOptional() bool { return b.Optional }

// Label returns the step label.
func (b *BaseStep) Label() string { return b.StepLabel }

// Timeout returns the step timeout, or def when unset.
func (b *BaseStep) Timeout(def time.Duration) time.Duration {
	if b.TimeoutMs > 0 {
		return time.Duration(b.TimeoutMs) * time.Millisecond
	}
	return def
}

func (b *BaseStep) base() *BaseStep { return b }

// Validate accepts any step; concrete steps override it.
func (b *BaseStep) Validate() error { return nil }

func (b *BaseStep) describe(detail string) string {
	if b.StepLabel != "" {
		return b.StepLabel
	}
	return fmt.Sprintf("%s %s", b.StepType, detail)
}

// ============================================
// Gesture Steps
// ============================================

// TapStep clicks an element.
type TapStep struct {
	BaseStep `yaml:",inline"`
	Selector `yaml:",inline"`
}

// Target implements Targeted.
func (s *TapStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *TapStep) Describe() string { return s.describe(s.Selector.String()) }

// Validate checks the selector.
func (s *TapStep) Validate() error {
	_, err := s.Selector.Locator()
	return err
}

// Gesture builds the tap for a located element.
func (s *TapStep) Gesture(h core.ElementHandle) core.Gesture {
	return core.Tap{Target: h}
}

// DragStep drags an element to an absolute screen point.
type DragStep struct {
	BaseStep `yaml:",inline"`
	Selector `yaml:",inline"`
	EndX     int `yaml:"endX"`
	EndY     int `yaml:"endY"`
	Speed    int `yaml:"speed"`
}

// Target implements Targeted.
func (s *DragStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *DragStep) Describe() string {
	return s.describe(fmt.Sprintf("%s to (%d, %d)", s.Selector, s.EndX, s.EndY))
}

// Validate checks the selector and drag parameters.
func (s *DragStep) Validate() error {
	if _, err := s.Selector.Locator(); err != nil {
		return err
	}
	return s.Gesture(placeholder).Validate()
}

// Gesture builds the drag for a located element.
func (s *DragStep) Gesture(h core.ElementHandle) core.Gesture {
	return core.Drag{Source: h, EndX: s.EndX, EndY: s.EndY, Speed: s.Speed}
}

// LongPressStep holds on an element.
type LongPressStep struct {
	BaseStep   `yaml:",inline"`
	Selector   `yaml:",inline"`
	DurationMs int `yaml:"duration"`
}

// Target implements Targeted.
func (s *LongPressStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *LongPressStep) Describe() string {
	return s.describe(fmt.Sprintf("%s for %dms", s.Selector, s.DurationMs))
}

// Validate checks the selector and duration.
func (s *LongPressStep) Validate() error {
	if _, err := s.Selector.Locator(); err != nil {
		return err
	}
	return s.Gesture(placeholder).Validate()
}

// Gesture builds the long press for a located element.
func (s *LongPressStep) Gesture(h core.ElementHandle) core.Gesture {
	return core.LongPress{Target: h, DurationMs: s.DurationMs}
}

// ScrollToEndStep scrolls a viewport rectangle until the server reports
// no further movement.
type ScrollToEndStep struct {
	BaseStep   `yaml:",inline"`
	Left       int     `yaml:"left"`
	Top        int     `yaml:"top"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Direction  string  `yaml:"direction"`
	Percent    float64 `yaml:"percent"`
	MaxScrolls int     `yaml:"maxScrolls"` // 0 = configured default
}

// Describe returns a human-readable description.
func (s *ScrollToEndStep) Describe() string {
	return s.describe(fmt.Sprintf("%s in (%d, %d, %dx%d)", s.Direction, s.Left, s.Top, s.Width, s.Height))
}

// Validate checks the scroll parameters.
func (s *ScrollToEndStep) Validate() error {
	if s.MaxScrolls < 0 {
		return core.ErrInvalidGesture.WithMessage("maxScrolls must not be negative")
	}
	_, err := s.Gesture()
	return err
}

// Gesture builds one scroll of the loop.
func (s *ScrollToEndStep) Gesture() (core.Scroll, error) {
	dir, err := core.ParseDirection(s.Direction)
	if err != nil {
		return core.Scroll{}, err
	}
	g := core.Scroll{
		Left:      s.Left,
		Top:       s.Top,
		Width:     s.Width,
		Height:    s.Height,
		Direction: dir,
		Percent:   s.Percent,
	}
	return g, g.Validate()
}

// RotateStep reorients the device. In YAML it takes x/y/z degrees or the
// shorthands portrait (z=0) and landscape (z=90).
type RotateStep struct {
	BaseStep `yaml:",inline"`
	X        int `yaml:"x"`
	Y        int `yaml:"y"`
	Z        int `yaml:"z"`
}

// Describe returns a human-readable description.
func (s *RotateStep) Describe() string {
	return s.describe(fmt.Sprintf("to (%d, %d, %d)", s.X, s.Y, s.Z))
}

// Validate checks the angles.
func (s *RotateStep) Validate() error { return s.Gesture().Validate() }

// Gesture builds the rotation.
func (s *RotateStep) Gesture() core.Rotate {
	return core.Rotate{X: s.X, Y: s.Y, Z: s.Z}
}

// ============================================
// Wait Steps
// ============================================

// WaitForDisplayedStep polls until an element is located and visible.
type WaitForDisplayedStep struct {
	BaseStep `yaml:",inline"`
	Selector `yaml:",inline"`
}

// Target implements Targeted.
func (s *WaitForDisplayedStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *WaitForDisplayedStep) Describe() string { return s.describe(s.Selector.String()) }

// Validate checks the selector.
func (s *WaitForDisplayedStep) Validate() error {
	_, err := s.Selector.Locator()
	return err
}

// WaitForStableStep polls the page source until two consecutive reads match.
type WaitForStableStep struct {
	BaseStep   `yaml:",inline"`
	IntervalMs int `yaml:"interval"`
}

// Describe returns a human-readable description.
func (s *WaitForStableStep) Describe() string { return s.describe("") }

// Interval returns the poll interval, or def when unset.
func (s *WaitForStableStep) Interval(def time.Duration) time.Duration {
	if s.IntervalMs > 0 {
		return time.Duration(s.IntervalMs) * time.Millisecond
	}
	return def
}

// ============================================
// Assertion Steps
// ============================================

// AssertTextStep compares an element's text.
type AssertTextStep struct {
	BaseStep `yaml:",inline"`
	Selector `yaml:",inline"`
	Equals   string `yaml:"equals"`
	Contains string `yaml:"contains"`
}

// Target implements Targeted.
func (s *AssertTextStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *AssertTextStep) Describe() string {
	if s.Contains != "" {
		return s.describe(fmt.Sprintf("%s contains %q", s.Selector, s.Contains))
	}
	return s.describe(fmt.Sprintf("%s == %q", s.Selector, s.Equals))
}

// Validate checks the selector and that one comparison is given.
func (s *AssertTextStep) Validate() error {
	if _, err := s.Selector.Locator(); err != nil {
		return err
	}
	if (s.Equals == "") == (s.Contains == "") {
		return core.ErrInvalidConfig.WithMessage("assertText needs exactly one of equals or contains")
	}
	return nil
}

// AssertDisplayedStep checks that an element is visible.
type AssertDisplayedStep struct {
	BaseStep `yaml:",inline"`
	Selector `yaml:",inline"`
}

// Target implements Targeted.
func (s *AssertDisplayedStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *AssertDisplayedStep) Describe() string { return s.describe(s.Selector.String()) }

// Validate checks the selector.
func (s *AssertDisplayedStep) Validate() error {
	_, err := s.Selector.Locator()
	return err
}

// AssertTrueStep evaluates a JavaScript condition.
type AssertTrueStep struct {
	BaseStep  `yaml:",inline"`
	Condition string `yaml:"condition"`
}

// Describe returns a human-readable description.
func (s *AssertTrueStep) Describe() string { return s.describe(s.Condition) }

// Validate checks that a condition is given.
func (s *AssertTrueStep) Validate() error {
	if s.Condition == "" {
		return core.ErrInvalidConfig.WithMessage("assertTrue requires a condition")
	}
	return nil
}

// ============================================
// Data Steps
// ============================================

// CopyTextStep reads an element's text into runner.copiedText and, when As
// is set, output[As].
type CopyTextStep struct {
	BaseStep `yaml:",inline"`
	Selector `yaml:",inline"`
	As       string `yaml:"as"`
}

// Target implements Targeted.
func (s *CopyTextStep) Target() Selector { return s.Selector }

// Describe returns a human-readable description.
func (s *CopyTextStep) Describe() string { return s.describe(s.Selector.String()) }

// Validate checks the selector.
func (s *CopyTextStep) Validate() error {
	_, err := s.Selector.Locator()
	return err
}

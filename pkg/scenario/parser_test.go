package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepsOnly(t *testing.T) {
	sc, err := Parse([]byte(`
- tap: Views
- waitForStable
- assertTrue: output.ok
`), "steps.yaml")
	require.NoError(t, err)
	require.Len(t, sc.Steps, 3)

	tap, ok := sc.Steps[0].(*TapStep)
	require.True(t, ok)
	assert.Equal(t, StepTap, tap.Type())
	assert.Equal(t, "Views", tap.AccessibilityID)

	assert.Equal(t, StepWaitForStable, sc.Steps[1].Type())

	at := sc.Steps[2].(*AssertTrueStep)
	assert.Equal(t, "output.ok", at.Condition)
	assert.Equal(t, "steps.yaml", sc.Name())
}

func TestParseWithHeader(t *testing.T) {
	sc, err := Parse([]byte(`
name: checkout
tags: [smoke]
env:
  USER: alice
---
- drag:
    id: dot
    endX: 10
    endY: 20
    speed: 500
    label: move dot
    optional: true
`), "checkout.yaml")
	require.NoError(t, err)

	assert.Equal(t, "checkout", sc.Name())
	assert.True(t, sc.HasTag("smoke"))
	assert.False(t, sc.HasTag("slow"))
	assert.Equal(t, "alice", sc.Config.Env["USER"])

	drag := sc.Steps[0].(*DragStep)
	assert.Equal(t, "dot", drag.ID)
	assert.Equal(t, 10, drag.EndX)
	assert.Equal(t, 20, drag.EndY)
	assert.Equal(t, 500, drag.Speed)
	assert.True(t, drag.IsOptional())
	assert.Equal(t, "move dot", drag.Describe())

	h := core.ElementHandle{ID: "e", SessionID: "s"}
	assert.Equal(t, core.Drag{Source: h, EndX: 10, EndY: 20, Speed: 500}, drag.Gesture(h))
}

func TestParseDefaults(t *testing.T) {
	sc, err := Parse([]byte(`
- longPress: Item
- scrollToEnd: down
- rotate: landscape
`), "defaults.yaml")
	require.NoError(t, err)

	lp := sc.Steps[0].(*LongPressStep)
	assert.Equal(t, DefaultLongPressMs, lp.DurationMs)

	scroll := sc.Steps[1].(*ScrollToEndStep)
	g, err := scroll.Gesture()
	require.NoError(t, err)
	assert.Equal(t, core.DirectionDown, g.Direction)
	assert.Equal(t, 100.0, g.Percent)

	rot := sc.Steps[2].(*RotateStep)
	assert.Equal(t, core.Rotate{Z: 90}, rot.Gesture())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"unknown step", "- swipe: up"},
		{"unknown scalar step", "- dance"},
		{"not a list", "tap: Views"},
		{"multi-key step", "- tap: Views\n  drag: x"},
		{"selector missing", "- tap: {}"},
		{"two strategies", "- tap: {id: a, xpath: //b}"},
		{"negative drag", "- drag: {id: a, endX: -1, endY: 0}"},
		{"bad direction", "- scrollToEnd: sideways"},
		{"bad percent", "- scrollToEnd: {direction: down, percent: 150}"},
		{"bad rotation", "- rotate: {z: 360}"},
		{"bad orientation", "- rotate: upside-down"},
		{"assertText without comparison", "- assertText: {id: t}"},
		{"assertText with both", "- assertText: {id: t, equals: a, contains: b}"},
		{"assertTrue empty", "- assertTrue: {}"},
		{"three documents", "name: a\n---\n- tap: b\n---\n- tap: c"},
		{"invalid yaml", "- tap: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "bad.yaml")
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "expected ParseError, got %T", err)
		})
	}
}

func TestParseErrorLine(t *testing.T) {
	_, err := Parse([]byte("- tap: Views\n- swipe: up\n"), "bad.yaml")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "bad.yaml:2: unknown step type: swipe", pe.Error())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- tap: Views\n"), 0o644))

	sc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, sc.SourcePath)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSelectorForms(t *testing.T) {
	tests := []struct {
		in   string
		want Selector
	}{
		{"Views", Selector{AccessibilityID: "Views"}},
		{"//android.widget.TextView[@text='x']", Selector{XPath: "//android.widget.TextView[@text='x']"}},
		{"id=android:id/title", Selector{ID: "android:id/title"}},
		{"accessibilityId=Views", Selector{AccessibilityID: "Views"}},
		{"xpath=//a", Selector{XPath: "//a"}},
		{"a=b", Selector{AccessibilityID: "a=b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSelector(tt.in), tt.in)
	}

	loc, err := Selector{ID: "android:id/title"}.Locator()
	require.NoError(t, err)
	assert.Equal(t, core.StrategyID, loc.Strategy())
	assert.Equal(t, "android:id/title", loc.Value())

	_, err = Selector{}.Locator()
	assert.True(t, errors.Is(err, core.ErrInvalidLocator))
	assert.True(t, Selector{}.IsEmpty())
}

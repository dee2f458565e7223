package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"drag-drop", "landscape", "long-click", "scroll-down"}, BuiltinNames())
}

func TestBuiltinsParse(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			sc, err := Builtin(name)
			require.NoError(t, err)
			assert.Equal(t, name, sc.Name())
			assert.Equal(t, BuiltinPrefix+name, sc.SourcePath)
			assert.NotEmpty(t, sc.Steps)
		})
	}
}

func TestBuiltinDragDrop(t *testing.T) {
	sc, err := Builtin("drag-drop")
	require.NoError(t, err)
	require.Len(t, sc.Steps, 4)

	drag := sc.Steps[2].(*DragStep)
	assert.Equal(t, "io.appium.android.apis:id/drag_dot_1", drag.ID)
	assert.Equal(t, 664, drag.EndX)
	assert.Equal(t, 600, drag.EndY)
}

func TestBuiltinLongClick(t *testing.T) {
	sc, err := Builtin("long-click")
	require.NoError(t, err)

	lp := sc.Steps[3].(*LongPressStep)
	assert.Equal(t, "//android.widget.TextView[@text='People Names']", lp.XPath)
	assert.Equal(t, 2000, lp.DurationMs)

	settle := sc.Steps[4].(*WaitForStableStep)
	assert.Equal(t, 5000, settle.TimeoutMs)

	at := sc.Steps[5].(*AssertTextStep)
	assert.Equal(t, "android:id/title", at.ID)
	assert.Equal(t, "Sample menu", at.Equals)
}

func TestBuiltinScrollAndRotate(t *testing.T) {
	sc, err := Builtin("scroll-down")
	require.NoError(t, err)
	g, err := sc.Steps[1].(*ScrollToEndStep).Gesture()
	require.NoError(t, err)
	assert.Equal(t, core.Scroll{Left: 100, Top: 100, Width: 200, Height: 200, Direction: core.DirectionDown, Percent: 100}, g)

	sc, err = Builtin("landscape")
	require.NoError(t, err)
	assert.Equal(t, core.Rotate{Z: 90}, sc.Steps[3].(*RotateStep).Gesture())
}

func TestBuiltinUnknown(t *testing.T) {
	_, err := Builtin("nope")
	assert.ErrorContains(t, err, "drag-drop")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("- tap: B\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("- tap: A\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	t.Run("all builtins by default", func(t *testing.T) {
		scs, err := Load(nil)
		require.NoError(t, err)
		assert.Len(t, scs, len(BuiltinNames()))
	})

	t.Run("directory", func(t *testing.T) {
		scs, err := Load([]string{dir})
		require.NoError(t, err)
		require.Len(t, scs, 2)
		assert.Equal(t, filepath.Join(dir, "a.yml"), scs[0].SourcePath)
	})

	t.Run("glob and builtin", func(t *testing.T) {
		scs, err := Load([]string{filepath.Join(dir, "*.yaml"), "builtin:landscape", "drag-drop"})
		require.NoError(t, err)
		require.Len(t, scs, 3)
		assert.Equal(t, "landscape", scs[1].Name())
		assert.Equal(t, "drag-drop", scs[2].Name())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load([]string{filepath.Join(dir, "missing.yaml")})
		assert.Error(t, err)
	})

	t.Run("unknown builtin", func(t *testing.T) {
		_, err := Load([]string{"nope"})
		assert.Error(t, err)
	})
}

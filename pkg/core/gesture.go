package core

import (
	"fmt"
	"strings"
)

// GestureKind names a gesture variant.
type GestureKind string

// Gesture kinds.
const (
	GestureTap       GestureKind = "tap"
	GestureDrag      GestureKind = "drag"
	GestureLongPress GestureKind = "longPress"
	GestureScroll    GestureKind = "scroll"
	GestureRotate    GestureKind = "rotate"
)

// Gesture is a closed set of touch and device commands.
// Only the types in this package implement it.
type Gesture interface {
	Kind() GestureKind
	Validate() error
	gesture()
}

// Direction is a scroll direction.
type Direction string

// Scroll directions.
const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection normalizes a direction name.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return d, nil
	}
	return "", ErrInvalidGesture.WithMessage(fmt.Sprintf("invalid scroll direction %q", s))
}

// Tap clicks an element.
type Tap struct {
	Target ElementHandle
}

// Drag moves the source element to an absolute viewport point.
type Drag struct {
	Source ElementHandle
	EndX   int
	EndY   int
	Speed  int // pixels per second, 0 = server default
}

// LongPress holds on an element for DurationMs before releasing.
type LongPress struct {
	Target     ElementHandle
	DurationMs int
}

// Scroll scrolls once inside a viewport rectangle.
// Percent is the share of the rectangle covered per step, in (0, 100].
type Scroll struct {
	Left      int
	Top       int
	Width     int
	Height    int
	Direction Direction
	Percent   float64
}

// Rotate reorients the device. Angles are degrees (roll, pitch, yaw).
type Rotate struct {
	X int
	Y int
	Z int
}

func (Tap) Kind() GestureKind       { return GestureTap }
func (Drag) Kind() GestureKind      { return GestureDrag }
func (LongPress) Kind() GestureKind { return GestureLongPress }
func (Scroll) Kind() GestureKind    { return GestureScroll }
func (Rotate) Kind() GestureKind    { return GestureRotate }

func (Tap) gesture()       {}
func (Drag) gesture()      {}
func (LongPress) gesture() {}
func (Scroll) gesture()    {}
func (Rotate) gesture()    {}

func invalid(format string, args ...interface{}) error {
	return ErrInvalidGesture.WithMessage(fmt.Sprintf(format, args...))
}

// Validate implements Gesture.
func (g Tap) Validate() error {
	if g.Target.IsZero() {
		return invalid("tap requires a target element")
	}
	return nil
}

// Validate implements Gesture.
func (g Drag) Validate() error {
	if g.Source.IsZero() {
		return invalid("drag requires a source element")
	}
	if g.EndX < 0 || g.EndY < 0 {
		return invalid("drag end point (%d, %d) must be non-negative", g.EndX, g.EndY)
	}
	if g.Speed < 0 {
		return invalid("drag speed %d must be non-negative", g.Speed)
	}
	return nil
}

// Validate implements Gesture.
func (g LongPress) Validate() error {
	if g.Target.IsZero() {
		return invalid("long press requires a target element")
	}
	if g.DurationMs <= 0 {
		return invalid("long press duration %dms must be positive", g.DurationMs)
	}
	return nil
}

// Validate implements Gesture.
func (g Scroll) Validate() error {
	if g.Left < 0 || g.Top < 0 || g.Width < 0 || g.Height < 0 {
		return invalid("scroll area (%d, %d, %d, %d) must be non-negative", g.Left, g.Top, g.Width, g.Height)
	}
	if _, err := ParseDirection(string(g.Direction)); err != nil {
		return err
	}
	if g.Percent <= 0 || g.Percent > 100 {
		return invalid("scroll percent %v must be in (0, 100]", g.Percent)
	}
	return nil
}

// Validate implements Gesture.
func (g Rotate) Validate() error {
	for _, a := range []int{g.X, g.Y, g.Z} {
		if a < 0 || a >= 360 {
			return invalid("rotation (%d, %d, %d) angles must be in [0, 360)", g.X, g.Y, g.Z)
		}
	}
	return nil
}

// Command is the wire form of a gesture: a server command name plus its
// named parameters.
type Command struct {
	Name string
	Args map[string]interface{}
}

// Payload validates g and maps it to its wire command. Rotate maps to the
// device rotation body rather than a mobile: gesture.
func Payload(g Gesture) (Command, error) {
	if err := g.Validate(); err != nil {
		return Command{}, err
	}

	switch g := g.(type) {
	case Tap:
		return Command{Name: "clickGesture", Args: map[string]interface{}{
			"elementId": g.Target.ID,
		}}, nil
	case Drag:
		args := map[string]interface{}{
			"elementId": g.Source.ID,
			"endX":      g.EndX,
			"endY":      g.EndY,
		}
		if g.Speed > 0 {
			args["speed"] = g.Speed
		}
		return Command{Name: "dragGesture", Args: args}, nil
	case LongPress:
		return Command{Name: "longClickGesture", Args: map[string]interface{}{
			"elementId": g.Target.ID,
			"duration":  g.DurationMs,
		}}, nil
	case Scroll:
		return Command{Name: "scrollGesture", Args: map[string]interface{}{
			"left":      g.Left,
			"top":       g.Top,
			"width":     g.Width,
			"height":    g.Height,
			"direction": string(g.Direction),
			"percent":   g.Percent / 100,
		}}, nil
	case Rotate:
		return Command{Name: "rotation", Args: map[string]interface{}{
			"x": g.X,
			"y": g.Y,
			"z": g.Z,
		}}, nil
	default:
		return Command{}, invalid("unsupported gesture %T", g)
	}
}

// Target returns the element a gesture acts on, if any.
func Target(g Gesture) (ElementHandle, bool) {
	switch g := g.(type) {
	case Tap:
		return g.Target, true
	case Drag:
		return g.Source, true
	case LongPress:
		return g.Target, true
	default:
		return ElementHandle{}, false
	}
}

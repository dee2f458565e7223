// Package mock provides an in-memory session for testing without a device
// or automation server.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/hierarchy"
)

// DefaultSource is the page source a mock session starts with.
const DefaultSource = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <android.widget.FrameLayout class="android.widget.FrameLayout" bounds="[0,0][1080,2400]">
    <android.widget.TextView class="android.widget.TextView" text="Mock Element" content-desc="mock-element" resource-id="mock:id/element" bounds="[100,200][300,250]"/>
  </android.widget.FrameLayout>
</hierarchy>`

// Config configures mock session behavior.
type Config struct {
	// SessionID to report (default: mock-session)
	SessionID string
	// ScrollsBeforeEnd is how many scrolls report more content before the
	// view is exhausted. Negative means never exhausted.
	ScrollsBeforeEnd int
	// StaleOnRotate invalidates every handle located before a rotation.
	StaleOnRotate bool
	// StepDelay adds artificial latency to every call.
	StepDelay time.Duration
	// Lenient resolves locators matching nothing to a synthetic visible
	// element with empty text instead of failing.
	Lenient bool
}

// Call records one operation made against the session.
type Call struct {
	Op      string // locate, act, rotate, text, displayed, source, stop
	Locator core.Locator
	Gesture core.Gesture
	Handle  core.ElementHandle
}

type element struct {
	text      string
	displayed bool
}

// Session is an in-memory core.Session. Locators resolve first against
// registered elements, then against the current page source.
type Session struct {
	cfg Config

	mu         sync.Mutex
	elements   map[string]string   // locator string -> element id
	state      map[string]*element // element id -> state
	handles    map[string]handle   // handle id -> element id + generation
	failures   map[string]error    // op or gesture kind -> injected error
	sources    []string
	generation int
	scrolls    int
	rotation   core.Rotate
	calls      []Call
	closed     bool
	stops      int
}

type handle struct {
	elementID  string
	generation int
}

var _ core.Session = (*Session)(nil)

// New creates a new mock session.
func New(cfg Config) *Session {
	if cfg.SessionID == "" {
		cfg.SessionID = "mock-session"
	}
	return &Session{
		cfg:      cfg,
		elements: make(map[string]string),
		state:    make(map[string]*element),
		handles:  make(map[string]handle),
		failures: make(map[string]error),
		sources:  []string{DefaultSource},
	}
}

// AddElement registers an element reachable through loc.
func (s *Session) AddElement(loc core.Locator, id, text string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[loc.String()] = id
	if _, ok := s.state[id]; !ok {
		s.state[id] = &element{displayed: true}
	}
	s.state[id].text = text
	return s
}

// SetDisplayed sets the visibility of a registered element.
func (s *Session) SetDisplayed(id string, displayed bool) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.state[id]; ok {
		e.displayed = displayed
	}
	return s
}

// SetSources sets the successive page sources returned by Source. The last
// one repeats once the others are used up.
func (s *Session) SetSources(sources ...string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(sources) > 0 {
		s.sources = append([]string(nil), sources...)
	}
	return s
}

// FailOn makes every call of op fail with err. op is a Call.Op value or a
// gesture kind such as "drag".
func (s *Session) FailOn(op string, err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
	return s
}

// ID returns the configured session id.
func (s *Session) ID() string {
	return s.cfg.SessionID
}

// Locate resolves loc against registered elements, then the page source.
func (s *Session) Locate(ctx context.Context, loc core.Locator) (core.ElementHandle, error) {
	if err := s.begin(ctx, Call{Op: "locate", Locator: loc}); err != nil {
		return core.ElementHandle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["locate"]; err != nil {
		return core.ElementHandle{}, core.ErrElementNotFound.WithCause(err)
	}

	id, ok := s.elements[loc.String()]
	if !ok {
		var err error
		id, err = s.findInSource(loc)
		if err != nil {
			return core.ElementHandle{}, err
		}
	}

	h := core.ElementHandle{
		ID:        fmt.Sprintf("%s#%d", id, s.generation),
		SessionID: s.cfg.SessionID,
	}
	s.handles[h.ID] = handle{elementID: id, generation: s.generation}
	return h, nil
}

func (s *Session) findInSource(loc core.Locator) (string, error) {
	nodes, err := hierarchy.Parse(s.sources[0])
	if err == nil {
		var matches []*hierarchy.Node
		matches, err = hierarchy.Find(nodes, loc)
		if err == nil && len(matches) == 0 {
			err = core.ErrElementNotFound.WithMessage(fmt.Sprintf("element not found: %s", loc))
		}
		if err == nil {
			n := matches[0]
			id := "node:" + loc.String()
			s.state[id] = &element{text: n.Text, displayed: n.Displayed}
			return id, nil
		}
	}

	if s.cfg.Lenient {
		id := "synthetic:" + loc.String()
		if _, ok := s.state[id]; !ok {
			s.state[id] = &element{displayed: true}
		}
		return id, nil
	}
	if errors.Is(err, core.ErrElementNotFound) {
		return "", err
	}
	return "", core.ErrElementNotFound.WithCause(err)
}

// Act records and simulates a gesture.
func (s *Session) Act(ctx context.Context, g core.Gesture) (core.ActResult, error) {
	if r, ok := g.(core.Rotate); ok {
		if err := s.Rotate(ctx, r); err != nil {
			return core.ActResult{}, err
		}
		return core.ActResult{Kind: core.GestureRotate}, nil
	}

	if err := s.begin(ctx, Call{Op: "act", Gesture: g}); err != nil {
		return core.ActResult{}, err
	}
	if err := g.Validate(); err != nil {
		return core.ActResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := core.Target(g); ok {
		if _, err := s.resolve(h); err != nil {
			return core.ActResult{}, core.ErrGestureExecution.WithMessage(fmt.Sprintf("%s failed", g.Kind())).WithCause(err)
		}
	}
	if err := s.failures[string(g.Kind())]; err != nil {
		return core.ActResult{}, core.ErrGestureExecution.WithMessage(fmt.Sprintf("%s failed", g.Kind())).WithCause(err)
	}

	result := core.ActResult{Kind: g.Kind()}
	if g.Kind() == core.GestureScroll {
		if s.cfg.ScrollsBeforeEnd < 0 || s.scrolls < s.cfg.ScrollsBeforeEnd {
			result.CanScrollMore = true
		}
		s.scrolls++
	}
	return result, nil
}

// Rotate records the rotation and, with StaleOnRotate, invalidates handles.
func (s *Session) Rotate(ctx context.Context, r core.Rotate) error {
	if err := s.begin(ctx, Call{Op: "rotate", Gesture: r}); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["rotate"]; err != nil {
		return core.ErrDevice.WithCause(err)
	}
	s.rotation = r
	if s.cfg.StaleOnRotate {
		s.generation++
	}
	return nil
}

// Text returns the element's text.
func (s *Session) Text(ctx context.Context, h core.ElementHandle) (string, error) {
	if err := s.begin(ctx, Call{Op: "text", Handle: h}); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.resolve(h)
	if err != nil {
		return "", err
	}
	return e.text, nil
}

// Displayed reports the element's visibility.
func (s *Session) Displayed(ctx context.Context, h core.ElementHandle) (bool, error) {
	if err := s.begin(ctx, Call{Op: "displayed", Handle: h}); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.resolve(h)
	if err != nil {
		return false, err
	}
	return e.displayed, nil
}

// Source returns the next configured page source.
func (s *Session) Source(ctx context.Context) (string, error) {
	if err := s.begin(ctx, Call{Op: "source"}); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["source"]; err != nil {
		return "", core.ErrDevice.WithCause(err)
	}
	src := s.sources[0]
	if len(s.sources) > 1 {
		s.sources = s.sources[1:]
	}
	return src, nil
}

// Stop closes the session. Later calls are no-ops.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.closed {
		return nil
	}
	s.closed = true
	s.calls = append(s.calls, Call{Op: "stop"})
	if err := s.failures["stop"]; err != nil {
		return core.ErrConnection.WithCause(err)
	}
	return nil
}

// Calls returns every recorded call in order.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Gestures returns the recorded gestures of the given kind, or all
// gestures when kind is empty.
func (s *Session) Gestures(kind core.GestureKind) []core.Gesture {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Gesture
	for _, c := range s.calls {
		if c.Gesture == nil {
			continue
		}
		if kind == "" || c.Gesture.Kind() == kind {
			out = append(out, c.Gesture)
		}
	}
	return out
}

// Rotation returns the last rotation applied.
func (s *Session) Rotation() core.Rotate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

// Closed reports whether Stop has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// StopCalls returns how many times Stop was called.
func (s *Session) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *Session) begin(ctx context.Context, c Call) error {
	if s.cfg.StepDelay > 0 {
		select {
		case <-time.After(s.cfg.StepDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrSessionClosed.WithDetails(map[string]interface{}{"session": s.cfg.SessionID})
	}
	s.calls = append(s.calls, c)
	return ctx.Err()
}

// resolve must be called with s.mu held.
func (s *Session) resolve(h core.ElementHandle) (*element, error) {
	if !h.BelongsTo(s.cfg.SessionID) {
		return nil, core.ErrElementNotFound.WithMessage(fmt.Sprintf("element %q does not belong to session %q", h.ID, s.cfg.SessionID))
	}
	hd, ok := s.handles[h.ID]
	if !ok {
		return nil, core.ErrElementNotFound.WithMessage(fmt.Sprintf("unknown element %q", h.ID))
	}
	if hd.generation != s.generation {
		return nil, core.ErrStaleElement.WithDetails(map[string]interface{}{"element": h.ID})
	}
	return s.state[hd.elementID], nil
}

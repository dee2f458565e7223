package appium

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
	"github.com/devicelab-dev/gesture-runner/pkg/server"
)

// Session is a live Appium session. It implements core.Session.
type Session struct {
	client  *Client
	id      string
	service *server.Service // non-nil when this session launched the server

	mu     sync.Mutex
	closed bool
}

var _ core.Session = (*Session)(nil)

// Start opens a session described by cfg. When cfg.Launch is set a local
// server is started first and stopped again if the handshake fails.
// Handshake failures are ErrConnection; launch failures ErrServerStartup.
func Start(ctx context.Context, cfg config.Session) (*Session, error) {
	endpoint := cfg.Endpoint()

	var svc *server.Service
	if cfg.Launch != nil {
		var err error
		svc, err = server.Start(ctx, *cfg.Launch, cfg.BasePath)
		if err != nil {
			return nil, err
		}
		endpoint = svc.Endpoint()
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	caps := cfg.Capabilities.Map()
	logger.Info("Creating session at %s (device=%s)", endpoint, cfg.Capabilities.DeviceName)

	client := NewClient(endpoint)
	if err := client.Connect(connectCtx, caps); err != nil {
		if svc != nil {
			if stopErr := svc.Stop(); stopErr != nil {
				logger.Warn("Failed to stop server after handshake failure: %v", stopErr)
			}
		}
		return nil, core.ErrConnection.WithDetails(map[string]interface{}{
			"endpoint": endpoint,
		}).WithCause(err)
	}

	logger.Info("Session %s started", client.SessionID())
	return &Session{client: client, id: client.SessionID(), service: svc}, nil
}

// ID returns the server-assigned session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrSessionClosed.WithDetails(map[string]interface{}{"session": s.id})
	}
	return nil
}

// Locate resolves loc to its first match. No client-side retry.
func (s *Session) Locate(ctx context.Context, loc core.Locator) (core.ElementHandle, error) {
	if err := s.checkOpen(); err != nil {
		return core.ElementHandle{}, err
	}
	if loc.IsZero() {
		return core.ElementHandle{}, core.ErrInvalidLocator.WithMessage("empty locator")
	}

	id, err := s.client.FindElement(ctx, loc.Strategy().Wire(), loc.Value())
	if err != nil {
		logger.Debug("Locate %s failed: %v", loc, err)
		return core.ElementHandle{}, core.ErrElementNotFound.
			WithMessage(fmt.Sprintf("element not found: %s", loc)).
			WithDetails(map[string]interface{}{"locator": loc.String()}).
			WithCause(err)
	}
	return core.ElementHandle{ID: id, SessionID: s.id}, nil
}

// Act executes g as a mobile: gesture. Rotate is delegated to Rotate.
func (s *Session) Act(ctx context.Context, g core.Gesture) (core.ActResult, error) {
	if err := s.checkOpen(); err != nil {
		return core.ActResult{}, err
	}

	if r, ok := g.(core.Rotate); ok {
		if err := s.Rotate(ctx, r); err != nil {
			return core.ActResult{}, err
		}
		return core.ActResult{Kind: core.GestureRotate}, nil
	}

	if h, ok := core.Target(g); ok && !h.IsZero() && !h.BelongsTo(s.id) {
		return core.ActResult{}, core.ErrGestureExecution.WithMessage(
			fmt.Sprintf("%s: element %s belongs to session %q", g.Kind(), h.ID, h.SessionID))
	}

	cmd, err := core.Payload(g)
	if err != nil {
		return core.ActResult{}, err
	}

	value, err := s.client.ExecuteMobile(ctx, cmd.Name, cmd.Args)
	if err != nil {
		return core.ActResult{}, core.ErrGestureExecution.
			WithMessage(fmt.Sprintf("%s failed", cmd.Name)).
			WithDetails(map[string]interface{}{"gesture": string(g.Kind())}).
			WithCause(err)
	}

	result := core.ActResult{Kind: g.Kind()}
	if g.Kind() == core.GestureScroll {
		more, ok := value.(bool)
		if !ok {
			return core.ActResult{}, core.ErrGestureExecution.
				WithMessage(fmt.Sprintf("%s returned %v, want a boolean", cmd.Name, value)).
				WithDetails(map[string]interface{}{"gesture": string(g.Kind())})
		}
		result.CanScrollMore = more
	}
	return result, nil
}

// Rotate sets the device rotation. Failures are ErrDevice.
func (s *Session) Rotate(ctx context.Context, r core.Rotate) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.client.SetRotation(ctx, r.X, r.Y, r.Z); err != nil {
		return core.ErrDevice.
			WithMessage(fmt.Sprintf("rotation to (%d, %d, %d) failed", r.X, r.Y, r.Z)).
			WithCause(err)
	}
	return nil
}

// Text returns the element's text.
func (s *Session) Text(ctx context.Context, h core.ElementHandle) (string, error) {
	if err := s.checkHandle(h); err != nil {
		return "", err
	}
	text, err := s.client.GetElementText(ctx, h.ID)
	if err != nil {
		return "", elementError(h, err)
	}
	return text, nil
}

// Displayed reports whether the element is visible.
func (s *Session) Displayed(ctx context.Context, h core.ElementHandle) (bool, error) {
	if err := s.checkHandle(h); err != nil {
		return false, err
	}
	displayed, err := s.client.IsElementDisplayed(ctx, h.ID)
	if err != nil {
		return false, elementError(h, err)
	}
	return displayed, nil
}

// Source returns the page source.
func (s *Session) Source(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	src, err := s.client.Source(ctx)
	if err != nil {
		return "", core.ErrDevice.WithMessage("failed to read page source").WithCause(err)
	}
	return src, nil
}

// Stop deletes the session and stops an owned server. Only the first call
// talks to the server; both steps run even if the first fails.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if err := s.client.Disconnect(ctx); err != nil && !isCode(err, codeInvalidSession) {
		errs = append(errs, fmt.Errorf("delete session %s: %w", s.id, err))
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Warn("Session %s teardown: %v", s.id, err)
		return core.ErrConnection.WithMessage("session teardown failed").WithCause(err)
	}
	logger.Info("Session %s stopped", s.id)
	return nil
}

func (s *Session) checkHandle(h core.ElementHandle) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !h.BelongsTo(s.id) {
		return core.ErrElementNotFound.WithMessage(
			fmt.Sprintf("element %q does not belong to session %q", h.ID, s.id))
	}
	return nil
}

func elementError(h core.ElementHandle, err error) error {
	details := map[string]interface{}{"element": h.ID}
	if isCode(err, codeStaleElement) {
		return core.ErrStaleElement.WithDetails(details).WithCause(err)
	}
	return core.ErrElementNotFound.WithDetails(details).WithCause(err)
}

func isCode(err error, code string) bool {
	var wd *WebDriverError
	return errors.As(err, &wd) && wd.Code == code
}

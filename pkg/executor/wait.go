package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/hierarchy"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
)

// WaitOptions bound a polling wait.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultWaitOptions returns the configured settle defaults.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		Timeout:  config.DefaultSettleTimeout,
		Interval: config.DefaultSettleInterval,
	}
}

func (o WaitOptions) withDefaults() WaitOptions {
	def := DefaultWaitOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Interval <= 0 {
		o.Interval = def.Interval
	}
	return o
}

var errNotStable = errors.New("page source still changing")

// WaitUntil polls cond every Interval until it returns nil. It fails with
// ErrWaitTimeout, carrying the last condition error as cause, when Timeout
// elapses. Errors that no amount of polling can fix (closed session, lost
// connection, invalid locator) end the wait immediately.
func WaitUntil(ctx context.Context, opts WaitOptions, cond func(ctx context.Context) error) error {
	opts = opts.withDefaults()

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	attempts := 0
	op := func() error {
		attempts++
		err := cond(waitCtx)
		if err != nil && isTerminal(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Debug("wait attempt %d: %v (retry in %s)", attempts, err, next)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(opts.Interval), waitCtx)
	err := backoff.RetryNotify(op, b, notify)
	if err == nil {
		return nil
	}
	if isTerminal(err) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return core.ErrWaitTimeout.
		WithMessage(fmt.Sprintf("condition not met within %s", opts.Timeout)).
		WithDetails(map[string]interface{}{"attempts": attempts}).
		WithCause(err)
}

func isTerminal(err error) bool {
	return errors.Is(err, core.ErrSessionClosed) ||
		errors.Is(err, core.ErrConnection) ||
		errors.Is(err, core.ErrInvalidLocator) ||
		errors.Is(err, context.Canceled)
}

// WaitForDisplayed polls until loc resolves to a visible element.
func WaitForDisplayed(ctx context.Context, s core.Session, loc core.Locator, opts WaitOptions) (core.ElementHandle, error) {
	var found core.ElementHandle
	err := WaitUntil(ctx, opts, func(ctx context.Context) error {
		h, err := s.Locate(ctx, loc)
		if err != nil {
			return err
		}
		visible, err := s.Displayed(ctx, h)
		if err != nil {
			return err
		}
		if !visible {
			return core.ErrElementNotVisible.WithMessage(fmt.Sprintf("element %s is not displayed", loc))
		}
		found = h
		return nil
	})
	if err != nil {
		return core.ElementHandle{}, err
	}
	return found, nil
}

// WaitForStable polls the page source until two consecutive reads have the
// same layout fingerprint.
func WaitForStable(ctx context.Context, s core.Session, opts WaitOptions) error {
	var prev string
	polled := false
	return WaitUntil(ctx, opts, func(ctx context.Context) error {
		src, err := s.Source(ctx)
		if err != nil {
			return err
		}
		fp := hierarchy.Fingerprint(src)
		if polled && fp == prev {
			return nil
		}
		prev, polled = fp, true
		return errNotStable
	})
}

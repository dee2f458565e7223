package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/config"
	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
)

// ScrollLimits bound ScrollUntilExhausted.
type ScrollLimits struct {
	MaxIterations int           // Scroll gestures before giving up
	Timeout       time.Duration // Wall-clock budget for the whole loop
}

// DefaultScrollLimits returns the configured defaults.
func DefaultScrollLimits() ScrollLimits {
	return ScrollLimits{
		MaxIterations: config.DefaultScrollIterations,
		Timeout:       config.DefaultScrollTimeout,
	}
}

func (l ScrollLimits) withDefaults() ScrollLimits {
	def := DefaultScrollLimits()
	if l.MaxIterations <= 0 {
		l.MaxIterations = def.MaxIterations
	}
	if l.Timeout <= 0 {
		l.Timeout = def.Timeout
	}
	return l
}

// ScrollUntilExhausted repeats g until the server reports that the view
// cannot scroll further, and returns the number of scrolls performed.
// It fails with ErrScrollNotExhausted once MaxIterations scrolls all
// reported more content, or when Timeout elapses first.
func ScrollUntilExhausted(ctx context.Context, s core.Session, g core.Scroll, limits ScrollLimits) (int, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	limits = limits.withDefaults()

	scrollCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	for i := 1; i <= limits.MaxIterations; i++ {
		if scrollCtx.Err() != nil {
			return i - 1, notExhausted(ctx, i-1, limits, scrollCtx.Err())
		}

		result, err := s.Act(scrollCtx, g)
		if err != nil {
			if ctx.Err() == nil && errors.Is(scrollCtx.Err(), context.DeadlineExceeded) {
				return i - 1, notExhausted(ctx, i-1, limits, err)
			}
			return i - 1, err
		}

		logger.Debug("scroll %d/%d %s: canScrollMore=%t", i, limits.MaxIterations, g.Direction, result.CanScrollMore)
		if !result.CanScrollMore {
			return i, nil
		}
	}

	return limits.MaxIterations, notExhausted(ctx, limits.MaxIterations, limits, nil)
}

func notExhausted(ctx context.Context, scrolls int, limits ScrollLimits, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	msg := fmt.Sprintf("content still scrollable after %d scrolls", scrolls)
	if scrolls < limits.MaxIterations {
		msg = fmt.Sprintf("scroll timed out after %s (%d scrolls)", limits.Timeout, scrolls)
	}
	err := core.ErrScrollNotExhausted.WithMessage(msg).WithDetails(map[string]interface{}{
		"scrolls":       scrolls,
		"maxIterations": limits.MaxIterations,
		"timeout":       limits.Timeout.String(),
	})
	if cause != nil {
		return err.WithCause(cause)
	}
	return err
}

package scenario

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
)

// Selector names exactly one locator strategy and its value.
//
// In YAML a selector is either a mapping with one of accessibilityId, id or
// xpath, or a plain string. Plain strings starting with // are XPath,
// strings of the form "strategy=value" use that strategy, and anything else
// is an accessibility id.
type Selector struct {
	AccessibilityID string `yaml:"accessibilityId"`
	ID              string `yaml:"id"`
	XPath           string `yaml:"xpath"`
}

// ParseSelector parses the plain-string form.
func ParseSelector(s string) Selector {
	if strings.HasPrefix(s, "//") {
		return Selector{XPath: s}
	}
	if i := strings.Index(s, "="); i > 0 {
		if strategy, err := core.ParseStrategy(s[:i]); err == nil {
			value := s[i+1:]
			switch strategy {
			case core.StrategyAccessibilityID:
				return Selector{AccessibilityID: value}
			case core.StrategyID:
				return Selector{ID: value}
			case core.StrategyXPath:
				return Selector{XPath: value}
			}
		}
	}
	return Selector{AccessibilityID: s}
}

// IsEmpty reports whether no strategy is set.
func (s Selector) IsEmpty() bool {
	return s.AccessibilityID == "" && s.ID == "" && s.XPath == ""
}

// Locator converts the selector into a core.Locator. Exactly one strategy
// must be set.
func (s Selector) Locator() (core.Locator, error) {
	set := 0
	var strategy core.Strategy
	var value string
	if s.AccessibilityID != "" {
		set++
		strategy, value = core.StrategyAccessibilityID, s.AccessibilityID
	}
	if s.ID != "" {
		set++
		strategy, value = core.StrategyID, s.ID
	}
	if s.XPath != "" {
		set++
		strategy, value = core.StrategyXPath, s.XPath
	}

	switch set {
	case 0:
		return core.Locator{}, core.ErrInvalidLocator.WithMessage("selector needs one of accessibilityId, id or xpath")
	case 1:
		return core.NewLocator(strategy, value)
	default:
		return core.Locator{}, core.ErrInvalidLocator.WithMessage(fmt.Sprintf("selector sets %d strategies; use exactly one", set))
	}
}

// String returns a compact description.
func (s Selector) String() string {
	loc, err := s.Locator()
	if err != nil {
		return "<invalid selector>"
	}
	return loc.String()
}

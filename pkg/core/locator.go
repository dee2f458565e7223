// Package core provides the session, locator, gesture and result types for gesture-runner.
package core

import (
	"fmt"
	"strings"
)

// Strategy identifies how the server should search the UI tree.
type Strategy int

// Supported strategies.
const (
	StrategyAccessibilityID Strategy = iota + 1 // content-desc / accessibility label
	StrategyID                                  // resource-id
	StrategyXPath                               // path expression over the UI tree
)

// wireStrategies maps each strategy to the W3C "using" value.
var wireStrategies = map[Strategy]string{
	StrategyAccessibilityID: "accessibility id",
	StrategyID:              "id",
	StrategyXPath:           "xpath",
}

// strategyNames are the names used in scenario files and log output.
var strategyNames = map[Strategy]string{
	StrategyAccessibilityID: "accessibilityId",
	StrategyID:              "id",
	StrategyXPath:           "xpath",
}

// Wire returns the server's find-element strategy name.
func (s Strategy) Wire() string {
	return wireStrategies[s]
}

// String returns the scenario-file name of the strategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStrategy resolves a scenario-file strategy name (case-insensitive).
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, ErrInvalidLocator.WithMessage(fmt.Sprintf("unknown locator strategy %q", name))
}

// Locator describes how to find elements in the current UI tree.
// The zero value is invalid; use NewLocator or the By* helpers.
type Locator struct {
	strategy Strategy
	value    string
}

// NewLocator creates a locator. The value must be non-empty.
func NewLocator(strategy Strategy, value string) (Locator, error) {
	if _, ok := wireStrategies[strategy]; !ok {
		return Locator{}, ErrInvalidLocator.WithMessage(fmt.Sprintf("unknown locator strategy %d", strategy))
	}
	if strings.TrimSpace(value) == "" {
		return Locator{}, ErrInvalidLocator.WithMessage(fmt.Sprintf("%s locator requires a value", strategy))
	}
	return Locator{strategy: strategy, value: value}, nil
}

// ByAccessibilityID returns an accessibility-label locator. Panics on an empty value.
func ByAccessibilityID(value string) Locator {
	return mustLocator(StrategyAccessibilityID, value)
}

// ByID returns a resource-id locator. Panics on an empty value.
func ByID(value string) Locator {
	return mustLocator(StrategyID, value)
}

// ByXPath returns an xpath locator. Panics on an empty value.
func ByXPath(value string) Locator {
	return mustLocator(StrategyXPath, value)
}

func mustLocator(strategy Strategy, value string) Locator {
	l, err := NewLocator(strategy, value)
	if err != nil {
		panic(err)
	}
	return l
}

// Strategy returns the locator's strategy.
func (l Locator) Strategy() Strategy { return l.strategy }

// Value returns the selector string.
func (l Locator) Value() string { return l.value }

// IsZero reports whether the locator was never initialized.
func (l Locator) IsZero() bool { return l.strategy == 0 }

// String describes the locator for logs and error messages.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.strategy, l.value)
}

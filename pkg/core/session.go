package core

import "context"

// Session is one live connection to an automation server.
// Every method blocks until the server answers or ctx is done.
// After Stop, every method except Stop fails with ErrSessionClosed.
type Session interface {
	// ID returns the server-assigned session identifier.
	ID() string

	// Locate resolves a locator to the first matching element.
	Locate(ctx context.Context, loc Locator) (ElementHandle, error)

	// Act executes a gesture and returns the server's typed result.
	Act(ctx context.Context, g Gesture) (ActResult, error)

	// Rotate reorients the device. Handles located before may go stale.
	Rotate(ctx context.Context, r Rotate) error

	// Text returns the element's text.
	Text(ctx context.Context, h ElementHandle) (string, error)

	// Displayed reports whether the element is visible.
	Displayed(ctx context.Context, h ElementHandle) (bool, error)

	// Source returns the current UI hierarchy as XML.
	Source(ctx context.Context) (string, error)

	// Stop releases the connection and any server the session launched.
	// Only the first call does work; later calls return nil.
	Stop(ctx context.Context) error
}

// ActResult is the outcome of a gesture.
type ActResult struct {
	Kind GestureKind `json:"kind"`

	// CanScrollMore is the scroll outcome: true if content moved and more may
	// follow, false once the view is at its boundary. Always false for other kinds.
	CanScrollMore bool `json:"canScrollMore,omitempty"`
}

package core

// ElementHandle is an opaque reference to an element located by a session.
// It is only meaningful to the session whose ID it carries, and only until
// the UI it was found in goes away.
type ElementHandle struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
}

// IsZero reports whether the handle is unset.
func (h ElementHandle) IsZero() bool {
	return h.ID == ""
}

// BelongsTo reports whether the handle was produced by the given session.
func (h ElementHandle) BelongsTo(sessionID string) bool {
	return h.ID != "" && h.SessionID == sessionID
}

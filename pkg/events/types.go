// Package events defines shell event types and publisher interfaces for
// session lifecycle and message dispatch events.
package events

import "time"

// Event kinds.
const (
	KindSessionBound     = "session.bound"
	KindSessionResized   = "session.resized"
	KindSessionDestroyed = "session.destroyed"
	KindDispatch         = "dispatch"
	KindMessageDropped   = "message.dropped"
)

// ShellEvent is emitted on session lifecycle changes and on every dispatched web message.
type ShellEvent struct {
	Kind       string `json:"kind"`
	SessionID  string `json:"sessionId,omitempty"`
	WindowID   uint64 `json:"windowId,omitempty"`
	Cmd        string `json:"cmd,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	Success    *bool  `json:"success,omitempty"`
	Error      string `json:"error,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// NewShellEvent creates an event of the given kind stamped with the current time.
func NewShellEvent(kind string) *ShellEvent {
	return &ShellEvent{Kind: kind, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
}

// WithOutcome records a dispatch outcome on the event.
func (e *ShellEvent) WithOutcome(err error) *ShellEvent {
	ok := err == nil
	e.Success = &ok
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

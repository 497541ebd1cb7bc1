// Package host defines the collaborators the shell consumes from the native
// window system and the rendering engine.
//
// Every method on Window, Controller and Content must be called on the
// window's owning goroutine unless documented otherwise. Post is the only
// primitive that is safe from any goroutine.
package host

import "errors"

// WindowID identifies a native window.
type WindowID uint64

// ListenerToken identifies an installed web message listener.
type ListenerToken uint64

// Rect is a rectangle in client coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ErrClosed is returned when an operation is attempted on a released handle.
var ErrClosed = errors.New("host: handle closed")

// Window is the native window a session is hosted in.
type Window interface {
	ID() WindowID
	// Pump drains and dispatches pending queued messages without blocking.
	// It returns the number of messages dispatched.
	Pump() int
	// Post enqueues fn for execution on the owning goroutine. Safe from any goroutine.
	Post(fn func()) error
	ClientSize() (width, height int)
}

// Engine creates rendering environments.
type Engine interface {
	// CreateEnvironment starts environment creation scoped to dataDir.
	// done is invoked exactly once through the window message queue unless
	// an error is returned synchronously.
	CreateEnvironment(dataDir string, done func(Environment, error)) error
}

// Environment is a created engine environment.
type Environment interface {
	// CreateController starts creation of a surface controller bound to window.
	// Completion follows the same contract as Engine.CreateEnvironment.
	CreateController(window WindowID, done func(Controller, error)) error
	Release()
}

// Controller positions and owns a rendering surface.
type Controller interface {
	Content() (Content, error)
	SetBounds(bounds Rect) error
	Bounds() Rect
	Close() error
}

// Content is the hosted web content of a controller.
type Content interface {
	Navigate(url string) error
	AddStartupScript(script string) error
	AddMessageListener(fn func(raw string)) (ListenerToken, error)
	RemoveMessageListener(token ListenerToken) error
	// PostText sends a text message to the hosted content. One-way, no acknowledgment.
	PostText(message string) error
	Release()
}

// Package memhost is an in-process window and rendering engine.
//
// Completions, window events and web messages are all delivered through the
// window's host.Queue, so they only run when the owning goroutine pumps. It
// backs the "memory" engine mode and the tests of every package above host.
package memhost

import (
	"context"
	"sync"

	"github.com/morezero/desktop-shell/pkg/host"
)

// Window is an in-process native window.
type Window struct {
	id    host.WindowID
	queue *host.Queue

	mu        sync.Mutex
	width     int
	height    int
	onResize  func(width, height int)
	onDestroy func()
	destroyed bool
}

// NewWindow creates a window with the given client size.
func NewWindow(id host.WindowID, width, height int) *Window {
	return &Window{
		id:     id,
		queue:  host.NewQueue(),
		width:  width,
		height: height,
	}
}

// ID returns the window identifier.
func (w *Window) ID() host.WindowID { return w.id }

// Pump drains the window queue.
func (w *Window) Pump() int { return w.queue.Pump() }

// Post enqueues fn on the window queue.
func (w *Window) Post(fn func()) error { return w.queue.Post(fn) }

// Wake receives after something is posted to the window queue.
func (w *Window) Wake() <-chan struct{} { return w.queue.Wake() }

// Queue exposes the underlying queue so the owner can Run it.
func (w *Window) Queue() *host.Queue { return w.queue }

// ClientSize returns the current client area size.
func (w *Window) ClientSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// OnResize installs the resize notification hook.
func (w *Window) OnResize(fn func(width, height int)) {
	w.mu.Lock()
	w.onResize = fn
	w.mu.Unlock()
}

// OnDestroy installs the destroy notification hook.
func (w *Window) OnDestroy(fn func()) {
	w.mu.Lock()
	w.onDestroy = fn
	w.mu.Unlock()
}

// Resize simulates the user resizing the window. The notification is queued.
func (w *Window) Resize(width, height int) error {
	return w.queue.Post(func() {
		w.mu.Lock()
		if w.destroyed {
			w.mu.Unlock()
			return
		}
		w.width, w.height = width, height
		fn := w.onResize
		w.mu.Unlock()

		if fn != nil {
			fn(width, height)
		}
	})
}

// Destroy simulates the window being closed. The destroy hook runs once, on
// the queue, and the queue is stopped afterwards.
func (w *Window) Destroy() error {
	return w.queue.Post(func() {
		w.mu.Lock()
		if w.destroyed {
			w.mu.Unlock()
			return
		}
		w.destroyed = true
		fn := w.onDestroy
		w.mu.Unlock()

		if fn != nil {
			fn()
		}
		w.queue.Stop()
	})
}

// Destroyed reports whether the destroy notification has run.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Run pumps the window until it is destroyed or ctx is done.
func (w *Window) Run(ctx context.Context) error { return w.queue.Run(ctx) }

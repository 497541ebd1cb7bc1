//go:build webview && cgo

// Package webview adapts github.com/webview/webview_go to the host
// interfaces. The platform webview owns one surface per window, so the
// environment and controller are thin handles over that surface.
//
// webview_go must be created and run on the main OS thread; callers lock it
// before Open.
package webview

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	wv "github.com/webview/webview_go"

	"github.com/morezero/desktop-shell/pkg/host"
)

const logPrefix = "webview:webview"

// postBinding is the native function the bridge script calls to send a web message.
const postBinding = "__shell_post__"

// Window is a native webview window. Posted work is kept in a host.Queue,
// pumped directly while the session is being built and through Dispatch
// once Run has started the UI loop.
type Window struct {
	id    host.WindowID
	view  wv.WebView
	queue *host.Queue

	mu        sync.Mutex
	width     int
	height    int
	onResize  func(width, height int)
	onDestroy func()
	destroyed bool
}

// Open creates a webview window of the given size.
func Open(id host.WindowID, title string, width, height int, debug bool) (*Window, *Engine, error) {
	view := wv.New(debug)
	if view == nil {
		return nil, nil, fmt.Errorf("%s - failed to create webview", logPrefix)
	}
	view.SetTitle(title)
	view.SetSize(width, height, wv.HintNone)

	w := &Window{id: id, view: view, queue: host.NewQueue(), width: width, height: height}
	return w, &Engine{window: w}, nil
}

// ID returns the window identifier.
func (w *Window) ID() host.WindowID { return w.id }

// Pump drains the window queue.
func (w *Window) Pump() int { return w.queue.Pump() }

// Post enqueues fn on the window queue. Safe from any goroutine.
func (w *Window) Post(fn func()) error { return w.queue.Post(fn) }

// Wake receives after something is posted to the window queue.
func (w *Window) Wake() <-chan struct{} { return w.queue.Wake() }

// ClientSize returns the last size set on the window.
func (w *Window) ClientSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// OnResize installs the resize hook. webview_go reports no native resize
// events, so the hook only runs for resizes requested through SetSize.
func (w *Window) OnResize(fn func(width, height int)) {
	w.mu.Lock()
	w.onResize = fn
	w.mu.Unlock()
}

// OnDestroy installs the destroy hook. It runs once, after the UI loop exits.
func (w *Window) OnDestroy(fn func()) {
	w.mu.Lock()
	w.onDestroy = fn
	w.mu.Unlock()
}

// SetSize resizes the native window and notifies the resize hook.
func (w *Window) SetSize(width, height int) error {
	return w.Post(func() {
		w.mu.Lock()
		if w.destroyed {
			w.mu.Unlock()
			return
		}
		w.width, w.height = width, height
		fn := w.onResize
		w.mu.Unlock()

		w.view.SetSize(width, height, wv.HintNone)
		if fn != nil {
			fn(width, height)
		}
	})
}

// Run runs the native UI loop until the window is closed or ctx is done.
func (w *Window) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				w.view.Dispatch(w.view.Terminate)
				return
			case <-w.queue.Wake():
				w.view.Dispatch(func() { w.queue.Pump() })
			}
		}
	}()

	// Drain anything posted before the loop started.
	w.view.Dispatch(func() { w.queue.Pump() })
	w.view.Run()

	w.mu.Lock()
	already := w.destroyed
	w.destroyed = true
	fn := w.onDestroy
	w.mu.Unlock()

	if !already && fn != nil {
		fn()
	}
	w.queue.Stop()
	w.queue.Pump()
	w.view.Destroy()
	return ctx.Err()
}

// Destroy asks the UI loop to exit.
func (w *Window) Destroy() error {
	w.view.Dispatch(w.view.Terminate)
	return nil
}

// Engine creates environments for one webview window.
type Engine struct {
	window *Window
}

// CreateEnvironment prepares dataDir and completes through the window queue.
func (e *Engine) CreateEnvironment(dataDir string, done func(host.Environment, error)) error {
	if done == nil {
		return fmt.Errorf("%s - nil completion handler", logPrefix)
	}
	go func() {
		var (
			env host.Environment
			err error
		)
		if dataDir == "" {
			err = fmt.Errorf("%s - data directory is empty", logPrefix)
		} else if mkErr := os.MkdirAll(dataDir, 0o755); mkErr != nil {
			err = fmt.Errorf("%s - data directory %s: %w", logPrefix, dataDir, mkErr)
		} else {
			env = &Environment{window: e.window}
		}
		e.window.Post(func() { done(env, err) })
	}()
	return nil
}

// Environment is a webview environment.
type Environment struct {
	window *Window
}

// CreateController binds a controller to the engine's window.
func (env *Environment) CreateController(window host.WindowID, done func(host.Controller, error)) error {
	if done == nil {
		return fmt.Errorf("%s - nil completion handler", logPrefix)
	}
	w := env.window
	return w.Post(func() {
		if window != w.id {
			done(nil, fmt.Errorf("%s - unknown window %d", logPrefix, window))
			return
		}
		done(&Controller{window: w, content: newContent(w)}, nil)
	})
}

// Release is a no-op; the webview is destroyed with its window.
func (env *Environment) Release() {}

// Controller positions the webview surface, which always fills its window.
type Controller struct {
	window  *Window
	content *Content

	mu     sync.Mutex
	bounds host.Rect
	closed bool
}

// Content returns the hosted content.
func (c *Controller) Content() (host.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, host.ErrClosed
	}
	return c.content, nil
}

// SetBounds records the surface bounds. The surface tracks the window size,
// so only the recorded value changes.
func (c *Controller) SetBounds(bounds host.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return host.ErrClosed
	}
	c.bounds = bounds
	return nil
}

// Bounds returns the last bounds set.
func (c *Controller) Bounds() host.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

// Close closes the controller.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return host.ErrClosed
	}
	c.closed = true
	return nil
}

// Content is the page hosted by the webview.
type Content struct {
	window *Window

	mu        sync.Mutex
	listeners map[host.ListenerToken]func(string)
	nextToken host.ListenerToken
	bound     bool
	released  bool
}

func newContent(w *Window) *Content {
	return &Content{window: w, listeners: make(map[host.ListenerToken]func(string))}
}

// Navigate loads url.
func (c *Content) Navigate(url string) error {
	if c.isReleased() {
		return host.ErrClosed
	}
	if url == "" {
		return fmt.Errorf("%s - empty url", logPrefix)
	}
	c.window.view.Navigate(url)
	return nil
}

// AddStartupScript runs script before every page load.
func (c *Content) AddStartupScript(script string) error {
	if c.isReleased() {
		return host.ErrClosed
	}
	c.window.view.Init(script)
	return nil
}

// AddMessageListener installs fn. The native post binding is created with
// the first listener.
func (c *Content) AddMessageListener(fn func(string)) (host.ListenerToken, error) {
	if fn == nil {
		return 0, fmt.Errorf("%s - nil listener", logPrefix)
	}
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return 0, host.ErrClosed
	}
	c.nextToken++
	tok := c.nextToken
	c.listeners[tok] = fn
	needBind := !c.bound
	c.bound = true
	c.mu.Unlock()

	if needBind {
		if err := c.window.view.Bind(postBinding, c.receive); err != nil {
			c.mu.Lock()
			delete(c.listeners, tok)
			c.bound = false
			c.mu.Unlock()
			return 0, fmt.Errorf("%s - bind %s: %w", logPrefix, postBinding, err)
		}
	}
	return tok, nil
}

// receive is called by the webview for every web message. Listeners run
// through the window queue, in token order.
func (c *Content) receive(raw string) {
	c.window.Post(func() {
		c.mu.Lock()
		tokens := make([]host.ListenerToken, 0, len(c.listeners))
		for tok := range c.listeners {
			tokens = append(tokens, tok)
		}
		sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
		fns := make([]func(string), 0, len(tokens))
		for _, tok := range tokens {
			fns = append(fns, c.listeners[tok])
		}
		c.mu.Unlock()

		for _, fn := range fns {
			fn(raw)
		}
	})
}

// RemoveMessageListener removes a listener.
func (c *Content) RemoveMessageListener(token host.ListenerToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.listeners[token]; !ok {
		return fmt.Errorf("%s - unknown listener token %d", logPrefix, token)
	}
	delete(c.listeners, token)
	return nil
}

// PostText hands message to the bridge script's receive hook.
func (c *Content) PostText(message string) error {
	if c.isReleased() {
		return host.ErrClosed
	}
	arg, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s - encode message: %w", logPrefix, err)
	}
	c.window.view.Eval(fmt.Sprintf("window.__shell_receive__ && window.__shell_receive__(%s);", arg))
	return nil
}

// Release drops the post binding.
func (c *Content) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	bound := c.bound
	c.bound = false
	c.mu.Unlock()

	if bound {
		c.window.view.Unbind(postBinding)
	}
}

func (c *Content) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

package memhost

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/morezero/desktop-shell/pkg/host"
)

const logPrefix = "memhost:engine"

// Faults injects failures into the engine. Zero value means no faults.
type Faults struct {
	Controller error
	Content    error
	Navigate   error
	Script     error
	Listener   error
}

// Engine is an in-process rendering engine bound to one window's queue.
type Engine struct {
	window *Window
	faults Faults

	mu   sync.Mutex
	envs []*Environment
}

// NewEngine creates an engine that delivers completions through window's queue.
func NewEngine(window *Window) *Engine {
	return &Engine{window: window}
}

// WithFaults returns e with the given faults injected.
func (e *Engine) WithFaults(f Faults) *Engine {
	e.faults = f
	return e
}

// CreateEnvironment prepares dataDir on a background goroutine and delivers
// the result through the window queue.
func (e *Engine) CreateEnvironment(dataDir string, done func(host.Environment, error)) error {
	if done == nil {
		return fmt.Errorf("%s - nil completion handler", logPrefix)
	}
	go func() {
		err := prepareDataDir(dataDir)
		var env host.Environment
		if err == nil {
			created := &Environment{engine: e, dataDir: dataDir}
			e.mu.Lock()
			e.envs = append(e.envs, created)
			e.mu.Unlock()
			env = created
		}
		e.window.Post(func() { done(env, err) })
	}()
	return nil
}

// Environments returns every environment the engine has created.
func (e *Engine) Environments() []*Environment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Environment(nil), e.envs...)
}

func prepareDataDir(dataDir string) error {
	if dataDir == "" {
		return fmt.Errorf("%s - data directory is empty", logPrefix)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%s - data directory %s: %w", logPrefix, dataDir, err)
	}
	probe, err := os.CreateTemp(dataDir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%s - data directory %s not writable: %w", logPrefix, dataDir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// Environment is an in-process engine environment.
type Environment struct {
	engine  *Engine
	dataDir string

	mu          sync.Mutex
	released    bool
	controllers []*Controller
}

// DataDir returns the directory the environment was scoped to.
func (env *Environment) DataDir() string { return filepath.Clean(env.dataDir) }

// CreateController creates a controller for window on a background goroutine.
func (env *Environment) CreateController(window host.WindowID, done func(host.Controller, error)) error {
	if done == nil {
		return fmt.Errorf("%s - nil completion handler", logPrefix)
	}
	if env.Released() {
		return host.ErrClosed
	}
	e := env.engine
	go func() {
		var (
			ctrl host.Controller
			err  error
		)
		switch {
		case window != e.window.ID():
			err = fmt.Errorf("%s - unknown window %d", logPrefix, window)
		case e.faults.Controller != nil:
			err = e.faults.Controller
		default:
			created := &Controller{env: env, content: newContent(e)}
			env.mu.Lock()
			env.controllers = append(env.controllers, created)
			env.mu.Unlock()
			ctrl = created
		}
		e.window.Post(func() { done(ctrl, err) })
	}()
	return nil
}

// Controllers returns every controller created in the environment.
func (env *Environment) Controllers() []*Controller {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]*Controller(nil), env.controllers...)
}

// Release releases the environment.
func (env *Environment) Release() {
	env.mu.Lock()
	env.released = true
	env.mu.Unlock()
}

// Released reports whether Release was called.
func (env *Environment) Released() bool {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.released
}

// Controller is an in-process surface controller.
type Controller struct {
	env     *Environment
	content *Content

	mu      sync.Mutex
	bounds  host.Rect
	setCall int
	closed  bool
}

// Content returns the controller's content surface.
func (c *Controller) Content() (host.Content, error) {
	if c.Closed() {
		return nil, host.ErrClosed
	}
	if err := c.env.engine.faults.Content; err != nil {
		return nil, err
	}
	return c.content, nil
}

// SetBounds positions the surface.
func (c *Controller) SetBounds(bounds host.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return host.ErrClosed
	}
	if bounds.Width < 0 || bounds.Height < 0 {
		return fmt.Errorf("%s - negative bounds %+v", logPrefix, bounds)
	}
	c.bounds = bounds
	c.setCall++
	return nil
}

// Bounds returns the current surface bounds.
func (c *Controller) Bounds() host.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

// SetBoundsCalls returns how many times SetBounds succeeded.
func (c *Controller) SetBoundsCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setCall
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

// Surface returns the controller's content without fault injection.
func (c *Controller) Surface() *Content { return c.content }

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Content is in-process hosted content. Messages posted to it are kept in an
// outbox and forwarded to the optional text hook.
type Content struct {
	engine *Engine

	mu        sync.Mutex
	url       string
	scripts   []string
	listeners map[host.ListenerToken]func(string)
	nextToken host.ListenerToken
	outbox    []string
	onText    func(string)
	released  bool
}

func newContent(e *Engine) *Content {
	return &Content{engine: e, listeners: make(map[host.ListenerToken]func(string))}
}

// Navigate records the navigation target.
func (c *Content) Navigate(url string) error {
	if err := c.engine.faults.Navigate; err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("%s - empty url", logPrefix)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return host.ErrClosed
	}
	c.url = url
	return nil
}

// URL returns the last navigated URL.
func (c *Content) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// AddStartupScript records a document-created script.
func (c *Content) AddStartupScript(script string) error {
	if err := c.engine.faults.Script; err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return host.ErrClosed
	}
	c.scripts = append(c.scripts, script)
	return nil
}

// Scripts returns the installed startup scripts.
func (c *Content) Scripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.scripts...)
}

// AddMessageListener installs fn as a web message listener.
func (c *Content) AddMessageListener(fn func(string)) (host.ListenerToken, error) {
	if err := c.engine.faults.Listener; err != nil {
		return 0, err
	}
	if fn == nil {
		return 0, errors.New(logPrefix + " - nil listener")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return 0, host.ErrClosed
	}
	c.nextToken++
	c.listeners[c.nextToken] = fn
	return c.nextToken, nil
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

// ListenerCount returns the number of installed listeners.
func (c *Content) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// Deliver simulates the hosted page posting raw to the native side. Safe
// from any goroutine; listeners run when the window queue is pumped.
func (c *Content) Deliver(raw string) error {
	return c.engine.window.Post(func() {
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

// PostText appends message to the outbox.
func (c *Content) PostText(message string) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return host.ErrClosed
	}
	c.outbox = append(c.outbox, message)
	fn := c.onText
	c.mu.Unlock()

	if fn != nil {
		fn(message)
	}
	return nil
}

// OnText installs a hook receiving every message posted to the content.
func (c *Content) OnText(fn func(string)) {
	c.mu.Lock()
	c.onText = fn
	c.mu.Unlock()
}

// Outbox returns the messages posted so far.
func (c *Content) Outbox() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.outbox...)
}

// Release releases the content.
func (c *Content) Release() {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
}

// Released reports whether Release was called.
func (c *Content) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

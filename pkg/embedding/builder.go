// Package embedding builds a web-rendering session inside a native window.
//
// Engine completions arrive through the window's message queue, so Create
// pumps that queue itself while it waits. Create must therefore run on the
// window's owning goroutine.
package embedding

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/desktop-shell/pkg/bridge"
	"github.com/morezero/desktop-shell/pkg/host"
)

const logPrefix = "embedding:builder"

// Options describes the session to build.
type Options struct {
	DataDir    string
	InitialURL string
	Width      int
	Height     int
}

// Builder creates sessions on one engine, wiring each to a message Handler.
type Builder struct {
	engine     host.Engine
	handler    bridge.Handler
	bridgeOpts []bridge.Option
}

// NewBuilder creates a Builder. bridgeOpts are applied to every session's bridge.
func NewBuilder(engine host.Engine, handler bridge.Handler, bridgeOpts ...bridge.Option) *Builder {
	return &Builder{engine: engine, handler: handler, bridgeOpts: bridgeOpts}
}

// Create runs environment, controller and content creation to completion and
// returns a ready session. On failure every handle created so far is released
// and an *EmbeddingError is returned. There is no timeout.
func (b *Builder) Create(window host.Window, opts Options) (*Session, error) {
	s := &Session{ID: uuid.NewString(), WindowID: window.ID()}
	slog.Info(fmt.Sprintf("%s - Creating session %s for window %d (dataDir=%s)", logPrefix, s.ID, s.WindowID, opts.DataDir))

	env, err := await(window, func(done func(host.Environment, error)) error {
		return b.engine.CreateEnvironment(opts.DataDir, done)
	})
	if err == nil && env == nil {
		err = errors.New("environment not returned")
	}
	if err != nil {
		return nil, b.fail(s, StageEnvironment, err)
	}
	s.Environment = env

	ctrl, err := await(window, func(done func(host.Controller, error)) error {
		return env.CreateController(window.ID(), done)
	})
	if err == nil && ctrl == nil {
		err = errors.New("controller not returned")
	}
	if err != nil {
		return nil, b.fail(s, StageController, err)
	}
	s.Controller = ctrl

	content, err := ctrl.Content()
	if err != nil {
		return nil, b.fail(s, StageController, fmt.Errorf("get content: %w", err))
	}
	s.Content = content

	if err := content.Navigate(opts.InitialURL); err != nil {
		return nil, b.fail(s, StageNavigate, err)
	}
	if err := content.AddStartupScript(bridge.Script); err != nil {
		return nil, b.fail(s, StageNavigate, fmt.Errorf("install bridge script: %w", err))
	}

	bopts := append([]bridge.Option{bridge.WithSessionID(s.ID), bridge.WithDispatcher(window.Post)}, b.bridgeOpts...)
	s.Bridge = bridge.New(b.handler, content, bopts...)
	token, err := content.AddMessageListener(s.Bridge.OnMessage)
	if err != nil {
		return nil, b.fail(s, StageNavigate, fmt.Errorf("install message listener: %w", err))
	}
	s.ListenerToken = token
	s.listening = true

	if err := ctrl.SetBounds(host.Rect{Width: opts.Width, Height: opts.Height}); err != nil {
		return nil, b.fail(s, StageController, fmt.Errorf("set initial bounds: %w", err))
	}

	slog.Info(fmt.Sprintf("%s - Session %s ready (%s, %dx%d, bridge=%s)", logPrefix, s.ID, opts.InitialURL, opts.Width, opts.Height, s.Bridge.Mode()))
	return s, nil
}

func (b *Builder) fail(s *Session, stage Stage, err error) error {
	slog.Error(fmt.Sprintf("%s - Session %s failed at %s stage: %v", logPrefix, s.ID, stage, err))
	if relErr := s.Close(); relErr != nil {
		slog.Warn(fmt.Sprintf("%s - releasing partial session %s: %v", logPrefix, s.ID, relErr))
	}
	return stageError(stage, err)
}

type completion[T any] struct {
	value T
	err   error
}

// waker is implemented by windows that can signal new queue work.
type waker interface {
	Wake() <-chan struct{}
}

// await starts an async operation and pumps window until its completion
// handler has run. Pumping is what delivers the completion.
func await[T any](window host.Window, start func(done func(T, error)) error) (T, error) {
	ch := make(chan completion[T], 1)
	if err := start(func(v T, err error) {
		select {
		case ch <- completion[T]{value: v, err: err}:
		default:
			slog.Warn(fmt.Sprintf("%s - completion delivered twice, ignoring", logPrefix))
		}
	}); err != nil {
		var zero T
		return zero, err
	}

	w, _ := window.(waker)
	for {
		window.Pump()
		select {
		case c := <-ch:
			return c.value, c.err
		default:
		}
		idle(w)
	}
}

func idle(w waker) {
	if w == nil {
		time.Sleep(time.Millisecond)
		return
	}
	select {
	case <-w.Wake():
	case <-time.After(10 * time.Millisecond):
	}
}

package services

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

const guardedLogPrefix = "services:guarded"

// Guarded is a value behind its own mutex. A panic inside With is recovered:
// the lock is released, the value stays in place and the caller receives a
// *PanicError, so one bad request never wedges the service.
type Guarded[T any] struct {
	name  string
	mu    sync.Mutex
	value T
}

// NewGuarded wraps value under a lock named name.
func NewGuarded[T any](name string, value T) *Guarded[T] {
	return &Guarded[T]{name: name, value: value}
}

// Name returns the service name.
func (g *Guarded[T]) Name() string { return g.name }

// With runs fn while holding the lock.
func (g *Guarded[T]) With(fn func(v *T) error) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Service: g.name, Value: r, Stack: debug.Stack()}
			slog.Error(fmt.Sprintf("%s - recovered panic in %s: %v", guardedLogPrefix, g.name, r))
			err = pe
		}
	}()
	return fn(&g.value)
}

// Read runs fn under g's lock and returns its result.
func Read[T, R any](g *Guarded[T], fn func(v *T) (R, error)) (R, error) {
	var out R
	err := g.With(func(v *T) error {
		var err error
		out, err = fn(v)
		return err
	})
	return out, err
}

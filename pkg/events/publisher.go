package events

import (
	"context"
	"sync"
)

// EventPublisher is the interface for publishing shell events.
type EventPublisher interface {
	Publish(ctx context.Context, event *ShellEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// Publish is a no-op.
func (p *NoOpPublisher) Publish(_ context.Context, _ *ShellEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ShellEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ShellEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// Publish calls the callback.
func (p *CallbackPublisher) Publish(ctx context.Context, event *ShellEvent) error {
	return p.callback(ctx, event)
}

// Recorder is an EventPublisher that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []ShellEvent
}

// Publish records a copy of event.
func (r *Recorder) Publish(_ context.Context, event *ShellEvent) error {
	r.mu.Lock()
	r.events = append(r.events, *event)
	r.mu.Unlock()
	return nil
}

// Events returns the recorded events, optionally filtered by kind.
func (r *Recorder) Events(kinds ...string) []ShellEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ShellEvent, 0, len(r.events))
	for _, ev := range r.events {
		if len(kinds) == 0 || containsKind(kinds, ev.Kind) {
			out = append(out, ev)
		}
	}
	return out
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Multi fans an event out to several publishers, returning the first error.
type Multi []EventPublisher

// Publish publishes to every publisher.
func (m Multi) Publish(ctx context.Context, event *ShellEvent) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

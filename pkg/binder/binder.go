// Package binder ties embedding sessions to the windows that own them.
//
// Sessions live in a table of generation-checked slots keyed by window id.
// A Handle stays valid only until its slot is torn down, after which it
// resolves to nothing.
package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/desktop-shell/pkg/embedding"
	"github.com/morezero/desktop-shell/pkg/events"
	"github.com/morezero/desktop-shell/pkg/host"
)

const logPrefix = "binder:binder"

var (
	// ErrAlreadyBound is returned when a window already owns a session.
	ErrAlreadyBound = errors.New("binder: window already has a session")
	// ErrWindowMismatch is returned when a session is bound to a window it was not built for.
	ErrWindowMismatch = errors.New("binder: session belongs to another window")
)

// Handle refers to one bound session.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool { return h == Handle{} }

type slotState uint8

const (
	slotEmpty slotState = iota
	slotLive
	slotTearingDown
)

type slot struct {
	state      slotState
	generation uint32
	windowID   host.WindowID
	session    *embedding.Session
}

// Binder owns every bound session.
type Binder struct {
	mu        sync.Mutex
	slots     []slot
	free      []uint32
	byWindow  map[host.WindowID]uint32
	publisher events.EventPublisher
}

// New creates a Binder. A nil publisher disables lifecycle events.
func New(publisher events.EventPublisher) *Binder {
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	// Slot 0 is never handed out so the zero Handle resolves to nothing.
	return &Binder{
		slots:     make([]slot, 1),
		byWindow:  make(map[host.WindowID]uint32),
		publisher: publisher,
	}
}

// Bind stores s as the session of windowID.
func (b *Binder) Bind(windowID host.WindowID, s *embedding.Session) (Handle, error) {
	if s == nil {
		return Handle{}, fmt.Errorf("%s - nil session", logPrefix)
	}
	if s.WindowID != windowID {
		return Handle{}, ErrWindowMismatch
	}

	b.mu.Lock()
	if _, ok := b.byWindow[windowID]; ok {
		b.mu.Unlock()
		return Handle{}, ErrAlreadyBound
	}

	var idx uint32
	if n := len(b.free); n > 0 {
		idx = b.free[n-1]
		b.free = b.free[:n-1]
	} else {
		b.slots = append(b.slots, slot{generation: 1})
		idx = uint32(len(b.slots) - 1)
	}
	sl := &b.slots[idx]
	sl.state = slotLive
	sl.windowID = windowID
	sl.session = s
	b.byWindow[windowID] = idx
	h := Handle{index: idx, generation: sl.generation}
	b.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - Bound session %s to window %d", logPrefix, s.ID, windowID))
	ev := events.NewShellEvent(events.KindSessionBound)
	ev.SessionID, ev.WindowID = s.ID, uint64(windowID)
	b.publish(ev)
	return h, nil
}

// Lookup returns the live session of windowID.
func (b *Binder) Lookup(windowID host.WindowID) (*embedding.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, ok := b.byWindow[windowID]
	if !ok || b.slots[idx].state != slotLive {
		return nil, false
	}
	return b.slots[idx].session, true
}

// Resolve returns the session h refers to, if h is still current.
func (b *Binder) Resolve(h Handle) (*embedding.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h.IsZero() || int(h.index) >= len(b.slots) {
		return nil, false
	}
	sl := b.slots[h.index]
	if sl.generation != h.generation || sl.state != slotLive {
		return nil, false
	}
	return sl.session, true
}

// Len returns the number of live sessions.
func (b *Binder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, sl := range b.slots {
		if sl.state == slotLive {
			n++
		}
	}
	return n
}

// OnResize forwards a window resize to its session. It does nothing when the
// window has no session or the session is being torn down.
func (b *Binder) OnResize(windowID host.WindowID, width, height int) error {
	s, ok := b.Lookup(windowID)
	if !ok {
		slog.Debug(fmt.Sprintf("%s - resize %dx%d for window %d with no session", logPrefix, width, height, windowID))
		return nil
	}
	if err := s.Resize(width, height); err != nil {
		return err
	}

	ev := events.NewShellEvent(events.KindSessionResized)
	ev.SessionID, ev.WindowID = s.ID, uint64(windowID)
	ev.Width, ev.Height = width, height
	b.publish(ev)
	return nil
}

// OnDestroy takes the session out of the window's slot and tears it down.
// The slot is cleared and its generation bumped only after teardown. A second
// call for the same window does nothing.
func (b *Binder) OnDestroy(windowID host.WindowID) error {
	b.mu.Lock()
	idx, ok := b.byWindow[windowID]
	if !ok || b.slots[idx].state != slotLive {
		b.mu.Unlock()
		return nil
	}
	sl := &b.slots[idx]
	sl.state = slotTearingDown
	s := sl.session
	b.mu.Unlock()

	err := s.Close()

	b.mu.Lock()
	sl = &b.slots[idx]
	sl.session = nil
	sl.state = slotEmpty
	sl.generation++
	delete(b.byWindow, windowID)
	b.free = append(b.free, idx)
	b.mu.Unlock()

	if err != nil {
		slog.Warn(fmt.Sprintf("%s - teardown of session %s reported: %v", logPrefix, s.ID, err))
	}
	slog.Info(fmt.Sprintf("%s - Destroyed session %s of window %d", logPrefix, s.ID, windowID))

	ev := events.NewShellEvent(events.KindSessionDestroyed)
	ev.SessionID, ev.WindowID = s.ID, uint64(windowID)
	b.publish(ev)
	return err
}

func (b *Binder) publish(ev *events.ShellEvent) {
	if err := b.publisher.Publish(context.Background(), ev); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish %s event: %v", logPrefix, ev.Kind, err))
	}
}

// Package bridge connects hosted web content to the service registry. It
// validates incoming web messages, hands them to a Handler and posts the
// response envelope back to the content.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morezero/desktop-shell/pkg/envelope"
	"github.com/morezero/desktop-shell/pkg/events"
	"github.com/morezero/desktop-shell/pkg/services"
)

const logPrefix = "bridge:bridge"

// Handler turns one raw web message into an encoded response envelope.
type Handler interface {
	HandleWebMessage(ctx context.Context, raw string) (string, error)
}

// Poster sends text to the hosted content. One-way, no acknowledgment.
type Poster interface {
	PostText(message string) error
}

// Mode selects where messages are handled.
type Mode int

const (
	// Inline handles each message synchronously on the delivering goroutine.
	Inline Mode = iota
	// Serialized hands messages to one worker goroutine in arrival order.
	// Responses are posted back through the dispatch function.
	Serialized
)

// ParseMode maps "inline" or "serialized" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inline":
		return Inline, nil
	case "serialized":
		return Serialized, nil
	default:
		return Inline, fmt.Errorf("%s - unknown bridge mode %q", logPrefix, s)
	}
}

func (m Mode) String() string {
	if m == Serialized {
		return "serialized"
	}
	return "inline"
}

// Stats holds message counters. Dropped counts undecodable messages;
// Rejected counts well-formed messages that arrived after Close.
type Stats struct {
	Handled  uint64 `json:"handled"`
	Dropped  uint64 `json:"dropped"`
	Rejected uint64 `json:"rejected"`
	Failed   uint64 `json:"failed"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMode sets the dispatch mode.
func WithMode(m Mode) Option { return func(b *Bridge) { b.mode = m } }

// WithDispatcher sets the function used to run response posting on the
// content's owning goroutine in Serialized mode, typically host.Window.Post.
func WithDispatcher(post func(func()) error) Option { return func(b *Bridge) { b.dispatch = post } }

// WithSessionID tags every handled message with the embedding session id.
func WithSessionID(id string) Option { return func(b *Bridge) { b.sessionID = id } }

// WithRequestTimeout bounds the context handed to the Handler. Zero means no bound.
func WithRequestTimeout(d time.Duration) Option { return func(b *Bridge) { b.timeout = d } }

// WithPublisher receives message.dropped events.
func WithPublisher(p events.EventPublisher) Option { return func(b *Bridge) { b.publisher = p } }

// Bridge is the engine's web message listener.
type Bridge struct {
	handler   Handler
	poster    Poster
	mode      Mode
	dispatch  func(func()) error
	sessionID string
	timeout   time.Duration
	publisher events.EventPublisher

	handled  atomic.Uint64
	dropped  atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64

	mu      sync.Mutex
	queue   []string
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	closing sync.Once
}

// New creates a Bridge. Serialized mode without a dispatcher falls back to Inline.
func New(handler Handler, poster Poster, opts ...Option) *Bridge {
	b := &Bridge{
		handler:   handler,
		poster:    poster,
		publisher: &events.NoOpPublisher{},
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.mode == Serialized && b.dispatch == nil {
		slog.Warn(fmt.Sprintf("%s - serialized mode needs a dispatcher, using inline", logPrefix))
		b.mode = Inline
	}
	if b.mode == Serialized {
		go b.worker()
	} else {
		close(b.done)
	}
	return b
}

// Mode returns the effective dispatch mode.
func (b *Bridge) Mode() Mode { return b.mode }

// OnMessage is installed as the content's web message listener.
func (b *Bridge) OnMessage(raw string) {
	if strings.TrimSpace(raw) == "" || !envelope.IsObject([]byte(raw)) {
		b.drop(raw)
		return
	}

	if b.mode == Inline {
		if b.isClosed() {
			b.reject(raw)
			return
		}
		b.post(b.handle(raw))
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.reject(raw)
		return
	}
	b.queue = append(b.queue, raw)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// handle runs raw through the handler and returns the text to post.
func (b *Bridge) handle(raw string) string {
	ctx := services.WithSessionID(context.Background(), b.sessionID)
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	b.handled.Add(1)
	text, err := Respond(ctx, b.handler, raw)
	if err != nil {
		b.failed.Add(1)
	}
	return text
}

// Respond runs raw through h and returns the encoded envelope to send back.
// A handler failure is encoded as a failure envelope that echoes the request
// id, and is also returned so callers can count it. The text is empty only
// when the failure envelope itself cannot be encoded.
func Respond(ctx context.Context, h Handler, raw string) (string, error) {
	out, err := h.HandleWebMessage(ctx, raw)
	if err == nil {
		return out, nil
	}

	resp := envelope.FailureFor(err)
	if resp.RequestID == "" {
		resp.RequestID = envelope.PeekRequestID([]byte(raw))
	}
	slog.Warn(fmt.Sprintf("%s - request %q failed: %v", logPrefix, resp.RequestID, err))
	text, encErr := envelope.Encode(resp)
	if encErr != nil {
		slog.Error(fmt.Sprintf("%s - %v", logPrefix, encErr))
		return "", err
	}
	return text, err
}

func (b *Bridge) post(text string) {
	if text == "" {
		return
	}
	if err := b.poster.PostText(text); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to post response: %v", logPrefix, err))
	}
}

// Drop reasons carried on message.dropped events.
const (
	reasonUndecodable = "undecodable message"
	reasonClosed      = "bridge closed"
)

func (b *Bridge) drop(raw string) {
	b.dropped.Add(1)
	preview := raw
	if len(preview) > 64 {
		preview = preview[:64] + "..."
	}
	slog.Warn(fmt.Sprintf("%s - dropping undecodable web message %q", logPrefix, preview))
	b.publishDrop("", reasonUndecodable)
}

// reject discards a well-formed message received after Close.
func (b *Bridge) reject(raw string) {
	b.rejected.Add(1)
	reqID := envelope.PeekRequestID([]byte(raw))
	slog.Info(fmt.Sprintf("%s - bridge closed, not handling request %q", logPrefix, reqID))
	b.publishDrop(reqID, reasonClosed)
}

func (b *Bridge) publishDrop(requestID, reason string) {
	ev := events.NewShellEvent(events.KindMessageDropped)
	ev.SessionID = b.sessionID
	ev.RequestID = requestID
	ev.Error = reason
	if err := b.publisher.Publish(context.Background(), ev); err != nil {
		slog.Debug(fmt.Sprintf("%s - failed to publish drop event: %v", logPrefix, err))
	}
}

func (b *Bridge) worker() {
	defer close(b.done)
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		closed := b.closed
		b.mu.Unlock()

		for _, raw := range batch {
			text := b.handle(raw)
			if text == "" {
				continue
			}
			if err := b.dispatch(func() { b.post(text) }); err != nil {
				slog.Warn(fmt.Sprintf("%s - failed to dispatch response: %v", logPrefix, err))
			}
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-b.wake
		}
	}
}

// Stats returns a snapshot of the message counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Handled:  b.handled.Load(),
		Dropped:  b.dropped.Load(),
		Rejected: b.rejected.Load(),
		Failed:   b.failed.Load(),
	}
}

// Close stops accepting messages. In Serialized mode it waits for the worker
// to drain what was already queued.
func (b *Bridge) Close() error {
	b.closing.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		select {
		case b.wake <- struct{}{}:
		default:
		}
	})
	<-b.done
	return nil
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

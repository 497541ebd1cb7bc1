package embedding

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/desktop-shell/pkg/bridge"
	"github.com/morezero/desktop-shell/pkg/host"
)

const sessionLogPrefix = "embedding:session"

// Session is a live embedded surface. It is built once by Builder.Create,
// resized in place, and closed once.
type Session struct {
	ID            string
	WindowID      host.WindowID
	Environment   host.Environment
	Controller    host.Controller
	Content       host.Content
	ListenerToken host.ListenerToken
	Bridge        *bridge.Bridge

	listening bool
	closeOnce sync.Once
	closeErr  error
}

// Resize sets the surface bounds to the full client area. Repeating the same
// size is harmless.
func (s *Session) Resize(width, height int) error {
	if s.Controller == nil {
		return host.ErrClosed
	}
	if err := s.Controller.SetBounds(host.Rect{Width: width, Height: height}); err != nil {
		return fmt.Errorf("%s - resize %s to %dx%d: %w", sessionLogPrefix, s.ID, width, height, err)
	}
	return nil
}

// Bounds returns the current surface bounds.
func (s *Session) Bounds() host.Rect {
	if s.Controller == nil {
		return host.Rect{}
	}
	return s.Controller.Bounds()
}

// Close tears the session down in order: message listener, bridge,
// controller, content, environment. Only the first call does anything; the
// errors it collected are returned on every call.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.listening {
			if err := s.Content.RemoveMessageListener(s.ListenerToken); err != nil {
				errs = append(errs, fmt.Errorf("remove listener: %w", err))
			}
			s.listening = false
		}
		if s.Bridge != nil {
			if err := s.Bridge.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close bridge: %w", err))
			}
		}
		if s.Controller != nil {
			if err := s.Controller.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close controller: %w", err))
			}
		}
		if s.Content != nil {
			s.Content.Release()
		}
		if s.Environment != nil {
			s.Environment.Release()
		}
		s.closeErr = errors.Join(errs...)
		slog.Info(fmt.Sprintf("%s - Session %s closed", sessionLogPrefix, s.ID))
	})
	return s.closeErr
}

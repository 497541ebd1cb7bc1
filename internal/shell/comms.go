package shell

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/desktop-shell/pkg/bridge"
	"github.com/morezero/desktop-shell/pkg/commsutil"
	"github.com/morezero/desktop-shell/pkg/embedding"
	"github.com/morezero/desktop-shell/pkg/host/memhost"
	"github.com/morezero/desktop-shell/pkg/services"
)

const commsLogPrefix = "shell:comms"

// subscribeFlushTimeout bounds the wait for the server to register subscriptions.
const subscribeFlushTimeout = 5 * time.Second

// subscribe serves web messages over COMMS request-reply and, for in-process
// content, relays raw messages in and posted text out. It returns once the
// server has registered every subscription.
func (s *Shell) subscribe(ctx context.Context, session *embedding.Session) error {
	if err := s.subscribeInvoke(ctx, session); err != nil {
		return err
	}
	if err := s.subscribeContent(session); err != nil {
		return err
	}
	if err := s.nc.FlushTimeout(subscribeFlushTimeout); err != nil {
		return fmt.Errorf("%s - failed to flush subscriptions: %w", commsLogPrefix, err)
	}
	return nil
}

func (s *Shell) subscribeInvoke(ctx context.Context, session *embedding.Session) error {
	windowID := uint64(s.window.ID())
	timeout := s.cfg.RequestTimeout

	invokeSubject := commsutil.BuildWindowSubject(commsutil.SubjectInvoke, windowID)
	sub, err := s.nc.Subscribe(invokeSubject, func(msg *comms.Msg) {
		reqCtx := services.WithSessionID(ctx, session.ID)
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(reqCtx, timeout)
			defer cancel()
		}

		text, _ := bridge.Respond(reqCtx, s.reg, string(msg.Data))
		if text == "" || msg.Reply == "" {
			return
		}
		if err := msg.Respond([]byte(text)); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to respond on %s: %v", commsLogPrefix, invokeSubject, err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, invokeSubject, err)
	}
	s.subs = append(s.subs, sub)
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", commsLogPrefix, invokeSubject))
	return nil
}

func (s *Shell) subscribeContent(session *embedding.Session) error {
	windowID := uint64(s.window.ID())
	content, ok := session.Content.(*memhost.Content)
	if !ok {
		return nil
	}

	inSubject := commsutil.BuildWindowSubject(commsutil.SubjectContentIn, windowID)
	outSubject := commsutil.BuildWindowSubject(commsutil.SubjectContentOut, windowID)

	relay, err := s.nc.Subscribe(inSubject, func(msg *comms.Msg) {
		if err := content.Deliver(string(msg.Data)); err != nil {
			slog.Debug(fmt.Sprintf("%s - content relay closed: %v", commsLogPrefix, err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, inSubject, err)
	}
	s.subs = append(s.subs, relay)

	nc := s.nc
	content.OnText(func(text string) {
		if err := nc.Publish(outSubject, []byte(text)); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish to %s: %v", commsLogPrefix, outSubject, err))
		}
	})
	slog.Info(fmt.Sprintf("%s - Relaying content %s -> %s", commsLogPrefix, inSubject, outSubject))
	return nil
}

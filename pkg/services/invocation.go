package services

import (
	"context"
	"encoding/json"

	"github.com/morezero/desktop-shell/pkg/envelope"
)

type sessionKey struct{}

// WithSessionID attaches the embedding session id to ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFrom returns the session id attached to ctx, if any.
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Invocation is the explicit per-request context handed to every command handler.
type Invocation struct {
	Ctx       context.Context
	Cmd       string
	RequestID string
	SessionID string
	args      json.RawMessage
}

func newInvocation(ctx context.Context, req *envelope.Request) *Invocation {
	return &Invocation{
		Ctx:       ctx,
		Cmd:       req.Cmd,
		RequestID: req.RequestID,
		SessionID: SessionIDFrom(ctx),
		args:      req.Args,
	}
}

// Bind decodes the request args into v.
func (inv *Invocation) Bind(v interface{}) error {
	req := envelope.Request{Cmd: inv.Cmd, Args: inv.args}
	if err := req.DecodeArgs(v); err != nil {
		return NewServiceError(CodeInvalidArgument, err.Error())
	}
	return nil
}

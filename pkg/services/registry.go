// Package services hosts the backend services reachable from hosted web
// content and routes JSON web messages to them.
//
// Each service sits behind its own Guarded lock. A command handler takes only
// the lock of the service it needs and never holds two at once.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/desktop-shell/pkg/catalog"
	"github.com/morezero/desktop-shell/pkg/envelope"
	"github.com/morezero/desktop-shell/pkg/events"
)

const logPrefix = "services:registry"

// Service names.
const (
	ServiceMetadata = "metadata"
	ServicePlayback = "playback"
	ServiceAddons   = "addons"
)

// RegistryOpts configures a Registry. Zero values use defaults.
type RegistryOpts struct {
	// Store backs the metadata service. Defaults to the built-in catalog.
	Store catalog.Store
	// Addons is the add-on index. Defaults to the built-in index.
	Addons *catalog.Index
	// Publisher receives a dispatch event per handled message.
	Publisher events.EventPublisher
	// Clock stamps playback and add-on state.
	Clock func() time.Time
}

// Registry owns the backend services and dispatches web messages to them.
type Registry struct {
	metadata  *Guarded[MetadataService]
	playback  *Guarded[PlaybackService]
	addons    *Guarded[AddonService]
	publisher events.EventPublisher
}

// NewRegistry creates a Registry.
func NewRegistry(opts RegistryOpts) *Registry {
	if opts.Store == nil || opts.Addons == nil {
		def := catalog.GetDefaultCatalog()
		if opts.Store == nil {
			opts.Store = catalog.NewMemory(def.Items)
		}
		if opts.Addons == nil {
			opts.Addons = catalog.NewIndex(def.Addons)
		}
	}
	if opts.Publisher == nil {
		opts.Publisher = &events.NoOpPublisher{}
	}

	return &Registry{
		metadata:  NewGuarded(ServiceMetadata, NewMetadataService(opts.Store)),
		playback:  NewGuarded(ServicePlayback, NewPlaybackService(opts.Clock)),
		addons:    NewGuarded(ServiceAddons, NewAddonService(opts.Addons, opts.Clock)),
		publisher: opts.Publisher,
	}
}

// HandleWebMessage decodes raw, dispatches it and returns the encoded success
// envelope. Failures are returned as errors; an *envelope.RequestError in
// the chain carries the request id to echo.
func (r *Registry) HandleWebMessage(ctx context.Context, raw string) (string, error) {
	start := time.Now()

	req, err := envelope.Decode([]byte(raw))
	if err != nil {
		reqID := ""
		var reqErr *envelope.RequestError
		if errors.As(err, &reqErr) {
			reqID = reqErr.RequestID
		}
		r.publishDispatch(ctx, "", reqID, start, err)
		return "", err
	}

	inv := newInvocation(ctx, req)
	slog.Debug(fmt.Sprintf("%s - cmd=%s requestId=%s session=%s", logPrefix, inv.Cmd, inv.RequestID, inv.SessionID))

	data, err := r.dispatch(inv)
	if err == nil {
		var out string
		out, err = envelope.Encode(envelope.Success(inv.RequestID, data))
		if err == nil {
			r.publishDispatch(ctx, inv.Cmd, inv.RequestID, start, nil)
			return out, nil
		}
	}

	r.publishDispatch(ctx, inv.Cmd, inv.RequestID, start, err)
	return "", &envelope.RequestError{RequestID: inv.RequestID, Err: err}
}

func (r *Registry) dispatch(inv *Invocation) (interface{}, error) {
	switch inv.Cmd {
	case "getCatalog":
		return r.handleGetCatalog(inv)
	case "search":
		return r.handleSearch(inv)
	case "getItem":
		return r.handleGetItem(inv)
	case "play":
		return r.handlePlay(inv)
	case "pause":
		return r.handlePause(inv)
	case "resume":
		return r.handleResume(inv)
	case "stop":
		return r.handleStop(inv)
	case "getPlaybackState":
		return r.handleGetPlaybackState(inv)
	case "listAddons":
		return r.handleListAddons(inv)
	case "installAddon":
		return r.handleInstallAddon(inv)
	case "uninstallAddon":
		return r.handleUninstallAddon(inv)
	default:
		return nil, NewServiceError(CodeUnknownCommand, fmt.Sprintf("Unknown command: %s", inv.Cmd))
	}
}

func (r *Registry) handleGetCatalog(inv *Invocation) (interface{}, error) {
	return Read(r.metadata, func(m *MetadataService) ([]catalog.MediaItem, error) {
		return m.Catalog(inv.Ctx)
	})
}

type searchArgs struct {
	Query string `json:"query"`
}

func (r *Registry) handleSearch(inv *Invocation) (interface{}, error) {
	var args searchArgs
	if err := inv.Bind(&args); err != nil {
		return nil, err
	}
	return Read(r.metadata, func(m *MetadataService) ([]catalog.MediaItem, error) {
		return m.Search(inv.Ctx, args.Query)
	})
}

type idArgs struct {
	ID string `json:"id"`
}

func (r *Registry) handleGetItem(inv *Invocation) (interface{}, error) {
	var args idArgs
	if err := inv.Bind(&args); err != nil {
		return nil, err
	}
	return Read(r.metadata, func(m *MetadataService) (*catalog.MediaItem, error) {
		return m.Item(inv.Ctx, args.ID)
	})
}

// handlePlay looks the item up under the metadata lock, releases it, then
// takes the playback lock.
func (r *Registry) handlePlay(inv *Invocation) (interface{}, error) {
	var args idArgs
	if err := inv.Bind(&args); err != nil {
		return nil, err
	}
	item, err := Read(r.metadata, func(m *MetadataService) (*catalog.MediaItem, error) {
		return m.Item(inv.Ctx, args.ID)
	})
	if err != nil {
		return nil, err
	}
	return Read(r.playback, func(p *PlaybackService) (PlaybackState, error) {
		return p.Play(*item), nil
	})
}

func (r *Registry) handlePause(_ *Invocation) (interface{}, error) {
	return Read(r.playback, func(p *PlaybackService) (PlaybackState, error) {
		return p.Pause()
	})
}

func (r *Registry) handleResume(_ *Invocation) (interface{}, error) {
	return Read(r.playback, func(p *PlaybackService) (PlaybackState, error) {
		return p.Resume()
	})
}

func (r *Registry) handleStop(_ *Invocation) (interface{}, error) {
	return Read(r.playback, func(p *PlaybackService) (PlaybackState, error) {
		return p.Stop(), nil
	})
}

func (r *Registry) handleGetPlaybackState(_ *Invocation) (interface{}, error) {
	return Read(r.playback, func(p *PlaybackService) (PlaybackState, error) {
		return p.State(), nil
	})
}

func (r *Registry) handleListAddons(_ *Invocation) (interface{}, error) {
	return Read(r.addons, func(a *AddonService) ([]AddonStatus, error) {
		return a.List(), nil
	})
}

type installArgs struct {
	Ref string `json:"ref"`
}

func (r *Registry) handleInstallAddon(inv *Invocation) (interface{}, error) {
	var args installArgs
	if err := inv.Bind(&args); err != nil {
		return nil, err
	}
	if args.Ref == "" {
		return nil, NewServiceError(CodeInvalidArgument, "Missing add-on reference")
	}
	return Read(r.addons, func(a *AddonService) (AddonStatus, error) {
		return a.Install(args.Ref)
	})
}

func (r *Registry) handleUninstallAddon(inv *Invocation) (interface{}, error) {
	var args idArgs
	if err := inv.Bind(&args); err != nil {
		return nil, err
	}
	err := r.addons.With(func(a *AddonService) error {
		return a.Uninstall(args.ID)
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": args.ID}, nil
}

func (r *Registry) publishDispatch(ctx context.Context, cmd, requestID string, start time.Time, err error) {
	ev := events.NewShellEvent(events.KindDispatch).WithOutcome(err)
	ev.Cmd = cmd
	ev.RequestID = requestID
	ev.SessionID = SessionIDFrom(ctx)
	ev.DurationMs = time.Since(start).Milliseconds()
	if pubErr := r.publisher.Publish(ctx, ev); pubErr != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish dispatch event: %v", logPrefix, pubErr))
	}
}

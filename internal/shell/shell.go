// Package shell orchestrates the desktop shell: catalog backend, service
// registry, COMMS wiring, the main window with its embedded session, and the
// HTTP status endpoint.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/desktop-shell/internal/config"
	"github.com/morezero/desktop-shell/pkg/binder"
	"github.com/morezero/desktop-shell/pkg/bridge"
	"github.com/morezero/desktop-shell/pkg/catalog"
	"github.com/morezero/desktop-shell/pkg/commsutil"
	"github.com/morezero/desktop-shell/pkg/db"
	"github.com/morezero/desktop-shell/pkg/embedding"
	"github.com/morezero/desktop-shell/pkg/events"
	"github.com/morezero/desktop-shell/pkg/services"
)

const logPrefix = "shell:shell"

// Shell is the desktop-shell orchestrator.
type Shell struct {
	cfg        *config.Config
	window     NativeWindow
	reg        *services.Registry
	binder     *binder.Binder
	handle     binder.Handle
	publisher  events.EventPublisher
	nc         *comms.Conn
	subs       []*comms.Subscription
	pool       *pgxpool.Pool
	httpServer *http.Server
	started    time.Time

	closeOnce sync.Once
	closeErr  error
}

// Option customizes New.
type Option func(*options)

type options struct {
	platform  Platform
	publisher events.EventPublisher
}

// WithPlatform overrides the platform selected by SHELL_ENGINE.
func WithPlatform(p Platform) Option { return func(o *options) { o.platform = p } }

// WithPublisher adds a publisher that receives every shell event.
func WithPublisher(p events.EventPublisher) Option { return func(o *options) { o.publisher = p } }

// SetupLogging installs the default slog handler for level.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// Run loads configuration, builds the shell and blocks until the window is
// closed or a shutdown signal arrives. It must be called on the goroutine
// that owns native windows.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForRun(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting %s (engine=%s, bridge=%s)", logPrefix, cfg.Title, cfg.Engine, cfg.BridgeMode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

// New wires the backends, opens the main window and builds its session. The
// calling goroutine becomes the window's owner. On failure everything created
// so far is released.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Shell, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s := &Shell{cfg: cfg, started: time.Now()}
	if err := s.start(ctx, o); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			slog.Warn(fmt.Sprintf("%s - cleanup after failed start: %v", logPrefix, closeErr))
		}
		return nil, err
	}
	return s, nil
}

func (s *Shell) start(ctx context.Context, o *options) error {
	cfg := s.cfg

	// Step 1: Catalog backend
	store, addons, err := s.openCatalog(ctx)
	if err != nil {
		return err
	}

	// Step 2: COMMS (optional) and event publishers
	pubs := events.Multi{events.NewCallbackPublisher(logEvent)}
	if cfg.COMMSURL != "" {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
		pubs = append(pubs, events.NewCommsPublisher(nc, nil))
	}
	if o.publisher != nil {
		pubs = append(pubs, o.publisher)
	}
	s.publisher = pubs

	// Step 3: Services and binder
	s.reg = services.NewRegistry(services.RegistryOpts{
		Store:     store,
		Addons:    addons,
		Publisher: s.publisher,
	})
	s.binder = binder.New(s.publisher)

	// Step 4: Window and engine
	platform := o.platform
	if platform == nil {
		if platform, err = lookupPlatform(cfg.Engine); err != nil {
			return err
		}
	}
	window, engine, err := platform(cfg)
	if err != nil {
		return fmt.Errorf("%s - failed to open window: %w", logPrefix, err)
	}
	s.window = window

	// Step 5: Embedded session
	mode, err := bridge.ParseMode(cfg.BridgeMode)
	if err != nil {
		return err
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	width, height := window.ClientSize()
	builder := embedding.NewBuilder(engine, s.reg,
		bridge.WithMode(mode),
		bridge.WithRequestTimeout(cfg.RequestTimeout),
		bridge.WithPublisher(s.publisher),
	)
	session, err := builder.Create(window, embedding.Options{
		DataDir:    dataDir,
		InitialURL: cfg.InitialURL,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		return err
	}

	handle, err := s.binder.Bind(window.ID(), session)
	if err != nil {
		session.Close()
		return err
	}
	s.handle = handle

	id := window.ID()
	window.OnResize(func(width, height int) {
		if err := s.binder.OnResize(id, width, height); err != nil {
			slog.Warn(fmt.Sprintf("%s - resize to %dx%d failed: %v", logPrefix, width, height, err))
		}
	})
	window.OnDestroy(func() {
		if err := s.binder.OnDestroy(id); err != nil {
			slog.Warn(fmt.Sprintf("%s - teardown on destroy: %v", logPrefix, err))
		}
	})

	// Step 6: COMMS subscriptions
	if s.nc != nil {
		if err := s.subscribe(ctx, session); err != nil {
			return err
		}
	}

	// Step 7: HTTP status server
	if addr := cfg.HealthAddr(); addr != "" {
		if err := s.listenHTTP(addr); err != nil {
			return err
		}
	}

	slog.Info(fmt.Sprintf("%s - %s is ready (session %s)", logPrefix, cfg.Title, session.ID))
	return nil
}

// openCatalog returns the catalog store and add-on index: Postgres when
// DATABASE_URL is set, otherwise the catalog file or built-in defaults.
func (s *Shell) openCatalog(ctx context.Context) (catalog.Store, *catalog.Index, error) {
	cfg := s.cfg
	cf, err := catalog.LoadCatalogFile(cfg.CatalogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to load catalog: %w", logPrefix, err)
	}
	if cfg.DatabaseURL == "" {
		return catalog.NewMemory(cf.Items), catalog.NewIndex(cf.Addons), nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool

	if cfg.RunMigrations {
		migrations, err := db.LoadMigrations(cfg.MigrationPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrations); err != nil {
			return nil, nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
		if err := db.SeedCatalog(ctx, pool, cf); err != nil {
			return nil, nil, fmt.Errorf("%s - failed to seed catalog: %w", logPrefix, err)
		}
	}

	repo := db.NewRepository(pool)
	manifests, err := repo.ListAddons(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to load add-ons: %w", logPrefix, err)
	}
	if len(manifests) == 0 {
		manifests = cf.Addons
	}
	return repo, catalog.NewIndex(manifests), nil
}

// Serve runs the window until it is closed or ctx is done, then shuts down.
func (s *Shell) Serve(ctx context.Context) error {
	err := s.window.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info(fmt.Sprintf("%s - Shutdown requested", logPrefix))
		err = nil
	}
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close tears down the session, then the COMMS, HTTP and database backends.
// It runs once; later calls return the first result.
func (s *Shell) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.binder != nil && s.window != nil {
			if err := s.binder.OnDestroy(s.window.ID()); err != nil {
				errs = append(errs, err)
			}
		}
		for _, sub := range s.subs {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, comms.ErrConnectionClosed) {
				errs = append(errs, err)
			}
		}
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.httpServer.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		if s.nc != nil {
			if err := s.nc.Drain(); err != nil && !errors.Is(err, comms.ErrConnectionClosed) {
				errs = append(errs, err)
			}
		}
		if s.pool != nil {
			s.pool.Close()
		}
		s.closeErr = errors.Join(errs...)
		slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	})
	return s.closeErr
}

// Window returns the main window.
func (s *Shell) Window() NativeWindow { return s.window }

// Registry returns the service registry.
func (s *Shell) Registry() *services.Registry { return s.reg }

// Session returns the live session of the main window, if any.
func (s *Shell) Session() (*embedding.Session, bool) {
	if s.binder == nil {
		return nil, false
	}
	return s.binder.Resolve(s.handle)
}

func logEvent(_ context.Context, ev *events.ShellEvent) error {
	slog.Debug(fmt.Sprintf("%s - event %s (session=%s cmd=%s)", logPrefix, ev.Kind, ev.SessionID, ev.Cmd))
	return nil
}

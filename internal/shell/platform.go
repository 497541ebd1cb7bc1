package shell

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/morezero/desktop-shell/internal/config"
	"github.com/morezero/desktop-shell/pkg/host"
	"github.com/morezero/desktop-shell/pkg/host/memhost"
)

// NativeWindow is a host window the shell can drive to completion.
type NativeWindow interface {
	host.Window
	OnResize(fn func(width, height int))
	OnDestroy(fn func())
	// Run pumps the window until it is destroyed or ctx is done. It must be
	// called on the goroutine that created the window.
	Run(ctx context.Context) error
	Destroy() error
}

// Platform opens the main window and the rendering engine bound to it.
type Platform func(cfg *config.Config) (NativeWindow, host.Engine, error)

var (
	platformsMu sync.RWMutex
	platforms   = map[string]Platform{
		config.EngineMemory: openMemory,
	}
)

// RegisterPlatform makes a platform available under name. Build-tagged
// engines register themselves from init.
func RegisterPlatform(name string, p Platform) {
	platformsMu.Lock()
	defer platformsMu.Unlock()
	platforms[name] = p
}

// Platforms returns the registered platform names, sorted.
func Platforms() []string {
	platformsMu.RLock()
	defer platformsMu.RUnlock()
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupPlatform(name string) (Platform, error) {
	platformsMu.RLock()
	defer platformsMu.RUnlock()
	p, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("%s - engine %q is not available in this build (have %v)", logPrefix, name, keys(platforms))
	}
	return p, nil
}

func keys(m map[string]Platform) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

const mainWindowID host.WindowID = 1

func openMemory(cfg *config.Config) (NativeWindow, host.Engine, error) {
	w := memhost.NewWindow(mainWindowID, cfg.Width, cfg.Height)
	return w, memhost.NewEngine(w), nil
}

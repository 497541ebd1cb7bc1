//go:build webview && cgo

package main

import (
	"runtime"

	"github.com/morezero/desktop-shell/internal/config"
	"github.com/morezero/desktop-shell/internal/shell"
	"github.com/morezero/desktop-shell/pkg/host"
	"github.com/morezero/desktop-shell/pkg/host/webview"
)

func init() {
	// Native UI toolkits require the main OS thread.
	runtime.LockOSThread()

	shell.RegisterPlatform(config.EngineWebview, func(cfg *config.Config) (shell.NativeWindow, host.Engine, error) {
		w, engine, err := webview.Open(1, cfg.Title, cfg.Width, cfg.Height, cfg.Debug)
		if err != nil {
			return nil, nil, err
		}
		return w, engine, nil
	})
}

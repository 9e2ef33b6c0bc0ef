// Package application wires the session layer together and runs the host
// event loop. Every call into the page cache and the window system happens
// on the goroutine running Run.
package application

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/penwyp/go-xpdf-session/internal/config"
	"github.com/penwyp/go-xpdf-session/internal/instance"
	"github.com/penwyp/go-xpdf-session/internal/ipc"
	"github.com/penwyp/go-xpdf-session/internal/pagestore"
	"github.com/penwyp/go-xpdf-session/internal/recency"
	"github.com/penwyp/go-xpdf-session/internal/util"
	"github.com/penwyp/go-xpdf-session/internal/viewer"
)

// Options are the per-invocation settings not stored in the config file.
type Options struct {
	Intent        instance.Intent
	PrintCommands io.Writer
	// WatchPages re-syncs the page cache as soon as another instance
	// rewrites the pages file.
	WatchPages bool
}

// App is one viewer process.
type App struct {
	cfg         *config.Config
	opts        Options
	cache       *recency.Cache
	windows     *viewer.Headless
	coordinator *instance.Coordinator
}

// NewTransport builds the IPC transport selected in cfg.
func NewTransport(cfg *config.Config) (ipc.Transport, error) {
	switch cfg.Transport {
	case config.TransportAbstract:
		return ipc.NewAbstractTransport(fmt.Sprintf("xpdf-%d", os.Getuid()))
	default:
		return ipc.NewSocketTransport(cfg.SocketDir), nil
	}
}

// NewPageCache builds the page cache described by cfg.
func NewPageCache(cfg *config.Config) *recency.Cache {
	store := pagestore.New(cfg.PagesFile, cfg.MaxSavedPages)
	return recency.New(store, recency.Options{Disabled: !cfg.SavesPageNumbers()})
}

// New assembles an App.
func New(cfg *config.Config, opts Options) (*App, error) {
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	cache := NewPageCache(cfg)
	return &App{
		cfg:         cfg,
		opts:        opts,
		cache:       cache,
		windows:     viewer.NewHeadless(cache, opts.PrintCommands),
		coordinator: instance.New(transport, cfg.ConnectTimeout.Duration),
	}, nil
}

// Windows exposes the window system, mainly for tests.
func (a *App) Windows() *viewer.Headless {
	return a.windows
}

// Run performs startup and, unless the request was delegated, serves until
// the last window closes or ctx is cancelled. It reports whether the request
// was handed to another instance.
func (a *App) Run(ctx context.Context) (delegated bool, err error) {
	result, err := a.coordinator.Start(ctx, a.opts.Intent, a.windows)
	if err != nil {
		return false, err
	}
	if result.Delegated {
		return true, nil
	}

	util.LogInfo("Viewer started", util.F("mode", result.Mode.String()))
	a.loop(ctx, result.Listener)
	return false, nil
}

func (a *App) loop(ctx context.Context, listener *ipc.Listener) {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := make(chan ipc.Message, 64)
	serveDone := make(chan struct{})
	if listener != nil {
		go func() {
			defer close(serveDone)
			err := listener.Serve(loopCtx, func(m ipc.Message) {
				select {
				case messages <- m:
				case <-loopCtx.Done():
				}
			})
			if err != nil {
				util.LogWarn("Instance listener stopped", util.F("error", err))
			}
		}()
	} else {
		close(serveDone)
	}

	var changes <-chan struct{}
	if a.opts.WatchPages && a.cfg.SavesPageNumbers() {
		watcher, err := pagestore.NewWatcher(a.cfg.PagesFile)
		if err != nil {
			util.LogWarn("Cannot watch pages file", util.F("error", err))
		} else {
			defer watcher.Close()
			changes = watcher.Changes()
		}
	}

	for running := true; running; {
		select {
		case m := <-messages:
			util.LogDebug("Remote command", util.F("conn", m.ConnID), util.F("command", m.Line))
			if err := a.windows.ExecCmd(m.Line); err != nil {
				util.LogWarn("Remote command failed", util.F("command", m.Line), util.F("error", err))
			}
		case <-changes:
			a.cache.Sync()
		case <-a.windows.Done():
			running = false
		case <-ctx.Done():
			running = false
		}
	}

	cancel()
	<-serveDone
	a.Shutdown()
}

// Shutdown closes every window and flushes the page cache.
func (a *App) Shutdown() {
	a.windows.CloseAll()
	if err := a.cache.FlushIfDirty(); err != nil {
		util.LogWarn("Cannot save page numbers", util.F("error", err))
	}
}

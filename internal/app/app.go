// Package app wires configuration, storage, ingestion and the HTTP API into
// the framekit service and runs one-shot query pipelines.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	httpapi "github.com/framekit/framekit/internal/api/http"
	"github.com/framekit/framekit/internal/config"
	"github.com/framekit/framekit/internal/ingest"
	"github.com/framekit/framekit/internal/observability"
	"github.com/framekit/framekit/internal/server"
	"github.com/framekit/framekit/internal/storage"
)

// statsWindow is how long column usage is kept before Prune drops it.
const statsWindow = time.Hour

// App manages the lifecycle of the HTTP service.
type App struct {
	cfg *config.Config

	storage   storage.ObjectStorage
	loader    *ingest.Loader
	stats     *observability.OpStats
	registry  *httpapi.Registry
	lifecycle *server.Lifecycle

	httpServer *http.Server
	listener   net.Listener

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{cfg: cfg}
	a.lifecycle = server.NewLifecycle(server.Config{
		Timeout: cfg.HTTP.ShutdownTimeout,
		Status:  a.heldFrames,
	})
	return a, nil
}

// Start opens storage, binds the listener and serves the API in the
// background.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	store, err := storage.New(ctx, a.cfg.Storage)
	if err != nil {
		a.fail()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.storage = store
	a.loader = ingest.NewLoader(store, a.cfg.Delimiter(), a.cfg.Ingest.Concurrency)
	a.stats = observability.NewOpStats(statsWindow)
	registry := httpapi.NewRegistry(a.cfg.HTTP.MaxFrames)
	a.mu.Lock()
	a.registry = registry
	a.mu.Unlock()

	handler := httpapi.NewFrameHandler(registry, a.loader, a.stats, a.cfg.Delimiter())
	router := httpapi.NewRouter(handler, a.lifecycle.Middleware)

	a.listener, err = net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		a.fail()
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTP.Addr, err)
	}

	a.httpServer = &http.Server{
		Handler:      router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		log.Printf("app: HTTP API listening on %s", a.listener.Addr())
		if err := a.httpServer.Serve(a.listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[WARN] app: HTTP server error: %v", err)
		}
	}()
	go func() {
		defer a.wg.Done()
		a.pruneLoop(ctx)
	}()

	a.lifecycle.RegisterFunc("app", func() error {
		return a.Stop(context.Background())
	})

	log.Printf("app: started (storage=%s, max_frames=%d)", a.cfg.Storage.Type, a.cfg.HTTP.MaxFrames)
	return nil
}

func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(statsWindow / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.stats.Prune()
		}
	}
}

// Addr returns the bound listen address, or "" before Start.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop shuts the HTTP server down and waits for background goroutines.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	log.Printf("app: stopping")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var stopErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			stopErr = fmt.Errorf("http shutdown: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Printf("[WARN] app: shutdown timeout, some goroutines may not have finished")
	}

	log.Printf("app: stopped (%d frames dropped)", a.registry.Len())
	return stopErr
}

// heldFrames reports the registry size for shutdown logging.
func (a *App) heldFrames() string {
	a.mu.Lock()
	registry := a.registry
	a.mu.Unlock()
	if registry == nil {
		return "no frames held"
	}
	return fmt.Sprintf("%d frames held", registry.Len())
}

func (a *App) fail() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// WaitForShutdown blocks until a signal arrives or ctx is done, then stops
// the app.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.lifecycle.Listen(ctx)
}

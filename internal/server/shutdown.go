// Package server coordinates graceful shutdown of the framekit HTTP API:
// signal handling, in-flight request accounting and ordered release of
// named resources.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Config holds the shutdown timings and an optional status reporter.
type Config struct {
	// Timeout bounds the whole shutdown. Default: 30 seconds.
	Timeout time.Duration

	// DrainTimeout bounds the wait for in-flight requests.
	// Default: half of Timeout.
	DrainTimeout time.Duration

	// Status describes what the service still holds, e.g. "3 frames held".
	// It is logged when shutdown begins and once requests have drained.
	Status func() string
}

type resource struct {
	name   string
	closer io.Closer
}

// Lifecycle gates requests while the service runs and tears it down once.
type Lifecycle struct {
	cfg Config

	mu        sync.Mutex
	draining  bool
	inFlight  int
	idle      chan struct{}
	idleShut  bool
	resources []resource

	done chan struct{}
	once sync.Once
}

// NewLifecycle creates a Lifecycle, filling in default timeouts.
func NewLifecycle(cfg Config) *Lifecycle {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = cfg.Timeout / 2
	}
	return &Lifecycle{
		cfg:  cfg,
		idle: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a resource released on shutdown. Resources are released in
// reverse order of registration.
func (l *Lifecycle) Register(name string, c io.Closer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resources = append(l.resources, resource{name: name, closer: c})
}

// RegisterFunc is Register for a plain release function.
func (l *Lifecycle) RegisterFunc(name string, fn func() error) {
	l.Register(name, closerFunc(fn))
}

// Listen blocks until SIGTERM or SIGINT arrives, ctx is done, or shutdown
// is started elsewhere, and then shuts down.
func (l *Lifecycle) Listen(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		return l.Shutdown(context.Background(), fmt.Sprintf("signal %v", sig))
	case <-ctx.Done():
		return l.Shutdown(context.Background(), "context cancelled")
	case <-l.done:
		return nil
	}
}

// Shutdown refuses new requests, waits for in-flight ones and releases
// every registered resource. Only the first call has any effect; later
// calls return nil.
func (l *Lifecycle) Shutdown(ctx context.Context, reason string) error {
	var err error
	l.once.Do(func() {
		err = l.shutdown(ctx, reason)
	})
	return err
}

func (l *Lifecycle) shutdown(ctx context.Context, reason string) error {
	log.Printf("server: shutting down (%s)%s", reason, l.status())

	l.mu.Lock()
	l.draining = true
	pending := l.inFlight
	l.markIdleLocked()
	resources := append([]resource(nil), l.resources...)
	l.mu.Unlock()
	close(l.done)

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	var errs []error
	start := time.Now()
	if err := l.drain(ctx); err != nil {
		log.Printf("[WARN] server: %v", err)
		errs = append(errs, err)
	} else if pending > 0 {
		log.Printf("server: drained %d requests in %s%s", pending, time.Since(start).Round(time.Millisecond), l.status())
	}

	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if err := r.closer.Close(); err != nil {
			log.Printf("[WARN] server: releasing %s: %v", r.name, err)
			errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}

func (l *Lifecycle) drain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.DrainTimeout)
	defer cancel()

	select {
	case <-l.idle:
		return nil
	case <-ctx.Done():
		if n := l.InFlight(); n > 0 {
			return fmt.Errorf("drain: %d requests still in flight", n)
		}
		return nil
	}
}

// markIdleLocked closes idle once draining has begun and nothing is in
// flight. l.mu must be held.
func (l *Lifecycle) markIdleLocked() {
	if l.draining && l.inFlight == 0 && !l.idleShut {
		l.idleShut = true
		close(l.idle)
	}
}

func (l *Lifecycle) status() string {
	if l.cfg.Status == nil {
		return ""
	}
	return ": " + l.cfg.Status()
}

// Begin admits a request. It returns false once shutdown has started; the
// request must then be refused and End must not be called.
func (l *Lifecycle) Begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.draining {
		return false
	}
	l.inFlight++
	return true
}

// End marks an admitted request finished.
func (l *Lifecycle) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight--
	l.markIdleLocked()
}

// Draining reports whether shutdown has started.
func (l *Lifecycle) Draining() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draining
}

// InFlight returns the number of admitted, unfinished requests.
func (l *Lifecycle) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Done is closed when shutdown starts.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

type unavailableResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Middleware counts requests in flight and refuses new ones with a JSON 503
// once shutdown has started.
func (l *Lifecycle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Begin() {
			w.Header().Set("Connection", "close")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(unavailableResponse{
				Error: "service is shutting down",
				Code:  "SHUTTING_DOWN",
			})
			return
		}
		defer l.End()
		next.ServeHTTP(w, r)
	})
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

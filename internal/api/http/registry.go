package http

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/framekit/framekit/internal/frame"
	"github.com/google/uuid"
)

var (
	// ErrFrameNotFound is returned for an id the registry does not hold.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrRegistryFull is returned by Put once the registry holds its limit.
	ErrRegistryFull = errors.New("frame registry is full")
)

// Entry is a registered frame.
type Entry struct {
	ID      string
	Frame   *frame.Frame
	Created time.Time
}

// Registry holds frames by id. Frames never change after construction, so
// callers share them without further locking.
type Registry struct {
	mu     sync.RWMutex
	frames map[string]Entry
	max    int
}

// NewRegistry creates a registry holding at most max frames (0 = unlimited).
func NewRegistry(max int) *Registry {
	return &Registry{
		frames: make(map[string]Entry),
		max:    max,
	}
}

// Put registers f under a fresh id.
func (r *Registry) Put(f *frame.Frame) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.frames) >= r.max {
		return Entry{}, ErrRegistryFull
	}

	e := Entry{
		ID:      uuid.New().String(),
		Frame:   f,
		Created: time.Now(),
	}
	r.frames[e.ID] = e
	return e, nil
}

// Get returns the entry registered under id.
func (r *Registry) Get(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.frames[id]
	if !ok {
		return Entry{}, ErrFrameNotFound
	}
	return e, nil
}

// Delete drops id from the registry.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.frames[id]; !ok {
		return ErrFrameNotFound
	}
	delete(r.frames, id)
	return nil
}

// List returns every entry, oldest first.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.frames))
	for _, e := range r.frames {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Len returns the number of registered frames.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// Package registry maps provider identifiers to lazily constructed adapters.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ownlingo/transmux/translator"
)

// ErrNotRegistered is returned when resolving an unknown provider
var ErrNotRegistered = errors.New("provider not registered")

// ErrClosed is returned once the registry has been torn down
var ErrClosed = errors.New("registry closed")

// Factory constructs an adapter on first use
type Factory func(ctx context.Context) (translator.Provider, error)

// Registry holds provider factories and the adapters built from them.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]translator.Provider
	closed    bool
	log       *zap.Logger
}

// New creates an empty registry
func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}

	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]translator.Provider),
		log:       log,
	}
}

// Register adds or replaces the factory for id. A replaced factory drops any
// adapter already built from the previous one.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[id] = f
	if p, ok := r.instances[id]; ok {
		delete(r.instances, id)
		closeProvider(r.log, id, p)
	}
}

// Has reports whether id has a factory
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.factories[id]
	return ok
}

// IDs returns the registered identifiers, sorted
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Instantiated returns how many adapters have been constructed
func (r *Registry) Instantiated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Resolve returns the adapter for id, constructing it on first use.
// Construction failures are not cached.
func (r *Registry) Resolve(ctx context.Context, id string) (translator.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	if p, ok := r.instances[id]; ok {
		return p, nil
	}

	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}

	p, err := f(ctx)
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", id, err)
	}

	r.instances[id] = p
	r.log.Debug("provider instantiated", zap.String("provider", id))

	return p, nil
}

// Close tears down every constructed adapter. Resolve fails afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, p := range r.instances {
		if err := closeProvider(r.log, id, p); err != nil {
			errs = append(errs, err)
		}
	}

	r.instances = make(map[string]translator.Provider)
	r.closed = true

	return errors.Join(errs...)
}

func closeProvider(log *zap.Logger, id string, p translator.Provider) error {
	c, ok := p.(io.Closer)
	if !ok {
		return nil
	}

	if err := c.Close(); err != nil {
		log.Warn("closing provider failed", zap.String("provider", id), zap.Error(err))
		return fmt.Errorf("close provider %s: %w", id, err)
	}
	return nil
}

// Package tenant maps account names to live, authenticated per-tenant
// stores. Sessions are process-local: they are populated at the first
// authenticated resolve and torn down at shutdown, never restored from a
// durable source. After a restart every account must log in again before
// its ledger is reachable.
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	shield "github.com/veilproto/shield"
	"github.com/veilproto/shield/store"
)

// OpenFunc dials one tenant's storage namespace with its credential.
// Implementations map a rejected credential to shield.ErrAuthentication and
// an unreachable backend to shield.ErrStorageUnavailable.
type OpenFunc func(ctx context.Context, name, credential string) (store.Store, error)

var _ shield.Resolver = (*Registry)(nil)

// Registry is the per-process session cache. Concurrent first resolves for
// the same name share a single dial; cached resolves never re-authenticate.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]store.Store

	group  singleflight.Group
	open   OpenFunc
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry that opens tenant stores through open.
func NewRegistry(open OpenFunc, opts ...RegistryOption) *Registry {
	r := &Registry{
		stores: make(map[string]store.Store),
		open:   open,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tenant's store, opening and caching a connection on
// first use. A cached session is returned without re-authenticating, even
// when a credential is supplied. With no cached session and no credential
// the call fails shield.ErrTenantUnknown: a bare account-name header is not
// enough to open a connection, and failing loudly beats silently opening an
// unauthenticated one.
func (r *Registry) Resolve(ctx context.Context, name, credential string) (store.Store, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty tenant name", shield.ErrInvalidInput)
	}

	r.mu.RLock()
	st, ok := r.stores[name]
	r.mu.RUnlock()
	if ok {
		return st, nil
	}

	if credential == "" {
		return nil, fmt.Errorf("%w: %q", shield.ErrTenantUnknown, name)
	}

	// Losers of the race piggyback on the winner's dial instead of opening
	// connections that would silently overwrite each other in the cache.
	v, err, shared := r.group.Do(name, func() (any, error) {
		// Re-check under the flight: an earlier caller may have populated
		// the cache between our read and the Do.
		r.mu.RLock()
		cached, ok := r.stores[name]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		opened, err := r.open(ctx, name, credential)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.stores[name] = opened
		r.mu.Unlock()

		return opened, nil
	})
	if err != nil {
		return nil, err
	}

	if !shared {
		r.logger.Debug("tenant session opened", "tenant", name)
	}
	return v.(store.Store), nil
}

// Evict drops a tenant's cached session, closing its store. The next
// authenticated Resolve redials; this is the retry path after
// shield.ErrStorageUnavailable.
func (r *Registry) Evict(name string) {
	r.mu.Lock()
	st, ok := r.stores[name]
	delete(r.stores, name)
	r.mu.Unlock()

	if ok {
		if err := st.Close(); err != nil {
			r.logger.Warn("closing evicted tenant store", "tenant", name, "error", err)
		}
	}
}

// Len returns the number of cached sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// Close tears down every cached session. The registry stays usable; it is
// simply empty afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]store.Store)
	r.mu.Unlock()

	var firstErr error
	for name, st := range stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tenant: close %q: %w", name, err)
		}
	}
	return firstErr
}

package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/transaction"
)

// callTimeout bounds one hook invocation. Hooks should never block the
// ledger write path.
const callTimeout = 5 * time.Second

// Registry manages registered hooks and provides efficient dispatch.
// Hooks are type-cached at registration so emission is a slice walk.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists for dispatch
	onAccountCreated []OnAccountCreated
	onMinted         []OnMinted
	onReceived       []OnReceived
	onSpent          []OnSpent
	onReconciled     []OnReconciled
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	if v, ok := h.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := h.(OnMinted); ok {
		r.onMinted = append(r.onMinted, v)
	}
	if v, ok := h.(OnReceived); ok {
		r.onReceived = append(r.onReceived, v)
	}
	if v, ok := h.(OnSpent); ok {
		r.onSpent = append(r.onSpent, v)
	}
	if v, ok := h.(OnReconciled); ok {
		r.onReconciled = append(r.onReconciled, v)
	}

	r.logger.Info("hook registered", "name", h.Name())
	return nil
}

// Get returns a hook by name, or nil.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitAccountCreated calls OnAccountCreated for all hooks that implement it.
func (r *Registry) EmitAccountCreated(ctx context.Context, acct *account.Account) {
	r.mu.RLock()
	hooks := r.onAccountCreated
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnAccountCreated(ctx, acct)
		}); err != nil {
			r.logger.Warn("hook OnAccountCreated failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitMinted calls OnMinted for all hooks that implement it.
func (r *Registry) EmitMinted(ctx context.Context, tenant string, c *commitment.Commitment) {
	r.mu.RLock()
	hooks := r.onMinted
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnMinted(ctx, tenant, c)
		}); err != nil {
			r.logger.Warn("hook OnMinted failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitReceived calls OnReceived for all hooks that implement it.
func (r *Registry) EmitReceived(ctx context.Context, tenant string, c *commitment.Commitment) {
	r.mu.RLock()
	hooks := r.onReceived
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnReceived(ctx, tenant, c)
		}); err != nil {
			r.logger.Warn("hook OnReceived failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitSpent calls OnSpent for all hooks that implement it.
func (r *Registry) EmitSpent(ctx context.Context, tenant string, rec *transaction.Record) {
	r.mu.RLock()
	hooks := r.onSpent
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnSpent(ctx, tenant, rec)
		}); err != nil {
			r.logger.Warn("hook OnSpent failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitReconciled calls OnReconciled for all hooks that implement it.
func (r *Registry) EmitReconciled(ctx context.Context, tenant string, kind commitment.Kind, hash string, patch commitment.ReconciliationPatch) {
	r.mu.RLock()
	hooks := r.onReconciled
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnReconciled(ctx, tenant, kind, hash, patch)
		}); err != nil {
			r.logger.Warn("hook OnReconciled failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a hook function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(callTimeout):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

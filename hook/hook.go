// Package hook provides an extensible event-hook system for the ledger.
// Hooks observe lifecycle events (account creation, mints, receipts,
// spends, reconciliations) without sitting on the write path: dispatch is
// bounded by a per-call timeout and a failing hook is logged, never
// propagated.
package hook

import (
	"context"

	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/transaction"
)

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// OnAccountCreated is called after an account's namespace is provisioned
// and its first session opened.
type OnAccountCreated interface {
	Hook
	OnAccountCreated(ctx context.Context, acct *account.Account) error
}

// OnMinted is called after a commitment is minted into a tenant's ledger.
type OnMinted interface {
	Hook
	OnMinted(ctx context.Context, tenant string, c *commitment.Commitment) error
}

// OnReceived is called after an incoming commitment is inserted for a
// tenant. Not called for duplicate deliveries (the insert was a no-op).
type OnReceived interface {
	Hook
	OnReceived(ctx context.Context, tenant string, c *commitment.Commitment) error
}

// OnSpent is called after a transfer or burn has fully applied: inputs
// marked, change inserted, transaction record written.
type OnSpent interface {
	Hook
	OnSpent(ctx context.Context, tenant string, rec *transaction.Record) error
}

// OnReconciled is called after a reconciliation-flag patch is applied.
type OnReconciled interface {
	Hook
	OnReconciled(ctx context.Context, tenant string, kind commitment.Kind, hash string, patch commitment.ReconciliationPatch) error
}

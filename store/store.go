// Package store declares the unified per-tenant storage interface.
//
// A Store is bound to exactly one tenant namespace: it is produced by an
// authenticated resolve through the tenant registry and can never observe
// another tenant's collections. Every mutation after creation is a partial
// field update; full-document replacement does not exist in this interface.
package store

import (
	"context"

	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/transaction"
)

// Store is the storage interface for one tenant's commitment ledger.
// Instead of embedding sub-interfaces, all methods are declared explicitly
// to keep the contract in one place.
type Store interface {
	// Commitment methods
	InsertCommitment(ctx context.Context, c *commitment.Commitment) error
	GetCommitment(ctx context.Context, kind commitment.Kind, hash string) (*commitment.Commitment, error)

	// MarkSpent conditionally sets the disposal flag on an unspent
	// commitment and reports how many documents matched (0 or 1). The
	// match-and-set happens in a single round trip; this is the sole
	// double-spend prevention mechanism.
	MarkSpent(ctx context.Context, kind commitment.Kind, hash string, flag commitment.DisposalFlag) (int64, error)

	// ClearDisposal unsets a disposal flag set earlier in the same logical
	// operation, compensating a spend that could not complete.
	ClearDisposal(ctx context.Context, kind commitment.Kind, hash string, flag commitment.DisposalFlag) error

	// PatchReconciliation partially updates the reconciliation flag pair and
	// reports how many documents matched. Lifecycle flags are never touched.
	PatchReconciliation(ctx context.Context, kind commitment.Kind, hash string, patch commitment.ReconciliationPatch) (int64, error)

	ListUnspent(ctx context.Context, kind commitment.Kind, opts commitment.ListOpts) ([]*commitment.Commitment, error)

	// Transaction-log methods
	InsertRecord(ctx context.Context, r *transaction.Record) error
	FindRecordByDedupKey(ctx context.Context, kind commitment.Kind, dedupKey string) (*transaction.Record, error)
	ListRecords(ctx context.Context, kind commitment.Kind, opts transaction.ListOpts) ([]*transaction.Record, int64, error)

	// Account methods
	UpsertAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context) (*account.Account, error)
	AddShieldContract(ctx context.Context, kind commitment.Kind, address string) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

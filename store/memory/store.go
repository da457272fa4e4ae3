// Package memory provides an in-memory Store for tests and examples.
// It mirrors the document store's semantics (duplicate-hash rejection,
// conditional single-document disposal updates, partial-field patches)
// without requiring a running database.
package memory

import (
	"context"
	"sort"
	"sync"

	shield "github.com/veilproto/shield"
	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/store"
	"github.com/veilproto/shield/transaction"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type collectionKey struct {
	kind commitment.Kind
	hash string
}

type Store struct {
	mu sync.RWMutex

	// Commitment storage, one logical collection per kind.
	commitments map[collectionKey]*commitment.Commitment

	// Append-only transaction log per kind, insertion-ordered.
	records map[commitment.Kind][]*transaction.Record

	acct *account.Account

	closed bool
}

// New creates an empty in-memory store for one tenant namespace.
func New() *Store {
	return &Store{
		commitments: make(map[collectionKey]*commitment.Commitment),
		records:     make(map[commitment.Kind][]*transaction.Record),
	}
}

// ==================== Commitments ====================

func (s *Store) InsertCommitment(_ context.Context, c *commitment.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shield.ErrStoreClosed
	}

	key := collectionKey{kind: c.Kind, hash: c.Hash}
	if _, exists := s.commitments[key]; exists {
		return shield.ErrDuplicateCommitment
	}

	stored := *c
	s.commitments[key] = &stored
	return nil
}

func (s *Store) GetCommitment(_ context.Context, kind commitment.Kind, hash string) (*commitment.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, shield.ErrStoreClosed
	}

	c, ok := s.commitments[collectionKey{kind: kind, hash: hash}]
	if !ok {
		return nil, shield.ErrNotFound
	}

	out := *c
	return &out, nil
}

func (s *Store) MarkSpent(_ context.Context, kind commitment.Kind, hash string, flag commitment.DisposalFlag) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, shield.ErrStoreClosed
	}

	c, ok := s.commitments[collectionKey{kind: kind, hash: hash}]
	if !ok || c.Spent() {
		return 0, nil
	}

	switch flag {
	case commitment.DisposalTransferred:
		c.Transferred = true
	case commitment.DisposalBurned:
		c.Burned = true
	default:
		return 0, shield.ErrInvalidInput
	}
	c.Touch()

	return 1, nil
}

func (s *Store) ClearDisposal(_ context.Context, kind commitment.Kind, hash string, flag commitment.DisposalFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shield.ErrStoreClosed
	}

	c, ok := s.commitments[collectionKey{kind: kind, hash: hash}]
	if !ok {
		return nil
	}

	switch flag {
	case commitment.DisposalTransferred:
		c.Transferred = false
	case commitment.DisposalBurned:
		c.Burned = false
	}
	c.Touch()

	return nil
}

func (s *Store) PatchReconciliation(_ context.Context, kind commitment.Kind, hash string, patch commitment.ReconciliationPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, shield.ErrStoreClosed
	}

	c, ok := s.commitments[collectionKey{kind: kind, hash: hash}]
	if !ok {
		return 0, nil
	}

	if patch.Reconciles != nil {
		c.Reconciles = *patch.Reconciles
	}
	if patch.ExistsOnchain != nil {
		c.ExistsOnchain = *patch.ExistsOnchain
	}
	c.Touch()

	return 1, nil
}

func (s *Store) ListUnspent(_ context.Context, kind commitment.Kind, opts commitment.ListOpts) ([]*commitment.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, shield.ErrStoreClosed
	}

	result := make([]*commitment.Commitment, 0)
	for key, c := range s.commitments {
		if key.kind != kind || c.Spent() {
			continue
		}
		out := *c
		result = append(result, &out)
	}

	// Newest first, hash as tiebreaker for stable order.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Hash > result[j].Hash
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// ==================== Transaction log ====================

func (s *Store) InsertRecord(_ context.Context, r *transaction.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shield.ErrStoreClosed
	}

	// Mirrors the document store's unique sparse index on dedupKey.
	if r.DedupKey != "" {
		for _, existing := range s.records[r.Kind] {
			if existing.DedupKey == r.DedupKey {
				return shield.ErrDuplicateCommitment
			}
		}
	}

	stored := *r
	s.records[r.Kind] = append(s.records[r.Kind], &stored)
	return nil
}

func (s *Store) FindRecordByDedupKey(_ context.Context, kind commitment.Kind, dedupKey string) (*transaction.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, shield.ErrStoreClosed
	}

	if dedupKey != "" {
		for _, r := range s.records[kind] {
			if r.DedupKey == dedupKey {
				out := *r
				return &out, nil
			}
		}
	}
	return nil, shield.ErrNotFound
}

func (s *Store) ListRecords(_ context.Context, kind commitment.Kind, opts transaction.ListOpts) ([]*transaction.Record, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, 0, shield.ErrStoreClosed
	}

	all := s.records[kind]
	total := int64(len(all))

	// Newest first: reverse insertion order, which matches createdAt
	// descending since the log is append-only.
	result := make([]*transaction.Record, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out := *all[i]
		result = append(result, &out)
	}

	return paginate(result, opts.Offset, opts.Limit), total, nil
}

// ==================== Account ====================

func (s *Store) UpsertAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shield.ErrStoreClosed
	}

	stored := *a
	if s.acct != nil && s.acct.Name == a.Name {
		// Retried creation keeps the original identity and contract lists.
		stored.ID = s.acct.ID
		stored.CreatedAt = s.acct.CreatedAt
		stored.FTShieldContracts = s.acct.FTShieldContracts
		stored.NFTShieldContracts = s.acct.NFTShieldContracts
	}
	s.acct = &stored
	return nil
}

func (s *Store) GetAccount(_ context.Context) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, shield.ErrStoreClosed
	}
	if s.acct == nil {
		return nil, shield.ErrNotFound
	}

	out := *s.acct
	return &out, nil
}

func (s *Store) AddShieldContract(_ context.Context, kind commitment.Kind, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shield.ErrStoreClosed
	}
	if s.acct == nil {
		return shield.ErrNotFound
	}

	list := &s.acct.FTShieldContracts
	if kind == commitment.KindNFT {
		list = &s.acct.NFTShieldContracts
	}
	for _, existing := range *list {
		if existing == address {
			return nil
		}
	}
	*list = append(*list, address)
	s.acct.Touch()

	return nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return shield.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// paginate applies offset/limit to an already-sorted slice.
// A zero limit means no limit; negative values are treated as zero, the
// same way the document store ignores non-positive skip and limit.
func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

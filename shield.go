package shield

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/hook"
	"github.com/veilproto/shield/id"
	"github.com/veilproto/shield/store"
	"github.com/veilproto/shield/transaction"
	"github.com/veilproto/shield/types"
)

// Resolver produces an authenticated per-tenant store. The tenant registry
// implements it; tests substitute their own.
type Resolver interface {
	// Resolve returns the tenant's store, opening and caching a session on
	// first use. An empty credential requires an existing session.
	Resolve(ctx context.Context, name, credential string) (store.Store, error)

	// Evict closes and forgets the tenant's session, if any.
	Evict(name string)

	// Close drains every cached session.
	Close() error
}

// Provisioner creates the tenant's database user and scoped role. It runs
// with administrative rights, unlike everything else in the ledger.
type Provisioner interface {
	// EnsureUser creates the tenant's database user if it does not exist.
	EnsureUser(ctx context.Context, name, credential string) error

	// Provision creates the tenant's scoped role, binds the user to it, and
	// prepares the tenant namespace (collections and indexes).
	Provision(ctx context.Context, name string) error
}

// Ledger is the multi-tenant commitment ledger engine.
//
// Every operation is addressed to one tenant by name and runs against that
// tenant's own authenticated storage session, so a compromised caller can
// never read or write across tenants.
type Ledger struct {
	tenants     Resolver
	provisioner Provisioner
	hooks       *hook.Registry
	hist        *History
	logger      *slog.Logger
}

// New creates a Ledger on top of a tenant resolver.
func New(tenants Resolver, opts ...Option) *Ledger {
	l := &Ledger{
		tenants: tenants,
		hooks:   hook.NewRegistry(),
		hist:    NewHistory(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.hooks.WithLogger(logger)
	}
}

// WithProvisioner enables admin-side user and role provisioning during
// account creation. Without one, CreateAccount falls back to running the
// tenant store's own migration, which is only viable in development
// deployments where the tenant credential has full rights.
func WithProvisioner(p Provisioner) Option {
	return func(l *Ledger) {
		l.provisioner = p
	}
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(l *Ledger) {
		_ = l.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// Close releases every cached tenant session.
func (l *Ledger) Close() error {
	return l.tenants.Close()
}

// ============================================================================
// Accounts
// ============================================================================

// CreateAccount provisions a new tenant and stores its account document
// inside the tenant's own namespace.
//
// The sequence is: create the database user, create the scoped role and
// namespace (both skipped without a provisioner), open the tenant session,
// then upsert the account document. CreateAccount is safe to retry; every
// step tolerates its own earlier success.
func (l *Ledger) CreateAccount(ctx context.Context, acct *account.Account) (*account.Account, error) {
	if acct == nil {
		return nil, fmt.Errorf("%w: nil account", ErrInvalidInput)
	}
	if err := acct.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if l.provisioner != nil {
		if err := l.provisioner.EnsureUser(ctx, acct.Name, acct.Credential); err != nil {
			return nil, err
		}
		if err := l.provisioner.Provision(ctx, acct.Name); err != nil {
			return nil, err
		}
	}

	st, err := l.tenants.Resolve(ctx, acct.Name, acct.Credential)
	if err != nil {
		return nil, err
	}

	// Without admin-side provisioning the tenant credential must be able to
	// build its own indexes.
	if l.provisioner == nil {
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	if acct.ID.IsNil() {
		acct.ID = id.NewAccountID()
	}
	if acct.CreatedAt.IsZero() {
		acct.Entity = types.NewEntity()
	}
	if err := st.UpsertAccount(ctx, acct); err != nil {
		return nil, err
	}

	l.hooks.EmitAccountCreated(ctx, acct)
	l.logger.Info("account created", "tenant", acct.Name, "account_id", acct.ID)

	return acct, nil
}

// Login authenticates the tenant and caches its storage session. Subsequent
// operations may omit the credential.
func (l *Ledger) Login(ctx context.Context, name, credential string) error {
	if credential == "" {
		return fmt.Errorf("%w: missing credential", ErrInvalidInput)
	}
	_, err := l.tenants.Resolve(ctx, name, credential)
	return err
}

// Logout drops the tenant's cached session.
func (l *Ledger) Logout(name string) {
	l.tenants.Evict(name)
}

// GetAccount returns the tenant's account document.
func (l *Ledger) GetAccount(ctx context.Context, tenant string) (*account.Account, error) {
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return nil, err
	}
	return st.GetAccount(ctx)
}

// RegisterShieldContract adds a shield-contract address to the tenant's
// account for the given token kind. Adding the same address twice is a
// no-op.
func (l *Ledger) RegisterShieldContract(ctx context.Context, tenant string, kind commitment.Kind, address string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if address == "" {
		return fmt.Errorf("%w: missing contract address", ErrInvalidInput)
	}

	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return err
	}
	return st.AddShieldContract(ctx, kind, address)
}

// ============================================================================
// Commitment lifecycle
// ============================================================================

// MintResult identifies the commitment created by a Mint.
type MintResult struct {
	Hash  string `json:"commitmentHash"`
	Index int64  `json:"commitmentIndex"`
}

// Mint records a commitment the tenant created on-chain and writes the
// matching "minted" record to the transaction log. The commitment hash,
// leaf index, value and salt are all computed by the caller; the ledger
// stores them verbatim.
func (l *Ledger) Mint(ctx context.Context, tenant string, c *commitment.Commitment) (*MintResult, error) {
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return nil, err
	}

	if c == nil {
		return nil, fmt.Errorf("%w: nil commitment", ErrInvalidInput)
	}
	c.SetOrigin(commitment.OriginMinted)
	c.CounterpartyName = ""
	if c.CreatedAt.IsZero() {
		c.Entity = types.NewEntity()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := st.InsertCommitment(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCommitment) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCommitment, c.Hash)
		}
		return nil, err
	}

	rec := l.creationRecord(transaction.TypeMinted, c)
	if err := st.InsertRecord(ctx, rec); err != nil {
		return nil, err
	}

	l.hooks.EmitMinted(ctx, tenant, c)
	l.logger.Debug("commitment minted",
		"tenant", tenant, "kind", c.Kind, "hash", c.Hash, "index", c.Index)

	return &MintResult{Hash: c.Hash, Index: c.Index}, nil
}

// Receive records a commitment delivered by a counterparty. Duplicate
// deliveries of the same commitment are acknowledged without effect, so the
// sender may retry its notification freely.
func (l *Ledger) Receive(ctx context.Context, tenant string, c *commitment.Commitment, counterparty string) error {
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return err
	}

	if c == nil {
		return fmt.Errorf("%w: nil commitment", ErrInvalidInput)
	}
	if counterparty == "" {
		return fmt.Errorf("%w: missing counterparty name", ErrInvalidInput)
	}
	c.SetOrigin(commitment.OriginReceived)
	c.CounterpartyName = counterparty
	if c.CreatedAt.IsZero() {
		c.Entity = types.NewEntity()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := st.InsertCommitment(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCommitment) {
			l.logger.Debug("duplicate delivery ignored",
				"tenant", tenant, "kind", c.Kind, "hash", c.Hash)
			return nil
		}
		return err
	}

	rec := l.creationRecord(transaction.TypeReceived, c)
	rec.CounterpartyName = counterparty
	if err := st.InsertRecord(ctx, rec); err != nil {
		return err
	}

	l.hooks.EmitReceived(ctx, tenant, c)
	l.logger.Debug("commitment received",
		"tenant", tenant, "kind", c.Kind, "hash", c.Hash, "from", counterparty)

	return nil
}

// creationRecord builds the transaction-log entry for a commitment entering
// the ledger.
func (l *Ledger) creationRecord(t transaction.Type, c *commitment.Commitment) *transaction.Record {
	return &transaction.Record{
		Entity:   types.NewEntity(),
		ID:       id.NewTransactionID(),
		Type:     t,
		Kind:     c.Kind,
		Outputs:  []transaction.Output{{Hash: c.Hash, Value: c.Value}},
		TokenID:  c.TokenID,
		TokenURI: c.TokenURI,
	}
}

// ============================================================================
// Spending
// ============================================================================

// SpendRequest describes one transfer or burn. Consumed names the input
// commitments; Transferred and Change describe the output commitments whose
// hashes the caller has already computed. The ledger enforces single-spend
// on the inputs but deliberately does not recompute value conservation;
// inputs and outputs are logged verbatim for external audit.
type SpendRequest struct {
	Kind     commitment.Kind
	Disposal commitment.DisposalFlag

	// Consumed lists the input commitment hashes. NFTs consume exactly one.
	Consumed []string

	// Transferred is the output delivered to the counterparty. Nil for
	// burns. Only its hash, value and token identity are read; the
	// recipient inserts the commitment through its own receive path.
	Transferred *commitment.Commitment

	// Change is the output returned to the spender, inserted into the
	// spender's own ledger. Nil when the inputs are consumed exactly.
	Change *commitment.Commitment

	// CounterpartyName names the receiving tenant. Required for transfers.
	CounterpartyName string
}

// dedupKey derives the caller-deterministic identity of the logical spend:
// a digest over the disposal, the consumed set (order-insensitive) and the
// primary output hash. A retried call reproduces the same key; no other
// spend in the tenant's log can, not even one whose output hash later
// appears as a consumed input.
func (r *SpendRequest) dedupKey() string {
	consumed := append([]string(nil), r.Consumed...)
	sort.Strings(consumed)

	h := sha256.New()
	h.Write([]byte(r.Disposal))
	for _, c := range consumed {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	h.Write([]byte{0})
	switch {
	case r.Transferred != nil:
		h.Write([]byte(r.Transferred.Hash))
	case r.Change != nil:
		h.Write([]byte(r.Change.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (r *SpendRequest) validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("kind %q", r.Kind)
	}
	if !r.Disposal.Valid() {
		return fmt.Errorf("disposal %q", r.Disposal)
	}
	if len(r.Consumed) == 0 {
		return fmt.Errorf("no consumed commitments")
	}
	seen := make(map[string]struct{}, len(r.Consumed))
	for _, h := range r.Consumed {
		if h == "" {
			return fmt.Errorf("empty consumed hash")
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("duplicate consumed hash %s", h)
		}
		seen[h] = struct{}{}
	}

	switch r.Disposal {
	case commitment.DisposalTransferred:
		if r.Transferred == nil || r.Transferred.Hash == "" {
			return fmt.Errorf("transfer requires a transferred output")
		}
		if r.CounterpartyName == "" {
			return fmt.Errorf("transfer requires a counterparty name")
		}
	case commitment.DisposalBurned:
		if r.Transferred != nil {
			return fmt.Errorf("burn cannot carry a transferred output")
		}
	}

	if r.Kind == commitment.KindNFT {
		if len(r.Consumed) != 1 {
			return fmt.Errorf("nft spend consumes exactly one commitment")
		}
		if r.Change != nil {
			return fmt.Errorf("nft spend cannot produce change")
		}
	}
	if r.Change != nil && r.Change.Hash == "" {
		return fmt.Errorf("change output missing hash")
	}
	return nil
}

// SpendResult is the outcome of a TransferOrBurn.
type SpendResult struct {
	// Record is the transaction-log entry for the spend.
	Record *transaction.Record

	// Replayed is true when the call was recognized as a retry of a spend
	// that already completed; Record then holds the original entry.
	Replayed bool
}

// TransferOrBurn spends the consumed commitments in a single logical
// operation: each input's disposal flag is set by a conditional update that
// matches only while the flag is absent, so of any number of concurrent
// spenders exactly one wins per input.
//
// When an input turns out to be already spent, the transaction log is
// consulted under the request's dedup key: if a completed record consumed
// the identical input set, the call is a retry of that spend and succeeds
// with Replayed set. Otherwise any inputs marked by this call are unmarked
// again and ErrAlreadySpent is returned, leaving no partial application.
func (l *Ledger) TransferOrBurn(ctx context.Context, tenant string, req *SpendRequest) (*SpendResult, error) {
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, fmt.Errorf("%w: nil spend request", ErrInvalidInput)
	}
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Load the inputs first so the record carries their values and, for
	// NFTs, the token identity travels to the outputs.
	inputs := make([]transaction.Input, 0, len(req.Consumed))
	var tokenID, tokenURI string
	for _, h := range req.Consumed {
		c, err := st.GetCommitment(ctx, req.Kind, h)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return l.resolveSpendConflict(ctx, st, tenant, req, nil, h)
			}
			return nil, err
		}
		inputs = append(inputs, transaction.Input{Hash: h, Value: c.Value})
		tokenID, tokenURI = c.TokenID, c.TokenURI
	}

	// Mark every input spent. Matching zero documents means the input was
	// spent in the meantime (or by an earlier attempt of this same call).
	marked := make([]string, 0, len(req.Consumed))
	for _, h := range req.Consumed {
		matched, err := st.MarkSpent(ctx, req.Kind, h, req.Disposal)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			return l.resolveSpendConflict(ctx, st, tenant, req, marked, h)
		}
		marked = append(marked, h)
	}

	// Insert the change output. A duplicate means a previous attempt of
	// this call crashed after inserting it; the hash is caller-derived, so
	// the existing document is the same commitment.
	if req.Change != nil {
		ch := req.Change
		ch.Kind = req.Kind
		ch.SetOrigin(commitment.OriginChange)
		ch.CounterpartyName = ""
		if ch.CreatedAt.IsZero() {
			ch.Entity = types.NewEntity()
		}
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("%w: change output: %v", ErrInvalidInput, err)
		}
		if err := st.InsertCommitment(ctx, ch); err != nil && !errors.Is(err, ErrDuplicateCommitment) {
			return nil, err
		}
	}

	rec := &transaction.Record{
		Entity:           types.NewEntity(),
		ID:               id.NewTransactionID(),
		Type:             transaction.ForDisposal(req.Disposal),
		Kind:             req.Kind,
		Inputs:           inputs,
		CounterpartyName: req.CounterpartyName,
		DedupKey:         req.dedupKey(),
	}
	if req.Kind == commitment.KindNFT {
		rec.TokenID, rec.TokenURI = tokenID, tokenURI
	}
	if req.Transferred != nil {
		rec.Outputs = append(rec.Outputs, transaction.Output{
			Hash:      req.Transferred.Hash,
			Value:     req.Transferred.Value,
			Recipient: req.CounterpartyName,
		})
	}
	if req.Change != nil {
		rec.Outputs = append(rec.Outputs, transaction.Output{
			Hash:   req.Change.Hash,
			Value:  req.Change.Value,
			Change: true,
		})
	}

	if err := st.InsertRecord(ctx, rec); err != nil {
		// A duplicate dedup key means a concurrent attempt of this same
		// logical spend won the record insert; return its entry.
		if errors.Is(err, ErrDuplicateCommitment) {
			prior, ferr := st.FindRecordByDedupKey(ctx, req.Kind, rec.DedupKey)
			if ferr == nil && prior.ConsumesSameSet(req.Consumed) {
				return &SpendResult{Record: prior, Replayed: true}, nil
			}
		}
		return nil, err
	}

	l.hooks.EmitSpent(ctx, tenant, rec)
	l.logger.Debug("commitments spent",
		"tenant", tenant, "kind", req.Kind, "type", rec.Type,
		"inputs", len(rec.Inputs), "txn_id", rec.ID)

	return &SpendResult{Record: rec}, nil
}

// resolveSpendConflict decides what a zero-match disposal update means. A
// completed record under the same dedup key consuming the identical input
// set identifies this call as a retry of a spend that already went through.
// Anything else is a genuine conflict: the inputs this call did mark are
// unmarked again so the failed spend leaves no trace.
func (l *Ledger) resolveSpendConflict(ctx context.Context, st store.Store, tenant string, req *SpendRequest, marked []string, failing string) (*SpendResult, error) {
	rec, err := st.FindRecordByDedupKey(ctx, req.Kind, req.dedupKey())
	if err == nil && rec.ConsumesSameSet(req.Consumed) {
		l.logger.Debug("spend replay recognized",
			"tenant", tenant, "kind", req.Kind, "txn_id", rec.ID)
		return &SpendResult{Record: rec, Replayed: true}, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	for _, h := range marked {
		if cerr := st.ClearDisposal(ctx, req.Kind, h, req.Disposal); cerr != nil {
			l.logger.Warn("failed to unmark input after conflicting spend",
				"tenant", tenant, "kind", req.Kind, "hash", h, "error", cerr)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrAlreadySpent, failing)
}

// ============================================================================
// Reconciliation and queries
// ============================================================================

// Reconcile applies the result of an external chain check to a commitment.
// Only the flags the patch carries are written; an empty patch is a no-op.
func (l *Ledger) Reconcile(ctx context.Context, tenant string, kind commitment.Kind, hash string, patch commitment.ReconciliationPatch) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if hash == "" {
		return fmt.Errorf("%w: missing commitment hash", ErrInvalidInput)
	}
	if patch.Empty() {
		return nil
	}

	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return err
	}

	matched, err := st.PatchReconciliation(ctx, kind, hash, patch)
	if err != nil {
		return err
	}
	if matched == 0 {
		return fmt.Errorf("%w: commitment %s", ErrNotFound, hash)
	}

	l.hooks.EmitReconciled(ctx, tenant, kind, hash, patch)
	return nil
}

// GetCommitment returns one commitment by hash.
func (l *Ledger) GetCommitment(ctx context.Context, tenant string, kind commitment.Kind, hash string) (*commitment.Commitment, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return nil, err
	}
	return st.GetCommitment(ctx, kind, hash)
}

// ListUnspent returns the tenant's spendable commitments, newest first.
func (l *Ledger) ListUnspent(ctx context.Context, tenant string, kind commitment.Kind, opts commitment.ListOpts) ([]*commitment.Commitment, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", ErrInvalidInput)
	}
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return nil, err
	}
	return st.ListUnspent(ctx, kind, opts)
}

// ListTransactions returns one page of the tenant's transaction log plus
// the total record count. Pages are one-based and ordered newest first.
func (l *Ledger) ListTransactions(ctx context.Context, tenant string, kind commitment.Kind, page transaction.Page) ([]*transaction.Record, int64, error) {
	st, err := l.tenants.Resolve(ctx, tenant, "")
	if err != nil {
		return nil, 0, err
	}
	return l.hist.List(ctx, st, kind, page)
}

package shield_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilproto/shield"
	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/store"
	"github.com/veilproto/shield/store/memory"
	"github.com/veilproto/shield/tenant"
	"github.com/veilproto/shield/transaction"
)

const testCredential = "secret"

func newTestLedger(t *testing.T) *shield.Ledger {
	t.Helper()

	reg := tenant.NewRegistry(func(_ context.Context, name, credential string) (store.Store, error) {
		if credential != testCredential {
			return nil, fmt.Errorf("%w: user %q", shield.ErrAuthentication, name)
		}
		return memory.New(), nil
	})

	l := shield.New(reg,
		shield.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func newTestAccount(t *testing.T, l *shield.Ledger, name string) {
	t.Helper()

	_, err := l.CreateAccount(context.Background(), &account.Account{
		Name:       name,
		Credential: testCredential,
		PublicKey:  "pk-" + name,
	})
	require.NoError(t, err)
}

func ftCommitment(hash string, index int64, value uint64) *commitment.Commitment {
	return &commitment.Commitment{
		Hash:           hash,
		Index:          index,
		Kind:           commitment.KindFT,
		Value:          shield.NewValue(value),
		Salt:           "salt-" + hash,
		OwnerPublicKey: "owner",
	}
}

func nftCommitment(hash string, index int64, tokenID string) *commitment.Commitment {
	return &commitment.Commitment{
		Hash:           hash,
		Index:          index,
		Kind:           commitment.KindNFT,
		TokenID:        tokenID,
		TokenURI:       "ipfs://" + tokenID,
		Salt:           "salt-" + hash,
		OwnerPublicKey: "owner",
	}
}

func boolPtr(b bool) *bool { return &b }

func TestCreateAccount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	newTestAccount(t, l, "alice")

	acct, err := l.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Name)
	assert.False(t, acct.ID.IsNil())
	assert.False(t, acct.CreatedAt.IsZero())

	_, err = l.CreateAccount(ctx, &account.Account{Name: "eve"})
	assert.ErrorIs(t, err, shield.ErrInvalidInput)
}

func TestUnknownTenantRequiresLogin(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GetAccount(ctx, "mallory")
	assert.ErrorIs(t, err, shield.ErrTenantUnknown)
	assert.True(t, shield.IsAuthError(err))

	err = l.Login(ctx, "mallory", "wrong")
	assert.ErrorIs(t, err, shield.ErrAuthentication)
}

func TestLogoutDropsSession(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	newTestAccount(t, l, "alice")
	l.Logout("alice")

	_, err := l.GetAccount(ctx, "alice")
	assert.ErrorIs(t, err, shield.ErrTenantUnknown)
}

func TestMint(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	res, err := l.Mint(ctx, "alice", ftCommitment("c1", 7, 5))
	require.NoError(t, err)
	assert.Equal(t, "c1", res.Hash)
	assert.Equal(t, int64(7), res.Index)

	// Same hash again is a hard conflict, unlike receive.
	_, err = l.Mint(ctx, "alice", ftCommitment("c1", 7, 5))
	assert.ErrorIs(t, err, shield.ErrDuplicateCommitment)
	assert.True(t, shield.IsConflict(err))

	unspent, err := l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	require.Len(t, unspent, 1)
	assert.Equal(t, commitment.OriginMinted, unspent[0].Origin())

	recs, total, err := l.ListTransactions(ctx, "alice", commitment.KindFT, transaction.Page{PageNo: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, recs, 1)
	assert.Equal(t, transaction.TypeMinted, recs[0].Type)
	require.Len(t, recs[0].Outputs, 1)
	assert.Equal(t, "c1", recs[0].Outputs[0].Hash)
}

func TestReceiveIsIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "bob")

	c := ftCommitment("c1", 3, 8)
	require.NoError(t, l.Receive(ctx, "bob", c, "alice"))

	// A redelivery is acknowledged without a second commitment or record.
	require.NoError(t, l.Receive(ctx, "bob", ftCommitment("c1", 3, 8), "alice"))

	unspent, err := l.ListUnspent(ctx, "bob", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	require.Len(t, unspent, 1)
	assert.Equal(t, commitment.OriginReceived, unspent[0].Origin())
	assert.Equal(t, "alice", unspent[0].CounterpartyName)

	recs, total, err := l.ListTransactions(ctx, "bob", commitment.KindFT, transaction.Page{PageNo: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, recs, 1)
	assert.Equal(t, transaction.TypeReceived, recs[0].Type)
	assert.Equal(t, "alice", recs[0].CounterpartyName)
}

func TestTransferWithChange(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")
	newTestAccount(t, l, "bob")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	out := ftCommitment("out1", 1, 3)
	change := ftCommitment("chg1", 2, 2)

	res, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:             commitment.KindFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"in1"},
		Transferred:      out,
		Change:           change,
		CounterpartyName: "bob",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	rec := res.Record
	assert.Equal(t, transaction.TypeTransferred, rec.Type)
	assert.Equal(t, "bob", rec.CounterpartyName)
	require.Len(t, rec.Inputs, 1)
	require.Len(t, rec.Outputs, 2)
	assert.Equal(t, "bob", rec.Outputs[0].Recipient)
	assert.True(t, rec.Outputs[1].Change)
	assert.True(t, rec.InputValue().Equal(rec.OutputValue()))

	// The input is gone from alice's spendable set; only change remains.
	unspent, err := l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	require.Len(t, unspent, 1)
	assert.Equal(t, "chg1", unspent[0].Hash)
	assert.Equal(t, commitment.OriginChange, unspent[0].Origin())
	assert.Equal(t, uint64(2), unspent[0].Value.Uint64())

	// Delivery to bob runs through bob's own receive path.
	require.NoError(t, l.Receive(ctx, "bob", out, "alice"))
	bobUnspent, err := l.ListUnspent(ctx, "bob", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	require.Len(t, bobUnspent, 1)
	assert.Equal(t, uint64(3), bobUnspent[0].Value.Uint64())
}

func TestBurn(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	res, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"in1"},
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.TypeBurned, res.Record.Type)
	assert.Empty(t, res.Record.Outputs)

	unspent, err := l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, unspent)
}

func TestSpendUnknownCommitment(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"ghost"},
	})
	assert.ErrorIs(t, err, shield.ErrAlreadySpent)
}

func TestSpendAfterSpendConflicts(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:             commitment.KindFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"in1"},
		Transferred:      ftCommitment("out1", 1, 5),
		CounterpartyName: "bob",
	})
	require.NoError(t, err)

	// A burn of the same input is a different logical spend, so the dedup
	// lookup misses and the conflict surfaces.
	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"in1"},
	})
	assert.ErrorIs(t, err, shield.ErrAlreadySpent)
}

func TestSpendReplayReturnsOriginalRecord(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	req := &shield.SpendRequest{
		Kind:             commitment.KindFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"in1"},
		Transferred:      ftCommitment("out1", 1, 3),
		Change:           ftCommitment("chg1", 2, 2),
		CounterpartyName: "bob",
	}

	first, err := l.TransferOrBurn(ctx, "alice", req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	// The identical call again is recognized as a retry of the completed
	// spend, not a double spend.
	second, err := l.TransferOrBurn(ctx, "alice", req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	// Still only one spend record in the log.
	_, total, err := l.ListTransactions(ctx, "alice", commitment.KindFT, transaction.Page{PageNo: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total) // mint + transfer
}

func TestConcurrentDoubleSpendHasOneWinner(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	const spenders = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)

	for i := 0; i < spenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			// Each spender produces a distinct output, so these are
			// genuinely different logical spends of the same input.
			_, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
				Kind:             commitment.KindFT,
				Disposal:         commitment.DisposalTransferred,
				Consumed:         []string{"in1"},
				Transferred:      ftCommitment(fmt.Sprintf("out%d", n), int64(n+1), 5),
				CounterpartyName: "bob",
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case shield.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, spenders-1, conflicts)
}

func TestFailedSpendLeavesNoPartialApplication(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("a", 0, 2))
	require.NoError(t, err)
	_, err = l.Mint(ctx, "alice", ftCommitment("b", 1, 3))
	require.NoError(t, err)

	// Burn b so the multi-input transfer below fails midway.
	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"b"},
	})
	require.NoError(t, err)

	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:             commitment.KindFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"a", "b"},
		Transferred:      ftCommitment("out1", 2, 5),
		CounterpartyName: "bob",
	})
	require.ErrorIs(t, err, shield.ErrAlreadySpent)

	// a was marked and must have been unmarked again.
	unspent, err := l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	require.Len(t, unspent, 1)
	assert.Equal(t, "a", unspent[0].Hash)

	// And it is still spendable.
	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"a"},
	})
	require.NoError(t, err)
}

func TestListUnspentRejectsNegativeOptions(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("c1", 0, 5))
	require.NoError(t, err)

	_, err = l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{Offset: -1})
	assert.ErrorIs(t, err, shield.ErrInvalidInput)

	_, err = l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{Limit: -1})
	assert.ErrorIs(t, err, shield.ErrInvalidInput)
}

func TestPartialBurnThenSpendOfChange(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	// Partial burn: in1 consumed, change returned to alice.
	first, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"in1"},
		Change:   ftCommitment("chg1", 1, 2),
	})
	require.NoError(t, err)

	// Burning the change afterwards is a distinct logical spend and must
	// go through, with its own record.
	second, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"chg1"},
	})
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assert.NotEqual(t, first.Record.ID, second.Record.ID)

	unspent, err := l.ListUnspent(ctx, "alice", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, unspent)

	// mint + two burns, all on the log.
	_, total, err := l.ListTransactions(ctx, "alice", commitment.KindFT, transaction.Page{PageNo: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	// Retrying either burn still resolves as its own replay.
	replay, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"chg1"},
	})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, second.Record.ID, replay.Record.ID)
}

func TestUnbalancedSpendIsRecordedVerbatim(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("in1", 0, 5))
	require.NoError(t, err)

	// The ledger does not recompute conservation; the imbalance stays
	// visible in the log for external audit.
	res, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:             commitment.KindFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"in1"},
		Transferred:      ftCommitment("out1", 1, 4),
		CounterpartyName: "bob",
	})
	require.NoError(t, err)
	assert.False(t, res.Record.InputValue().Equal(res.Record.OutputValue()))
}

func TestNFTTransfer(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", nftCommitment("n1", 0, "token-42"))
	require.NoError(t, err)

	res, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:             commitment.KindNFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"n1"},
		Transferred:      nftCommitment("n2", 1, "token-42"),
		CounterpartyName: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "token-42", res.Record.TokenID)
	assert.Equal(t, "ipfs://token-42", res.Record.TokenURI)

	// NFTs have no divisible value, so change is structurally impossible.
	_, err = l.Mint(ctx, "alice", nftCommitment("n3", 2, "token-43"))
	require.NoError(t, err)
	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:             commitment.KindNFT,
		Disposal:         commitment.DisposalTransferred,
		Consumed:         []string{"n3"},
		Transferred:      nftCommitment("n4", 3, "token-43"),
		Change:           nftCommitment("n5", 4, "token-43"),
		CounterpartyName: "bob",
	})
	assert.ErrorIs(t, err, shield.ErrInvalidInput)

	// And an NFT spend consumes exactly one commitment.
	_, err = l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
		Kind:     commitment.KindNFT,
		Disposal: commitment.DisposalBurned,
		Consumed: []string{"n3", "n1"},
	})
	assert.ErrorIs(t, err, shield.ErrInvalidInput)
}

func TestSpendRequestValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	tests := []struct {
		name string
		req  *shield.SpendRequest
	}{
		{"nil request", nil},
		{"bad kind", &shield.SpendRequest{Kind: "bogus", Disposal: commitment.DisposalBurned, Consumed: []string{"a"}}},
		{"bad disposal", &shield.SpendRequest{Kind: commitment.KindFT, Disposal: "isLost", Consumed: []string{"a"}}},
		{"no inputs", &shield.SpendRequest{Kind: commitment.KindFT, Disposal: commitment.DisposalBurned}},
		{"duplicate inputs", &shield.SpendRequest{Kind: commitment.KindFT, Disposal: commitment.DisposalBurned, Consumed: []string{"a", "a"}}},
		{"transfer without output", &shield.SpendRequest{Kind: commitment.KindFT, Disposal: commitment.DisposalTransferred, Consumed: []string{"a"}, CounterpartyName: "bob"}},
		{"transfer without counterparty", &shield.SpendRequest{Kind: commitment.KindFT, Disposal: commitment.DisposalTransferred, Consumed: []string{"a"}, Transferred: ftCommitment("o", 1, 1)}},
		{"burn with output", &shield.SpendRequest{Kind: commitment.KindFT, Disposal: commitment.DisposalBurned, Consumed: []string{"a"}, Transferred: ftCommitment("o", 1, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.TransferOrBurn(ctx, "alice", tt.req)
			assert.ErrorIs(t, err, shield.ErrInvalidInput)
		})
	}
}

func TestReconcile(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	_, err := l.Mint(ctx, "alice", ftCommitment("c1", 0, 5))
	require.NoError(t, err)

	err = l.Reconcile(ctx, "alice", commitment.KindFT, "c1",
		commitment.ReconciliationPatch{Reconciles: boolPtr(true)})
	require.NoError(t, err)

	c, err := l.GetCommitment(ctx, "alice", commitment.KindFT, "c1")
	require.NoError(t, err)
	assert.True(t, c.Reconciles)
	assert.False(t, c.ExistsOnchain)

	// The second flag lands without disturbing the first.
	err = l.Reconcile(ctx, "alice", commitment.KindFT, "c1",
		commitment.ReconciliationPatch{ExistsOnchain: boolPtr(true)})
	require.NoError(t, err)

	c, err = l.GetCommitment(ctx, "alice", commitment.KindFT, "c1")
	require.NoError(t, err)
	assert.True(t, c.Reconciles)
	assert.True(t, c.ExistsOnchain)

	// Empty patch is a no-op, unknown hash is not found.
	require.NoError(t, l.Reconcile(ctx, "alice", commitment.KindFT, "c1", commitment.ReconciliationPatch{}))
	err = l.Reconcile(ctx, "alice", commitment.KindFT, "ghost",
		commitment.ReconciliationPatch{Reconciles: boolPtr(true)})
	assert.ErrorIs(t, err, shield.ErrNotFound)
	assert.True(t, shield.IsNotFound(err))
}

func TestRegisterShieldContract(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	require.NoError(t, l.RegisterShieldContract(ctx, "alice", commitment.KindFT, "0xabc"))
	require.NoError(t, l.RegisterShieldContract(ctx, "alice", commitment.KindFT, "0xabc"))
	require.NoError(t, l.RegisterShieldContract(ctx, "alice", commitment.KindNFT, "0xdef"))

	acct, err := l.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, acct.FTShieldContracts)
	assert.Equal(t, []string{"0xdef"}, acct.NFTShieldContracts)

	err = l.RegisterShieldContract(ctx, "alice", commitment.KindFT, "")
	assert.ErrorIs(t, err, shield.ErrInvalidInput)
}

func TestListTransactionsPagination(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	for i := 0; i < 5; i++ {
		_, err := l.Mint(ctx, "alice", ftCommitment(fmt.Sprintf("c%d", i), int64(i), 1))
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	var pages [][]*transaction.Record
	for pageNo := 1; pageNo <= 3; pageNo++ {
		recs, total, err := l.ListTransactions(ctx, "alice", commitment.KindFT, transaction.Page{PageNo: pageNo, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, r := range recs {
			assert.False(t, seen[r.ID.String()], "record %s appeared on two pages", r.ID)
			seen[r.ID.String()] = true
		}
		pages = append(pages, recs)
	}

	assert.Len(t, pages[0], 2)
	assert.Len(t, pages[1], 2)
	assert.Len(t, pages[2], 1)
	assert.Len(t, seen, 5)

	// Newest first: page one starts with the last mint.
	assert.Equal(t, "c4", pages[0][0].Outputs[0].Hash)
	assert.Equal(t, "c0", pages[2][0].Outputs[0].Hash)

	// Past the end is empty, not an error.
	recs, total, err := l.ListTransactions(ctx, "alice", commitment.KindFT, transaction.Page{PageNo: 9, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, recs)
}

func TestListTransactionsInvalidPagination(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")

	for _, page := range []transaction.Page{
		{PageNo: 0, Limit: 10},
		{PageNo: -1, Limit: 10},
		{PageNo: 1, Limit: 0},
		{PageNo: 1, Limit: -5},
	} {
		_, _, err := l.ListTransactions(ctx, "alice", commitment.KindFT, page)
		assert.ErrorIs(t, err, shield.ErrInvalidPagination, "page %+v", page)
	}

	_, _, err := l.ListTransactions(ctx, "alice", "bogus", transaction.Page{PageNo: 1, Limit: 10})
	assert.ErrorIs(t, err, shield.ErrInvalidInput)
}

func TestTenantIsolation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	newTestAccount(t, l, "alice")
	newTestAccount(t, l, "bob")

	_, err := l.Mint(ctx, "alice", ftCommitment("c1", 0, 5))
	require.NoError(t, err)

	// Bob's namespace does not see alice's commitment.
	_, err = l.GetCommitment(ctx, "bob", commitment.KindFT, "c1")
	assert.ErrorIs(t, err, shield.ErrNotFound)

	unspent, err := l.ListUnspent(ctx, "bob", commitment.KindFT, commitment.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, unspent)
}

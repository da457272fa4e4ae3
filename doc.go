// Package shield provides a multi-tenant commitment ledger for shielded
// token protocols.
//
// Shield is designed as a library, not a service. It tracks the off-chain
// side of privacy-preserving tokens: cryptographic commitments are minted,
// received, transferred and burned exactly once, with an append-only
// transaction log alongside. All cryptography (hashes, salts, Merkle
// proofs) happens in the caller; the ledger stores what it is given and
// enforces single-spend.
//
// # Quick Start
//
// Create a ledger on top of a tenant registry:
//
//	import (
//	    "github.com/veilproto/shield"
//	    "github.com/veilproto/shield/store"
//	    "github.com/veilproto/shield/store/mongo"
//	    "github.com/veilproto/shield/tenant"
//	)
//
//	cfg := mongo.DefaultConfig()
//
//	registry := tenant.NewRegistry(func(ctx context.Context, name, credential string) (store.Store, error) {
//	    return mongo.Open(ctx, cfg, name, credential)
//	})
//
//	prov, err := mongo.NewProvisioner(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := shield.New(registry, shield.WithProvisioner(prov))
//	defer l.Close()
//
// # Core Concepts
//
// Accounts are tenants. Each account owns an isolated storage namespace
// and authenticates to it with its own credential:
//
//	acct, err := l.CreateAccount(ctx, &account.Account{
//	    Name:       "alice",
//	    Credential: secret,
//	    PublicKey:  pubKey,
//	})
//
// Commitments enter a tenant's ledger by minting or by delivery from a
// counterparty:
//
//	res, err := l.Mint(ctx, "alice", c)
//	err = l.Receive(ctx, "bob", c, "alice")
//
// Spending consumes commitments and produces outputs in one operation.
// Each input can be spent exactly once, concurrent spenders race on a
// conditional update and exactly one wins:
//
//	res, err := l.TransferOrBurn(ctx, "alice", &shield.SpendRequest{
//	    Kind:             commitment.KindFT,
//	    Disposal:         commitment.DisposalTransferred,
//	    Consumed:         []string{inputHash},
//	    Transferred:      out,
//	    Change:           change,
//	    CounterpartyName: "bob",
//	})
//
// The transaction log is queryable page by page, newest first:
//
//	recs, total, err := l.ListTransactions(ctx, "alice", commitment.KindFT, transaction.Page{PageNo: 1, Limit: 20})
package shield

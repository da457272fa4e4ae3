// Package mongo implements the per-tenant Store on MongoDB.
//
// Each tenant owns one database, authenticated with the tenant's own
// credential, holding one commitment and one transaction collection per
// token kind plus a single-document account collection. Disposal
// transitions are single conditional updates; the matched count is the
// double-spend verdict.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	shield "github.com/veilproto/shield"
	"github.com/veilproto/shield/account"
	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/store"
	"github.com/veilproto/shield/transaction"
)

// Collection name constants, one commitment/transaction pair per token kind.
const (
	colCommitmentsFT  = "commitments_ft"
	colCommitmentsNFT = "commitments_nft"
	colRecordsFT      = "transactions_ft"
	colRecordsNFT     = "transactions_nft"
	colAccount        = "account"
)

// tenantCollections lists every collection in a tenant namespace; the
// provisioned role is scoped to exactly this set.
var tenantCollections = []string{
	colCommitmentsFT, colCommitmentsNFT, colRecordsFT, colRecordsNFT, colAccount,
}

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store for one tenant database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open dials MongoDB authenticated as the tenant and returns its store.
// The credential must belong to the tenant's database user; authentication
// failures surface as shield.ErrAuthentication, unreachable servers as
// shield.ErrStorageUnavailable.
func Open(ctx context.Context, cfg Config, name, credential string) (*Store, error) {
	dbName := cfg.databaseName(name)

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetAuth(options.Credential{
			AuthSource: dbName,
			Username:   name,
			Password:   credential,
		})
	if cfg.ConnectTimeout > 0 {
		clientOpts = clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", shield.ErrStorageUnavailable, dbName, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck // best-effort teardown of a failed dial
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: tenant %q", shield.ErrAuthentication, name)
		}
		return nil, fmt.Errorf("%w: ping %s: %v", shield.ErrStorageUnavailable, dbName, err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// NewWithClient wraps an existing authenticated client. Used by the
// provisioner's admin connection and by integration tests.
func NewWithClient(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Database returns the tenant database name this store is bound to.
func (s *Store) Database() string { return s.db.Name() }

// ==================== Commitments ====================

func (s *Store) InsertCommitment(ctx context.Context, c *commitment.Commitment) error {
	m := toCommitmentModel(c)
	_, err := s.commitments(c.Kind).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shield.ErrDuplicateCommitment
		}
		return fmt.Errorf("shield/mongo: insert commitment: %w", err)
	}
	return nil
}

func (s *Store) GetCommitment(ctx context.Context, kind commitment.Kind, hash string) (*commitment.Commitment, error) {
	var m commitmentModel
	err := s.commitments(kind).
		FindOne(ctx, bson.M{"commitmentHash": hash}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, shield.ErrNotFound
		}
		return nil, fmt.Errorf("shield/mongo: get commitment: %w", err)
	}
	return fromCommitmentModel(&m)
}

// MarkSpent atomically sets the disposal flag on a still-unspent
// commitment. The filter requires both disposal fields to be absent, so of
// any number of concurrent spenders exactly one observes a match.
func (s *Store) MarkSpent(ctx context.Context, kind commitment.Kind, hash string, flag commitment.DisposalFlag) (int64, error) {
	if !flag.Valid() {
		return 0, shield.ErrInvalidInput
	}

	filter := bson.M{
		"commitmentHash": hash,
		"isTransferred":  bson.M{"$exists": false},
		"isBurned":       bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		string(flag): true,
		"updatedAt":  now(),
	}}

	res, err := s.commitments(kind).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("shield/mongo: mark spent: %w", err)
	}
	return res.MatchedCount, nil
}

func (s *Store) ClearDisposal(ctx context.Context, kind commitment.Kind, hash string, flag commitment.DisposalFlag) error {
	if !flag.Valid() {
		return shield.ErrInvalidInput
	}

	filter := bson.M{"commitmentHash": hash, string(flag): true}
	update := bson.M{
		"$unset": bson.M{string(flag): ""},
		"$set":   bson.M{"updatedAt": now()},
	}

	_, err := s.commitments(kind).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("shield/mongo: clear disposal: %w", err)
	}
	return nil
}

func (s *Store) PatchReconciliation(ctx context.Context, kind commitment.Kind, hash string, patch commitment.ReconciliationPatch) (int64, error) {
	set := bson.M{"updatedAt": now()}
	if patch.Reconciles != nil {
		set["commitmentReconciles"] = *patch.Reconciles
	}
	if patch.ExistsOnchain != nil {
		set["commitmentExistsOnchain"] = *patch.ExistsOnchain
	}

	res, err := s.commitments(kind).UpdateOne(ctx,
		bson.M{"commitmentHash": hash},
		bson.M{"$set": set},
	)
	if err != nil {
		return 0, fmt.Errorf("shield/mongo: patch reconciliation: %w", err)
	}
	return res.MatchedCount, nil
}

func (s *Store) ListUnspent(ctx context.Context, kind commitment.Kind, opts commitment.ListOpts) ([]*commitment.Commitment, error) {
	filter := bson.M{
		"isTransferred": bson.M{"$exists": false},
		"isBurned":      bson.M{"$exists": false},
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.commitments(kind).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("shield/mongo: list unspent: %w", err)
	}
	defer cursor.Close(ctx)

	var models []commitmentModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("shield/mongo: list unspent decode: %w", err)
	}

	result := make([]*commitment.Commitment, len(models))
	for i := range models {
		c, err := fromCommitmentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Transaction log ====================

// InsertRecord appends one transaction-log entry. The unique sparse index
// on dedupKey rejects a second record for the same logical spend; that
// rejection surfaces as shield.ErrDuplicateCommitment so the service can
// resolve it as a replay.
func (s *Store) InsertRecord(ctx context.Context, r *transaction.Record) error {
	m := toRecordModel(r)
	_, err := s.records(r.Kind).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shield.ErrDuplicateCommitment
		}
		return fmt.Errorf("shield/mongo: insert record: %w", err)
	}
	return nil
}

func (s *Store) FindRecordByDedupKey(ctx context.Context, kind commitment.Kind, dedupKey string) (*transaction.Record, error) {
	if dedupKey == "" {
		return nil, shield.ErrNotFound
	}

	var m recordModel
	err := s.records(kind).
		FindOne(ctx, bson.M{"dedupKey": dedupKey}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, shield.ErrNotFound
		}
		return nil, fmt.Errorf("shield/mongo: find record by dedup key: %w", err)
	}
	return fromRecordModel(&m)
}

func (s *Store) ListRecords(ctx context.Context, kind commitment.Kind, opts transaction.ListOpts) ([]*transaction.Record, int64, error) {
	coll := s.records(kind)

	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("shield/mongo: count records: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := coll.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("shield/mongo: list records: %w", err)
	}
	defer cursor.Close(ctx)

	var models []recordModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, 0, fmt.Errorf("shield/mongo: list records decode: %w", err)
	}

	result := make([]*transaction.Record, len(models))
	for i := range models {
		r, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, 0, err
		}
		result[i] = r
	}
	return result, total, nil
}

// ==================== Account ====================

// UpsertAccount writes the tenant's account document, keyed by name. On a
// retried creation the original identity and contract lists survive; only
// the credential and key material are refreshed.
func (s *Store) UpsertAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)

	update := bson.M{
		"$set": bson.M{
			"credential": m.Credential,
			"publicKey":  m.PublicKey,
			"secretKey":  m.SecretKey,
			"updatedAt":  now(),
		},
		"$setOnInsert": bson.M{
			"_id":       m.ID,
			"name":      m.Name,
			"createdAt": m.CreatedAt,
		},
	}

	_, err := s.db.Collection(colAccount).UpdateOne(ctx,
		bson.M{"name": m.Name},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("shield/mongo: upsert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context) (*account.Account, error) {
	var m accountModel
	err := s.db.Collection(colAccount).FindOne(ctx, bson.M{}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, shield.ErrNotFound
		}
		return nil, fmt.Errorf("shield/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) AddShieldContract(ctx context.Context, kind commitment.Kind, address string) error {
	field := "ftShieldContracts"
	if kind == commitment.KindNFT {
		field = "nftShieldContracts"
	}

	res, err := s.db.Collection(colAccount).UpdateOne(ctx,
		bson.M{},
		bson.M{
			"$addToSet": bson.M{field: address},
			"$set":      bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		return fmt.Errorf("shield/mongo: add shield contract: %w", err)
	}
	if res.MatchedCount == 0 {
		return shield.ErrNotFound
	}
	return nil
}

// ==================== Core ====================

// Migrate creates the tenant's indexes. Provisioned namespaces get their
// indexes from the admin-side Provision call instead, since the tenant role
// carries no createIndex action.
func (s *Store) Migrate(ctx context.Context) error {
	return ensureIndexes(ctx, s.db)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", shield.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Helpers ====================

func (s *Store) commitments(kind commitment.Kind) *mongo.Collection {
	if kind == commitment.KindNFT {
		return s.db.Collection(colCommitmentsNFT)
	}
	return s.db.Collection(colCommitmentsFT)
}

func (s *Store) records(kind commitment.Kind) *mongo.Collection {
	if kind == commitment.KindNFT {
		return s.db.Collection(colRecordsNFT)
	}
	return s.db.Collection(colRecordsFT)
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// isAuthFailure reports whether err is MongoDB's AuthenticationFailed
// (code 18).
func isAuthFailure(err error) bool {
	var srvErr mongo.ServerError
	return errors.As(err, &srvErr) && srvErr.HasErrorCode(18)
}

// ensureIndexes creates the index set for one tenant database.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("shield/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// migrationIndexes returns the index definitions for a tenant's collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	commitmentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "commitmentHash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isTransferred", Value: 1}, {Key: "isBurned", Value: 1}}},
	}
	recordIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "dedupKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	return map[string][]mongo.IndexModel{
		colCommitmentsFT:  commitmentIndexes,
		colCommitmentsNFT: commitmentIndexes,
		colRecordsFT:      recordIndexes,
		colRecordsNFT:     recordIndexes,
		colAccount: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

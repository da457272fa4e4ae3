package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	shield "github.com/veilproto/shield"
)

// MongoDB user-management error codes.
const (
	codeRoleAlreadyExists = 51002
	codeUserAlreadyExists = 51003
)

// The tenant role carries exactly the actions the ledger needs. Commitments
// and records are never deleted, so there is no remove action; index
// creation stays with the provisioner's admin connection.
var tenantActions = bson.A{"find", "update", "insert"}

// Provisioner grants a newly created account a role scoped to its own
// database's collections and revokes the coarse default role, over a single
// administrative connection. Provision is idempotent: re-running it for an
// already-provisioned account succeeds without duplicating grants.
type Provisioner struct {
	client *mongo.Client
	cfg    Config
	logger *slog.Logger
}

var _ shield.Provisioner = (*Provisioner)(nil)

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithProvisionerLogger sets the logger.
func WithProvisionerLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// NewProvisioner dials MongoDB with the administrative credential from cfg.
func NewProvisioner(ctx context.Context, cfg Config, opts ...ProvisionerOption) (*Provisioner, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetAuth(options.Credential{
			AuthSource: "admin",
			Username:   cfg.AdminUsername,
			Password:   cfg.AdminPassword,
		})
	if cfg.ConnectTimeout > 0 {
		clientOpts = clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect admin: %v", shield.ErrStorageUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background()) //nolint:errcheck // best-effort teardown of a failed dial
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: admin credential rejected", shield.ErrAuthentication)
		}
		return nil, fmt.Errorf("%w: ping admin: %v", shield.ErrStorageUnavailable, err)
	}

	p := &Provisioner{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnsureUser creates the tenant's database user with its credential.
// An already-existing user is not an error (account-creation retry).
func (p *Provisioner) EnsureUser(ctx context.Context, name, credential string) error {
	db := p.client.Database(p.cfg.databaseName(name))

	err := db.RunCommand(ctx, bson.D{
		{Key: "createUser", Value: name},
		{Key: "pwd", Value: credential},
		{Key: "roles", Value: bson.A{}},
	}).Err()
	if err != nil && !hasErrorCode(err, codeUserAlreadyExists) {
		return fmt.Errorf("%w: create user %q: %v", shield.ErrProvisioning, name, err)
	}
	return nil
}

// Provision creates the tenant-scoped role (find/update/insert on exactly
// the tenant's collections), grants it to the tenant user, revokes the
// default readWrite role, and builds the namespace's indexes. Must complete
// before the account's first ledger write is accepted.
func (p *Provisioner) Provision(ctx context.Context, name string) error {
	dbName := p.cfg.databaseName(name)
	role := p.cfg.roleName(name)
	db := p.client.Database(dbName)

	privileges := make(bson.A, 0, len(tenantCollections))
	for _, col := range tenantCollections {
		privileges = append(privileges, bson.M{
			"resource": bson.M{"db": dbName, "collection": col},
			"actions":  tenantActions,
		})
	}

	err := db.RunCommand(ctx, bson.D{
		{Key: "createRole", Value: role},
		{Key: "privileges", Value: privileges},
		{Key: "roles", Value: bson.A{}},
	}).Err()
	if err != nil && !hasErrorCode(err, codeRoleAlreadyExists) {
		return fmt.Errorf("%w: create role %q: %v", shield.ErrProvisioning, role, err)
	}

	err = db.RunCommand(ctx, bson.D{
		{Key: "grantRolesToUser", Value: name},
		{Key: "roles", Value: bson.A{bson.M{"role": role, "db": dbName}}},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: grant role %q to %q: %v", shield.ErrProvisioning, role, name, err)
	}

	err = db.RunCommand(ctx, bson.D{
		{Key: "revokeRolesFromUser", Value: name},
		{Key: "roles", Value: bson.A{bson.M{"role": "readWrite", "db": dbName}}},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: revoke readWrite from %q: %v", shield.ErrProvisioning, name, err)
	}

	// The tenant role has no createIndex action; indexes are built here
	// with admin rights.
	if err := ensureIndexes(ctx, db); err != nil {
		return fmt.Errorf("%w: %v", shield.ErrProvisioning, err)
	}

	p.logger.Info("tenant provisioned",
		"tenant", name,
		"database", dbName,
		"role", role,
	)
	return nil
}

// Close tears down the administrative connection.
func (p *Provisioner) Close() error {
	return p.client.Disconnect(context.Background())
}

// hasErrorCode reports whether err carries the given MongoDB server code.
func hasErrorCode(err error, code int) bool {
	var srvErr mongo.ServerError
	return errors.As(err, &srvErr) && srvErr.HasErrorCode(code)
}

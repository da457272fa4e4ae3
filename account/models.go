// Package account defines the tenant account model.
package account

import (
	"fmt"

	"github.com/veilproto/shield/id"
	"github.com/veilproto/shield/types"
)

// Account is one tenant of the ledger. The name is the tenant key: it names
// the storage namespace, the database user, and the scoped role. Created
// once at signup and immutable afterwards except for the shield-contract
// lists.
type Account struct {
	types.Entity

	ID   id.AccountID `json:"id"`
	Name string       `json:"name"`

	// Credential authorizes the account's own storage connection.
	Credential string `json:"-"`

	PublicKey string `json:"publicKey"`
	SecretKey string `json:"-"`

	// Shield-contract addresses this account has registered, per token kind.
	FTShieldContracts  []string `json:"ftShieldContracts,omitempty"`
	NFTShieldContracts []string `json:"nftShieldContracts,omitempty"`
}

// Validate checks the fields required to create the account's namespace.
func (a *Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account: missing name")
	}
	if a.Credential == "" {
		return fmt.Errorf("account %s: missing credential", a.Name)
	}
	if a.PublicKey == "" {
		return fmt.Errorf("account %s: missing public key", a.Name)
	}
	return nil
}

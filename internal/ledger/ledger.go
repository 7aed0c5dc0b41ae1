// Package ledger is the persistent keyed-record substrate every domain
// service mutates state through. Records live at deterministic content-derived
// addresses with first-writer-wins creation, carry a custodied balance, and
// are only mutated inside atomic transactions.
//
// Concurrency control in this system is exactly one primitive: any record
// whose address derives from a uniqueness key can be created at most once; a
// second creation attempt fails instead of overwriting. Services build their
// duplicate-prevention guarantees (one agreement per title, one escrow per
// agreement) on that rule rather than on locks.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"landlock/pkg/domain"
)

// Record kinds persisted by the domain services.
const (
	KindAdmin         = "admin"
	KindRegistrar     = "registrar"
	KindUser          = "user"
	KindIDNumberClaim = "id_number_claim"
	KindTitleDeed     = "title_deed"
	KindTitleForSale  = "title_for_sale"
	KindTitleLookup   = "title_number_lookup"
	KindAgreement     = "agreement"
	KindAgreementIdx  = "agreement_index"
	KindEscrow        = "escrow"
	KindDeposit       = "deposit"
)

// Record is a single addressed entry. Data is the JSON-encoded entity;
// Balance is value custodied by the record itself (deposit escrows hold the
// buyer's funds this way).
type Record struct {
	Address   Address   `json:"address"`
	Kind      string    `json:"kind"`
	Data      []byte    `json:"data"`
	Balance   uint64    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decode unmarshals the record payload into v.
func (r *Record) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode %s record %s: %w", r.Kind, r.Address.Short(), err)
	}
	return nil
}

// Encode marshals an entity for storage.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// Tx is the mutation surface available inside a transaction. Every method
// that fails leaves the transaction poisoned; implementations discard all
// staged writes when the transaction function returns an error.
type Tx interface {
	// Create writes a new record at addr. Returns sentinel.ErrAlreadyExists
	// if the address is occupied (first-writer-wins).
	Create(ctx context.Context, kind string, addr Address, data []byte) error
	// Get reads a record. Returns sentinel.ErrNotFound if absent.
	Get(ctx context.Context, addr Address) (*Record, error)
	// Put replaces the payload of an existing record.
	Put(ctx context.Context, addr Address, data []byte) error
	// Reclaim removes a record and returns its custodied balance to the
	// recipient's account.
	Reclaim(ctx context.Context, addr Address, recipient domain.PublicKey) error
	// Deposit moves funds from an identity account into a record's custody.
	// Returns sentinel.ErrInsufficientFunds or sentinel.ErrOverflow.
	Deposit(ctx context.Context, from domain.PublicKey, to Address, amount uint64) error
	// Release moves custodied funds from a record to an identity account.
	Release(ctx context.Context, from Address, to domain.PublicKey, amount uint64) error
}

// Store is the substrate handle services hold. RunInTx executes fn atomically:
// either every staged write commits or none do, and no concurrent transaction
// observes a partial effect.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	// Get is a read-only lookup outside any transaction.
	Get(ctx context.Context, addr Address) (*Record, error)
	// Balance reports an identity account's liquid funds.
	Balance(ctx context.Context, owner domain.PublicKey) (uint64, error)
	// Credit adds funds to an identity account. Exposed for bootstrap and the
	// dev faucet only; settlement moves value via Tx.Deposit/Tx.Release.
	Credit(ctx context.Context, owner domain.PublicKey, amount uint64) error
}

package sentinel

import "errors"

// Sentinel errors for ledger and infrastructure facts. Stores and the ledger
// substrate return these (optionally wrapped) so services can translate them
// into domain errors.
//
// These represent factual states about records, not validation failures:
//   - ErrNotFound: record does not exist or was reclaimed
//   - ErrAlreadyExists: a deterministic address is already occupied
//   - ErrInsufficientFunds: account balance too small for a transfer
//   - ErrOverflow: a balance would overflow uint64
//   - ErrInvalidState: record in wrong state for the requested operation
//   - ErrUnavailable: backing store temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("arithmetic overflow")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnavailable       = errors.New("unavailable")
)

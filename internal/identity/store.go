package identity

import (
	"context"
	"errors"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
	dErrors "landlock/pkg/domain-errors"
	"landlock/pkg/platform/sentinel"
)

// Deterministic addresses for identity records. Each is a uniqueness key:
// creation at an occupied address fails instead of overwriting.

func AdminAddress(authority domain.PublicKey) ledger.Address {
	return ledger.NewAddress(ledger.KindAdmin, authority.String())
}

func RegistrarAddress(authority domain.PublicKey) ledger.Address {
	return ledger.NewAddress(ledger.KindRegistrar, authority.String())
}

func UserAddress(idNumber string, authority domain.PublicKey) ledger.Address {
	return ledger.NewAddress(ledger.KindUser, idNumber, authority.String())
}

func ClaimAddress(idNumber string) ledger.Address {
	return ledger.NewAddress(ledger.KindIDNumberClaim, idNumber)
}

// GetRegistrar loads the registrar record for an authority.
func GetRegistrar(ctx context.Context, tx ledger.Tx, authority domain.PublicKey) (*Registrar, error) {
	rec, err := tx.Get(ctx, RegistrarAddress(authority))
	if err != nil {
		return nil, err
	}
	var registrar Registrar
	if err := rec.Decode(&registrar); err != nil {
		return nil, err
	}
	return &registrar, nil
}

// GetUser loads a user record by address, verifying the record kind so a
// caller cannot pass an arbitrary address as a party.
func GetUser(ctx context.Context, tx ledger.Tx, addr ledger.Address) (*User, error) {
	rec, err := tx.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if rec.Kind != ledger.KindUser {
		return nil, sentinel.ErrNotFound
	}
	var user User
	if err := rec.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RequireActiveRegistrar gates registrar-only operations in other services.
// Missing records and inactive registrars are both authorization failures: an
// invited registrar who has not confirmed cannot act yet.
func RequireActiveRegistrar(ctx context.Context, tx ledger.Tx, caller domain.PublicKey) error {
	registrar, err := GetRegistrar(ctx, tx, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid registrar account")
		}
		return err
	}
	if !registrar.IsActive {
		return dErrors.New(dErrors.CodeUnauthorized, "registrar is not active")
	}
	return nil
}

func putRegistrar(ctx context.Context, tx ledger.Tx, registrar *Registrar) error {
	data, err := ledger.Encode(registrar)
	if err != nil {
		return err
	}
	return tx.Put(ctx, RegistrarAddress(registrar.Authority), data)
}

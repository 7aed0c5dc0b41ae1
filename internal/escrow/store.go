package escrow

import (
	"context"

	"landlock/internal/ledger"
	"landlock/pkg/platform/sentinel"
)

// EscrowAddress derives the escrow record address from its agreement: one
// escrow per agreement, enforced by first-writer-wins creation.
func EscrowAddress(agreement ledger.Address) ledger.Address {
	return ledger.NewAddress(ledger.KindEscrow, agreement.String())
}

// DepositAddress derives the payment record address from its escrow.
func DepositAddress(escrow ledger.Address) ledger.Address {
	return ledger.NewAddress(ledger.KindDeposit, escrow.String())
}

// GetEscrow loads an escrow record, verifying the record kind.
func GetEscrow(ctx context.Context, tx ledger.Tx, addr ledger.Address) (*Escrow, error) {
	rec, err := tx.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if rec.Kind != ledger.KindEscrow {
		return nil, sentinel.ErrNotFound
	}
	var esc Escrow
	if err := rec.Decode(&esc); err != nil {
		return nil, err
	}
	return &esc, nil
}

func getDeposit(ctx context.Context, tx ledger.Tx, escrowAddr ledger.Address) (*Deposit, error) {
	rec, err := tx.Get(ctx, DepositAddress(escrowAddr))
	if err != nil {
		return nil, err
	}
	var dep Deposit
	if err := rec.Decode(&dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

func putEscrow(ctx context.Context, tx ledger.Tx, addr ledger.Address, esc *Escrow) error {
	data, err := ledger.Encode(esc)
	if err != nil {
		return err
	}
	return tx.Put(ctx, addr, data)
}

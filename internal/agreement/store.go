package agreement

import (
	"context"
	"strconv"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
	"landlock/pkg/platform/sentinel"
)

// AgreementAddress derives the record address for a draft. Price is part of
// the key, matching the uniqueness the protocol actually enforces: the same
// parties can hold drafts over the same deed at different prices, and the
// per-deed Index is what prevents more than one being live.
func AgreementAddress(seller, buyer domain.PublicKey, deed ledger.Address, price uint64) ledger.Address {
	return ledger.NewAddress(ledger.KindAgreement,
		seller.String(), buyer.String(), deed.String(), strconv.FormatUint(price, 10))
}

// IndexAddress derives the per-deed agreement index address.
func IndexAddress(deed ledger.Address) ledger.Address {
	return ledger.NewAddress(ledger.KindAgreementIdx, deed.String())
}

// GetAgreement loads an agreement record, verifying the record kind.
func GetAgreement(ctx context.Context, tx ledger.Tx, addr ledger.Address) (*Agreement, error) {
	rec, err := tx.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if rec.Kind != ledger.KindAgreement {
		return nil, sentinel.ErrNotFound
	}
	var agreement Agreement
	if err := rec.Decode(&agreement); err != nil {
		return nil, err
	}
	return &agreement, nil
}

func getIndex(ctx context.Context, tx ledger.Tx, deed ledger.Address) (*Index, error) {
	rec, err := tx.Get(ctx, IndexAddress(deed))
	if err != nil {
		return nil, err
	}
	if rec.Kind != ledger.KindAgreementIdx {
		return nil, sentinel.ErrNotFound
	}
	var index Index
	if err := rec.Decode(&index); err != nil {
		return nil, err
	}
	return &index, nil
}

func putAgreement(ctx context.Context, tx ledger.Tx, addr ledger.Address, agreement *Agreement) error {
	data, err := ledger.Encode(agreement)
	if err != nil {
		return err
	}
	return tx.Put(ctx, addr, data)
}

package title

import (
	"context"
	"strings"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
	"landlock/pkg/platform/sentinel"
)

// DeedAddress derives the record address for a title number. One deed per
// title number across the whole registry.
func DeedAddress(titleNumber string) ledger.Address {
	return ledger.NewAddress(ledger.KindTitleDeed, NormalizeTitleNumber(titleNumber))
}

// ListingAddress derives the sale record address for a seller and deed.
func ListingAddress(seller domain.PublicKey, deed ledger.Address) ledger.Address {
	return ledger.NewAddress(ledger.KindTitleForSale, seller.String(), deed.String())
}

// LookupAddress derives the search index address for a title number.
func LookupAddress(titleNumber string) ledger.Address {
	return ledger.NewAddress(ledger.KindTitleLookup, NormalizeTitleNumber(titleNumber))
}

// NormalizeTitleNumber canonicalizes a title number before address
// derivation so "lr-001" and "LR-001 " name the same deed.
func NormalizeTitleNumber(titleNumber string) string {
	return strings.ToUpper(strings.TrimSpace(titleNumber))
}

// GetDeed loads a deed record by title number.
func GetDeed(ctx context.Context, tx ledger.Tx, titleNumber string) (ledger.Address, Deed, error) {
	addr := DeedAddress(titleNumber)
	deed, err := GetDeedByAddress(ctx, tx, addr)
	return addr, deed, err
}

// GetDeedByAddress loads a deed record, verifying the record kind.
func GetDeedByAddress(ctx context.Context, tx ledger.Tx, addr ledger.Address) (Deed, error) {
	rec, err := tx.Get(ctx, addr)
	if err != nil {
		return Deed{}, err
	}
	if rec.Kind != ledger.KindTitleDeed {
		return Deed{}, sentinel.ErrNotFound
	}
	var deed Deed
	if err := rec.Decode(&deed); err != nil {
		return Deed{}, err
	}
	return deed, nil
}

// PutDeed overwrites a deed record in place. The address is derived from the
// deed's own title number, so a deed can never move.
func PutDeed(ctx context.Context, tx ledger.Tx, deed Deed) error {
	data, err := ledger.Encode(deed)
	if err != nil {
		return err
	}
	return tx.Put(ctx, DeedAddress(deed.TitleNumber), data)
}

// GetListing loads the sale record for a seller and deed.
func GetListing(ctx context.Context, tx ledger.Tx, seller domain.PublicKey, deed ledger.Address) (Listing, error) {
	rec, err := tx.Get(ctx, ListingAddress(seller, deed))
	if err != nil {
		return Listing{}, err
	}
	if rec.Kind != ledger.KindTitleForSale {
		return Listing{}, sentinel.ErrNotFound
	}
	var listing Listing
	if err := rec.Decode(&listing); err != nil {
		return Listing{}, err
	}
	return listing, nil
}

// GetLookup loads the search index entry for a title number.
func GetLookup(ctx context.Context, tx ledger.Tx, titleNumber string) (Lookup, error) {
	rec, err := tx.Get(ctx, LookupAddress(titleNumber))
	if err != nil {
		return Lookup{}, err
	}
	if rec.Kind != ledger.KindTitleLookup {
		return Lookup{}, sentinel.ErrNotFound
	}
	var lookup Lookup
	if err := rec.Decode(&lookup); err != nil {
		return Lookup{}, err
	}
	return lookup, nil
}

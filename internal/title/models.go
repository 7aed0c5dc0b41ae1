package title

import (
	"time"

	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/pkg/domain"
)

// Deed is a registered land parcel. Authority is the key currently empowered
// to authorize transfers: normally the owner, but re-pointed to the escrow
// record while a sale is in progress.
type Deed struct {
	Owner                  identity.User    `json:"owner"`
	Authority              domain.PublicKey `json:"authority"`
	TitleNumber            string           `json:"title_number"`
	Location               string           `json:"location"`
	Acreage                float64          `json:"acreage"`
	DistrictRegistry       string           `json:"district_registry"`
	RegistryMapsheetNumber uint64           `json:"registry_mapsheet_number"`
	RegistrationDate       time.Time        `json:"registration_date"`
	IsForSale              bool             `json:"is_for_sale"`
}

// Listing is the sale snapshot created when an owner marks a deed for sale.
// One active listing per (seller, deed) at a time, enforced by its address.
type Listing struct {
	TitleDeed ledger.Address `json:"title_deed"`
	Seller    identity.User  `json:"seller"`
	SalePrice uint64         `json:"sale_price"`
	ListedAt  time.Time      `json:"listed_at"`
}

// Lookup is the search index entry for a title number, created lazily on the
// first search. SearchedBy is overwritten by every subsequent searcher
// (last-search-wins): a later unrelated search can invalidate an in-progress
// draft's precondition, or satisfy it for a party the seller never intended.
// The recorded workflow does not keep per-searcher history; this is a known
// gap, kept as-is.
type Lookup struct {
	TitleNumber string           `json:"title_number"`
	TitleDeed   ledger.Address   `json:"title_deed"`
	SearchedBy  domain.PublicKey `json:"searched_by"`
}

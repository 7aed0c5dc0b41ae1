package agreement

import (
	"time"

	"landlock/internal/identity"
	"landlock/internal/ledger"
	"landlock/pkg/domain"
)

// Agreement is a drafted sale contract between a seller and a buyer over one
// deed at a fixed price. The seller drafts it; it binds nothing until the
// buyer signs. Re-signing overwrites the confirmation without complaint.
type Agreement struct {
	Seller            identity.User     `json:"seller"`
	Buyer             identity.User     `json:"buyer"`
	TitleDeed         ledger.Address    `json:"title_deed"`
	Price             uint64            `json:"price"`
	DraftedBy         domain.PublicKey  `json:"drafted_by"`
	DraftedAt         time.Time         `json:"drafted_at"`
	BuyerConfirmation *domain.PublicKey `json:"buyer_confirmation,omitempty"`
	BuyerConfirmedAt  *time.Time        `json:"buyer_confirmed_at,omitempty"`
}

// Signed reports whether the buyer has confirmed the agreement.
func (a *Agreement) Signed() bool {
	return a.BuyerConfirmation != nil && !a.BuyerConfirmation.IsZero()
}

// Index is the one-per-deed pointer that gates double sales: drafting fails
// while the index points at a live agreement. Cancellation reclaims the index
// record; settlement does not touch it, so a completed sale's agreement must
// be cancelled before the new owner can contract a resale.
type Index struct {
	TitleDeed ledger.Address `json:"title_deed"`
	Agreement ledger.Address `json:"agreement"`
}

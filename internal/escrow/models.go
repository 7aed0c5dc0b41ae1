package escrow

import (
	"time"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
)

// State is the escrow lifecycle position. Creation deposits the title (the
// deed's authority is re-pointed to the escrow record), the buyer deposits
// payment, and a registrar completes the exchange. There is no cancellation
// transition; a stalled escrow holds the title until a registrar settles it.
type State string

const (
	StateTitleDeposited   State = "title_deposited"
	StatePaymentDeposited State = "payment_deposited"
	StateCompleted        State = "completed"
)

// Escrow custodies a sale in flight. Seller and buyer are pinned at creation
// from the agreement; settlement re-validates every party against the live
// records before releasing anything.
type Escrow struct {
	Agreement   ledger.Address   `json:"agreement"`
	TitleDeed   ledger.Address   `json:"title_deed"`
	Seller      domain.PublicKey `json:"seller"`
	Buyer       domain.PublicKey `json:"buyer"`
	State       State            `json:"state"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	// CancelledAt is reserved; no transition sets it yet (see State).
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Deposit is the record custodying the buyer's payment. The funds live on the
// record's balance; Amount is kept alongside for the settlement release.
type Deposit struct {
	Escrow      ledger.Address   `json:"escrow"`
	Amount      uint64           `json:"amount"`
	DepositedBy domain.PublicKey `json:"deposited_by"`
	DepositedAt time.Time        `json:"deposited_at"`
}

package identity

import (
	"time"

	"landlock/internal/ledger"
	"landlock/pkg/domain"
)

// Admin is a confirmed protocol administrator. The set of keys allowed to
// confirm is fixed startup configuration; the record only proves the key
// holder claimed their seat.
type Admin struct {
	Authority   domain.PublicKey `json:"authority"`
	ConfirmedAt time.Time        `json:"confirmed_at"`
}

// Registrar is a land registry official. Created inactive by an admin and
// activated only by the matching authority confirming with the one-time
// invitation code. Transitions: inactive -> active, nothing further.
type Registrar struct {
	Authority   domain.PublicKey `json:"authority"`
	AddedBy     domain.PublicKey `json:"added_by"`
	IsActive    bool             `json:"is_active"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	IDNumber    string           `json:"id_number"`
	InviteHash  string           `json:"invite_hash,omitempty"`
	AddedAt     time.Time        `json:"added_at"`
	ConfirmedAt time.Time        `json:"confirmed_at,omitzero"`
}

// Sanitized returns a copy safe for API responses: the invitation hash is
// persisted with the record but never leaves the service.
func (r *Registrar) Sanitized() *Registrar {
	out := *r
	out.InviteHash = ""
	return &out
}

// User is a protocol participant (land owner or buyer). Other records embed
// User snapshots; party checks always compare the Authority key.
type User struct {
	Authority   domain.PublicKey `json:"authority"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	IDNumber    string           `json:"id_number"`
	PhoneNumber string           `json:"phone_number"`
	CreatedAt   time.Time        `json:"created_at"`
}

// IDNumberClaim marks a national id number as taken. Its address derives from
// the id number alone, so creating the claim is what enforces global
// uniqueness: the second creation attempt hits an occupied address and the
// whole user-creation transaction fails.
type IDNumberClaim struct {
	Person ledger.Address `json:"person"`
}

package audit

import (
	"context"
	"time"

	"landlock/pkg/domain"
)

// Action names a state-changing protocol operation.
type Action string

const (
	ActionAdminConfirmed      Action = "admin_confirmed"
	ActionRegistrarAdded      Action = "registrar_added"
	ActionRegistrarConfirmed  Action = "registrar_confirmed"
	ActionUserCreated         Action = "user_created"
	ActionTitleAssigned       Action = "title_assigned"
	ActionTitleListed         Action = "title_listed"
	ActionTitleSearched       Action = "title_searched"
	ActionAgreementDrafted    Action = "agreement_drafted"
	ActionAgreementSigned     Action = "agreement_signed"
	ActionAgreementCancelled  Action = "agreement_cancelled"
	ActionEscrowCreated       Action = "escrow_created"
	ActionPaymentDeposited    Action = "payment_deposited"
	ActionSettlementCompleted Action = "settlement_completed"
)

// Event is an append-only record of who did what to which record. The ledger
// transaction remains the source of truth; events exist for compliance
// review, not for recovery.
type Event struct {
	ID        string            `json:"id"`
	Action    Action            `json:"action"`
	Actor     domain.PublicKey  `json:"actor"`
	Subject   string            `json:"subject,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor domain.PublicKey) ([]Event, error)
}

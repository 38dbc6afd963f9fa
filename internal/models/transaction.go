package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction direction enums.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Transaction category enums.
const (
	CategoryDeposit       = "deposit"
	CategoryEscrowFunding = "escrow_funding"
	CategoryPayout        = "payout"
	CategoryFee           = "fee"
	CategoryRefund        = "refund"
)

// Transaction status enums. Status is the only mutable field after creation.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Transaction is one immutable ledger entry on a user's statement.
// Reference, when set, is unique across the table and acts as the
// idempotency key for the movement that created the entry: the gateway's
// payment reference for deposits, the caller-supplied idempotency key for
// escrow funding and payouts. Amount is always positive, in pesewas.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Direction   string    `json:"direction"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Reference   *string   `json:"reference,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

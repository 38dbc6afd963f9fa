package escrow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Repair actions. Each one is the inverse of a single ledger mutation.
const (
	RepairCreditWallet  = "credit_wallet"
	RepairDebitWallet   = "debit_wallet"
	RepairDebitEscrow   = "debit_escrow"
	RepairReversePayout = "reverse_payout_debit"
)

// Repair describes one compensating ledger mutation. It is what the engine
// hands to the escalator when an inline compensation fails, and what the
// background repair worker replays until it lands.
type Repair struct {
	Action    string    `json:"action"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	ProjectID uuid.UUID `json:"project_id,omitempty"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
}

// ApplyRepair executes one compensating mutation against the ledger.
func (e *Engine) ApplyRepair(ctx context.Context, r Repair) error {
	if r.Amount <= 0 {
		return fmt.Errorf("repair amount must be positive, got %d", r.Amount)
	}
	switch r.Action {
	case RepairCreditWallet:
		_, err := e.Ledger.AdjustWallet(ctx, r.UserID, r.Amount)
		return err
	case RepairDebitWallet:
		_, err := e.Ledger.AdjustWallet(ctx, r.UserID, -r.Amount)
		return err
	case RepairDebitEscrow:
		_, err := e.Ledger.DebitEscrow(ctx, r.ProjectID, r.Amount)
		return err
	case RepairReversePayout:
		_, err := e.Ledger.ReversePayoutDebit(ctx, r.ProjectID, r.Amount)
		return err
	default:
		return fmt.Errorf("unknown repair action %q", r.Action)
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Project status enums.
const (
	ProjectStatusOpen       = "open"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

// Project is a client's posting. Budget is fixed at creation; EscrowBalance
// holds funds moved out of the client's wallet and not yet paid out, with
// 0 <= escrow_balance + total_paid <= budget. All amounts in pesewas.
type Project struct {
	ID            uuid.UUID `json:"id"`
	ClientID      uuid.UUID `json:"client_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Budget        int64     `json:"budget"`
	EscrowBalance int64     `json:"escrow_balance"`
	TotalPaid     int64     `json:"total_paid"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

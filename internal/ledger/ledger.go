package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/devlinkgh/backend/internal/models"
)

// ErrNotFound is returned when the referenced account or project does not exist.
var ErrNotFound = errors.New("account not found")

// ErrInsufficientFunds is returned when a debit would take a balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrDuplicateReference is returned by AppendEntry when an entry with the
// same non-null reference already exists. The unique constraint makes this
// the mutual-exclusion gate for concurrent movements with the same reference.
var ErrDuplicateReference = errors.New("duplicate transaction reference")

// ErrEscrowOverBudget is returned when an escrow credit would push
// escrow_balance + total_paid past the project budget.
var ErrEscrowOverBudget = errors.New("escrow credit exceeds project budget")

// Store is the single source of truth for balances and the transaction log.
// Every balance mutation is one conditional UPDATE executed by the database,
// never a read-modify-write pair, so concurrent movements on the same
// account cannot lose updates.
type Store interface {
	// WalletBalance returns the user's wallet balance in pesewas.
	WalletBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// AdjustWallet applies a signed delta to the user's wallet and returns
	// the new balance. A delta that would take the balance negative fails
	// with ErrInsufficientFunds and leaves the balance untouched.
	AdjustWallet(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)

	// CreditEscrow moves amount into the project's escrow balance, bounded
	// by the project budget.
	CreditEscrow(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)

	// DebitEscrow removes amount from escrow without touching total_paid.
	// Used to reverse a CreditEscrow.
	DebitEscrow(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)

	// DebitEscrowForPayout removes amount from escrow and increments
	// total_paid in the same statement.
	DebitEscrowForPayout(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)

	// ReversePayoutDebit undoes a DebitEscrowForPayout: escrow_balance goes
	// back up and total_paid back down, in one statement.
	ReversePayoutDebit(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)

	// AppendEntry records one movement on a user's statement. Fails with
	// ErrDuplicateReference if the entry carries a reference already present.
	AppendEntry(ctx context.Context, t *models.Transaction) error

	// FindEntryByReference returns the entry with the given reference, or
	// (nil, nil) if none exists.
	FindEntryByReference(ctx context.Context, ref string) (*models.Transaction, error)

	// ListEntriesByUser returns a user's statement, newest first.
	ListEntriesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)

	// ListEntries returns all entries newest first, for admin review.
	ListEntries(ctx context.Context, limit int) ([]*models.Transaction, error)
}

package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/devlinkgh/backend/internal/gateway"
	"github.com/devlinkgh/backend/internal/ledger"
	"github.com/devlinkgh/backend/internal/models"
	"github.com/devlinkgh/backend/internal/repository"
)

// LedgerStore is the subset of the ledger the engine mutates.
type LedgerStore interface {
	AdjustWallet(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
	CreditEscrow(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)
	DebitEscrow(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)
	DebitEscrowForPayout(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)
	ReversePayoutDebit(ctx context.Context, projectID uuid.UUID, amount int64) (int64, error)
	AppendEntry(ctx context.Context, t *models.Transaction) error
	FindEntryByReference(ctx context.Context, ref string) (*models.Transaction, error)
}

// UserDirectory resolves users for recipient and owner lookups.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProjectDirectory loads the project a movement funds or pays against.
type ProjectDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// TaskDirectory loads the task a payout settles.
type TaskDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// DepositVerifier is the gateway adapter's verification side.
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, reference string) (*gateway.Verification, error)
}

// Escalator receives compensations that themselves failed, so a background
// worker can keep retrying the reversal.
type Escalator interface {
	EscalateCompensation(ctx context.Context, r Repair) error
}

// PayoutHook runs after a payout is fully applied and recorded. The engine
// never advances task state itself; callers decide what a paid task becomes.
type PayoutHook func(ctx context.Context, task *models.Task) error

// Caller is the resolved identity behind an engine invocation.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// Engine moves money between client wallets, project escrow, and developer
// wallets. Every operation either fully applies and is recorded, or leaves
// balances exactly as it found them (compensating the first leg when a
// second leg fails). No money is created or destroyed.
type Engine struct {
	Ledger    LedgerStore
	Users     UserDirectory
	Projects  ProjectDirectory
	Tasks     TaskDirectory
	Verifier  DepositVerifier
	Escalator Escalator
	Hook      PayoutHook

	// ResolveByEmail falls back to looking the deposit recipient up by payer
	// email when the processor did not echo our wallet metadata back.
	ResolveByEmail bool

	Logger *slog.Logger
}

func NewEngine(store LedgerStore, users UserDirectory, projects ProjectDirectory, tasks TaskDirectory, verifier DepositVerifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Ledger:   store,
		Users:    users,
		Projects: projects,
		Tasks:    tasks,
		Verifier: verifier,
		Logger:   logger,
	}
}

// ReconcileDeposit confirms an initiated payment with the processor and
// credits the payer's wallet exactly once. The reference is the idempotency
// key: a replay observes AlreadyProcessed and changes nothing.
func (e *Engine) ReconcileDeposit(ctx context.Context, reference string) (int64, error) {
	if reference == "" {
		return 0, newError(KindVerificationFailed, "empty reference")
	}

	v, err := e.Verifier.VerifyDeposit(ctx, reference)
	if err != nil {
		return 0, wrapError(KindGatewayError, "verify deposit", err)
	}
	if !v.Succeeded {
		return 0, newError(KindVerificationFailed, "processor reports payment not completed")
	}
	if v.Amount <= 0 {
		return 0, newError(KindVerificationFailed, "processor reports non-positive amount")
	}

	existing, err := e.Ledger.FindEntryByReference(ctx, reference)
	if err != nil {
		return 0, fmt.Errorf("lookup reference %q: %w", reference, err)
	}
	if existing != nil {
		return 0, newError(KindAlreadyProcessed, "deposit already credited")
	}

	recipient, err := e.resolveRecipient(ctx, v)
	if err != nil {
		return 0, err
	}

	if _, err := e.Ledger.AdjustWallet(ctx, recipient.ID, v.Amount); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return 0, newError(KindRecipientNotFound, "wallet disappeared before credit")
		}
		return 0, fmt.Errorf("credit wallet: %w", err)
	}

	ref := reference
	entry := &models.Transaction{
		ID:          uuid.New(),
		UserID:      recipient.ID,
		Direction:   models.DirectionCredit,
		Amount:      v.Amount,
		Category:    models.CategoryDeposit,
		Status:      models.TxStatusCompleted,
		Reference:   &ref,
		Description: "wallet deposit via payment gateway",
	}
	if err := e.Ledger.AppendEntry(ctx, entry); err != nil {
		// The credit landed but the record did not: undo the credit so the
		// wallet never carries unaudited money.
		compensated := e.reverse(ctx, Repair{
			Action: RepairDebitWallet,
			UserID: recipient.ID,
			Amount: v.Amount,
			Reason: "deposit record failed for reference " + reference,
		})
		if errors.Is(err, ledger.ErrDuplicateReference) {
			// A concurrent reconcile won the reference; our credit is undone.
			return 0, &Error{Kind: KindAlreadyProcessed, Msg: "deposit already credited", Compensated: compensated}
		}
		return 0, &Error{Kind: KindRecordFailed, Msg: "deposit applied but not recorded", Compensated: compensated, Err: err}
	}

	e.Logger.Info("deposit reconciled", "reference", reference, "user_id", recipient.ID, "amount", v.Amount)
	return v.Amount, nil
}

// FundEscrow moves amount from the project owner's wallet into the project's
// escrow balance. idemKey de-duplicates caller retries via the ledger's
// unique reference constraint.
func (e *Engine) FundEscrow(ctx context.Context, caller Caller, projectID uuid.UUID, amount int64, idemKey string) error {
	if amount <= 0 {
		return errors.New("funding amount must be positive")
	}
	if idemKey == "" {
		return errors.New("idempotency key required")
	}

	existing, err := e.Ledger.FindEntryByReference(ctx, idemKey)
	if err != nil {
		return fmt.Errorf("lookup idempotency key: %w", err)
	}
	if existing != nil {
		return newError(KindAlreadyProcessed, "escrow funding already applied")
	}

	project, err := e.Projects.GetByID(ctx, projectID)
	if err != nil {
		return wrapNotFound(err, KindProjectNotFound, "load project")
	}
	if caller.Role != models.RoleAdmin && caller.ID != project.ClientID {
		return newError(KindUnauthorized, "only the project owner may fund escrow")
	}
	client, err := e.Users.GetByID(ctx, project.ClientID)
	if err != nil {
		return wrapNotFound(err, KindClientNotFound, "load client")
	}

	// First leg: debit the client wallet.
	if _, err := e.Ledger.AdjustWallet(ctx, client.ID, -amount); err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return newError(KindInsufficientFunds, "wallet balance below funding amount")
		case errors.Is(err, ledger.ErrNotFound):
			return newError(KindClientNotFound, "client wallet not found")
		default:
			return fmt.Errorf("debit client wallet: %w", err)
		}
	}

	refundRepair := Repair{
		Action: RepairCreditWallet,
		UserID: client.ID,
		Amount: amount,
		Reason: fmt.Sprintf("escrow funding failed for project %s", projectID),
	}

	// Second leg: credit project escrow. On failure the debit is reversed.
	if _, err := e.Ledger.CreditEscrow(ctx, projectID, amount); err != nil {
		compensated := e.reverse(ctx, refundRepair)
		msg := "escrow credit failed"
		if compensated {
			msg += ", funds refunded to wallet"
		} else {
			msg += ", refund pending, contact support"
		}
		return &Error{Kind: KindEscrowCreditFailed, Msg: msg, Compensated: compensated, Err: err}
	}

	ref := idemKey
	entry := &models.Transaction{
		ID:          uuid.New(),
		UserID:      client.ID,
		Direction:   models.DirectionDebit,
		Amount:      amount,
		Category:    models.CategoryEscrowFunding,
		Status:      models.TxStatusCompleted,
		Reference:   &ref,
		Description: fmt.Sprintf("escrow funding for project %q", project.Title),
	}
	if err := e.Ledger.AppendEntry(ctx, entry); err != nil {
		compensated := e.unwindFunding(ctx, projectID, refundRepair, amount)
		if errors.Is(err, ledger.ErrDuplicateReference) {
			return &Error{Kind: KindAlreadyProcessed, Msg: "escrow funding already applied", Compensated: compensated}
		}
		return &Error{Kind: KindRecordFailed, Msg: "escrow funding applied but not recorded", Compensated: compensated, Err: err}
	}

	e.Logger.Info("escrow funded", "project_id", projectID, "client_id", client.ID, "amount", amount)
	return nil
}

// PayDeveloper releases amount from the task's project escrow into the
// developer's wallet and bumps the project's running total_paid.
func (e *Engine) PayDeveloper(ctx context.Context, caller Caller, taskID, developerID uuid.UUID, amount int64, idemKey string) error {
	if amount <= 0 {
		return errors.New("payout amount must be positive")
	}
	if idemKey == "" {
		return errors.New("idempotency key required")
	}
	if caller.Role != models.RoleAdmin {
		return newError(KindUnauthorized, "payouts require admin review")
	}

	existing, err := e.Ledger.FindEntryByReference(ctx, idemKey)
	if err != nil {
		return fmt.Errorf("lookup idempotency key: %w", err)
	}
	if existing != nil {
		return newError(KindAlreadyProcessed, "payout already applied")
	}

	task, err := e.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return wrapNotFound(err, KindTaskNotFound, "load task")
	}
	project, err := e.Projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		return wrapNotFound(err, KindProjectNotFound, "load project")
	}

	// First leg: debit escrow and record the paid total in one statement.
	if _, err := e.Ledger.DebitEscrowForPayout(ctx, project.ID, amount); err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return newError(KindInsufficientFunds, "escrow balance below payout amount")
		case errors.Is(err, ledger.ErrNotFound):
			return newError(KindProjectNotFound, "project disappeared before payout")
		default:
			return fmt.Errorf("debit escrow: %w", err)
		}
	}

	restoreRepair := Repair{
		Action:    RepairReversePayout,
		ProjectID: project.ID,
		Amount:    amount,
		Reason:    fmt.Sprintf("payout failed for task %s", taskID),
	}

	developer, err := e.Users.GetByID(ctx, developerID)
	if err != nil {
		// Escrow is already debited; reverse it before surfacing the error.
		compensated := e.reverse(ctx, restoreRepair)
		if errors.Is(err, repository.ErrNotFound) {
			return &Error{Kind: KindDeveloperNotFound, Msg: "developer wallet not found, escrow debit reversed", Compensated: compensated, Err: err}
		}
		return &Error{Kind: KindEscrowCreditFailed, Msg: "developer lookup failed after escrow debit", Compensated: compensated, Err: err}
	}

	// Second leg: credit the developer wallet.
	if _, err := e.Ledger.AdjustWallet(ctx, developer.ID, amount); err != nil {
		compensated := e.reverse(ctx, restoreRepair)
		msg := "developer credit failed"
		if compensated {
			msg += ", escrow restored"
		} else {
			msg += ", escrow restore pending, contact support"
		}
		return &Error{Kind: KindEscrowCreditFailed, Msg: msg, Compensated: compensated, Err: err}
	}

	ref := idemKey
	entry := &models.Transaction{
		ID:          uuid.New(),
		UserID:      developer.ID,
		Direction:   models.DirectionCredit,
		Amount:      amount,
		Category:    models.CategoryPayout,
		Status:      models.TxStatusCompleted,
		Reference:   &ref,
		Description: fmt.Sprintf("payout for task %q", task.Title),
	}
	if err := e.Ledger.AppendEntry(ctx, entry); err != nil {
		compensated := e.unwindPayout(ctx, developer.ID, restoreRepair, amount)
		if errors.Is(err, ledger.ErrDuplicateReference) {
			return &Error{Kind: KindAlreadyProcessed, Msg: "payout already applied", Compensated: compensated}
		}
		return &Error{Kind: KindRecordFailed, Msg: "payout applied but not recorded", Compensated: compensated, Err: err}
	}

	e.Logger.Info("developer paid", "task_id", taskID, "developer_id", developer.ID, "amount", amount)

	if e.Hook != nil {
		if err := e.Hook(ctx, task); err != nil {
			e.Logger.Warn("post-payout hook failed", "task_id", taskID, "error", err)
		}
	}
	return nil
}

func (e *Engine) resolveRecipient(ctx context.Context, v *gateway.Verification) (*models.User, error) {
	if v.WalletID != nil {
		u, err := e.Users.GetByID(ctx, *v.WalletID)
		if err != nil {
			return nil, wrapNotFound(err, KindRecipientNotFound, "resolve wallet from metadata")
		}
		return u, nil
	}
	if !e.ResolveByEmail {
		return nil, newError(KindRecipientNotFound, "no wallet metadata on payment and email resolution disabled")
	}
	u, err := e.Users.GetByEmail(ctx, v.PayerEmail)
	if err != nil {
		return nil, wrapNotFound(err, KindRecipientNotFound, "resolve wallet by payer email")
	}
	return u, nil
}

// unwindFunding reverses both legs of a funding whose record step failed:
// escrow back down, then the wallet back up.
func (e *Engine) unwindFunding(ctx context.Context, projectID uuid.UUID, refund Repair, amount int64) bool {
	ok := e.reverse(ctx, Repair{
		Action:    RepairDebitEscrow,
		ProjectID: projectID,
		Amount:    amount,
		Reason:    refund.Reason,
	})
	return e.reverse(ctx, refund) && ok
}

// unwindPayout reverses both legs of a payout whose record step failed.
func (e *Engine) unwindPayout(ctx context.Context, developerID uuid.UUID, restore Repair, amount int64) bool {
	ok := e.reverse(ctx, Repair{
		Action: RepairDebitWallet,
		UserID: developerID,
		Amount: amount,
		Reason: restore.Reason,
	})
	return e.reverse(ctx, restore) && ok
}

// reverse applies one compensating action. A compensation that fails is never
// swallowed: it is logged at error severity and handed to the escalator so a
// background worker keeps retrying it.
func (e *Engine) reverse(ctx context.Context, r Repair) bool {
	if err := e.ApplyRepair(ctx, r); err != nil {
		e.Logger.Error("compensation failed, escalating",
			"action", r.Action, "user_id", r.UserID, "project_id", r.ProjectID,
			"amount", r.Amount, "reason", r.Reason, "error", err)
		if e.Escalator != nil {
			if escErr := e.Escalator.EscalateCompensation(ctx, r); escErr != nil {
				e.Logger.Error("compensation escalation failed", "action", r.Action, "error", escErr)
			}
		}
		return false
	}
	return true
}

// wrapNotFound maps a missing-row lookup failure to its kind; anything else
// (a store outage, say) stays an unclassified error.
func wrapNotFound(err error, kind Kind, msg string) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, ledger.ErrNotFound) {
		return wrapError(kind, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

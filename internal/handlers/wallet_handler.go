package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/devlinkgh/backend/internal/gateway"
	"github.com/devlinkgh/backend/internal/middleware"
	"github.com/devlinkgh/backend/internal/models"
)

// DepositInitiator starts a hosted-checkout payment attempt.
type DepositInitiator interface {
	InitiateDeposit(ctx context.Context, amount int64, payerEmail string, walletID uuid.UUID) (*gateway.InitiateResult, error)
}

// DepositReconciler settles a completed payment into the ledger.
type DepositReconciler interface {
	ReconcileDeposit(ctx context.Context, reference string) (int64, error)
}

// WalletReader serves the wallet view.
type WalletReader interface {
	WalletBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListEntriesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// UserReader resolves the caller's email for gateway initiation.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// WalletHandler serves /v1/wallet endpoints.
type WalletHandler struct {
	Gateway DepositInitiator
	Engine  DepositReconciler
	Ledger  WalletReader
	Users   UserReader
	Logger  *slog.Logger
}

type initiateDepositRequest struct {
	Amount int64 `json:"amount"` // pesewas
}

// InitiateDeposit handles POST /v1/wallet/deposits. The caller's wallet id
// rides to the processor as metadata so verification can credit it without
// an email join.
func (h *WalletHandler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req initiateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, `{"error":"amount must be > 0"}`, http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByID(r.Context(), id.UserID)
	if err != nil {
		h.Logger.Error("load user for deposit", "user_id", id.UserID, "error", err)
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		return
	}

	res, err := h.Gateway.InitiateDeposit(r.Context(), req.Amount, user.Email, user.ID)
	if err != nil {
		h.Logger.Error("initiate deposit", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable, try again later"})
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// VerifyDeposit handles GET /v1/wallet/deposits/verify?reference=...; it is
// the synchronous settlement path the hosted checkout redirects back to.
func (h *WalletHandler) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		http.Error(w, `{"error":"reference is required"}`, http.StatusBadRequest)
		return
	}
	amount, err := h.Engine.ReconcileDeposit(r.Context(), reference)
	if err != nil {
		h.Logger.Warn("reconcile deposit", "reference", reference, "error", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": amount})
}

// GetWallet handles GET /v1/wallet: balance plus statement.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	balance, err := h.Ledger.WalletBalance(r.Context(), id.UserID)
	if err != nil {
		h.Logger.Error("wallet balance", "user_id", id.UserID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	entries, err := h.Ledger.ListEntriesByUser(r.Context(), id.UserID)
	if err != nil {
		h.Logger.Error("wallet statement", "user_id", id.UserID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":      balance,
		"transactions": entries,
	})
}

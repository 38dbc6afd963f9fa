package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/devlinkgh/backend/internal/models"
)

// LedgerReader is the read-only ledger view the admin surface needs.
type LedgerReader interface {
	ListEntries(ctx context.Context, limit int) ([]*models.Transaction, error)
}

// Handler serves the admin ledger review endpoints. Routes must sit behind
// JWTAuth + RequireRole(admin); the handler itself only reads.
type Handler struct {
	ledger LedgerReader
	log    *slog.Logger
}

func NewHandler(ledger LedgerReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{ledger: ledger, log: log}
}

// ListTransactions handles GET /v1/admin/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.ledger.ListEntries(r.Context(), limit)
	if err != nil {
		h.log.Error("list transactions", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

// ExportTransactions handles GET /v1/admin/transactions/export as CSV.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ListEntries(r.Context(), 0)
	if err != nil {
		h.log.Error("export transactions", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=transactions-%s.csv", time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "user_id", "direction", "amount_pesewas", "category", "status", "reference", "description", "created_at"})
	for _, t := range entries {
		ref := ""
		if t.Reference != nil {
			ref = *t.Reference
		}
		_ = cw.Write([]string{
			t.ID.String(),
			t.UserID.String(),
			t.Direction,
			strconv.FormatInt(t.Amount, 10),
			t.Category,
			t.Status,
			ref,
			t.Description,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.Error("write csv", "error", err)
	}
}

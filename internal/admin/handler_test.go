package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinkgh/backend/internal/models"
)

type stubLedger struct {
	entries   []*models.Transaction
	err       error
	lastLimit int
}

func (s *stubLedger) ListEntries(_ context.Context, limit int) ([]*models.Transaction, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func sampleEntries() []*models.Transaction {
	ref := "dep_ref_1"
	return []*models.Transaction{
		{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Direction:   models.DirectionCredit,
			Amount:      5_000,
			Category:    models.CategoryDeposit,
			Status:      models.TxStatusCompleted,
			Reference:   &ref,
			Description: "wallet deposit via payment gateway",
			CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Direction:   models.DirectionDebit,
			Amount:      3_000,
			Category:    models.CategoryEscrowFunding,
			Status:      models.TxStatusCompleted,
			Description: `escrow funding for project "storefront build"`,
			CreatedAt:   time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestListTransactions(t *testing.T) {
	ledger := &stubLedger{entries: sampleEntries()}
	h := NewHandler(ledger, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/transactions?limit=50", nil)
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 50, ledger.lastLimit)
	assert.Contains(t, rec.Body.String(), "dep_ref_1")
}

func TestListTransactions_BadLimit(t *testing.T) {
	h := NewHandler(&stubLedger{}, slog.New(slog.DiscardHandler))

	for _, limit := range []string{"abc", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/transactions?limit="+limit, nil)
		rec := httptest.NewRecorder()
		h.ListTransactions(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestListTransactions_StoreError(t *testing.T) {
	h := NewHandler(&stubLedger{err: errors.New("pool exhausted")}, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/transactions", nil)
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportTransactions_CSV(t *testing.T) {
	entries := sampleEntries()
	h := NewHandler(&stubLedger{entries: entries}, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/transactions/export", nil)
	rec := httptest.NewRecorder()
	h.ExportTransactions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"id", "user_id", "direction", "amount_pesewas", "category", "status", "reference", "description", "created_at"}, rows[0])
	assert.Equal(t, entries[0].ID.String(), rows[1][0])
	assert.Equal(t, "5000", rows[1][3])
	assert.Equal(t, "dep_ref_1", rows[1][6])
	assert.Equal(t, "2026-08-01T12:00:00Z", rows[1][8])
	// Entries with no reference export an empty cell, not "<nil>".
	assert.Equal(t, "", rows[2][6])
}

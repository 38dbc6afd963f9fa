package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/devlinkgh/backend/internal/escrow"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEngineError maps an engine failure to a response. AlreadyProcessed is
// success-adjacent: the movement is already in the ledger, so the caller
// sees 200 with a flag instead of an error banner.
func writeEngineError(w http.ResponseWriter, err error) {
	kind := escrow.KindOf(err)
	if kind == escrow.KindAlreadyProcessed {
		writeJSON(w, http.StatusOK, map[string]any{"status": "already_processed"})
		return
	}

	body := map[string]any{"error": err.Error(), "kind": string(kind)}
	var e *escrow.Error
	if errors.As(err, &e) && (e.Kind == escrow.KindEscrowCreditFailed || e.Kind == escrow.KindRecordFailed) {
		body["compensated"] = e.Compensated
	}
	writeJSON(w, engineStatus(kind), body)
}

func engineStatus(kind escrow.Kind) int {
	switch kind {
	case escrow.KindInsufficientFunds, escrow.KindVerificationFailed:
		return http.StatusPaymentRequired
	case escrow.KindRecipientNotFound, escrow.KindClientNotFound,
		escrow.KindDeveloperNotFound, escrow.KindProjectNotFound, escrow.KindTaskNotFound:
		return http.StatusNotFound
	case escrow.KindUnauthorized:
		return http.StatusForbidden
	case escrow.KindGatewayError:
		return http.StatusBadGateway
	case escrow.KindDuplicateReference:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

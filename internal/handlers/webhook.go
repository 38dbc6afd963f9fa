package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// webhookSchema is the shape the processor posts on payment events. Anything
// that fails validation is rejected before a job is enqueued.
const webhookSchema = `{
	"type": "object",
	"required": ["event", "data"],
	"properties": {
		"event": {"type": "string", "minLength": 1},
		"data": {
			"type": "object",
			"required": ["reference"],
			"properties": {
				"reference": {"type": "string", "minLength": 1}
			}
		}
	}
}`

// eventChargeSuccess is the only event that moves money.
const eventChargeSuccess = "charge.success"

// ReconcileEnqueuer schedules an asynchronous deposit reconciliation.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, reference string) error
}

// WebhookHandler receives the processor's server-to-server payment events.
// The webhook only enqueues; the reconcile worker owns the money movement,
// and the ledger's reference constraint makes replays harmless.
type WebhookHandler struct {
	enqueuer ReconcileEnqueuer
	schema   *jsonschema.Schema
	log      *slog.Logger
}

func NewWebhookHandler(enqueuer ReconcileEnqueuer, log *slog.Logger) (*WebhookHandler, error) {
	schema, err := jsonschema.CompileString("https://devlinkgh.dev/schemas/gateway-webhook", webhookSchema)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{enqueuer: enqueuer, schema: schema, log: log}, nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Handle handles POST /v1/gateway/webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.schema.Validate(raw); err != nil {
		h.log.Warn("webhook payload rejected", "error", err)
		http.Error(w, `{"error":"invalid webhook payload"}`, http.StatusBadRequest)
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	if evt.Event != eventChargeSuccess {
		// Acked so the processor stops redelivering events we don't act on.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.enqueuer.EnqueueReconcile(r.Context(), evt.Data.Reference); err != nil {
		h.log.Error("enqueue reconcile", "reference", evt.Data.Reference, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

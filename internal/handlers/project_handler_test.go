package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinkgh/backend/internal/escrow"
	"github.com/devlinkgh/backend/internal/middleware"
	"github.com/devlinkgh/backend/internal/models"
)

type stubProjectStore struct {
	created  []*models.Project
	byClient map[uuid.UUID][]*models.Project
}

func (s *stubProjectStore) Create(_ context.Context, p *models.Project) error {
	s.created = append(s.created, p)
	return nil
}

func (s *stubProjectStore) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	return nil, nil
}

func (s *stubProjectStore) ListByClientID(_ context.Context, clientID uuid.UUID) ([]*models.Project, error) {
	return s.byClient[clientID], nil
}

type stubFunder struct {
	err    error
	caller escrow.Caller
	amount int64
	key    string
}

func (s *stubFunder) FundEscrow(_ context.Context, caller escrow.Caller, _ uuid.UUID, amount int64, idemKey string) error {
	s.caller, s.amount, s.key = caller, amount, idemKey
	return s.err
}

func authedRequest(method, target, body string, id *middleware.Identity) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), id))
	}
	return req
}

func TestCreateProject(t *testing.T) {
	store := &stubProjectStore{}
	h := &ProjectHandler{Projects: store, Logger: slog.New(slog.DiscardHandler)}
	clientID := uuid.New()

	req := authedRequest(http.MethodPost, "/v1/projects",
		`{"title":"storefront build","description":"shopify migration","budget":1000000}`,
		&middleware.Identity{UserID: clientID, Role: models.RoleClient})
	rec := httptest.NewRecorder()
	h.CreateProject(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	p := store.created[0]
	assert.Equal(t, clientID, p.ClientID)
	assert.Equal(t, int64(1_000_000), p.Budget)
	assert.Equal(t, models.ProjectStatusOpen, p.Status)
	assert.Zero(t, p.EscrowBalance)
}

func TestCreateProject_Validation(t *testing.T) {
	h := &ProjectHandler{Projects: &stubProjectStore{}, Logger: slog.New(slog.DiscardHandler)}
	id := &middleware.Identity{UserID: uuid.New(), Role: models.RoleClient}

	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{"budget":1000}`},
		{"zero budget", `{"title":"x","budget":0}`},
		{"negative budget", `{"title":"x","budget":-5}`},
		{"bad json", `{"title":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateProject(rec, authedRequest(http.MethodPost, "/v1/projects", tc.body, id))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFundEscrow_PassesCallerAndKey(t *testing.T) {
	funder := &stubFunder{}
	h := &ProjectHandler{Engine: funder, Logger: slog.New(slog.DiscardHandler)}
	clientID := uuid.New()
	projectID := uuid.New()

	req := authedRequest(http.MethodPost, "/v1/projects/"+projectID.String()+"/fund",
		`{"amount":4000,"idempotency_key":"fund-1"}`,
		&middleware.Identity{UserID: clientID, Role: models.RoleClient})
	req.SetPathValue("id", projectID.String())
	rec := httptest.NewRecorder()
	h.FundEscrow(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clientID, funder.caller.ID)
	assert.Equal(t, models.RoleClient, funder.caller.Role)
	assert.Equal(t, int64(4_000), funder.amount)
	assert.Equal(t, "fund-1", funder.key)
}

func TestFundEscrow_EngineErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient funds", &escrow.Error{Kind: escrow.KindInsufficientFunds}, http.StatusPaymentRequired},
		{"project not found", &escrow.Error{Kind: escrow.KindProjectNotFound}, http.StatusNotFound},
		{"unauthorized", &escrow.Error{Kind: escrow.KindUnauthorized}, http.StatusForbidden},
		{"gateway error", &escrow.Error{Kind: escrow.KindGatewayError}, http.StatusBadGateway},
		{"compensated failure", &escrow.Error{Kind: escrow.KindEscrowCreditFailed, Compensated: true}, http.StatusInternalServerError},
	}
	projectID := uuid.New()
	id := &middleware.Identity{UserID: uuid.New(), Role: models.RoleClient}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &ProjectHandler{Engine: &stubFunder{err: tc.err}, Logger: slog.New(slog.DiscardHandler)}
			req := authedRequest(http.MethodPost, "/v1/projects/"+projectID.String()+"/fund",
				`{"amount":4000,"idempotency_key":"fund-2"}`, id)
			req.SetPathValue("id", projectID.String())
			rec := httptest.NewRecorder()
			h.FundEscrow(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestFundEscrow_AlreadyProcessedIsOK(t *testing.T) {
	h := &ProjectHandler{
		Engine: &stubFunder{err: &escrow.Error{Kind: escrow.KindAlreadyProcessed}},
		Logger: slog.New(slog.DiscardHandler),
	}
	projectID := uuid.New()

	req := authedRequest(http.MethodPost, "/v1/projects/"+projectID.String()+"/fund",
		`{"amount":4000,"idempotency_key":"fund-3"}`,
		&middleware.Identity{UserID: uuid.New(), Role: models.RoleClient})
	req.SetPathValue("id", projectID.String())
	rec := httptest.NewRecorder()
	h.FundEscrow(rec, req)

	// A replayed funding already sits in the ledger; the retry succeeded.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_processed")
}

func TestFundEscrow_CompensatedFlagSurfaced(t *testing.T) {
	h := &ProjectHandler{
		Engine: &stubFunder{err: &escrow.Error{Kind: escrow.KindEscrowCreditFailed, Msg: "escrow credit failed", Compensated: false}},
		Logger: slog.New(slog.DiscardHandler),
	}
	projectID := uuid.New()

	req := authedRequest(http.MethodPost, "/v1/projects/"+projectID.String()+"/fund",
		`{"amount":4000,"idempotency_key":"fund-4"}`,
		&middleware.Identity{UserID: uuid.New(), Role: models.RoleClient})
	req.SetPathValue("id", projectID.String())
	rec := httptest.NewRecorder()
	h.FundEscrow(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	compensated, ok := body["compensated"].(bool)
	require.True(t, ok, "response must carry the compensated flag")
	assert.False(t, compensated)
}

func TestFundEscrow_Validation(t *testing.T) {
	h := &ProjectHandler{Engine: &stubFunder{}, Logger: slog.New(slog.DiscardHandler)}
	projectID := uuid.New()
	id := &middleware.Identity{UserID: uuid.New(), Role: models.RoleClient}

	cases := []struct {
		name   string
		pathID string
		body   string
	}{
		{"bad project id", "not-a-uuid", `{"amount":4000,"idempotency_key":"k"}`},
		{"zero amount", projectID.String(), `{"amount":0,"idempotency_key":"k"}`},
		{"missing key", projectID.String(), `{"amount":4000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/v1/projects/"+tc.pathID+"/fund", tc.body, id)
			req.SetPathValue("id", tc.pathID)
			rec := httptest.NewRecorder()
			h.FundEscrow(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

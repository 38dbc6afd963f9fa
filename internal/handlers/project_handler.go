package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/devlinkgh/backend/internal/escrow"
	"github.com/devlinkgh/backend/internal/middleware"
	"github.com/devlinkgh/backend/internal/models"
)

// ProjectStore is the project persistence the handler needs.
type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListByClientID(ctx context.Context, clientID uuid.UUID) ([]*models.Project, error)
}

// EscrowFunder is the engine's funding side.
type EscrowFunder interface {
	FundEscrow(ctx context.Context, caller escrow.Caller, projectID uuid.UUID, amount int64, idemKey string) error
}

// ProjectHandler serves /v1/projects endpoints.
type ProjectHandler struct {
	Projects ProjectStore
	Engine   EscrowFunder
	Logger   *slog.Logger
}

type createProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      int64  `json:"budget"` // pesewas
}

// CreateProject handles POST /v1/projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}
	if req.Budget <= 0 {
		http.Error(w, `{"error":"budget must be > 0"}`, http.StatusBadRequest)
		return
	}

	p := &models.Project{
		ID:          uuid.New(),
		ClientID:    id.UserID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Status:      models.ProjectStatusOpen,
	}
	if err := h.Projects.Create(r.Context(), p); err != nil {
		h.Logger.Error("create project", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProjects handles GET /v1/projects (the caller's own projects).
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	projects, err := h.Projects.ListByClientID(r.Context(), id.UserID)
	if err != nil {
		h.Logger.Error("list projects", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

type fundEscrowRequest struct {
	Amount         int64  `json:"amount"` // pesewas
	IdempotencyKey string `json:"idempotency_key"`
}

// FundEscrow handles POST /v1/projects/{id}/fund.
func (h *ProjectHandler) FundEscrow(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	projectID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid project id"}`, http.StatusBadRequest)
		return
	}
	var req fundEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, `{"error":"amount must be > 0"}`, http.StatusBadRequest)
		return
	}
	if req.IdempotencyKey == "" {
		http.Error(w, `{"error":"idempotency_key is required"}`, http.StatusBadRequest)
		return
	}

	caller := escrow.Caller{ID: id.UserID, Role: id.Role}
	if err := h.Engine.FundEscrow(r.Context(), caller, projectID, req.Amount, req.IdempotencyKey); err != nil {
		h.Logger.Warn("fund escrow", "project_id", projectID, "error", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

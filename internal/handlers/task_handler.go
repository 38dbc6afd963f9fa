package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/devlinkgh/backend/internal/escrow"
	"github.com/devlinkgh/backend/internal/middleware"
	"github.com/devlinkgh/backend/internal/models"
	"github.com/devlinkgh/backend/internal/repository"
)

// TaskStore is the task persistence the handler needs.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error)
	Assign(ctx context.Context, id, assigneeID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ProjectReader resolves ownership for task mutations.
type ProjectReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// DeveloperPayer is the engine's payout side.
type DeveloperPayer interface {
	PayDeveloper(ctx context.Context, caller escrow.Caller, taskID, developerID uuid.UUID, amount int64, idemKey string) error
}

// TaskHandler serves /v1/tasks endpoints.
type TaskHandler struct {
	Tasks    TaskStore
	Projects ProjectReader
	Engine   DeveloperPayer
	Logger   *slog.Logger
}

type createTaskRequest struct {
	ProjectID    string `json:"project_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	BudgetPayout int64  `json:"budget_payout"` // pesewas
}

// CreateTask handles POST /v1/tasks. Only the owning client may add tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		http.Error(w, `{"error":"invalid project_id"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}
	if req.BudgetPayout <= 0 {
		http.Error(w, `{"error":"budget_payout must be > 0"}`, http.StatusBadRequest)
		return
	}

	project, err := h.Projects.GetByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, `{"error":"project not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("load project", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if project.ClientID != id.UserID && id.Role != models.RoleAdmin {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	t := &models.Task{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.TaskStatusOpen,
		BudgetPayout: req.BudgetPayout,
	}
	if err := h.Tasks.Create(r.Context(), t); err != nil {
		h.Logger.Error("create task", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type assignTaskRequest struct {
	DeveloperID string `json:"developer_id"`
}

// AssignTask handles POST /v1/tasks/{id}/assign.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req assignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	developerID, err := uuid.Parse(req.DeveloperID)
	if err != nil {
		http.Error(w, `{"error":"invalid developer_id"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("load task", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	project, err := h.Projects.GetByID(r.Context(), task.ProjectID)
	if err != nil {
		h.Logger.Error("load project", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if project.ClientID != id.UserID && id.Role != models.RoleAdmin {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	if task.Status != models.TaskStatusOpen {
		http.Error(w, `{"error":"task is not open"}`, http.StatusConflict)
		return
	}

	if err := h.Tasks.Assign(r.Context(), taskID, developerID); err != nil {
		h.Logger.Error("assign task", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.TaskStatusAssigned})
}

type payoutRequest struct {
	DeveloperID    string `json:"developer_id"`
	Amount         int64  `json:"amount"` // pesewas
	IdempotencyKey string `json:"idempotency_key"`
}

// Payout handles POST /v1/tasks/{id}/payout. The engine enforces the admin
// requirement; the route additionally sits behind RequireRole(admin).
func (h *TaskHandler) Payout(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req payoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	developerID, err := uuid.Parse(req.DeveloperID)
	if err != nil {
		http.Error(w, `{"error":"invalid developer_id"}`, http.StatusBadRequest)
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
	if err := h.Engine.PayDeveloper(r.Context(), caller, taskID, developerID, req.Amount, req.IdempotencyKey); err != nil {
		h.Logger.Warn("pay developer", "task_id", taskID, "error", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. Tasks move strictly forward through this chain.
const (
	TaskStatusOpen       = "open"
	TaskStatusAssigned   = "assigned"
	TaskStatusInProgress = "in_progress"
	TaskStatusQAReady    = "qa_ready"
	TaskStatusCompleted  = "completed"
)

// Task is one unit of work inside a project. BudgetPayout is the portion of
// the project budget allocated to it, in pesewas.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    uuid.UUID  `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	AssigneeID   *uuid.UUID `json:"assignee_id,omitempty"`
	BudgetPayout int64      `json:"budget_payout"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

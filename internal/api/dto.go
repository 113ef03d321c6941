package api

import (
	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/relindex"
	"github.com/starford/mimir/internal/search"
)

// SaveCheckpointRequest is the request body for saving a checkpoint.
type SaveCheckpointRequest struct {
	Description string   `json:"description" example:"finished auth refactor" validate:"required"`
	Highlights  []string `json:"highlights,omitempty"`
	ActiveFiles []string `json:"activeFiles,omitempty"`
	WorkContext string   `json:"workContext,omitempty"`
	SessionID   string   `json:"sessionId,omitempty"`
	GitBranch   string   `json:"gitBranch,omitempty" example:"feature/auth"`
	Tags        []string `json:"tags,omitempty"`
	Global      bool     `json:"isGlobal,omitempty"`
	TTLHours    int      `json:"ttlHours,omitempty" example:"720"`
}

// AddHighlightRequest is the request body for appending a highlight.
type AddHighlightRequest struct {
	Highlight string `json:"highlight" validate:"required"`
}

// CreateTodoListRequest is the request body for creating a todo list.
type CreateTodoListRequest struct {
	Title       string   `json:"title" example:"auth follow-ups" validate:"required"`
	Description string   `json:"description,omitempty"`
	Items       []string `json:"items,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AddTodoItemRequest is the request body for appending a todo item.
type AddTodoItemRequest struct {
	Content string `json:"content" validate:"required"`
}

// SetItemStatusRequest is the request body for updating one item's status.
type SetItemStatusRequest struct {
	Status string `json:"status" example:"done" validate:"required"`
}

// CreatePlanRequest is the request body for creating a plan.
type CreatePlanRequest struct {
	Title       string   `json:"title" example:"migrate to v2 API" validate:"required"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Items       []string `json:"items,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	TTLHours    int      `json:"ttlHours,omitempty"`
}

// UpdatePlanRequest is the request body for a partial plan update.
type UpdatePlanRequest struct {
	Status            string   `json:"status,omitempty" example:"active"`
	Discovery         string   `json:"discovery,omitempty"`
	GeneratedTodoID   string   `json:"generatedTodoId,omitempty"`
	RelatedCheckpoint string   `json:"relatedCheckpoint,omitempty"`
	AdditionalItems   []string `json:"additionalItems,omitempty"`
	AdditionalTags    []string `json:"additionalTags,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// CheckpointListResponse wraps checkpoint listings.
type CheckpointListResponse struct {
	Checkpoints []models.Checkpoint `json:"checkpoints" validate:"required"`
	Total       int                 `json:"total" example:"12" validate:"required"`
}

// TodoListResponse wraps todo-list listings.
type TodoListResponse struct {
	Lists []models.TodoList `json:"lists" validate:"required"`
	Total int               `json:"total" validate:"required"`
}

// PlanListResponse wraps plan listings.
type PlanListResponse struct {
	Plans []models.Plan `json:"plans" validate:"required"`
	Total int           `json:"total" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Result `json:"results" validate:"required"`
}

// WorkspaceListResponse wraps workspace listings.
type WorkspaceListResponse struct {
	Workspaces []models.WorkspaceState `json:"workspaces" validate:"required"`
}

// SweepResponse reports how many records a retention sweep removed.
type SweepResponse struct {
	Removed int `json:"removed" example:"3" validate:"required"`
}

// PlanLinksDetail is the relationship row for one plan (aliased from the index layer).
type PlanLinksDetail = relindex.PlanLinks

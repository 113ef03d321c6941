// Package models defines the domain types for Mimir.
//
// Field names in the JSON representation are part of the external contract
// shared with the migration bridge and must not be renamed.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Entity kinds, used as partition names inside a workspace.
const (
	KindCheckpoint = "checkpoints"
	KindTodoList   = "todos"
	KindPlan       = "plans"
	KindChronicle  = "chronicle"
)

// GlobalWorkspace is the reserved pseudo-workspace for notes that are not
// tied to one project.
const GlobalWorkspace = "global"

// Todo item states.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusDone    = "done"
)

// Plan states.
const (
	PlanDraft     = "draft"
	PlanActive    = "active"
	PlanCompleted = "completed"
	PlanAbandoned = "abandoned"
)

// Checkpoint is a session snapshot.
type Checkpoint struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Description string    `json:"description"`
	Highlights  []string  `json:"highlights,omitempty"`
	ActiveFiles []string  `json:"activeFiles,omitempty"`
	WorkContext string    `json:"workContext,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	GitBranch   string    `json:"gitBranch,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Global      bool      `json:"isGlobal,omitempty"`
	TTLHours    int       `json:"ttlHours,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks required fields before persistence.
func (c *Checkpoint) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Description, validation.Required),
		validation.Field(&c.TTLHours, validation.Min(0)),
	)
}

// TodoItem is one entry in a TodoList. Its id is a list-local sequence
// number, never globally unique.
type TodoItem struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the item content and status enum.
func (i TodoItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Content, validation.Required),
		validation.Field(&i.Status, validation.Required,
			validation.In(StatusPending, StatusActive, StatusDone)),
	)
}

// TodoList is an ordered collection of todo items.
type TodoList struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"isActive"`
	Items       []TodoItem `json:"items"`
	Tags        []string   `json:"tags,omitempty"`
	TTLHours    int        `json:"ttlHours,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate checks required fields and every item.
func (l *TodoList) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Title, validation.Required),
		validation.Field(&l.Items),
		validation.Field(&l.TTLHours, validation.Min(0)),
	)
}

// OpenItems reports whether the list still has at least one item that is
// not done.
func (l *TodoList) OpenItems() bool {
	for _, it := range l.Items {
		if it.Status != StatusDone {
			return true
		}
	}
	return false
}

// NextItemID returns the next list-local item sequence number.
func (l *TodoList) NextItemID() int {
	max := 0
	for _, it := range l.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// Plan captures intended work plus discoveries made while executing it.
type Plan struct {
	ID                 string    `json:"id"`
	WorkspaceID        string    `json:"workspaceId"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Category           string    `json:"category,omitempty"`
	Priority           string    `json:"priority,omitempty"`
	Status             string    `json:"status"`
	Items              []string  `json:"items,omitempty"`
	Discoveries        []string  `json:"discoveries,omitempty"`
	GeneratedTodos     []string  `json:"generatedTodos,omitempty"`
	RelatedCheckpoints []string  `json:"relatedCheckpoints,omitempty"`
	Tags               []string  `json:"tags,omitempty"`
	TTLHours           int       `json:"ttlHours,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Validate checks required fields and the status enum.
func (p *Plan) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Status, validation.Required,
			validation.In(PlanDraft, PlanActive, PlanCompleted, PlanAbandoned)),
		validation.Field(&p.TTLHours, validation.Min(0)),
	)
}

// ChronicleEntry is a timestamped journal line (milestone, discovery, ...)
// optionally back-referencing the entity it concerns.
type ChronicleEntry struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspaceId"`
	Description  string    `json:"description"`
	Type         string    `json:"type,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	PlanID       string    `json:"planId,omitempty"`
	TodoListID   string    `json:"todoListId,omitempty"`
	CheckpointID string    `json:"checkpointId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks required fields.
func (e *ChronicleEntry) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Description, validation.Required),
	)
}

// WorkspaceState records workspace-level bookkeeping. Its presence (or that
// of a checkpoints/todos partition) makes a workspace discoverable.
type WorkspaceState struct {
	WorkspaceID  string    `json:"workspaceId"`
	LastActivity time.Time `json:"lastActivity"`
}

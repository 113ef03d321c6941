// Package memservice coordinates the store, search engine, relationship
// index, and smart-reference resolver behind one service type consumed by
// the HTTP and MCP transports.
package memservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/relindex"
	"github.com/starford/mimir/internal/resolver"
	"github.com/starford/mimir/internal/search"
	"github.com/starford/mimir/internal/store"
)

// Service is the coordination layer over the memory core.
type Service struct {
	store  *store.Store
	engine *search.Engine
	index  *relindex.DB
	logger *slog.Logger
}

// New creates a Service.
func New(st *store.Store, idx *relindex.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		engine: search.New(st, logger),
		index:  idx,
		logger: logger,
	}
}

// Store exposes the underlying store for transports that need direct reads.
func (s *Service) Store() *store.Store { return s.store }

// SaveCheckpoint persists a checkpoint and journals the event in the
// workspace chronicle.
func (s *Service) SaveCheckpoint(_ context.Context, cp *models.Checkpoint) (*models.Checkpoint, error) {
	saved, err := s.store.SaveCheckpoint(cp)
	if err != nil {
		return nil, err
	}
	s.journal(saved.WorkspaceID, "checkpoint", saved.Description, func(e *models.ChronicleEntry) {
		e.CheckpointID = saved.ID
	})
	return saved, nil
}

// GetCheckpoint resolves a smart reference or id within one workspace.
func (s *Service) GetCheckpoint(_ context.Context, ws, ref string) (*models.Checkpoint, error) {
	cps, err := s.store.ListCheckpoints(ws)
	if err != nil {
		return nil, err
	}
	cands := make([]resolver.Candidate, len(cps))
	for i, cp := range cps {
		cands[i] = resolver.Candidate{ID: cp.ID, UpdatedAt: cp.UpdatedAt, Value: cps[i]}
	}
	hit, err := resolver.Resolve(ref, cands)
	if err != nil {
		return nil, err
	}
	cp := hit.Value.(models.Checkpoint)
	return &cp, nil
}

// ListCheckpoints lists one workspace's checkpoints, oldest first.
func (s *Service) ListCheckpoints(_ context.Context, ws string) ([]models.Checkpoint, error) {
	return s.store.ListCheckpoints(ws)
}

// DeleteCheckpoint removes one checkpoint by exact id.
func (s *Service) DeleteCheckpoint(_ context.Context, ws, id string) error {
	return s.store.DeleteCheckpoint(ws, id)
}

// AddHighlight appends a highlight to a resolved checkpoint. Highlights
// are append-only; existing entries are never rewritten.
func (s *Service) AddHighlight(ctx context.Context, ws, ref, highlight string) (*models.Checkpoint, error) {
	cp, err := s.GetCheckpoint(ctx, ws, ref)
	if err != nil {
		return nil, err
	}
	cp.Highlights = append(cp.Highlights, highlight)
	return s.store.SaveCheckpoint(cp)
}

// CreateTodoList persists a new list with pending items.
func (s *Service) CreateTodoList(_ context.Context, ws, title, description string, tags, items []string) (*models.TodoList, error) {
	list := &models.TodoList{
		WorkspaceID: ws,
		Title:       title,
		Description: description,
		Active:      true,
		Tags:        tags,
	}
	for i, content := range items {
		list.Items = append(list.Items, models.TodoItem{
			ID:      i + 1,
			Content: content,
			Status:  models.StatusPending,
		})
	}
	saved, err := s.store.SaveTodoList(list)
	if err != nil {
		return nil, err
	}
	s.journal(ws, "todo", "created list: "+title, func(e *models.ChronicleEntry) {
		e.TodoListID = saved.ID
	})
	return saved, nil
}

// ResolveTodoList turns a smart reference ("latest", "active", partial id)
// into a concrete list.
func (s *Service) ResolveTodoList(_ context.Context, ws, ref string) (*models.TodoList, error) {
	lists, err := s.store.ListTodoLists(ws)
	if err != nil {
		return nil, err
	}
	cands := make([]resolver.Candidate, len(lists))
	for i := range lists {
		cands[i] = resolver.Candidate{
			ID:        lists[i].ID,
			UpdatedAt: lists[i].UpdatedAt,
			Open:      lists[i].OpenItems(),
			Value:     lists[i],
		}
	}
	hit, err := resolver.Resolve(ref, cands)
	if err != nil {
		return nil, err
	}
	list := hit.Value.(models.TodoList)
	return &list, nil
}

// ListTodoLists lists one workspace's todo lists, oldest first.
func (s *Service) ListTodoLists(_ context.Context, ws string) ([]models.TodoList, error) {
	return s.store.ListTodoLists(ws)
}

// AddTodoItem appends a pending item to a resolved list.
func (s *Service) AddTodoItem(ctx context.Context, ws, ref, content string) (*models.TodoList, error) {
	list, err := s.ResolveTodoList(ctx, ws, ref)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	list.Items = append(list.Items, models.TodoItem{
		ID:        list.NextItemID(),
		Content:   content,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return s.store.SaveTodoList(list)
}

// SetTodoItemStatus updates one item's status on a resolved list.
func (s *Service) SetTodoItemStatus(ctx context.Context, ws, ref string, itemID int, status string) (*models.TodoList, error) {
	list, err := s.ResolveTodoList(ctx, ws, ref)
	if err != nil {
		return nil, err
	}
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].Status = status
			list.Items[i].UpdatedAt = time.Now()
			return s.store.SaveTodoList(list)
		}
	}
	return nil, itemNotFound(list.ID, itemID)
}

// CreatePlan persists a new plan.
func (s *Service) CreatePlan(_ context.Context, p *models.Plan) (*models.Plan, error) {
	saved, err := s.store.SavePlan(p)
	if err != nil {
		return nil, err
	}
	s.journal(saved.WorkspaceID, "plan", "created plan: "+saved.Title, func(e *models.ChronicleEntry) {
		e.PlanID = saved.ID
	})
	return saved, nil
}

// ResolvePlan turns a smart reference into a concrete plan. A plan counts
// as open while it is still draft or active.
func (s *Service) ResolvePlan(_ context.Context, ws, ref string) (*models.Plan, error) {
	plans, err := s.store.ListPlans(ws)
	if err != nil {
		return nil, err
	}
	cands := make([]resolver.Candidate, len(plans))
	for i := range plans {
		cands[i] = resolver.Candidate{
			ID:        plans[i].ID,
			UpdatedAt: plans[i].UpdatedAt,
			Open:      plans[i].Status == models.PlanDraft || plans[i].Status == models.PlanActive,
			Value:     plans[i],
		}
	}
	hit, err := resolver.Resolve(ref, cands)
	if err != nil {
		return nil, err
	}
	plan := hit.Value.(models.Plan)
	return &plan, nil
}

// ListPlans lists one workspace's plans, oldest first.
func (s *Service) ListPlans(_ context.Context, ws string) ([]models.Plan, error) {
	return s.store.ListPlans(ws)
}

// UpdatePlan applies a partial update to a resolved plan. Discoveries are
// append-only.
type PlanUpdate struct {
	Status             string
	Discovery          string
	GeneratedTodoID    string
	RelatedCheckpoint  string
	AdditionalItems    []string
	AdditionalTags     []string
	DescriptionReplace string
}

// UpdatePlan resolves ref and applies the given update.
func (s *Service) UpdatePlan(ctx context.Context, ws, ref string, up PlanUpdate) (*models.Plan, error) {
	plan, err := s.ResolvePlan(ctx, ws, ref)
	if err != nil {
		return nil, err
	}
	if up.Status != "" {
		plan.Status = up.Status
	}
	if up.Discovery != "" {
		plan.Discoveries = append(plan.Discoveries, up.Discovery)
	}
	if up.GeneratedTodoID != "" {
		plan.GeneratedTodos = append(plan.GeneratedTodos, up.GeneratedTodoID)
	}
	if up.RelatedCheckpoint != "" {
		plan.RelatedCheckpoints = append(plan.RelatedCheckpoints, up.RelatedCheckpoint)
	}
	plan.Items = append(plan.Items, up.AdditionalItems...)
	plan.Tags = append(plan.Tags, up.AdditionalTags...)
	if up.DescriptionReplace != "" {
		plan.Description = up.DescriptionReplace
	}
	return s.store.SavePlan(plan)
}

// Search runs a ranked search.
func (s *Service) Search(_ context.Context, p search.Params) ([]search.Result, error) {
	return s.engine.Search(p)
}

// PlanLinks returns the cached relationship row for one plan.
func (s *Service) PlanLinks(_ context.Context, planID string) (*relindex.PlanLinks, error) {
	return s.index.Get(planID)
}

// RebuildIndex forces a relationship-index rebuild for one workspace.
func (s *Service) RebuildIndex(_ context.Context, ws string) error {
	return s.index.Rebuild(s.store, ws)
}

// Workspaces returns all discoverable workspaces.
func (s *Service) Workspaces(_ context.Context) ([]models.WorkspaceState, error) {
	return s.store.DiscoverWorkspaces()
}

// Sweep runs the retention sweep for one workspace.
func (s *Service) Sweep(_ context.Context, ws string) (int, error) {
	return s.store.SweepExpired(ws)
}

// journal appends a chronicle entry; journaling is bookkeeping and never
// fails the primary operation.
func (s *Service) journal(ws, entryType, description string, set func(*models.ChronicleEntry)) {
	e := &models.ChronicleEntry{
		WorkspaceID: ws,
		Description: description,
		Type:        entryType,
	}
	if set != nil {
		set(e)
	}
	if _, err := s.store.SaveChronicleEntry(e); err != nil {
		s.logger.Warn("memservice: journal entry failed",
			slog.String("workspace", ws),
			slog.String("error", err.Error()))
	}
}

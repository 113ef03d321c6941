package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/memservice"
	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc              *memservice.Service
	defaultWorkspace string
}

// NewHandler creates a new Handler.
func NewHandler(svc *memservice.Service, defaultWorkspace string) *Handler {
	return &Handler{svc: svc, defaultWorkspace: defaultWorkspace}
}

// workspace returns the workspace query parameter, falling back to the
// configured default. The core layers never guess a workspace; the
// fallback lives here at the transport boundary.
func (h *Handler) workspace(r *http.Request) string {
	if ws := r.URL.Query().Get("workspace"); ws != "" {
		return ws
	}
	return h.defaultWorkspace
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case apperr.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListCheckpoints handles GET /api/checkpoints.
//
//	@Summary		List checkpoints of a workspace, oldest first
//	@Tags			checkpoints
//	@Produce		json
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	CheckpointListResponse
//	@Security		BearerAuth
//	@Router			/checkpoints [get]
func (h *Handler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	cps, err := h.svc.ListCheckpoints(r.Context(), h.workspace(r))
	if err != nil {
		writeError(w, "list checkpoints", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkpoints": cps,
		"total":       len(cps),
	})
}

// SaveCheckpoint handles POST /api/checkpoints.
//
//	@Summary		Save a session checkpoint
//	@Tags			checkpoints
//	@Accept			json
//	@Produce		json
//	@Param			workspace	query		string					false	"Workspace id"
//	@Param			body		body		SaveCheckpointRequest	true	"Checkpoint to save"
//	@Success		201			{object}	models.Checkpoint
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkpoints [post]
func (h *Handler) SaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SaveCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	cp := &models.Checkpoint{
		WorkspaceID: h.workspace(r),
		Description: req.Description,
		Highlights:  req.Highlights,
		ActiveFiles: req.ActiveFiles,
		WorkContext: req.WorkContext,
		SessionID:   req.SessionID,
		GitBranch:   req.GitBranch,
		Tags:        req.Tags,
		Global:      req.Global,
		TTLHours:    req.TTLHours,
	}
	saved, err := h.svc.SaveCheckpoint(r.Context(), cp)
	if err != nil {
		writeError(w, "save checkpoint", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetCheckpoint handles GET /api/checkpoints/{ref}.
//
//	@Summary		Get a checkpoint by id or smart reference
//	@Tags			checkpoints
//	@Produce		json
//	@Param			ref			path		string	true	"Checkpoint id, id suffix, or keyword (latest)"
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	models.Checkpoint
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkpoints/{ref} [get]
func (h *Handler) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := h.svc.GetCheckpoint(r.Context(), h.workspace(r), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, "get checkpoint", err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// DeleteCheckpoint handles DELETE /api/checkpoints/{ref}.
//
//	@Summary		Delete a checkpoint by exact id
//	@Tags			checkpoints
//	@Param			ref			path	string	true	"Checkpoint id"
//	@Param			workspace	query	string	false	"Workspace id"
//	@Success		204			"Checkpoint deleted"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkpoints/{ref} [delete]
func (h *Handler) DeleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCheckpoint(r.Context(), h.workspace(r), chi.URLParam(r, "ref")); err != nil {
		writeError(w, "delete checkpoint", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddHighlight handles POST /api/checkpoints/{ref}/highlights.
//
//	@Summary		Append a highlight to a checkpoint
//	@Tags			checkpoints
//	@Accept			json
//	@Produce		json
//	@Param			ref			path		string				true	"Checkpoint id or smart reference"
//	@Param			workspace	query		string				false	"Workspace id"
//	@Param			body		body		AddHighlightRequest	true	"Highlight to append"
//	@Success		200			{object}	models.Checkpoint
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/checkpoints/{ref}/highlights [post]
func (h *Handler) AddHighlight(w http.ResponseWriter, r *http.Request) {
	var req AddHighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Highlight == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("highlight is required"))
		return
	}
	cp, err := h.svc.AddHighlight(r.Context(), h.workspace(r), chi.URLParam(r, "ref"), req.Highlight)
	if err != nil {
		writeError(w, "add highlight", err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// ListTodoLists handles GET /api/todos.
//
//	@Summary		List todo lists of a workspace, oldest first
//	@Tags			todos
//	@Produce		json
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	TodoListResponse
//	@Security		BearerAuth
//	@Router			/todos [get]
func (h *Handler) ListTodoLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.ListTodoLists(r.Context(), h.workspace(r))
	if err != nil {
		writeError(w, "list todo lists", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lists": lists,
		"total": len(lists),
	})
}

// CreateTodoList handles POST /api/todos.
//
//	@Summary		Create a todo list with pending items
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			workspace	query		string					false	"Workspace id"
//	@Param			body		body		CreateTodoListRequest	true	"List to create"
//	@Success		201			{object}	models.TodoList
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos [post]
func (h *Handler) CreateTodoList(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	list, err := h.svc.CreateTodoList(r.Context(), h.workspace(r), req.Title, req.Description, req.Tags, req.Items)
	if err != nil {
		writeError(w, "create todo list", err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// GetTodoList handles GET /api/todos/{ref}.
//
//	@Summary		Get a todo list by id or smart reference
//	@Tags			todos
//	@Produce		json
//	@Param			ref			path		string	true	"List id, id suffix, or keyword (latest, active)"
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	models.TodoList
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/{ref} [get]
func (h *Handler) GetTodoList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ResolveTodoList(r.Context(), h.workspace(r), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, "get todo list", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AddTodoItem handles POST /api/todos/{ref}/items.
//
//	@Summary		Append a pending item to a todo list
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			ref			path		string				true	"List id or smart reference"
//	@Param			workspace	query		string				false	"Workspace id"
//	@Param			body		body		AddTodoItemRequest	true	"Item to append"
//	@Success		200			{object}	models.TodoList
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/{ref}/items [post]
func (h *Handler) AddTodoItem(w http.ResponseWriter, r *http.Request) {
	var req AddTodoItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	list, err := h.svc.AddTodoItem(r.Context(), h.workspace(r), chi.URLParam(r, "ref"), req.Content)
	if err != nil {
		writeError(w, "add todo item", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SetTodoItemStatus handles PUT /api/todos/{ref}/items/{itemID}.
//
//	@Summary		Update one item's status
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			ref			path		string				true	"List id or smart reference"
//	@Param			itemID		path		int					true	"Item number"
//	@Param			workspace	query		string				false	"Workspace id"
//	@Param			body		body		SetItemStatusRequest	true	"New status"
//	@Success		200			{object}	models.TodoList
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/{ref}/items/{itemID} [put]
func (h *Handler) SetTodoItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid item number"))
		return
	}
	var req SetItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	list, err := h.svc.SetTodoItemStatus(r.Context(), h.workspace(r), chi.URLParam(r, "ref"), itemID, req.Status)
	if err != nil {
		writeError(w, "set todo item status", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListPlans handles GET /api/plans.
//
//	@Summary		List plans of a workspace, oldest first
//	@Tags			plans
//	@Produce		json
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	PlanListResponse
//	@Security		BearerAuth
//	@Router			/plans [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context(), h.workspace(r))
	if err != nil {
		writeError(w, "list plans", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plans": plans,
		"total": len(plans),
	})
}

// CreatePlan handles POST /api/plans.
//
//	@Summary		Create a plan
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Param			workspace	query		string				false	"Workspace id"
//	@Param			body		body		CreatePlanRequest	true	"Plan to create"
//	@Success		201			{object}	models.Plan
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans [post]
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	plan := &models.Plan{
		WorkspaceID: h.workspace(r),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Items:       req.Items,
		Tags:        req.Tags,
		TTLHours:    req.TTLHours,
	}
	saved, err := h.svc.CreatePlan(r.Context(), plan)
	if err != nil {
		writeError(w, "create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetPlan handles GET /api/plans/{ref}.
//
//	@Summary		Get a plan by id or smart reference
//	@Tags			plans
//	@Produce		json
//	@Param			ref			path		string	true	"Plan id, id suffix, or keyword (latest, active)"
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	models.Plan
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{ref} [get]
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.svc.ResolvePlan(r.Context(), h.workspace(r), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, "get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// UpdatePlan handles PATCH /api/plans/{ref}.
//
//	@Summary		Apply a partial update to a plan
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Param			ref			path		string				true	"Plan id or smart reference"
//	@Param			workspace	query		string				false	"Workspace id"
//	@Param			body		body		UpdatePlanRequest	true	"Fields to update"
//	@Success		200			{object}	models.Plan
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{ref} [patch]
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	up := memservice.PlanUpdate{
		Status:             req.Status,
		Discovery:          req.Discovery,
		GeneratedTodoID:    req.GeneratedTodoID,
		RelatedCheckpoint:  req.RelatedCheckpoint,
		AdditionalItems:    req.AdditionalItems,
		AdditionalTags:     req.AdditionalTags,
		DescriptionReplace: req.Description,
	}
	plan, err := h.svc.UpdatePlan(r.Context(), h.workspace(r), chi.URLParam(r, "ref"), up)
	if err != nil {
		writeError(w, "update plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PlanLinks handles GET /api/plans/{ref}/links.
//
//	@Summary		Get the todos and checkpoints linked to a plan
//	@Tags			plans
//	@Produce		json
//	@Param			ref			path		string	true	"Plan id or smart reference"
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	PlanLinksDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{ref}/links [get]
func (h *Handler) PlanLinks(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)
	plan, err := h.svc.ResolvePlan(r.Context(), ws, chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, "plan links", err)
		return
	}
	if err := h.svc.RebuildIndex(r.Context(), ws); err != nil {
		writeError(w, "plan links", err)
		return
	}
	links, err := h.svc.PlanLinks(r.Context(), plan.ID)
	if err != nil {
		writeError(w, "plan links", err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// Search handles GET /api/search.
//
//	@Summary		Ranked search across memory entities
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	false	"Free-text query; quoted phrases match verbatim"
//	@Param			tags		query		string	false	"Comma-separated tags; all must be present"
//	@Param			workspace	query		string	false	"Workspace id, or 'all'"
//	@Param			mode		query		string	false	"Search mode"	Enums(strict, normal, fuzzy, auto)
//	@Param			since		query		string	false	"Time filter: 2h, 1d, 1w, or an ISO date"
//	@Param			limit		query		int		false	"Max results"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := search.Params{
		Query:     q.Get("q"),
		Workspace: h.workspace(r),
	}
	if raw := q.Get("tags"); raw != "" {
		params.Tags = splitTags(raw)
	}
	if q.Get("workspace") == "all" {
		params.AllWorkspaces = true
	}
	mode, err := search.ParseMode(q.Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	params.Mode = mode
	since, err := search.ParseSince(q.Get("since"), time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	params.Since = since
	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid limit"))
			return
		}
		params.Limit = n
	}

	results, err := h.svc.Search(r.Context(), params)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// ListWorkspaces handles GET /api/workspaces.
//
//	@Summary		List discoverable workspaces
//	@Tags			workspaces
//	@Produce		json
//	@Success		200	{object}	WorkspaceListResponse
//	@Security		BearerAuth
//	@Router			/workspaces [get]
func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	states, err := h.svc.Workspaces(r.Context())
	if err != nil {
		writeError(w, "list workspaces", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspaces": states,
	})
}

// Sweep handles POST /api/sweep.
//
//	@Summary		Run a retention sweep for a workspace
//	@Tags			workspaces
//	@Produce		json
//	@Param			workspace	query		string	false	"Workspace id"
//	@Success		200			{object}	SweepResponse
//	@Security		BearerAuth
//	@Router			/sweep [post]
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.Sweep(r.Context(), h.workspace(r))
	if err != nil {
		writeError(w, "sweep", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
	})
}

func splitTags(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

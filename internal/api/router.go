package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mimir/internal/memservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// defaultWorkspace is used when a request carries no workspace parameter.
func NewRouter(svc *memservice.Service, authEnabled bool, token string, sseHandler http.Handler, defaultWorkspace string) chi.Router {
	h := NewHandler(svc, defaultWorkspace)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Checkpoints.
	r.Get("/checkpoints", h.ListCheckpoints)
	r.Post("/checkpoints", h.SaveCheckpoint)
	r.Get("/checkpoints/{ref}", h.GetCheckpoint)
	r.Delete("/checkpoints/{ref}", h.DeleteCheckpoint)
	r.Post("/checkpoints/{ref}/highlights", h.AddHighlight)

	// Todo lists.
	r.Get("/todos", h.ListTodoLists)
	r.Post("/todos", h.CreateTodoList)
	r.Get("/todos/{ref}", h.GetTodoList)
	r.Post("/todos/{ref}/items", h.AddTodoItem)
	r.Put("/todos/{ref}/items/{itemID}", h.SetTodoItemStatus)

	// Plans.
	r.Get("/plans", h.ListPlans)
	r.Post("/plans", h.CreatePlan)
	r.Get("/plans/{ref}", h.GetPlan)
	r.Patch("/plans/{ref}", h.UpdatePlan)
	r.Get("/plans/{ref}/links", h.PlanLinks)

	// Search.
	r.Get("/search", h.Search)

	// Workspaces and maintenance.
	r.Get("/workspaces", h.ListWorkspaces)
	r.Post("/sweep", h.Sweep)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

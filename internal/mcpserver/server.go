// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the Mimir memory tools to coding agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mimir/internal/memservice"
	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/search"
)

// Server wraps the MCP server with the Mimir tools.
type Server struct {
	mcp *server.MCPServer
	svc *memservice.Service
	// defaultWorkspace is computed once at the transport boundary and
	// passed down; the core never resolves a workspace implicitly.
	defaultWorkspace string
}

// New creates an MCP server with all tools registered.
func New(svc *memservice.Service, defaultWorkspace string) *Server {
	s := &Server{svc: svc, defaultWorkspace: defaultWorkspace}

	s.mcp = server.NewMCPServer(
		"Mimir",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("save_checkpoint",
		mcp.WithDescription("Save a session checkpoint so work can be resumed after a restart."),
		mcp.WithString("description", mcp.Required(), mcp.Description("What was accomplished or where work stopped")),
		mcp.WithString("workspace", mcp.Description("Workspace id (defaults to the configured workspace)")),
		mcp.WithString("highlights", mcp.Description("Comma-separated key moments worth remembering")),
		mcp.WithString("active_files", mcp.Description("Comma-separated files being worked on")),
		mcp.WithString("work_context", mcp.Description("Free-form context for resuming")),
		mcp.WithString("git_branch", mcp.Description("Current git branch")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.saveCheckpoint)

	s.mcp.AddTool(mcp.NewTool("recall",
		mcp.WithDescription("Search stored checkpoints, todos, plans, and chronicle entries. "+
			"Modes: strict, normal, fuzzy, auto (auto escalates until something matches)."),
		mcp.WithString("query", mcp.Description("Free-text query; quoted phrases must match verbatim")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; all must be present on a match")),
		mcp.WithString("workspace", mcp.Description("Workspace id, or 'all' for every workspace")),
		mcp.WithString("mode", mcp.Description("strict | normal | fuzzy | auto (default normal)")),
		mcp.WithString("since", mcp.Description("Time filter: 2h, 1d, 1w, or an ISO date")),
		mcp.WithString("limit", mcp.Description("Maximum results (default 20)")),
	), s.recall)

	s.mcp.AddTool(mcp.NewTool("list_checkpoints",
		mcp.WithDescription("List checkpoints of one workspace, oldest first."),
		mcp.WithString("workspace", mcp.Description("Workspace id (defaults to the configured workspace)")),
	), s.listCheckpoints)

	s.mcp.AddTool(mcp.NewTool("create_todo_list",
		mcp.WithDescription("Create a todo list with pending items."),
		mcp.WithString("title", mcp.Required(), mcp.Description("List title")),
		mcp.WithString("items", mcp.Description("Comma-separated initial item contents")),
		mcp.WithString("workspace", mcp.Description("Workspace id")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createTodoList)

	s.mcp.AddTool(mcp.NewTool("set_todo_item_status",
		mcp.WithDescription("Update one item's status on a todo list selected by smart reference "+
			"(latest, active, or an id/suffix)."),
		mcp.WithString("list", mcp.Required(), mcp.Description("Smart reference: latest | active | id | id suffix")),
		mcp.WithString("item", mcp.Required(), mcp.Description("Item number within the list")),
		mcp.WithString("status", mcp.Required(), mcp.Description("pending | active | done")),
		mcp.WithString("workspace", mcp.Description("Workspace id")),
	), s.setTodoItemStatus)

	s.mcp.AddTool(mcp.NewTool("create_plan",
		mcp.WithDescription("Create a plan with task items."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Plan title")),
		mcp.WithString("description", mcp.Description("What the plan is about")),
		mcp.WithString("items", mcp.Description("Comma-separated task strings")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("workspace", mcp.Description("Workspace id")),
	), s.createPlan)

	s.mcp.AddTool(mcp.NewTool("update_plan",
		mcp.WithDescription("Update a plan selected by smart reference: change status or append a discovery."),
		mcp.WithString("plan", mcp.Required(), mcp.Description("Smart reference: latest | active | id | id suffix")),
		mcp.WithString("status", mcp.Description("draft | active | completed | abandoned")),
		mcp.WithString("discovery", mcp.Description("Note to append to the plan's discoveries")),
		mcp.WithString("workspace", mcp.Description("Workspace id")),
	), s.updatePlan)

	s.mcp.AddTool(mcp.NewTool("plan_links",
		mcp.WithDescription("Show the todos and checkpoints linked to a plan, with completion percentage. "+
			"Rebuilds the relationship index for the workspace first."),
		mcp.WithString("plan", mcp.Required(), mcp.Description("Smart reference: latest | active | id | id suffix")),
		mcp.WithString("workspace", mcp.Description("Workspace id")),
	), s.planLinks)

	s.mcp.AddTool(mcp.NewTool("list_workspaces",
		mcp.WithDescription("List every discoverable workspace with its last activity."),
	), s.listWorkspaces)

	// Resource: memory usage contract.
	s.mcp.AddResource(
		mcp.NewResource("mimir://memory-contract", "Memory Contract",
			mcp.WithResourceDescription("Entity kinds, smart keyword vocabulary, and retention rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMemoryContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// workspaceArg resolves the optional workspace argument against the
// transport-level default.
func (s *Server) workspaceArg(req mcp.CallToolRequest) string {
	if ws, err := req.RequireString("workspace"); err == nil && ws != "" {
		return ws
	}
	return s.defaultWorkspace
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) saveCheckpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cp := &models.Checkpoint{
		WorkspaceID: s.workspaceArg(req),
		Description: description,
	}
	if v, err := req.RequireString("highlights"); err == nil {
		cp.Highlights = splitCSV(v)
	}
	if v, err := req.RequireString("active_files"); err == nil {
		cp.ActiveFiles = splitCSV(v)
	}
	if v, err := req.RequireString("work_context"); err == nil {
		cp.WorkContext = v
	}
	if v, err := req.RequireString("git_branch"); err == nil {
		cp.GitBranch = v
	}
	if v, err := req.RequireString("tags"); err == nil {
		cp.Tags = splitCSV(v)
	}
	saved, err := s.svc.SaveCheckpoint(ctx, cp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("checkpoint saved: %s", saved.ID)), nil
}

func (s *Server) recall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := search.Params{Workspace: s.defaultWorkspace}
	if v, err := req.RequireString("query"); err == nil {
		params.Query = v
	}
	if v, err := req.RequireString("tags"); err == nil {
		params.Tags = splitCSV(v)
	}
	if v, err := req.RequireString("workspace"); err == nil && v != "" {
		if v == "all" {
			params.AllWorkspaces = true
		} else {
			params.Workspace = v
		}
	}
	if v, err := req.RequireString("mode"); err == nil {
		mode, parseErr := search.ParseMode(v)
		if parseErr != nil {
			return mcp.NewToolResultError(parseErr.Error()), nil
		}
		params.Mode = mode
	}
	if v, err := req.RequireString("since"); err == nil && v != "" {
		since, parseErr := search.ParseSince(v, time.Now())
		if parseErr != nil {
			return mcp.NewToolResultError(parseErr.Error()), nil
		}
		params.Since = since
	}
	if v, err := req.RequireString("limit"); err == nil && v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return mcp.NewToolResultError(fmt.Sprintf("invalid limit: %s", v)), nil
		}
		params.Limit = n
	}

	results, err := s.svc.Search(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCheckpoints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cps, err := s.svc.ListCheckpoints(ctx, s.workspaceArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(cps, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createTodoList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var items, tags []string
	if v, err := req.RequireString("items"); err == nil {
		items = splitCSV(v)
	}
	if v, err := req.RequireString("tags"); err == nil {
		tags = splitCSV(v)
	}
	list, err := s.svc.CreateTodoList(ctx, s.workspaceArg(req), title, "", tags, items)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("todo list created: %s (%d items)", list.ID, len(list.Items))), nil
}

func (s *Server) setTodoItemStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("list")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemRaw, err := req.RequireString("item")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, convErr := strconv.Atoi(itemRaw)
	if convErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid item number: %s", itemRaw)), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.svc.SetTodoItemStatus(ctx, s.workspaceArg(req), ref, itemID, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated item %d on %s to %s", itemID, list.ID, status)), nil
}

func (s *Server) createPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan := &models.Plan{
		WorkspaceID: s.workspaceArg(req),
		Title:       title,
		Status:      models.PlanDraft,
	}
	if v, err := req.RequireString("description"); err == nil {
		plan.Description = v
	}
	if v, err := req.RequireString("items"); err == nil {
		plan.Items = splitCSV(v)
	}
	if v, err := req.RequireString("tags"); err == nil {
		plan.Tags = splitCSV(v)
	}
	saved, err := s.svc.CreatePlan(ctx, plan)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("plan created: %s", saved.ID)), nil
}

func (s *Server) updatePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("plan")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var up memservice.PlanUpdate
	if v, err := req.RequireString("status"); err == nil {
		up.Status = v
	}
	if v, err := req.RequireString("discovery"); err == nil {
		up.Discovery = v
	}
	plan, err := s.svc.UpdatePlan(ctx, s.workspaceArg(req), ref, up)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("plan %s updated (status: %s)", plan.ID, plan.Status)), nil
}

func (s *Server) planLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("plan")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws := s.workspaceArg(req)
	plan, err := s.svc.ResolvePlan(ctx, ws, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RebuildIndex(ctx, ws); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.PlanLinks(ctx, plan.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(links, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	states, err := s.svc.Workspaces(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(states) == 0 {
		return mcp.NewToolResultText("no workspaces found"), nil
	}
	var lines []string
	for _, st := range states {
		lines = append(lines, fmt.Sprintf("%s (last activity %s)", st.WorkspaceID, st.LastActivity.Format("2006-01-02 15:04")))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readMemoryContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mimir://memory-contract",
			MIMEType: "text/markdown",
			Text:     MemoryContract,
		},
	}, nil
}

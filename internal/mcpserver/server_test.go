package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mimir/internal/memservice"
	"github.com/starford/mimir/internal/testutil"
)

func testServer(t *testing.T) (*Server, *memservice.Service) {
	t.Helper()
	_, st := testutil.TestStore(t)
	svc := memservice.New(st, testutil.TestDB(t), nil)
	return New(svc, "proj"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler
	// functions are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "save_checkpoint":
		result, err = srv.saveCheckpoint(ctx, req)
	case "recall":
		result, err = srv.recall(ctx, req)
	case "list_checkpoints":
		result, err = srv.listCheckpoints(ctx, req)
	case "create_todo_list":
		result, err = srv.createTodoList(ctx, req)
	case "set_todo_item_status":
		result, err = srv.setTodoItemStatus(ctx, req)
	case "create_plan":
		result, err = srv.createPlan(ctx, req)
	case "update_plan":
		result, err = srv.updatePlan(ctx, req)
	case "plan_links":
		result, err = srv.planLinks(ctx, req)
	case "list_workspaces":
		result, err = srv.listWorkspaces(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSaveCheckpointAndRecall(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "save_checkpoint", map[string]interface{}{
		"description": "wired the payment gateway",
		"tags":        "payments, backend",
	})
	if r.IsError {
		t.Fatalf("save_checkpoint error: %s", resultText(r))
	}
	if !strings.HasPrefix(resultText(r), "checkpoint saved: ") {
		t.Errorf("result = %q", resultText(r))
	}

	r = callTool(t, srv, "recall", map[string]interface{}{
		"query": "payment",
	})
	if r.IsError {
		t.Fatalf("recall error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "wired the payment gateway") {
		t.Errorf("recall missed the checkpoint: %s", resultText(r))
	}
}

func TestSaveCheckpointRequiresDescription(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_checkpoint", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected an error result without a description")
	}
}

func TestTodoWorkflow(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_todo_list", map[string]interface{}{
		"title": "release prep",
		"items": "write changelog, tag release",
	})
	if r.IsError {
		t.Fatalf("create_todo_list error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "(2 items)") {
		t.Errorf("result = %q", resultText(r))
	}

	r = callTool(t, srv, "set_todo_item_status", map[string]interface{}{
		"list":   "latest",
		"item":   "1",
		"status": "done",
	})
	if r.IsError {
		t.Fatalf("set_todo_item_status error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "to done") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestSetTodoItemStatusBadItemNumber(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "set_todo_item_status", map[string]interface{}{
		"list":   "latest",
		"item":   "not-a-number",
		"status": "done",
	})
	if !r.IsError {
		t.Error("expected an error result for a non-numeric item")
	}
}

func TestPlanWorkflow(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_plan", map[string]interface{}{
		"title": "observability rollout",
		"items": "add tracing, add dashboards",
	})
	if r.IsError {
		t.Fatalf("create_plan error: %s", resultText(r))
	}

	r = callTool(t, srv, "update_plan", map[string]interface{}{
		"plan":      "latest",
		"status":    "active",
		"discovery": "collector needs more memory",
	})
	if r.IsError {
		t.Fatalf("update_plan error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "status: active") {
		t.Errorf("result = %q", resultText(r))
	}

	r = callTool(t, srv, "plan_links", map[string]interface{}{
		"plan": "latest",
	})
	if r.IsError {
		t.Fatalf("plan_links error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "completionPercentage") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestListWorkspaces(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_workspaces", map[string]interface{}{})
	if resultText(r) != "no workspaces found" {
		t.Errorf("empty root result = %q", resultText(r))
	}

	callTool(t, srv, "save_checkpoint", map[string]interface{}{"description": "x"})
	r = callTool(t, srv, "list_workspaces", map[string]interface{}{})
	if !strings.Contains(resultText(r), "proj") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestWorkspaceArgumentOverridesDefault(t *testing.T) {
	srv, svc := testServer(t)

	callTool(t, srv, "save_checkpoint", map[string]interface{}{
		"description": "elsewhere",
		"workspace":   "other",
	})
	cps, err := svc.ListCheckpoints(context.Background(), "other")
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(cps) != 1 {
		t.Errorf("len = %d, want 1", len(cps))
	}
}

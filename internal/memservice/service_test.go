package memservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, st := testutil.TestStore(t)
	return New(st, testutil.TestDB(t), nil)
}

func TestSaveCheckpointJournalsChronicle(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	cp, err := svc.SaveCheckpoint(ctx, &models.Checkpoint{WorkspaceID: "proj", Description: "milestone"})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	entries, err := svc.Store().ListChronicle("proj")
	if err != nil {
		t.Fatalf("ListChronicle: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("chronicle entries = %d, want 1", len(entries))
	}
	if entries[0].CheckpointID != cp.ID {
		t.Errorf("CheckpointID = %q, want %q", entries[0].CheckpointID, cp.ID)
	}
}

func TestGetCheckpointByLatest(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.SaveCheckpoint(ctx, &models.Checkpoint{WorkspaceID: "proj", Description: "first"}); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	second, err := svc.SaveCheckpoint(ctx, &models.Checkpoint{WorkspaceID: "proj", Description: "second"})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got, err := svc.GetCheckpoint(ctx, "proj", "latest")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("latest = %s, want %s", got.ID, second.ID)
	}
}

func TestAddHighlightAppends(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	cp, err := svc.SaveCheckpoint(ctx, &models.Checkpoint{
		WorkspaceID: "proj",
		Description: "base",
		Highlights:  []string{"one"},
	})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	got, err := svc.AddHighlight(ctx, "proj", cp.ID, "two")
	if err != nil {
		t.Fatalf("AddHighlight: %v", err)
	}
	if len(got.Highlights) != 2 || got.Highlights[0] != "one" || got.Highlights[1] != "two" {
		t.Errorf("Highlights = %v", got.Highlights)
	}
}

func TestCreateTodoListSequencesItems(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	list, err := svc.CreateTodoList(ctx, "proj", "chores", "", nil, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("CreateTodoList: %v", err)
	}
	if !list.Active {
		t.Error("new list should be active")
	}
	for i, it := range list.Items {
		if it.ID != i+1 {
			t.Errorf("item %d id = %d", i, it.ID)
		}
		if it.Status != models.StatusPending {
			t.Errorf("item %d status = %q", i, it.Status)
		}
	}
}

func TestSetTodoItemStatusViaSmartRef(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateTodoList(ctx, "proj", "chores", "", nil, []string{"a", "b"}); err != nil {
		t.Fatalf("CreateTodoList: %v", err)
	}
	list, err := svc.SetTodoItemStatus(ctx, "proj", "latest", 2, models.StatusDone)
	if err != nil {
		t.Fatalf("SetTodoItemStatus: %v", err)
	}
	if list.Items[1].Status != models.StatusDone {
		t.Errorf("status = %q", list.Items[1].Status)
	}

	if _, err := svc.SetTodoItemStatus(ctx, "proj", "latest", 99, models.StatusDone); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing item err = %v, want ErrNotFound", err)
	}
}

func TestResolveActiveTodoListSkipsCompleted(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	open, err := svc.CreateTodoList(ctx, "proj", "still open", "", nil, []string{"pending thing"})
	if err != nil {
		t.Fatalf("CreateTodoList: %v", err)
	}
	done, err := svc.CreateTodoList(ctx, "proj", "all done", "", nil, []string{"only item"})
	if err != nil {
		t.Fatalf("CreateTodoList: %v", err)
	}
	if _, err := svc.SetTodoItemStatus(ctx, "proj", done.ID, 1, models.StatusDone); err != nil {
		t.Fatalf("SetTodoItemStatus: %v", err)
	}

	// "latest" is the freshly updated completed list; "active" must skip it.
	got, err := svc.ResolveTodoList(ctx, "proj", "active")
	if err != nil {
		t.Fatalf("ResolveTodoList: %v", err)
	}
	if got.ID != open.ID {
		t.Errorf("active = %s, want %s", got.ID, open.ID)
	}
}

func TestUpdatePlanAppendsDiscovery(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, &models.Plan{WorkspaceID: "proj", Title: "plan"})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	updated, err := svc.UpdatePlan(ctx, "proj", plan.ID, PlanUpdate{
		Status:    models.PlanActive,
		Discovery: "found a quirk",
	})
	if err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if updated.Status != models.PlanActive {
		t.Errorf("Status = %q", updated.Status)
	}
	if len(updated.Discoveries) != 1 || updated.Discoveries[0] != "found a quirk" {
		t.Errorf("Discoveries = %v", updated.Discoveries)
	}

	again, err := svc.UpdatePlan(ctx, "proj", plan.ID, PlanUpdate{Discovery: "another"})
	if err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if len(again.Discoveries) != 2 {
		t.Errorf("Discoveries = %v: must append, not replace", again.Discoveries)
	}
}

func TestResolvePlanActiveExcludesCompleted(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, &models.Plan{WorkspaceID: "proj", Title: "only plan"})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if _, err := svc.UpdatePlan(ctx, "proj", plan.ID, PlanUpdate{Status: models.PlanCompleted}); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if _, err := svc.ResolvePlan(ctx, "proj", "active"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	// A draft plan counts as open.
	if _, err := svc.CreatePlan(ctx, &models.Plan{WorkspaceID: "proj", Title: "draft one"}); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	got, err := svc.ResolvePlan(ctx, "proj", "active")
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	if got.Title != "draft one" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestPlanLinksAfterRebuild(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	list, err := svc.CreateTodoList(ctx, "proj", "work items", "", nil, []string{"x"})
	if err != nil {
		t.Fatalf("CreateTodoList: %v", err)
	}
	plan, err := svc.CreatePlan(ctx, &models.Plan{
		WorkspaceID:    "proj",
		Title:          "linked plan",
		GeneratedTodos: []string{list.ID},
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	if err := svc.RebuildIndex(ctx, "proj"); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	links, err := svc.PlanLinks(ctx, plan.ID)
	if err != nil {
		t.Fatalf("PlanLinks: %v", err)
	}
	if len(links.LinkedTodos) != 1 || links.LinkedTodos[0] != list.ID {
		t.Errorf("LinkedTodos = %v", links.LinkedTodos)
	}
}

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mimir/internal/models"
)

func TestDiscoverWorkspaces(t *testing.T) {
	s := tempStore(t)

	if _, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "alpha", Description: "x"}); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if _, err := s.SaveTodoList(&models.TodoList{WorkspaceID: "beta", Title: "list"}); err != nil {
		t.Fatalf("SaveTodoList: %v", err)
	}

	// A bare directory without partitions is not a workspace.
	if err := os.MkdirAll(filepath.Join(s.Root(), "empty"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	states, err := s.DiscoverWorkspaces()
	if err != nil {
		t.Fatalf("DiscoverWorkspaces: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(states), states)
	}
	if states[0].WorkspaceID != "alpha" || states[1].WorkspaceID != "beta" {
		t.Errorf("workspaces = %v, want [alpha beta]", states)
	}
	for _, st := range states {
		if st.LastActivity.IsZero() {
			t.Errorf("workspace %s has zero last activity", st.WorkspaceID)
		}
	}
}

func TestDiscoverIgnoresPlanOnlyDirectory(t *testing.T) {
	s := tempStore(t)
	if _, err := s.SavePlan(&models.Plan{WorkspaceID: "plans-only", Title: "p"}); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	states, err := s.DiscoverWorkspaces()
	if err != nil {
		t.Fatalf("DiscoverWorkspaces: %v", err)
	}
	for _, st := range states {
		if st.WorkspaceID == "plans-only" {
			t.Error("workspace with only a plans partition should not be discoverable")
		}
	}
}

func TestDiscoverEmptyRoot(t *testing.T) {
	s := tempStore(t)
	states, err := s.DiscoverWorkspaces()
	if err != nil {
		t.Fatalf("DiscoverWorkspaces: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("len = %d, want 0", len(states))
	}
}

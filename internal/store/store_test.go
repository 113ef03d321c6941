package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/models"
)

func tempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSaveAndGetCheckpoint(t *testing.T) {
	s := tempStore(t)
	saved, err := s.SaveCheckpoint(&models.Checkpoint{
		WorkspaceID: "proj",
		Description: "finished auth refactor",
		Tags:        []string{"auth"},
	})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if saved.TTLHours != DefaultPolicy().DefaultTTLHours {
		t.Errorf("TTLHours = %d, want default", saved.TTLHours)
	}

	got, err := s.GetCheckpoint("proj", saved.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if got.Description != "finished auth refactor" {
		t.Errorf("Description = %q", got.Description)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "auth" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestGetCheckpointNotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.GetCheckpoint("proj", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveCheckpointValidation(t *testing.T) {
	s := tempStore(t)
	_, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "proj"})
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "description") {
		t.Errorf("error should name the offending field: %v", err)
	}
}

func TestSaveCheckpointGlobalRoutesToGlobalWorkspace(t *testing.T) {
	s := tempStore(t)
	saved, err := s.SaveCheckpoint(&models.Checkpoint{
		WorkspaceID: "proj",
		Description: "cross-project note",
		Global:      true,
	})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if saved.WorkspaceID != models.GlobalWorkspace {
		t.Errorf("workspace = %q, want %q", saved.WorkspaceID, models.GlobalWorkspace)
	}
	if _, err := s.GetCheckpoint(models.GlobalWorkspace, saved.ID); err != nil {
		t.Errorf("GetCheckpoint in global workspace: %v", err)
	}
}

func TestWorkspaceIDRejectsPathSeparators(t *testing.T) {
	s := tempStore(t)
	for _, ws := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: ws, Description: "x"}); !apperr.IsValidation(err) {
			t.Errorf("workspace %q: err = %v, want validation error", ws, err)
		}
	}
}

func TestWorkspaceIsolation(t *testing.T) {
	s := tempStore(t)
	saved, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "a", Description: "in a"})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if _, err := s.GetCheckpoint("b", saved.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("record leaked across workspaces: %v", err)
	}
}

func TestListCheckpointsOldestFirst(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	s := tempStore(t, WithClock(clock.Now))

	var ids []string
	for i := 0; i < 3; i++ {
		cp, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "proj", Description: "step"})
		if err != nil {
			t.Fatalf("SaveCheckpoint: %v", err)
		}
		ids = append(ids, cp.ID)
		clock.Advance(time.Second)
	}

	got, err := s.ListCheckpoints("proj")
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := range got {
		if got[i].ID != ids[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, ids[i])
		}
	}
}

func TestSaveTodoListItemValidation(t *testing.T) {
	s := tempStore(t)
	_, err := s.SaveTodoList(&models.TodoList{
		WorkspaceID: "proj",
		Title:       "list",
		Items:       []models.TodoItem{{ID: 1, Content: "ok", Status: "bogus"}},
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSavePlanDefaultsStatus(t *testing.T) {
	s := tempStore(t)
	p, err := s.SavePlan(&models.Plan{WorkspaceID: "proj", Title: "big plan"})
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if p.Status != models.PlanDraft {
		t.Errorf("Status = %q, want draft", p.Status)
	}
}

func TestOverwriteKeepsCreatedAt(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	s := tempStore(t, WithClock(clock.Now))

	cp, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "proj", Description: "v1"})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	created := cp.CreatedAt

	clock.Advance(time.Hour)
	cp.Description = "v2"
	updated, err := s.SaveCheckpoint(cp)
	if err != nil {
		t.Fatalf("SaveCheckpoint overwrite: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on overwrite: %v -> %v", created, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt not advanced: %v", updated.UpdatedAt)
	}

	got, err := s.GetCheckpoint("proj", cp.ID)
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if got.Description != "v2" {
		t.Errorf("last write should win, got %q", got.Description)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	s := tempStore(t)
	if _, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "proj", Description: "x"}); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	dir := filepath.Join(s.Root(), "proj", models.KindCheckpoint)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			t.Errorf("unexpected file in partition: %s", e.Name())
		}
	}
}

func TestListSkipsCorruptRecord(t *testing.T) {
	s := tempStore(t)
	good, err := s.SaveCheckpoint(&models.Checkpoint{WorkspaceID: "proj", Description: "good"})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	bad := filepath.Join(s.Root(), "proj", models.KindCheckpoint, "zzz-corrupt.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := s.ListCheckpoints("proj")
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(got) != 1 || got[0].ID != good.ID {
		t.Errorf("corrupt record should be skipped, got %d records", len(got))
	}
}

func TestChronicleAppend(t *testing.T) {
	s := tempStore(t)
	for _, d := range []string{"first", "second"} {
		if _, err := s.SaveChronicleEntry(&models.ChronicleEntry{WorkspaceID: "proj", Description: d}); err != nil {
			t.Fatalf("SaveChronicleEntry: %v", err)
		}
	}
	entries, err := s.ListChronicle("proj")
	if err != nil {
		t.Fatalf("ListChronicle: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
}

// fakeClock is a manual time source shared by retention tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

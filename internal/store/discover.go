package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/models"
)

// DiscoverWorkspaces returns every workspace under the root that is valid
// for discovery: its directory must contain a checkpoints or todos
// sub-partition. A bare directory with neither does not count, and neither
// does one whose sub-partitions were removed after creation.
//
// Cross-workspace reads are built by callers from this set plus one
// per-workspace list call each; the store never joins workspaces itself.
func (s *Store) DiscoverWorkspaces() ([]models.WorkspaceState, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("store: read root: %v: %w", err, apperr.ErrStorageUnavailable)
	}

	var out []models.WorkspaceState
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ws := e.Name()
		if !s.workspaceValid(ws) {
			continue
		}
		st, err := s.WorkspaceState(ws)
		if err != nil {
			// Missing or corrupt state is bookkeeping only; the workspace
			// is still discoverable through its partitions.
			st = &models.WorkspaceState{WorkspaceID: ws}
			if info, infoErr := e.Info(); infoErr == nil {
				st.LastActivity = info.ModTime()
			}
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkspaceID < out[j].WorkspaceID })
	return out, nil
}

// workspaceValid reports whether a workspace directory has at least one of
// its checkpoint or todo partitions present.
func (s *Store) workspaceValid(ws string) bool {
	for _, kind := range []string{models.KindCheckpoint, models.KindTodoList} {
		info, err := os.Stat(filepath.Join(s.root, ws, kind))
		if err == nil && info.IsDir() {
			return true
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("store: stat partition failed",
				slog.String("workspace", ws),
				slog.String("kind", kind),
				slog.String("error", err.Error()))
		}
	}
	return false
}

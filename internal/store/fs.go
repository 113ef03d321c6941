package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/models"
)

const stateFile = "state.json"

func (s *Store) workspaceDir(ws string) string {
	return filepath.Join(s.root, ws)
}

func (s *Store) partitionDir(ws, kind string) string {
	return filepath.Join(s.root, ws, kind)
}

func (s *Store) recordPath(ws, kind, id string) string {
	return filepath.Join(s.root, ws, kind, id+".json")
}

// writeFileAtomic writes data via temp file, fsync, rename. A reader never
// observes a torn record and colliding writers resolve to last-write-wins.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mimir-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}

// writeRecord persists a marshalled entity and bumps the workspace state.
func (s *Store) writeRecord(ws, kind, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s/%s: %w", kind, id, err)
	}
	if err := writeFileAtomic(s.recordPath(ws, kind, id), data); err != nil {
		return err
	}
	s.touchWorkspace(ws)
	return nil
}

// readRecord decodes a single entity. Missing files map to ErrNotFound,
// undecodable bytes to a CorruptRecordError.
func readRecord[T any](s *Store, ws, kind, id string) (*T, error) {
	data, err := os.ReadFile(s.recordPath(ws, kind, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("store: %s %s/%s: %w", kind, id, ws, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: read %s/%s: %v: %w", kind, id, err, apperr.ErrStorageUnavailable)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &apperr.CorruptRecordError{Workspace: ws, Kind: kind, ID: id, Err: err}
	}
	return &v, nil
}

// listIDs returns the record ids present in a partition, sorted ascending
// (chronological, given time-sortable ids). A missing partition is an empty
// result, not an error.
func (s *Store) listIDs(ws, kind string) ([]string, error) {
	entries, err := os.ReadDir(s.partitionDir(ws, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: list %s/%s: %v: %w", ws, kind, err, apperr.ErrStorageUnavailable)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// listRecords decodes every entity in a partition, oldest first. Corrupt
// records are skipped with a logged warning so one bad file cannot take
// down the whole listing; the retention sweep deletes them for good.
func listRecords[T any](s *Store, ws, kind string) ([]T, error) {
	ids, err := s.listIDs(ws, kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := readRecord[T](s, ws, kind, id)
		if err != nil {
			var corrupt *apperr.CorruptRecordError
			if errors.As(err, &corrupt) {
				s.logger.Warn("store: skipping corrupt record",
					slog.String("workspace", ws),
					slog.String("kind", kind),
					slog.String("id", id),
					slog.String("error", corrupt.Err.Error()))
				continue
			}
			if errors.Is(err, apperr.ErrNotFound) {
				continue // removed between ReadDir and read
			}
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// deleteRecord removes one entity file.
func (s *Store) deleteRecord(ws, kind, id string) error {
	if err := os.Remove(s.recordPath(ws, kind, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("store: %s %s/%s: %w", kind, id, ws, apperr.ErrNotFound)
		}
		return fmt.Errorf("store: delete %s/%s: %w", kind, id, err)
	}
	s.touchWorkspace(ws)
	return nil
}

// touchWorkspace refreshes the workspace's lastActivity marker. Failures
// are logged and swallowed: bookkeeping must never fail a save.
func (s *Store) touchWorkspace(ws string) {
	state := models.WorkspaceState{WorkspaceID: ws, LastActivity: s.now()}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	if err := writeFileAtomic(filepath.Join(s.workspaceDir(ws), stateFile), data); err != nil {
		s.logger.Warn("store: touch workspace failed",
			slog.String("workspace", ws),
			slog.String("error", err.Error()))
	}
}

// WorkspaceState reads the bookkeeping record for one workspace.
func (s *Store) WorkspaceState(ws string) (*models.WorkspaceState, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.workspaceDir(ws), stateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("store: workspace state %s: %w", ws, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: read workspace state %s: %v: %w", ws, err, apperr.ErrStorageUnavailable)
	}
	var st models.WorkspaceState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &apperr.CorruptRecordError{Workspace: ws, Kind: "state", ID: stateFile, Err: err}
	}
	return &st, nil
}

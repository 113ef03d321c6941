package relindex

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/store"
)

// EventCallback is called for every observed entity mutation.
// op is one of "created", "updated", "deleted".
type EventCallback func(op, workspace, kind, id string)

// watchable entity partitions; other files (state.json, temp files) only
// mark the workspace dirty without emitting an entity event.
var watchedKinds = map[string]bool{
	models.KindCheckpoint: true,
	models.KindTodoList:   true,
	models.KindPlan:       true,
	models.KindChronicle:  true,
}

// Watch runs an fsnotify watcher on the memory root until ctx is
// cancelled. Observed mutations mark their workspace dirty; a debounced
// pass then rebuilds the relationship index for each dirty workspace
// (skipping no-ops via the content checksum) and prunes orphaned rows.
// cb, if non-nil, is invoked per entity mutation so callers can fan
// events out (e.g. over SSE).
//
// New workspace and partition directories created at runtime are added to
// the watch list automatically.
func Watch(ctx context.Context, db *DB, st *store.Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := st.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	dirty := make(map[string]struct{})
	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(300 * time.Millisecond)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(300 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			for ws := range dirty {
				delete(dirty, ws)
				rebuilt, err := db.RebuildIfChanged(st, ws)
				if err != nil {
					logger.Warn("watcher: rebuild failed",
						slog.String("workspace", ws),
						slog.String("error", err.Error()))
					continue
				}
				if rebuilt {
					logger.Debug("watcher: index rebuilt", slog.String("workspace", ws))
				}
			}
			if removed, err := db.CleanupOrphans(st); err != nil {
				logger.Warn("watcher: orphan cleanup failed", slog.String("error", err.Error()))
			} else if removed > 0 {
				logger.Debug("watcher: orphans removed", slog.Int("count", removed))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			ws, kind, id, ok := splitRecordPath(root, ev.Name)
			if !ok {
				continue
			}
			dirty[ws] = struct{}{}
			scheduleRebuild()

			if cb != nil && watchedKinds[kind] {
				switch {
				case ev.Op&fsnotify.Create != 0:
					cb("created", ws, kind, id)
				case ev.Op&fsnotify.Write != 0:
					cb("updated", ws, kind, id)
				case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					cb("deleted", ws, kind, id)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// splitRecordPath decomposes an absolute event path into workspace, kind
// and record id. Temp files and paths outside the partition layout are
// rejected.
func splitRecordPath(root, abs string) (ws, kind, id string, ok bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	name := parts[2]
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", "", "", false
	}
	return parts[0], parts[1], strings.TrimSuffix(name, ".json"), true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// Package migrate converts the legacy flat-file journal representation
// into the store's partitioned format. The conversion is one-directional
// and idempotent: the de-duplication key is the source-record id, and an
// existing target record is never overwritten, so repeated or concurrent
// runs are first-writer-wins no-ops.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/checksum"
	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/store"
)

// Stats summarises one migration run.
type Stats struct {
	Created int
	Skipped int
	Failed  int
}

// legacyJournal is the loose per-workspace journal file: open-ended bags
// of fields that are normalised into the closed entity schema here.
type legacyJournal struct {
	Checkpoints []map[string]any `json:"checkpoints"`
	Todos       []map[string]any `json:"todos"`
	Plans       []map[string]any `json:"plans"`
}

// Run migrates every `<workspace>.json` journal under legacyDir into the
// store. Individual bad records are counted and logged, never fatal.
func Run(legacyDir string, st *store.Store, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(legacyDir, "*.json"))
	if err != nil {
		return Stats{}, fmt.Errorf("migrate: glob legacy dir: %w", err)
	}

	var stats Stats
	for _, path := range matches {
		ws := strings.TrimSuffix(filepath.Base(path), ".json")
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("migrate: read journal failed",
				slog.String("path", path), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		var journal legacyJournal
		if err := json.Unmarshal(data, &journal); err != nil {
			logger.Warn("migrate: journal undecodable",
				slog.String("path", path), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		migrateWorkspace(st, ws, &journal, &stats, logger)
	}
	return stats, nil
}

func migrateWorkspace(st *store.Store, ws string, journal *legacyJournal, stats *Stats, logger *slog.Logger) {
	for _, raw := range journal.Checkpoints {
		cp := normalizeCheckpoint(ws, raw)
		if _, err := st.GetCheckpoint(ws, cp.ID); err == nil {
			stats.Skipped++
			continue
		} else if !errors.Is(err, apperr.ErrNotFound) {
			stats.Failed++
			continue
		}
		if _, err := st.SaveCheckpoint(cp); err != nil {
			logger.Warn("migrate: checkpoint rejected",
				slog.String("workspace", ws),
				slog.String("id", cp.ID),
				slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		stats.Created++
	}

	for _, raw := range journal.Todos {
		list := normalizeTodoList(ws, raw)
		if _, err := st.GetTodoList(ws, list.ID); err == nil {
			stats.Skipped++
			continue
		} else if !errors.Is(err, apperr.ErrNotFound) {
			stats.Failed++
			continue
		}
		if _, err := st.SaveTodoList(list); err != nil {
			logger.Warn("migrate: todo list rejected",
				slog.String("workspace", ws),
				slog.String("id", list.ID),
				slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		stats.Created++
	}

	for _, raw := range journal.Plans {
		plan := normalizePlan(ws, raw)
		if _, err := st.GetPlan(ws, plan.ID); err == nil {
			stats.Skipped++
			continue
		} else if !errors.Is(err, apperr.ErrNotFound) {
			stats.Failed++
			continue
		}
		if _, err := st.SavePlan(plan); err != nil {
			logger.Warn("migrate: plan rejected",
				slog.String("workspace", ws),
				slog.String("id", plan.ID),
				slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		stats.Created++
	}
}

func normalizeCheckpoint(ws string, raw map[string]any) *models.Checkpoint {
	return &models.Checkpoint{
		ID:          recordID(raw),
		WorkspaceID: ws,
		Description: str(raw, "description", "desc"),
		Highlights:  strs(raw, "highlights"),
		ActiveFiles: strs(raw, "activeFiles", "files"),
		WorkContext: str(raw, "workContext", "context"),
		SessionID:   str(raw, "sessionId"),
		GitBranch:   str(raw, "gitBranch", "branch"),
		Tags:        strs(raw, "tags"),
		Global:      boolVal(raw, "isGlobal"),
		TTLHours:    intVal(raw, "ttlHours"),
		CreatedAt:   timeVal(raw, "createdAt", "timestamp"),
	}
}

func normalizeTodoList(ws string, raw map[string]any) *models.TodoList {
	list := &models.TodoList{
		ID:          recordID(raw),
		WorkspaceID: ws,
		Title:       str(raw, "title", "name"),
		Description: str(raw, "description"),
		Active:      boolVal(raw, "isActive", "active"),
		Tags:        strs(raw, "tags"),
		TTLHours:    intVal(raw, "ttlHours"),
		CreatedAt:   timeVal(raw, "createdAt"),
	}
	if items, ok := raw["items"].([]any); ok {
		for i, entry := range items {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			status := str(m, "status")
			if status == "" {
				status = models.StatusPending
			}
			id := intVal(m, "id")
			if id == 0 {
				id = i + 1
			}
			list.Items = append(list.Items, models.TodoItem{
				ID:        id,
				Content:   str(m, "content", "text"),
				Status:    status,
				CreatedAt: timeVal(m, "createdAt"),
				UpdatedAt: timeVal(m, "updatedAt"),
			})
		}
	}
	return list
}

func normalizePlan(ws string, raw map[string]any) *models.Plan {
	status := str(raw, "status")
	if status == "" {
		status = models.PlanDraft
	}
	return &models.Plan{
		ID:                 recordID(raw),
		WorkspaceID:        ws,
		Title:              str(raw, "title", "name"),
		Description:        str(raw, "description"),
		Category:           str(raw, "category"),
		Priority:           str(raw, "priority"),
		Status:             status,
		Items:              strs(raw, "items", "tasks"),
		Discoveries:        strs(raw, "discoveries", "notes"),
		GeneratedTodos:     strs(raw, "generatedTodos"),
		RelatedCheckpoints: strs(raw, "relatedCheckpoints"),
		Tags:               strs(raw, "tags"),
		TTLHours:           intVal(raw, "ttlHours"),
		CreatedAt:          timeVal(raw, "createdAt"),
	}
}

// recordID returns the source-record id, the migration's de-duplication
// key. Records without one get a deterministic id derived from their
// content so re-runs still de-duplicate.
func recordID(raw map[string]any) string {
	if id := str(raw, "id"); id != "" {
		return id
	}
	data, _ := json.Marshal(raw)
	return "legacy-" + checksum.Sum(data)[:16]
}

func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func strs(raw map[string]any, keys ...string) []string {
	for _, k := range keys {
		list, ok := raw[k].([]any)
		if !ok {
			continue
		}
		var out []string
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		if out != nil {
			return out
		}
	}
	return nil
}

func boolVal(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := raw[k].(bool); ok {
			return v
		}
	}
	return false
}

func intVal(raw map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := raw[k].(float64); ok {
			return int(v)
		}
	}
	return 0
}

// timeVal accepts RFC 3339, a date-only form, and epoch milliseconds --
// the shapes observed in legacy journals.
func timeVal(raw map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
			if t, err := time.Parse("2006-01-02", v); err == nil {
				return t
			}
		case float64:
			return time.UnixMilli(int64(v)).UTC()
		}
	}
	return time.Time{}
}

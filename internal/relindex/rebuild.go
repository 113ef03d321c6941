package relindex

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/checksum"
	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/store"
)

// Rebuild recomputes the linkage rows of one workspace from scratch. Two
// consecutive rebuilds with no intervening store writes produce identical
// rows: id lists are sorted and the row set is replaced atomically.
func (db *DB) Rebuild(st *store.Store, ws string) error {
	_, err := db.rebuild(st, ws, true)
	return err
}

// RebuildIfChanged rebuilds only when the workspace's store contents have
// changed since the last rebuild, detected via a content checksum. The
// watcher uses this to make debounced rebuild passes cheap.
func (db *DB) RebuildIfChanged(st *store.Store, ws string) (bool, error) {
	return db.rebuild(st, ws, false)
}

func (db *DB) rebuild(st *store.Store, ws string, force bool) (bool, error) {
	plans, err := st.ListPlans(ws)
	if err != nil {
		return false, fmt.Errorf("relindex: rebuild %s: %w", ws, err)
	}
	todos, err := st.ListTodoLists(ws)
	if err != nil {
		return false, fmt.Errorf("relindex: rebuild %s: %w", ws, err)
	}
	checkpoints, err := st.ListCheckpoints(ws)
	if err != nil {
		return false, fmt.Errorf("relindex: rebuild %s: %w", ws, err)
	}

	cs := contentChecksum(plans, todos, checkpoints)
	if !force && cs == db.workspaceChecksum(ws) {
		return false, nil
	}

	links := make([]PlanLinks, 0, len(plans))
	for i := range plans {
		links = append(links, buildPlanLinks(&plans[i], todos, checkpoints))
	}
	sort.Slice(links, func(i, j int) bool { return links[i].PlanID < links[j].PlanID })

	if err := db.replaceWorkspace(ws, cs, links); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupOrphans removes linkage rows whose plan no longer exists in the
// store and returns the number removed.
func (db *DB) CleanupOrphans(st *store.Store) (int, error) {
	indexed, err := db.allPlans()
	if err != nil {
		return 0, err
	}
	removed := 0
	for planID, ws := range indexed {
		_, err := st.GetPlan(ws, planID)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return removed, err
		}
		if err := db.deletePlan(planID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// buildPlanLinks combines the authoritative id-reference pass with the
// heuristic text-association pass for one plan.
func buildPlanLinks(plan *models.Plan, todos []models.TodoList, checkpoints []models.Checkpoint) PlanLinks {
	linkedTodos := make(map[string]struct{})
	linkedCheckpoints := make(map[string]struct{})

	// Pass 1, authoritative: follow the explicit id references stored on
	// the plan, keeping only ids that still resolve.
	todoByID := make(map[string]*models.TodoList, len(todos))
	for i := range todos {
		todoByID[todos[i].ID] = &todos[i]
	}
	cpByID := make(map[string]struct{}, len(checkpoints))
	for i := range checkpoints {
		cpByID[checkpoints[i].ID] = struct{}{}
	}
	for _, id := range plan.GeneratedTodos {
		if _, ok := todoByID[id]; ok {
			linkedTodos[id] = struct{}{}
		}
	}
	for _, id := range plan.RelatedCheckpoints {
		if _, ok := cpByID[id]; ok {
			linkedCheckpoints[id] = struct{}{}
		}
	}

	// Pass 2, heuristic: associate entities whose free text mentions the
	// plan's title or one of its tags. Kept separate from the
	// authoritative pass so it can be verified (or disabled) on its own.
	for i := range todos {
		if heuristicMatch(todoText(&todos[i]), plan) {
			linkedTodos[todos[i].ID] = struct{}{}
		}
	}
	for i := range checkpoints {
		if heuristicMatch(checkpointText(&checkpoints[i]), plan) {
			linkedCheckpoints[checkpoints[i].ID] = struct{}{}
		}
	}

	sortedTodoIDs := sortedKeys(linkedTodos)
	return PlanLinks{
		PlanID:               plan.ID,
		WorkspaceID:          plan.WorkspaceID,
		LinkedTodos:          sortedTodoIDs,
		LinkedCheckpoints:    sortedKeys(linkedCheckpoints),
		CompletionPercentage: completionPercentage(sortedTodoIDs, todoByID),
		Tags:                 append([]string{}, plan.Tags...),
	}
}

// heuristicMatch reports whether text mentions the plan title or any plan
// tag as a case-insensitive substring.
func heuristicMatch(text string, plan *models.Plan) bool {
	lower := strings.ToLower(text)
	if title := strings.ToLower(plan.Title); title != "" && strings.Contains(lower, title) {
		return true
	}
	for _, tag := range plan.Tags {
		if tag != "" && strings.Contains(lower, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

// completionPercentage divides the done items across all linked lists into
// the total, rounded down. No linked todos means zero, not undefined.
func completionPercentage(linkedTodos []string, todoByID map[string]*models.TodoList) int {
	total, done := 0, 0
	for _, id := range linkedTodos {
		list, ok := todoByID[id]
		if !ok {
			continue
		}
		for _, it := range list.Items {
			total++
			if it.Status == models.StatusDone {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return done * 100 / total
}

func todoText(l *models.TodoList) string {
	parts := []string{l.Title, l.Description}
	for _, it := range l.Items {
		parts = append(parts, it.Content)
	}
	return strings.Join(parts, "\n")
}

func checkpointText(cp *models.Checkpoint) string {
	parts := []string{cp.Description, cp.WorkContext}
	parts = append(parts, cp.Highlights...)
	return strings.Join(parts, "\n")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// contentChecksum summarises the workspace contents the linkage was
// derived from: kind, id and update instant per record, sorted.
func contentChecksum(plans []models.Plan, todos []models.TodoList, checkpoints []models.Checkpoint) string {
	const stamp = "2006-01-02T15:04:05.999999999"
	lines := make([]string, 0, len(plans)+len(todos)+len(checkpoints))
	for i := range plans {
		lines = append(lines, "plan\x00"+plans[i].ID+"\x00"+plans[i].UpdatedAt.UTC().Format(stamp))
	}
	for i := range todos {
		lines = append(lines, "todo\x00"+todos[i].ID+"\x00"+todos[i].UpdatedAt.UTC().Format(stamp))
	}
	for i := range checkpoints {
		lines = append(lines, "checkpoint\x00"+checkpoints[i].ID+"\x00"+checkpoints[i].UpdatedAt.UTC().Format(stamp))
	}
	sort.Strings(lines)
	return checksum.Sum([]byte(strings.Join(lines, "\n")))
}

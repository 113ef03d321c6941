package relindex

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/mimir/internal/apperr"
)

// PlanLinks is the denormalized linkage row for one plan.
type PlanLinks struct {
	PlanID               string   `json:"planId"`
	WorkspaceID          string   `json:"workspaceId"`
	LinkedTodos          []string `json:"linkedTodos"`
	LinkedCheckpoints    []string `json:"linkedCheckpoints"`
	CompletionPercentage int      `json:"completionPercentage"`
	Tags                 []string `json:"tags"`
}

// Get returns the cached linkage for one plan, possibly stale until the
// next rebuild.
func (db *DB) Get(planID string) (*PlanLinks, error) {
	row := db.conn.QueryRow(`
		SELECT plan_id, workspace_id, linked_todos, linked_checkpoints, completion_pct, tags
		FROM plan_links WHERE plan_id = ?
	`, planID)

	var pl PlanLinks
	var todosJSON, cpsJSON, tagsJSON string
	err := row.Scan(&pl.PlanID, &pl.WorkspaceID, &todosJSON, &cpsJSON, &pl.CompletionPercentage, &tagsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("relindex: plan %s: %w", planID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("relindex: get: %w", err)
	}
	pl.LinkedTodos = decodeIDs(todosJSON)
	pl.LinkedCheckpoints = decodeIDs(cpsJSON)
	pl.Tags = decodeIDs(tagsJSON)
	return &pl, nil
}

// ListWorkspace returns all linkage rows of one workspace, ordered by plan id.
func (db *DB) ListWorkspace(ws string) ([]PlanLinks, error) {
	rows, err := db.conn.Query(`
		SELECT plan_id, workspace_id, linked_todos, linked_checkpoints, completion_pct, tags
		FROM plan_links WHERE workspace_id = ? ORDER BY plan_id
	`, ws)
	if err != nil {
		return nil, fmt.Errorf("relindex: list: %w", err)
	}
	defer rows.Close()

	var out []PlanLinks
	for rows.Next() {
		var pl PlanLinks
		var todosJSON, cpsJSON, tagsJSON string
		if err := rows.Scan(&pl.PlanID, &pl.WorkspaceID, &todosJSON, &cpsJSON, &pl.CompletionPercentage, &tagsJSON); err != nil {
			return nil, err
		}
		pl.LinkedTodos = decodeIDs(todosJSON)
		pl.LinkedCheckpoints = decodeIDs(cpsJSON)
		pl.Tags = decodeIDs(tagsJSON)
		out = append(out, pl)
	}
	return out, rows.Err()
}

// replaceWorkspace swaps all rows of one workspace in a single transaction
// and records the content checksum the rows were derived from.
func (db *DB) replaceWorkspace(ws, contentChecksum string, links []PlanLinks) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("relindex: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM plan_links WHERE workspace_id = ?`, ws); err != nil {
		return fmt.Errorf("relindex: clear workspace: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO plan_links (plan_id, workspace_id, linked_todos, linked_checkpoints, completion_pct, tags)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("relindex: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, pl := range links {
		if _, err := stmt.Exec(pl.PlanID, pl.WorkspaceID,
			encodeIDs(pl.LinkedTodos), encodeIDs(pl.LinkedCheckpoints),
			pl.CompletionPercentage, encodeIDs(pl.Tags)); err != nil {
			return fmt.Errorf("relindex: insert %s: %w", pl.PlanID, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO workspace_meta (workspace_id, content_checksum) VALUES (?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET content_checksum = excluded.content_checksum
	`, ws, contentChecksum); err != nil {
		return fmt.Errorf("relindex: upsert meta: %w", err)
	}

	return tx.Commit()
}

// workspaceChecksum returns the recorded content checksum for a workspace,
// or empty string when none has been stored yet.
func (db *DB) workspaceChecksum(ws string) string {
	var cs string
	if err := db.conn.QueryRow(`SELECT content_checksum FROM workspace_meta WHERE workspace_id = ?`, ws).Scan(&cs); err != nil {
		return ""
	}
	return cs
}

// allPlans returns every indexed plan id with its workspace.
func (db *DB) allPlans() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT plan_id, workspace_id FROM plan_links`)
	if err != nil {
		return nil, fmt.Errorf("relindex: all plans: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, ws string
		if err := rows.Scan(&id, &ws); err != nil {
			return nil, err
		}
		out[id] = ws
	}
	return out, rows.Err()
}

// deletePlan removes one linkage row.
func (db *DB) deletePlan(planID string) error {
	_, err := db.conn.Exec(`DELETE FROM plan_links WHERE plan_id = ?`, planID)
	if err != nil {
		return fmt.Errorf("relindex: delete %s: %w", planID, err)
	}
	return nil
}

func encodeIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func decodeIDs(raw string) []string {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil || ids == nil {
		return []string{}
	}
	return ids
}

// Package search implements the ranked multi-mode search engine over
// stored entities. It pulls candidates from the store, scores them with
// token matching, and produces snippets. The engine itself is stateless;
// every call reads the store's current contents.
package search

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/mimir/internal/models"
	"github.com/starford/mimir/internal/store"
)

// Mode selects the matching strategy.
type Mode string

const (
	// ModeStrict requires every query token to appear literally.
	ModeStrict Mode = "strict"
	// ModeNormal scores tokens independently with partial credit and
	// supports quoted phrases.
	ModeNormal Mode = "normal"
	// ModeFuzzy additionally tolerates minor misspellings.
	ModeFuzzy Mode = "fuzzy"
	// ModeAuto escalates strict -> normal -> fuzzy until something matches.
	ModeAuto Mode = "auto"
)

// ParseMode maps the wire value onto a Mode. Empty means normal.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "":
		return ModeNormal, nil
	case ModeStrict, ModeNormal, ModeFuzzy, ModeAuto:
		return Mode(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("search: unknown mode %q", s)
	}
}

// Params describes one search call.
type Params struct {
	Query         string
	Tags          []string
	Workspace     string
	AllWorkspaces bool
	Mode          Mode
	Since         time.Time
	Limit         int
}

// Result is one ranked hit.
type Result struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	Score       float64   `json:"score"`
	Snippet     string    `json:"snippet"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Entity      any       `json:"entity,omitempty"`
}

// candidate is the flattened searchable view of one stored entity.
type candidate struct {
	kind      string
	id        string
	workspace string
	title     string
	text      string
	tags      []string
	updatedAt time.Time
	entity    any
}

// Engine ranks stored entities against queries and tag sets.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a search engine over the given store.
func New(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger}
}

// Search runs one ranked search. A query matching nothing returns an empty
// slice, never an error; only storage failures surface.
func (e *Engine) Search(p Params) ([]Result, error) {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Mode == "" {
		p.Mode = ModeNormal
	}

	cands, err := e.collect(p)
	if err != nil {
		return nil, err
	}
	if !p.Since.IsZero() {
		cands = filterSince(cands, p.Since)
	}

	var hits []scored
	switch {
	case len(p.Tags) > 0:
		// Exact tag containment is its own path and takes precedence.
		// An empty tag result is returned as-is; falling back to a
		// free-text query over the same terms is a caller policy.
		hits = scoreTagged(cands, p.Tags, p.Query, p.Mode)
	case p.Mode == ModeAuto:
		for _, m := range []Mode{ModeStrict, ModeNormal, ModeFuzzy} {
			hits = scoreAll(cands, p.Query, m)
			if len(hits) > 0 {
				break
			}
		}
	default:
		hits = scoreAll(cands, p.Query, p.Mode)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].cand.updatedAt.Equal(hits[j].cand.updatedAt) {
			return hits[i].cand.updatedAt.After(hits[j].cand.updatedAt)
		}
		return hits[i].cand.id > hits[j].cand.id
	})
	if len(hits) > p.Limit {
		hits = hits[:p.Limit]
	}

	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{
			Kind:        h.cand.kind,
			ID:          h.cand.id,
			WorkspaceID: h.cand.workspace,
			Title:       h.cand.title,
			Score:       h.score,
			Snippet:     makeSnippet(h.cand.text, p.Query),
			UpdatedAt:   h.cand.updatedAt,
			Entity:      h.cand.entity,
		}
	}
	return out, nil
}

// collect gathers candidates from one workspace or, for the all scope,
// from every discoverable workspace. A workspace that fails to list is
// logged and skipped so it cannot error the whole call.
func (e *Engine) collect(p Params) ([]candidate, error) {
	if !p.AllWorkspaces {
		return e.collectWorkspace(p.Workspace)
	}
	states, err := e.store.DiscoverWorkspaces()
	if err != nil {
		return nil, err
	}
	var all []candidate
	for _, st := range states {
		cands, err := e.collectWorkspace(st.WorkspaceID)
		if err != nil {
			e.logger.Warn("search: workspace skipped",
				slog.String("workspace", st.WorkspaceID),
				slog.String("error", err.Error()))
			continue
		}
		all = append(all, cands...)
	}
	return all, nil
}

func (e *Engine) collectWorkspace(ws string) ([]candidate, error) {
	var out []candidate

	cps, err := e.store.ListCheckpoints(ws)
	if err != nil {
		return nil, err
	}
	for i := range cps {
		cp := cps[i]
		out = append(out, candidate{
			kind:      models.KindCheckpoint,
			id:        cp.ID,
			workspace: cp.WorkspaceID,
			title:     cp.Description,
			text:      joinFields(cp.Description, cp.WorkContext, strings.Join(cp.Highlights, "\n"), strings.Join(cp.ActiveFiles, "\n"), cp.GitBranch),
			tags:      cp.Tags,
			updatedAt: cp.UpdatedAt,
			entity:    cp,
		})
	}

	lists, err := e.store.ListTodoLists(ws)
	if err != nil {
		return nil, err
	}
	for i := range lists {
		l := lists[i]
		items := make([]string, len(l.Items))
		for j, it := range l.Items {
			items[j] = it.Content
		}
		out = append(out, candidate{
			kind:      models.KindTodoList,
			id:        l.ID,
			workspace: l.WorkspaceID,
			title:     l.Title,
			text:      joinFields(l.Title, l.Description, strings.Join(items, "\n")),
			tags:      l.Tags,
			updatedAt: l.UpdatedAt,
			entity:    l,
		})
	}

	plans, err := e.store.ListPlans(ws)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		p := plans[i]
		out = append(out, candidate{
			kind:      models.KindPlan,
			id:        p.ID,
			workspace: p.WorkspaceID,
			title:     p.Title,
			text:      joinFields(p.Title, p.Description, strings.Join(p.Items, "\n"), strings.Join(p.Discoveries, "\n")),
			tags:      p.Tags,
			updatedAt: p.UpdatedAt,
			entity:    p,
		})
	}

	entries, err := e.store.ListChronicle(ws)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		en := entries[i]
		out = append(out, candidate{
			kind:      models.KindChronicle,
			id:        en.ID,
			workspace: en.WorkspaceID,
			title:     en.Description,
			text:      joinFields(en.Description, en.Type),
			updatedAt: en.Timestamp,
			entity:    en,
		})
	}

	return out, nil
}

func joinFields(fields ...string) string {
	var nonEmpty []string
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

func filterSince(cands []candidate, since time.Time) []candidate {
	out := cands[:0]
	for _, c := range cands {
		if !c.updatedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out
}

// Package resolver turns symbolic references ("latest", "active", partial
// ids) into a concrete entity within an already-scoped candidate set. It is
// a pure function over an in-memory slice and never touches storage, which
// keeps it trivially testable.
package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/mimir/internal/apperr"
)

// Candidate is the minimal view the resolver needs of an entity.
type Candidate struct {
	ID        string
	UpdatedAt time.Time
	// Open reports whether the entity still has unfinished work (at least
	// one non-done item). Only the active/current keywords consult it.
	Open bool
	// Value carries the underlying entity for the caller's convenience.
	Value any
}

// The smart keyword vocabulary. It is part of the external contract and
// must not be extended or renamed silently.
var (
	latestKeywords = map[string]bool{"latest": true, "recent": true, "last": true}
	activeKeywords = map[string]bool{"active": true, "current": true}
)

// Resolve maps a keyword or (partial) id onto one candidate.
//
// Priority order: latest-family keywords pick the most recently updated
// candidate; active-family keywords pick the most recently updated
// candidate that still has open work (a fully completed set resolves to
// not-found, never silently to a done entity); then exact id match; then
// suffix match for short ids a human might type.
func Resolve(keyword string, candidates []Candidate) (*Candidate, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil, notFound(keyword)
	}

	switch {
	case latestKeywords[kw]:
		if c := mostRecent(candidates, false); c != nil {
			return c, nil
		}
		return nil, notFound(keyword)

	case activeKeywords[kw]:
		if c := mostRecent(candidates, true); c != nil {
			return c, nil
		}
		return nil, notFound(keyword)
	}

	for i := range candidates {
		if candidates[i].ID == keyword {
			return &candidates[i], nil
		}
	}
	for i := range candidates {
		if strings.HasSuffix(candidates[i].ID, keyword) {
			return &candidates[i], nil
		}
	}
	return nil, notFound(keyword)
}

// mostRecent returns the candidate with the maximum UpdatedAt, optionally
// restricted to candidates with open work. Ties break toward the larger id
// so the result is deterministic.
func mostRecent(candidates []Candidate, openOnly bool) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if openOnly && !c.Open {
			continue
		}
		if best == nil ||
			c.UpdatedAt.After(best.UpdatedAt) ||
			(c.UpdatedAt.Equal(best.UpdatedAt) && c.ID > best.ID) {
			best = c
		}
	}
	return best
}

func notFound(keyword string) error {
	return fmt.Errorf("resolver: no entity matches %q: %w", keyword, apperr.ErrNotFound)
}

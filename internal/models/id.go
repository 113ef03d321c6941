package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// idTimeLayout is the sortable timestamp prefix of every entity id.
// Lexicographic order of ids equals chronological creation order, which is
// what retention relies on when evicting the oldest records.
const idTimeLayout = "20060102T150405"

// NewID returns a fresh time-sortable entity id: a UTC timestamp prefix
// followed by a short random suffix to disambiguate ids minted within the
// same second.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format(idTimeLayout) + "-" + suffix
}

// IDTime extracts the creation instant encoded in an entity id. The zero
// time is returned for ids that do not carry a parseable prefix (for
// example records produced by hand or by older tooling).
func IDTime(id string) time.Time {
	if len(id) < len(idTimeLayout) {
		return time.Time{}
	}
	t, err := time.Parse(idTimeLayout, id[:len(idTimeLayout)])
	if err != nil {
		return time.Time{}
	}
	return t
}

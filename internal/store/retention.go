package store

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/models"
)

// Policy is the single retention policy for the whole store. All eviction
// runs through sweepKind so the "oldest goes first, the boundary survives"
// rules live in exactly one place.
type Policy struct {
	// DefaultTTLHours is stamped onto saved entities that carry no TTL.
	// Zero or negative means entities without a TTL never expire.
	DefaultTTLHours int
	// Per-kind caps on live records per workspace. Zero disables the cap.
	MaxCheckpoints int
	MaxTodoLists   int
	MaxPlans       int
	// SweepInterval is the opportunistic sweep cadence used by list calls.
	SweepInterval time.Duration
}

// DefaultPolicy returns the retention defaults.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTLHours: 720, // 30 days
		MaxCheckpoints:  200,
		MaxTodoLists:    100,
		MaxPlans:        100,
		SweepInterval:   5 * time.Minute,
	}
}

func (p Policy) capFor(kind string) int {
	switch kind {
	case models.KindCheckpoint:
		return p.MaxCheckpoints
	case models.KindTodoList:
		return p.MaxTodoLists
	case models.KindPlan:
		return p.MaxPlans
	default:
		return 0
	}
}

// retentionFields is the minimal view of a record the sweep needs.
type retentionFields struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	TTLHours  int       `json:"ttlHours"`
}

// SweepExpired removes expired, over-cap, and corrupt records from one
// workspace and returns the number removed. It is idempotent: a second run
// with no intervening writes removes nothing.
func (s *Store) SweepExpired(ws string) (int, error) {
	if err := checkWorkspace(ws); err != nil {
		return 0, err
	}
	removed := 0
	for _, kind := range []string{models.KindCheckpoint, models.KindTodoList, models.KindPlan} {
		removed += s.sweepKind(ws, kind)
	}
	s.mu.Lock()
	s.lastSweep[ws] = s.now()
	s.mu.Unlock()
	return removed, nil
}

// maybeSweep runs a sweep when the configured cadence has elapsed for this
// workspace. Called opportunistically from list operations.
func (s *Store) maybeSweep(ws string) {
	if s.policy.SweepInterval <= 0 {
		return
	}
	s.mu.Lock()
	last, ok := s.lastSweep[ws]
	due := !ok || s.now().Sub(last) >= s.policy.SweepInterval
	if due {
		s.lastSweep[ws] = s.now()
	}
	s.mu.Unlock()
	if due {
		if _, err := s.SweepExpired(ws); err != nil {
			s.logger.Warn("store: opportunistic sweep failed",
				slog.String("workspace", ws),
				slog.String("error", err.Error()))
		}
	}
}

// sweepKind enforces TTL expiry and the per-kind live-count cap for one
// partition. Corrupt records are deleted so they stop recurring in logs.
// Sweep failures are logged and retried on the next cycle, never surfaced.
func (s *Store) sweepKind(ws, kind string) int {
	ids, err := s.listIDs(ws, kind)
	if err != nil {
		s.logger.Warn("store: sweep list failed",
			slog.String("workspace", ws),
			slog.String("kind", kind),
			slog.String("error", err.Error()))
		return 0
	}

	now := s.now()
	removed := 0
	var live []string // ids surviving the TTL pass, still oldest-first

	for _, id := range ids {
		rec, err := readRecord[retentionFields](s, ws, kind, id)
		if err != nil {
			var corrupt *apperr.CorruptRecordError
			if errors.As(err, &corrupt) {
				s.logger.Warn("store: sweeping corrupt record",
					slog.String("workspace", ws),
					slog.String("kind", kind),
					slog.String("id", id))
				if delErr := s.deleteRecord(ws, kind, id); delErr == nil {
					removed++
				}
				continue
			}
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			s.logger.Warn("store: sweep read failed",
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		if expired(rec, now) {
			if delErr := s.deleteRecord(ws, kind, id); delErr == nil {
				removed++
				s.logger.Debug("store: swept expired record",
					slog.String("workspace", ws),
					slog.String("kind", kind),
					slog.String("id", id))
			}
			continue
		}
		live = append(live, id)
	}

	// Count cap: evict the chronologically oldest ids first. Id order is
	// creation order, so no re-read of timestamps is needed.
	if cap := s.policy.capFor(kind); cap > 0 && len(live) > cap {
		for _, id := range live[:len(live)-cap] {
			if delErr := s.deleteRecord(ws, kind, id); delErr == nil {
				removed++
				s.logger.Debug("store: evicted over-cap record",
					slog.String("workspace", ws),
					slog.String("kind", kind),
					slog.String("id", id))
			}
		}
	}
	return removed
}

// expired applies the TTL rule: a record is expired only when its age
// strictly exceeds ttlHours. Age exactly equal to the TTL survives.
func expired(rec *retentionFields, now time.Time) bool {
	if rec.TTLHours <= 0 {
		return false
	}
	return now.Sub(rec.CreatedAt) > time.Duration(rec.TTLHours)*time.Hour
}

// Package store implements the workspace-scoped persistence layer.
//
// Each workspace is an isolated directory under the memory root with one
// sub-partition per entity kind:
//
//	<root>/<workspaceId>/checkpoints/<id>.json
//	<root>/<workspaceId>/todos/<id>.json
//	<root>/<workspaceId>/plans/<id>.json
//	<root>/<workspaceId>/chronicle/<id>.json
//	<root>/<workspaceId>/state.json
//
// Writes are atomic (temp file, fsync, rename), so a record is either fully
// visible or absent and colliding saves resolve to last-write-wins. The
// store never aggregates across workspaces itself; callers combine
// DiscoverWorkspaces with per-workspace reads.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mimir/internal/apperr"
)

// Store owns all entity CRUD for every workspace under one memory root.
type Store struct {
	root   string
	logger *slog.Logger
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	lastSweep map[string]time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for corrupt-record warnings and sweep
// diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPolicy overrides the retention policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithClock overrides the time source. Tests use this to probe the TTL
// boundary exactly.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at the given directory, creating it if needed.
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	s := &Store{
		root:      abs,
		logger:    slog.Default(),
		policy:    DefaultPolicy(),
		now:       time.Now,
		lastSweep: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute memory root directory.
func (s *Store) Root() string { return s.root }

// Policy returns the active retention policy.
func (s *Store) Policy() Policy { return s.policy }

// checkWorkspace rejects empty ids and ids that would escape the root.
func checkWorkspace(ws string) error {
	if ws == "" {
		return apperr.Validation("workspaceId", "cannot be blank")
	}
	if ws == "." || ws == ".." || strings.ContainsAny(ws, `/\`) {
		return apperr.Validation("workspaceId", "contains path separators")
	}
	return nil
}

// toValidationError converts an ozzo field-map error into the typed
// apperr.ValidationError, keeping the offending field name in the message.
// The first field in sorted order is reported so the message is stable.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			return apperr.Validation(jsonFieldName(names[0]), fields[names[0]].Error())
		}
	}
	return apperr.Validation("entity", err.Error())
}

// jsonFieldName maps ozzo's struct field names onto the wire contract names.
func jsonFieldName(structField string) string {
	switch structField {
	case "Description":
		return "description"
	case "Title":
		return "title"
	case "Status":
		return "status"
	case "Content":
		return "content"
	case "TTLHours":
		return "ttlHours"
	case "Items":
		return "items"
	default:
		if structField == "" {
			return "entity"
		}
		return strings.ToLower(structField[:1]) + structField[1:]
	}
}

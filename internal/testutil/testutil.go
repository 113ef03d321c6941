// Package testutil provides shared test helpers for setting up memory stores and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/mimir/internal/relindex"
	"github.com/starford/mimir/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *relindex.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mimir-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := relindex.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a memory store rooted in a temporary directory.
func TestStore(t *testing.T, opts ...store.Option) (string, *store.Store) {
	t.Helper()
	root := t.TempDir()
	st, err := store.New(root, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return root, st
}

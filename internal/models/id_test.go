package models

import (
	"sort"
	"testing"
	"time"
)

func TestNewIDSortsChronologically(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	t3 := t1.Add(time.Minute)

	ids := []string{NewID(t3), NewID(t1), NewID(t2)}
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)

	if sorted[0] != ids[1] || sorted[1] != ids[2] || sorted[2] != ids[0] {
		t.Errorf("lexicographic order is not chronological: %v", sorted)
	}
}

func TestNewIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID(now)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestIDTime(t *testing.T) {
	at := time.Date(2026, 6, 15, 8, 30, 0, 0, time.UTC)
	got := IDTime(NewID(at))
	if !got.Equal(at) {
		t.Errorf("got %v, want %v", got, at)
	}
	if !IDTime("garbage").IsZero() {
		t.Error("malformed id should yield the zero time")
	}
}

func TestOpenItems(t *testing.T) {
	l := TodoList{Items: []TodoItem{{Status: StatusDone}, {Status: StatusDone}}}
	if l.OpenItems() {
		t.Error("all-done list should not be open")
	}
	l.Items = append(l.Items, TodoItem{Status: StatusPending})
	if !l.OpenItems() {
		t.Error("list with a pending item should be open")
	}
}

func TestNextItemID(t *testing.T) {
	l := TodoList{}
	if l.NextItemID() != 1 {
		t.Errorf("empty list next id = %d", l.NextItemID())
	}
	l.Items = []TodoItem{{ID: 1}, {ID: 7}}
	if l.NextItemID() != 8 {
		t.Errorf("next id = %d, want 8", l.NextItemID())
	}
}

package search

import (
	"strings"
	"testing"
	"time"
)

func TestScoreTextBoundaryBonus(t *testing.T) {
	exact := scoreText("the auth layer", []string{"auth"}, nil, ModeNormal)
	embedded := scoreText("oauthful prose", []string{"auth"}, nil, ModeNormal)
	if exact != 1.5 {
		t.Errorf("boundary score = %f, want 1.5", exact)
	}
	if embedded != 1.0 {
		t.Errorf("embedded score = %f, want 1.0", embedded)
	}
}

func TestScoreTextNormalisedByUnitCount(t *testing.T) {
	// One of two tokens present on a boundary: 1.5 / 2.
	sc := scoreText("the auth layer", []string{"auth", "missing"}, nil, ModeNormal)
	if sc != 0.75 {
		t.Errorf("score = %f, want 0.75", sc)
	}
}

func TestScoreTextStrictZeroOnMissingUnit(t *testing.T) {
	sc := scoreText("the auth layer", []string{"auth", "missing"}, nil, ModeStrict)
	if sc != 0 {
		t.Errorf("strict score = %f, want 0", sc)
	}
}

func TestParseQueryExtractsPhrases(t *testing.T) {
	tokens, phrases := parseQuery(`fix "race condition" in broker`)
	if len(phrases) != 1 || phrases[0] != "race condition" {
		t.Errorf("phrases = %v", phrases)
	}
	want := []string{"fix", "in", "broker"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v", tokens)
	}
	for i, tok := range want {
		if tokens[i] != tok {
			t.Errorf("token %d = %q, want %q", i, tokens[i], tok)
		}
	}
}

func TestTagsCaseInsensitive(t *testing.T) {
	cands := []candidate{{id: "a", tags: []string{"Auth", "Backend"}}}
	hits := scoreTagged(cands, []string{"auth", "backend"}, "", ModeNormal)
	if len(hits) != 1 {
		t.Errorf("len = %d, want 1", len(hits))
	}
}

func TestRankingBreaksTiesByRecency(t *testing.T) {
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cands := []candidate{
		{id: "a", text: "same text", updatedAt: old},
		{id: "b", text: "same text", updatedAt: old.Add(time.Hour)},
	}
	hits := scoreAll(cands, "same", ModeNormal)
	if len(hits) != 2 {
		t.Fatalf("len = %d", len(hits))
	}
	// Engine-level sort is tested through Search; here both scores must be
	// equal so recency can decide.
	if hits[0].score != hits[1].score {
		t.Errorf("scores differ: %f vs %f", hits[0].score, hits[1].score)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"kitten", "sitting", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestWithinEditDistanceThresholds(t *testing.T) {
	if !withinEditDistance("auth", "autz") {
		t.Error("distance 1 on short token should match")
	}
	if withinEditDistance("auth", "aatz") {
		t.Error("distance 2 on short token should not match")
	}
	if !withinEditDistance("database", "databoze") {
		t.Error("distance 2 on long token should match")
	}
}

func TestMakeSnippetShortTextUnchanged(t *testing.T) {
	text := "short text"
	if got := makeSnippet(text, "short"); got != text {
		t.Errorf("snippet = %q", got)
	}
}

func TestMakeSnippetWindowsAroundMatch(t *testing.T) {
	text := strings.Repeat("x", 300) + " needle " + strings.Repeat("y", 300)
	got := makeSnippet(text, "needle")
	if !strings.Contains(got, "needle") {
		t.Fatalf("snippet does not contain the match: %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipses on both sides: %q", got)
	}
	if n := len([]rune(strings.Trim(got, "."))); n > snippetWindow {
		t.Errorf("snippet window = %d runes, want <= %d", n, snippetWindow)
	}
}

func TestMakeSnippetNoMatchLeading(t *testing.T) {
	text := strings.Repeat("a", 200)
	got := makeSnippet(text, "zzz")
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected trailing ellipsis: %q", got)
	}
	if len([]rune(got)) != snippetWindow+3 {
		t.Errorf("len = %d", len([]rune(got)))
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("2h", now)
	if err != nil || !got.Equal(now.Add(-2*time.Hour)) {
		t.Errorf("2h = %v, %v", got, err)
	}
	got, err = ParseSince("1w", now)
	if err != nil || !got.Equal(now.Add(-7*24*time.Hour)) {
		t.Errorf("1w = %v, %v", got, err)
	}
	got, err = ParseSince("2026-08-01", now)
	if err != nil || got.Day() != 1 {
		t.Errorf("date = %v, %v", got, err)
	}
	got, err = ParseSince("", now)
	if err != nil || !got.IsZero() {
		t.Errorf("empty = %v, %v", got, err)
	}
	if _, err = ParseSince("soon", now); err == nil {
		t.Error("expected error for invalid token")
	}
}

package search

import (
	"strings"
	"unicode"
)

type scored struct {
	cand  candidate
	score float64
}

// parseQuery splits a query into lowercase tokens and quoted phrases.
// Phrases are matched as whole substrings; everything else is tokenized on
// non-alphanumeric boundaries.
func parseQuery(query string) (tokens, phrases []string) {
	query = strings.TrimSpace(query)
	for {
		start := strings.IndexByte(query, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(query[start+1:], '"')
		if end < 0 {
			break
		}
		phrase := strings.TrimSpace(query[start+1 : start+1+end])
		if phrase != "" {
			phrases = append(phrases, strings.ToLower(phrase))
		}
		query = query[:start] + " " + query[start+2+end:]
	}
	tokens = tokenize(query)
	return tokens, phrases
}

// tokenize lowercases and splits on any non-letter/digit rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// scoreAll scores every candidate against the query in the given mode and
// drops non-matches.
func scoreAll(cands []candidate, query string, mode Mode) []scored {
	tokens, phrases := parseQuery(query)
	if len(tokens) == 0 && len(phrases) == 0 {
		// Query-less search matches everything with a neutral score so
		// recency ordering decides.
		out := make([]scored, len(cands))
		for i, c := range cands {
			out[i] = scored{cand: c, score: 1.0}
		}
		return out
	}

	var out []scored
	for _, c := range cands {
		sc := scoreText(c.text, tokens, phrases, mode)
		if sc > 0 {
			out = append(out, scored{cand: c, score: sc})
		}
	}
	return out
}

// scoreText implements the token scoring formula: each unit (token or
// phrase) contributes 1.0 when present plus a 0.5 word-boundary bonus,
// normalised by the unit count.
//
//   - strict: every unit must be present or the score is zero.
//   - normal: absent units simply contribute nothing.
//   - fuzzy: a unit also counts as present when a document word lies
//     within a small edit distance (no boundary bonus for those).
func scoreText(text string, tokens, phrases []string, mode Mode) float64 {
	lower := strings.ToLower(text)
	var docWords []string // built lazily for fuzzy matching
	total := 0.0
	units := len(tokens) + len(phrases)

	match := func(unit string) (float64, bool) {
		if strings.Contains(lower, unit) {
			if onWordBoundary(lower, unit) {
				return 1.5, true
			}
			return 1.0, true
		}
		if mode == ModeFuzzy {
			if docWords == nil {
				docWords = tokenize(lower)
			}
			for _, w := range docWords {
				if withinEditDistance(unit, w) {
					return 1.0, true
				}
			}
		}
		return 0, false
	}

	for _, unit := range append(append([]string{}, phrases...), tokens...) {
		contrib, ok := match(unit)
		if !ok && mode == ModeStrict {
			return 0
		}
		total += contrib
	}
	if units == 0 {
		return 0
	}
	return total / float64(units)
}

// onWordBoundary reports whether needle occurs somewhere in haystack with
// non-alphanumeric (or string edge) characters on both sides.
func onWordBoundary(haystack, needle string) bool {
	for from := 0; ; {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)
		leftOK := start == 0 || !isWordRune(rune(haystack[start-1]))
		rightOK := end == len(haystack) || !isWordRune(rune(haystack[end]))
		if leftOK && rightOK {
			return true
		}
		from = start + 1
		if from >= len(haystack) {
			return false
		}
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scoreTagged implements the exact tag path: every requested tag must be
// present on the candidate (set containment). When a free-text query
// accompanies the tags it refines the ranking but never filters.
func scoreTagged(cands []candidate, tags []string, query string, mode Mode) []scored {
	want := make([]string, len(tags))
	for i, t := range tags {
		want[i] = strings.ToLower(t)
	}
	tokens, phrases := parseQuery(query)

	var out []scored
	for _, c := range cands {
		if !containsAllTags(c.tags, want) {
			continue
		}
		sc := 1.0
		if len(tokens) > 0 || len(phrases) > 0 {
			sc += scoreText(c.text, tokens, phrases, modeForTagRanking(mode))
		}
		out = append(out, scored{cand: c, score: sc})
	}
	return out
}

func modeForTagRanking(mode Mode) Mode {
	if mode == ModeAuto || mode == "" {
		return ModeNormal
	}
	return mode
}

func containsAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

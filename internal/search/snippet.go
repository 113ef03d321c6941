package search

import "strings"

// snippetWindow is the rune budget of a generated snippet.
const snippetWindow = 160

// makeSnippet extracts a window of the searchable text around the first
// occurrence of the full query (or, failing that, its first token). When
// nothing matches, a leading substring of the text is returned instead.
// Roughly one third of the window precedes the match.
func makeSnippet(text, query string) string {
	runes := []rune(text)
	if len(runes) <= snippetWindow {
		return text
	}

	lower := strings.ToLower(text)
	pos := -1
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		pos = strings.Index(lower, q)
		if pos < 0 {
			for _, tok := range tokenize(q) {
				if idx := strings.Index(lower, tok); idx >= 0 {
					pos = idx
					break
				}
			}
		}
	}
	if pos < 0 {
		return string(runes[:snippetWindow]) + "..."
	}

	// Byte offset to rune offset.
	matchRune := len([]rune(text[:pos]))
	start := matchRune - snippetWindow/3
	if start < 0 {
		start = 0
	}
	end := start + snippetWindow
	if end > len(runes) {
		end = len(runes)
		if start = end - snippetWindow; start < 0 {
			start = 0
		}
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

package search

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var relativeSinceRe = regexp.MustCompile(`^(\d+)([hdw])$`)

// ParseSince turns a since token into an absolute cutoff. Accepted forms
// are relative ("2h", "1d", "1w") and absolute ISO dates ("2006-01-02" or
// RFC 3339). An empty token means no cutoff.
func ParseSince(token string, now time.Time) (time.Time, error) {
	if token == "" {
		return time.Time{}, nil
	}
	if m := relativeSinceRe.FindStringSubmatch(token); m != nil {
		n, _ := strconv.Atoi(m[1])
		var unit time.Duration
		switch m[2] {
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		case "w":
			unit = 7 * 24 * time.Hour
		}
		return now.Add(-time.Duration(n) * unit), nil
	}
	if t, err := time.Parse(time.RFC3339, token); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", token); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("search: invalid since value %q", token)
}

package rx

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	standaloneOf  = regexp.MustCompile(`(?i)\bof\b`)
	combinationOf = regexp.MustCompile(`(?i)combination of`)
	fragmentBound = regexp.MustCompile(`(?i)\s+(?:or|and)\s+|,`)
)

// SplitDirective segments raw prescription text into independent
// drug-candidate fragments. Brand-name parentheticals are dropped first,
// then the standalone connector "of" is rewritten to "or" before splitting
// so compounding phrases like "Drug A of Drug B" break apart, and the
// "combination of" preface is removed. Fragments keep their original order;
// that order becomes the match-attempt order downstream.
func SplitDirective(raw string) []string {
	s := parenthetical.ReplaceAllString(raw, "")
	s = standaloneOf.ReplaceAllString(s, "or")
	s = combinationOf.ReplaceAllString(s, "")
	parts := fragmentBound.Split(s, -1)
	frags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			frags = append(frags, p)
		}
	}
	return frags
}

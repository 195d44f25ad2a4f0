package rx

import (
	"regexp"
	"strings"
)

// unitPatterns is the canonical dosage rule table. Order is a contract: the
// first matching pattern wins, not the longest or most specific one, so a
// fragment carrying both a percentage and a milligram amount resolves to the
// milligram amount because mg sits earlier in the table.
var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*mg\b`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*mcg\b`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*g\b`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*ml\b`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*%`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*mg\s*/\s*ml\b`),
}

// findDosage returns the raw matched span so the cleaner can excise the
// exact substring from its fragment.
func findDosage(s string) (string, bool) {
	for _, re := range unitPatterns {
		if m := re.FindString(s); m != "" {
			return m, true
		}
	}
	return "", false
}

// ExtractDosage pulls the first dosage token out of a text fragment with
// internal whitespace removed ("500 mg" becomes "500mg"). The empty string
// means no unit pattern matched. Running it on its own output returns the
// same value.
func ExtractDosage(s string) string {
	raw, ok := findDosage(s)
	if !ok {
		return ""
	}
	return normalizeDosage(raw)
}

func normalizeDosage(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}

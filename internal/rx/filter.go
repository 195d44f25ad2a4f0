package rx

import "strings"

// nonDrugWords are tokens that mark a cleaned fragment as instructional
// leftovers rather than a drug name. A candidate is rejected when it equals
// one of these, starts with "word ", or ends with " word".
var nonDrugWords = []string{
	"consult", "follow", "recommendation", "packaging", "professional",
	"daily", "take", "dose", "times", "day", "week", "hour", "hours",
	"every", "directed", "needed", "recommended", "combination",
}

// PlausibleDrugName reports whether a cleaned candidate looks like a drug
// name: at least three characters and not anchored on a known non-drug word.
func PlausibleDrugName(name string) bool {
	if len(name) < 3 {
		return false
	}
	lower := strings.ToLower(name)
	for _, w := range nonDrugWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasSuffix(lower, " "+w) {
			return false
		}
	}
	return true
}

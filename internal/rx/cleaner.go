package rx

import (
	"regexp"
	"strings"
)

// instructionRules is the ordered table of instructional phrases stripped
// from each fragment after dosage excision. Keeping the rules as data makes
// the priority ordering explicit and testable on its own.
var instructionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)follow the recommended dosage`),
	regexp.MustCompile(`(?i)as directed`),
	regexp.MustCompile(`(?i)as needed`),
	regexp.MustCompile(`(?i)take\s+(?:once|twice|three times)\s+(?:daily|a day)`),
	regexp.MustCompile(`(?i)\b(?:once|twice|three times)\s+(?:daily|a day)`),
	regexp.MustCompile(`(?i)every\s+\d+(?:\s*-\s*\d+)?\s+hours?`),
	regexp.MustCompile(`(?i)on the packaging`),
	regexp.MustCompile(`(?i)consult with a healthcare professional`),
	regexp.MustCompile(`(?i)\bfor\s+.*?\b(?:days|weeks)\b`),
	regexp.MustCompile(`(?i)\bfor pain\b`),
	regexp.MustCompile(`(?i)^of\s+`),
	regexp.MustCompile(`(?i)\s+of$`),
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Candidate is the cleaned view of one fragment: a hypothesized drug name
// and the dosage token the fragment carried, if any.
type Candidate struct {
	Name   string
	Dosage string
}

// CleanFragment strips the dosage token and instructional noise from one
// fragment, leaving a bare drug-name candidate. Remaining punctuation
// collapses to single spaces.
func CleanFragment(frag string) Candidate {
	var dosage string
	if raw, ok := findDosage(frag); ok {
		dosage = normalizeDosage(raw)
		frag = strings.Replace(frag, raw, " ", 1)
	}
	for _, re := range instructionRules {
		frag = re.ReplaceAllString(frag, " ")
	}
	name := strings.TrimSpace(nonAlnum.ReplaceAllString(frag, " "))
	return Candidate{Name: name, Dosage: dosage}
}

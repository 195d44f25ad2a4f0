package core

import (
	"regexp"
	"strings"
)

// disclaimerRules removes the boilerplate safety sentences the upstream
// assistant likes to wrap around its replies. Ordered, near-exact phrase
// removal only; anything subtler stays in the text.
var disclaimerRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i'?m not a (?:doctor|medical professional)[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)as an ai(?: language model| assistant)?,? i cannot provide medical advice[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)as an ai(?: language model| assistant)?,? i cannot[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?i)please consult (?:with )?a healthcare professional[^.!?\n]*[.!?]?`),
	regexp.MustCompile(`(?im)^\s*disclaimer\b.*$`),
}

var medicationWords = []string{"medication", "medicine", "drug"}

// personaMarker identifies text already voiced in the portal persona.
const personaMarker = "pharmacy assistant"

var (
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,!?;:])`)
	multiSpace       = regexp.MustCompile(`[ \t]{2,}`)
	blankLine        = regexp.MustCompile(`\n[ \t]+\n`)
	multiBlank       = regexp.MustCompile(`\n{3,}`)
)

// Shape rewrites raw assistant text into the consistent persona the portal
// presents. The rules run in a fixed order: sentinel and readiness
// short-circuits, the "anything else" wrap-up fallback, the confirmation
// override, disclaimer removal, single-question enforcement, persona
// framing, and finally re-anchoring the surviving question at the end.
func Shape(raw, userMsg string, tr Transition) string {
	switch tr {
	case TransitionReset:
		return CompletionMessage
	case TransitionReady:
		return PreparingMessage
	}
	// Legacy text-level path: the upstream reply itself offered the wrap-up
	// and the customer already declined.
	if strings.EqualFold(strings.TrimSpace(userMsg), "no") && strings.Contains(raw, "anything else") {
		return PreparingMessage
	}
	if tr == TransitionConfirm {
		return ConfirmationMessage
	}

	text := raw
	for _, re := range disclaimerRules {
		text = re.ReplaceAllString(text, "")
	}

	questions := questionClauses(text)
	var keep string
	if len(questions) > 0 {
		keep = pickQuestion(questions)
		for _, q := range questions {
			if q != keep {
				text = removeClause(text, q)
			}
		}
	}
	text = collapse(text)
	keep = collapse(keep)

	if !strings.Contains(strings.ToLower(text), personaMarker) && !strings.HasPrefix(text, "I understand") {
		text = PersonaPreface + text
	}

	if keep != "" && !strings.HasSuffix(text, keep) {
		text = collapse(removeClause(text, keep))
		if text == "" {
			text = strings.TrimSpace(PersonaPreface)
		}
		text += "\n\n" + QuestionLeadIn + keep
	}
	return strings.TrimSpace(text)
}

// questionClauses extracts every question-terminated clause: for each '?'
// the clause runs from the nearest preceding sentence boundary.
func questionClauses(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?', '\n':
			if r == '?' {
				if c := strings.TrimSpace(text[start : i+1]); c != "" {
					out = append(out, c)
				}
			}
			start = i + 1
		}
	}
	return out
}

// pickQuestion keeps exactly one question: the first that does not mention
// medication, medicine, or drugs, falling back to the first overall.
func pickQuestion(qs []string) string {
	for _, q := range qs {
		lower := strings.ToLower(q)
		mentions := false
		for _, w := range medicationWords {
			if strings.Contains(lower, w) {
				mentions = true
				break
			}
		}
		if !mentions {
			return q
		}
	}
	return qs[0]
}

func removeClause(text, clause string) string {
	return strings.Replace(text, clause, "", 1)
}

// collapse cleans up the holes left by clause removal: doubled whitespace,
// stranded punctuation, and blank lines.
func collapse(s string) string {
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = multiSpace.ReplaceAllString(s, " ")
	s = blankLine.ReplaceAllString(s, "\n\n")
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

package core

import (
	"strings"

	"pharmacy-portal/pkg"
)

// Transition names what the confirmation gate decided for a turn. The gate
// returns an explicit tag instead of encoding the decision in reply text, so
// state detection never depends on string matching the assistant's output.
type Transition int

const (
	// TransitionNone keeps gathering symptom information.
	TransitionNone Transition = iota
	// TransitionConfirm moves Gathering to PendingConfirmation: enough
	// symptom detail has arrived and the turn becomes a confirmation prompt.
	TransitionConfirm
	// TransitionReady moves to ReadyForDiagnosis: the caller invokes the
	// diagnosis generator with the accumulated conversation.
	TransitionReady
	// TransitionReset is the checkout sentinel: the conversation state is
	// cleared and the fixed completion message returned.
	TransitionReset
)

// symptomKeywords is the significant-symptom list gating the confirmation
// prompt. Matching is case-insensitive substring containment.
var symptomKeywords = []string{
	"pain", "ache", "fever", "headache", "nausea", "vomit", "cough", "rash",
	"swelling", "sore", "throat", "stomach", "chest", "breathing", "dizzy",
	"tired", "fatigue", "diarrhea", "constipation",
}

// onDemandTriggers force readiness regardless of the current state.
var onDemandTriggers = []string{"diagnose me", "need a diagnosis"}

// Gate is the state machine deciding when a conversation has gathered enough
// symptom data. It is stateless itself; the per-conversation flags live in
// the ConversationState it inspects.
type Gate struct{}

// Evaluate inspects the customer's message against the current conversation
// state and names the transition for this turn.
//
// Gathering moves to PendingConfirmation only when the message carries a
// significant-symptom keyword, the prior assistant reply asked a question,
// and the message has more than five tokens. While PendingConfirmation, a
// bare "no" answer confirms readiness. The sentinel and on-demand phrases
// short-circuit everything else. The Gathering trigger cannot fire twice in
// a row: once ConfirmationPending is set, only a readiness or reset
// transition clears it.
func (Gate) Evaluate(st pkg.ConversationState, userMsg string) Transition {
	msg := strings.TrimSpace(userMsg)
	if msg == CheckoutCompleteSentinel {
		return TransitionReset
	}
	lower := strings.ToLower(msg)
	for _, t := range onDemandTriggers {
		if strings.Contains(lower, t) {
			return TransitionReady
		}
	}
	if st.ConfirmationPending && strings.EqualFold(msg, "no") {
		return TransitionReady
	}
	if !st.ConfirmationPending &&
		hasSymptomKeyword(lower) &&
		strings.Contains(st.LastAssistantReply(), "?") &&
		len(strings.Fields(msg)) > 5 {
		return TransitionConfirm
	}
	return TransitionNone
}

func hasSymptomKeyword(lower string) bool {
	for _, k := range symptomKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

package core

// prompts.go collects the fixed persona text used by the dialogue controller
// and the response shaper. Keeping the canned messages in one file makes
// them easy to tweak without touching the turn logic.

const (
	// SystemPrompt frames the assistant as a pharmacy intake assistant. It
	// asks one short follow-up question at a time and never promises a
	// diagnosis; the diagnosis generator produces that separately.
	SystemPrompt = "You are a friendly pharmacy consultation assistant. " +
		"Your goal is to understand the customer's symptoms: what is wrong, since when, how severe, and anything already taken. " +
		"Ask one short follow-up question at a time, be warm and plain-spoken, and never give a definitive diagnosis or medical guarantee."

	// WelcomeMessage greets a brand-new conversation.
	WelcomeMessage = "Hello! Welcome to the pharmacy. Please tell me in a sentence what is bothering you and when it started."

	// ConfirmationMessage replaces the shaped reply on the turn that enters
	// PendingConfirmation. The "anything else" phrasing is load-bearing:
	// the customer's next "no" is the confirmation answer.
	ConfirmationMessage = "I understand. Is there anything else about your symptoms you would like to share before I prepare your diagnosis?"

	// PreparingMessage acknowledges the confirmation and announces the
	// diagnosis handoff.
	PreparingMessage = "Thank you. I have everything I need. Please give me a moment while I prepare your diagnosis and treatment options."

	// CompletionMessage answers the checkout sentinel.
	CompletionMessage = "Thank you for your order! Your checkout is complete. Feel free to start a new consultation whenever you need."

	// ApologyMessage is shown when the upstream assistant or diagnosis
	// generator fails. Checkout stays closed on this path.
	ApologyMessage = "I am sorry, something went wrong on my side. Could you say that again, or try once more in a moment?"

	// PersonaPreface is prepended to shaped replies that carry no persona
	// marker of their own.
	PersonaPreface = "I understand. "

	// QuestionLeadIn re-anchors the surviving question at the end of a reply.
	QuestionLeadIn = "One question for you: "
)

// CheckoutCompleteSentinel is the reserved command sent by the client after
// a finished checkout. It is intercepted before the assistant ever sees it
// and resets the conversation.
const CheckoutCompleteSentinel = "checkout_complete"

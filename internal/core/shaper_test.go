package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeResetAndReadyShortCircuit(t *testing.T) {
	assert.Equal(t, CompletionMessage, Shape("whatever", CheckoutCompleteSentinel, TransitionReset))
	assert.Equal(t, PreparingMessage, Shape("whatever", "no", TransitionReady))
}

func TestShapeWrapUpFallback(t *testing.T) {
	// The upstream reply offers the wrap-up itself and the customer already
	// declined; the text-level check catches it even without the pending flag.
	raw := "Alright. Is there anything else I can help you with?"
	assert.Equal(t, PreparingMessage, Shape(raw, "no", TransitionNone))
	assert.Equal(t, PreparingMessage, Shape(raw, "No", TransitionNone))
}

func TestShapeConfirmationOverridesEverything(t *testing.T) {
	raw := "Thanks for the details. Could it be stress? Do you take any medication?"
	assert.Equal(t, ConfirmationMessage, Shape(raw, "my head hurts so much today", TransitionConfirm))
}

func TestShapeRemovesDisclaimers(t *testing.T) {
	raw := "I'm not a doctor. That sounds uncomfortable. How long has it lasted?"
	got := Shape(raw, "my head hurts", TransitionNone)
	assert.NotContains(t, got, "not a doctor")
	assert.Contains(t, got, "That sounds uncomfortable.")

	raw = "As an AI assistant, I cannot provide medical advice. Rest well.\nDISCLAIMER: this is general information only."
	got = Shape(raw, "ok", TransitionNone)
	assert.NotContains(t, got, "I cannot provide medical advice")
	assert.NotContains(t, got, "DISCLAIMER")
	assert.Contains(t, got, "Rest well.")

	raw = "Please consult a healthcare professional if it persists. Drink water."
	got = Shape(raw, "ok", TransitionNone)
	assert.NotContains(t, got, "consult a healthcare professional")
}

func TestShapeKeepsSingleQuestionPreferringNonMedication(t *testing.T) {
	raw := "That sounds rough. Do you take any medication for it? How long has it lasted?"
	got := Shape(raw, "my head hurts", TransitionNone)
	assert.Contains(t, got, "How long has it lasted?")
	assert.NotContains(t, got, "medication")
	assert.Equal(t, 1, strings.Count(got, "?"))
}

func TestShapeKeepsFirstWhenAllQuestionsMentionMedication(t *testing.T) {
	raw := "Do you take any medication daily? Have you tried another medicine?"
	got := Shape(raw, "my head hurts", TransitionNone)
	assert.Contains(t, got, "Do you take any medication daily?")
	assert.Equal(t, 1, strings.Count(got, "?"))
}

func TestShapePrependsPersonaPreface(t *testing.T) {
	got := Shape("Rest and drink plenty of water.", "ok", TransitionNone)
	assert.True(t, strings.HasPrefix(got, "I understand"), "got %q", got)

	// Already in persona: left alone.
	got = Shape("I understand that must be unpleasant.", "ok", TransitionNone)
	assert.Equal(t, "I understand that must be unpleasant.", got)
}

func TestShapeMovesQuestionToEnd(t *testing.T) {
	raw := "Does it hurt at night? Try to rest today and drink water."
	got := Shape(raw, "my head hurts", TransitionNone)
	assert.True(t, strings.HasSuffix(got, "Does it hurt at night?"), "got %q", got)
	assert.Contains(t, got, QuestionLeadIn)
	assert.Equal(t, 1, strings.Count(got, "?"))
}

func TestShapeQuestionAlreadyAtEndStays(t *testing.T) {
	raw := "That sounds uncomfortable. How long has it lasted?"
	got := Shape(raw, "my head hurts", TransitionNone)
	assert.True(t, strings.HasSuffix(got, "How long has it lasted?"), "got %q", got)
	assert.NotContains(t, got, QuestionLeadIn)
}

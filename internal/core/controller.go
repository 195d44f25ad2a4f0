package core

import (
	"context"
	"errors"
	"log"
	"strings"

	"pharmacy-portal/internal/catalog"
	"pharmacy-portal/internal/convo"
	"pharmacy-portal/internal/llm"
	"pharmacy-portal/pkg"
)

// PendingStore is the client persistence boundary: the unmatched subset of
// the last resolution report, stored under the conversation key so a
// reloaded client restores the checkout-disabled state without re-querying
// the catalog.
type PendingStore interface {
	SavePending(ctx context.Context, key string, unmatched []pkg.MatchResult) error
	LoadPending(ctx context.Context, key string) ([]pkg.MatchResult, error)
	ClearPending(ctx context.Context, key string) error
}

// ResolutionNotifier announces that a conversation's pending resolution
// changed, so dashboards and open tabs can refresh.
type ResolutionNotifier interface {
	Notify(ctx context.Context, conversationKey string) error
}

// ErrConversationBusy is returned when concurrent turns for the same key
// keep invalidating each other's state writes.
var ErrConversationBusy = errors.New("conversation busy, retry")

const casAttempts = 5

// Controller orchestrates one conversation turn: sentinel handling, the
// upstream assistant call, gate evaluation, response shaping, and on the
// readiness transition the diagnosis handoff with catalog resolution. The
// controller itself is stateless; all per-conversation state lives in the
// injected store and is updated with versioned compare-and-swap.
type Controller struct {
	Assistant llm.Assistant
	Diagnoser llm.DiagnosisGenerator
	Convos    convo.Store
	Resolver  *catalog.Aggregator
	Pending   PendingStore
	Notifier  ResolutionNotifier
}

// HandleTurn processes one customer message and returns the turn result.
// Upstream failures never abort the conversation: the customer sees an
// apology and checkout stays closed.
func (c *Controller) HandleTurn(ctx context.Context, key, content string) (*pkg.TurnResult, error) {
	content = strings.TrimSpace(content)
	gate := Gate{}
	st, ver := c.Convos.Get(key)
	tr := gate.Evaluate(st, content)

	if tr == TransitionReset {
		// Completed-checkout signal: clear the conversation and any
		// persisted pending resolution, regardless of current state.
		c.Convos.Delete(key)
		c.clearPending(ctx, key)
		return &pkg.TurnResult{Reply: CompletionMessage}, nil
	}

	// The assistant is consulted only while the conversation keeps
	// gathering; confirmation and readiness turns use canned text.
	var raw string
	if tr == TransitionNone || tr == TransitionConfirm {
		reply, err := c.Assistant.Chat(ctx, chatMessages(st, content))
		if err != nil {
			log.Println("assistant reply failed:", err)
			c.commitTurn(key, st, ver, content, ApologyMessage, TransitionNone)
			return &pkg.TurnResult{Reply: ApologyMessage}, nil
		}
		raw = reply
	}

	shaped := Shape(raw, content, tr)
	if tr != TransitionReady && shaped == PreparingMessage {
		// The text-level wrap-up fallback fired inside the shaper.
		tr = TransitionReady
	}

	// Append the turn pair and apply the transition flags under
	// compare-and-swap. On a lost race the transition is re-evaluated
	// against the fresh state and the reply already in hand is re-shaped;
	// the assistant is never called again inside the loop.
	committed := false
	for attempt := 0; attempt < casAttempts; attempt++ {
		if c.commitTurn(key, st, ver, content, shaped, tr) {
			committed = true
			break
		}
		st, ver = c.Convos.Get(key)
		tr = gate.Evaluate(st, content)
		shaped = Shape(raw, content, tr)
		if tr != TransitionReady && shaped == PreparingMessage {
			tr = TransitionReady
		}
	}
	if !committed {
		return nil, ErrConversationBusy
	}

	result := &pkg.TurnResult{Reply: shaped, ReadyForDiagnosis: tr == TransitionReady}
	if !result.ReadyForDiagnosis {
		return result, nil
	}

	history := append(st.Turns, pkg.ConversationTurn{Role: pkg.RoleUser, Content: content})
	diag, err := c.Diagnoser.Diagnose(ctx, chatMessagesFrom(history))
	if err != nil {
		log.Println("diagnosis generation failed:", err)
		result.Reply = ApologyMessage
		return result, nil
	}
	result.Diagnosis = diag

	report, rerr := c.Resolver.Resolve(ctx, diag.Prescriptions)
	if rerr != nil {
		log.Println("catalog resolution degraded:", rerr)
	}
	result.Resolution = report
	result.CheckoutReady = report.AllAvailable && len(report.Results) > 0

	if report.AllAvailable {
		c.clearPending(ctx, key)
	} else if c.Pending != nil {
		if err := c.Pending.SavePending(ctx, key, report.Unmatched()); err != nil {
			log.Println("persist pending resolution failed:", err)
		} else if c.Notifier != nil {
			if err := c.Notifier.Notify(ctx, key); err != nil {
				log.Println("resolution notify failed:", err)
			}
		}
	}
	return result, nil
}

func (c *Controller) commitTurn(key string, st pkg.ConversationState, ver uint64, content, reply string, tr Transition) bool {
	next := st
	next.Turns = append(append([]pkg.ConversationTurn{}, st.Turns...),
		pkg.ConversationTurn{Role: pkg.RoleUser, Content: content},
		pkg.ConversationTurn{Role: pkg.RoleAssistant, Content: reply},
	)
	switch tr {
	case TransitionConfirm:
		next.ConfirmationPending = true
	case TransitionReady:
		// Handoff complete; the machine cycles back to Gathering.
		next.ConfirmationPending = false
	}
	return c.Convos.CompareAndSwap(key, ver, next)
}

func (c *Controller) clearPending(ctx context.Context, key string) {
	if c.Pending == nil {
		return
	}
	if err := c.Pending.ClearPending(ctx, key); err != nil {
		log.Println("clear pending resolution failed:", err)
	}
}

// chatMessages builds the upstream message list: the system prompt, the
// recorded turns, and the incoming customer message.
func chatMessages(st pkg.ConversationState, content string) []llm.Message {
	history := append(append([]pkg.ConversationTurn{}, st.Turns...),
		pkg.ConversationTurn{Role: pkg.RoleUser, Content: content})
	return chatMessagesFrom(history)
}

func chatMessagesFrom(turns []pkg.ConversationTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: SystemPrompt})
	for _, t := range turns {
		msgs = append(msgs, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

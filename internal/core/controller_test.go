package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy-portal/internal/catalog"
	"pharmacy-portal/internal/convo"
	"pharmacy-portal/internal/llm"
	"pharmacy-portal/pkg"
)

type fakeAssistant struct {
	reply string
	err   error
	calls int
}

func (f *fakeAssistant) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeDiagnoser struct {
	diag  *pkg.Diagnosis
	err   error
	calls int
}

func (f *fakeDiagnoser) Diagnose(ctx context.Context, messages []llm.Message) (*pkg.Diagnosis, error) {
	f.calls++
	return f.diag, f.err
}

type fakePending struct {
	saved   map[string][]pkg.MatchResult
	cleared []string
}

func newFakePending() *fakePending {
	return &fakePending{saved: make(map[string][]pkg.MatchResult)}
}

func (f *fakePending) SavePending(ctx context.Context, key string, unmatched []pkg.MatchResult) error {
	f.saved[key] = unmatched
	return nil
}

func (f *fakePending) LoadPending(ctx context.Context, key string) ([]pkg.MatchResult, error) {
	return f.saved[key], nil
}

func (f *fakePending) ClearPending(ctx context.Context, key string) error {
	delete(f.saved, key)
	f.cleared = append(f.cleared, key)
	return nil
}

type fakeNotifier struct {
	keys []string
}

func (f *fakeNotifier) Notify(ctx context.Context, key string) error {
	f.keys = append(f.keys, key)
	return nil
}

// memCatalog is a tiny in-memory catalog store for controller tests.
type memCatalog struct {
	items []pkg.CatalogItem
}

func (m *memCatalog) FindByNameAndDosage(ctx context.Context, name, dosage string) ([]pkg.CatalogItem, error) {
	var out []pkg.CatalogItem
	for _, it := range m.items {
		if containsFold(it.Name, name) && containsFold(it.Dosage, dosage) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memCatalog) FindByName(ctx context.Context, name string) ([]pkg.CatalogItem, error) {
	var out []pkg.CatalogItem
	for _, it := range m.items {
		if containsFold(it.Name, name) {
			out = append(out, it)
		}
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

type testRig struct {
	ctrl      *Controller
	assistant *fakeAssistant
	diagnoser *fakeDiagnoser
	convos    *convo.MemoryStore
	pending   *fakePending
	notifier  *fakeNotifier
}

func newTestRig(items ...pkg.CatalogItem) *testRig {
	assistant := &fakeAssistant{reply: "That sounds uncomfortable. How long has it lasted?"}
	diagnoser := &fakeDiagnoser{diag: &pkg.Diagnosis{
		DiagnosisText: "Likely a tension headache.",
		Prescriptions: []string{"Acetaminophen (Tylenol) 500mg"},
		FollowUp:      "Come back if it lasts more than a week.",
	}}
	convos := convo.NewMemoryStore()
	pending := newFakePending()
	notifier := &fakeNotifier{}
	ctrl := &Controller{
		Assistant: assistant,
		Diagnoser: diagnoser,
		Convos:    convos,
		Resolver:  catalog.NewAggregator(&memCatalog{items: items}),
		Pending:   pending,
		Notifier:  notifier,
	}
	return &testRig{ctrl: ctrl, assistant: assistant, diagnoser: diagnoser, convos: convos, pending: pending, notifier: notifier}
}

func inStock(name, dosage string) pkg.CatalogItem {
	return pkg.CatalogItem{ID: name, Name: name, Dosage: dosage, Form: "tablet", Price: 5, StockQuantity: 10}
}

func TestHandleTurnGatheringRecordsTurns(t *testing.T) {
	rig := newTestRig()
	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "hello there")
	require.NoError(t, err)
	assert.False(t, res.ReadyForDiagnosis)
	assert.False(t, res.CheckoutReady)
	assert.Equal(t, 1, rig.assistant.calls)

	st, ver := rig.convos.Get("c1")
	assert.Equal(t, uint64(1), ver)
	require.Len(t, st.Turns, 2)
	assert.Equal(t, pkg.RoleUser, st.Turns[0].Role)
	assert.Equal(t, pkg.RoleAssistant, st.Turns[1].Role)
	assert.Equal(t, res.Reply, st.Turns[1].Content)
}

func TestHandleTurnConfirmationPrompt(t *testing.T) {
	rig := newTestRig()
	rig.convos.Put("c1", pkg.ConversationState{Turns: []pkg.ConversationTurn{
		{Role: pkg.RoleUser, Content: "my head hurts"},
		{Role: pkg.RoleAssistant, Content: "How long has it been going on?"},
	}})

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "I have a bad headache and nausea for two days now")
	require.NoError(t, err)
	assert.Equal(t, ConfirmationMessage, res.Reply)
	assert.False(t, res.ReadyForDiagnosis)

	st, _ := rig.convos.Get("c1")
	assert.True(t, st.ConfirmationPending)
}

func TestHandleTurnConfirmedNoTriggersDiagnosis(t *testing.T) {
	rig := newTestRig(inStock("Acetaminophen", "500mg"))
	rig.convos.Put("c1", pkg.ConversationState{
		Turns: []pkg.ConversationTurn{
			{Role: pkg.RoleUser, Content: "I have a bad headache and nausea for two days now"},
			{Role: pkg.RoleAssistant, Content: ConfirmationMessage},
		},
		ConfirmationPending: true,
	})

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "no")
	require.NoError(t, err)
	assert.Equal(t, PreparingMessage, res.Reply)
	assert.True(t, res.ReadyForDiagnosis)
	assert.Equal(t, 1, rig.diagnoser.calls)
	assert.Zero(t, rig.assistant.calls)

	require.NotNil(t, res.Diagnosis)
	require.NotNil(t, res.Resolution)
	assert.True(t, res.Resolution.AllAvailable)
	assert.True(t, res.CheckoutReady)

	// Handoff complete; the machine is back to gathering.
	st, _ := rig.convos.Get("c1")
	assert.False(t, st.ConfirmationPending)
	// Nothing blocks checkout, so no pending resolution is persisted.
	assert.Empty(t, rig.pending.saved)
}

func TestHandleTurnUnmatchedPersistsPendingAndNotifies(t *testing.T) {
	rig := newTestRig() // empty catalog: nothing resolves
	rig.convos.Put("c1", pkg.ConversationState{
		Turns:               []pkg.ConversationTurn{{Role: pkg.RoleAssistant, Content: ConfirmationMessage}},
		ConfirmationPending: true,
	})

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "no")
	require.NoError(t, err)
	assert.True(t, res.ReadyForDiagnosis)
	require.NotNil(t, res.Resolution)
	assert.False(t, res.Resolution.AllAvailable)
	assert.False(t, res.CheckoutReady)

	saved, ok := rig.pending.saved["c1"]
	require.True(t, ok)
	require.Len(t, saved, 1)
	assert.Equal(t, "Acetaminophen (Tylenol) 500mg", saved[0].Directive)
	assert.Equal(t, []string{"c1"}, rig.notifier.keys)
}

func TestHandleTurnOnDemandDiagnosisSkipsAssistant(t *testing.T) {
	rig := newTestRig(inStock("Acetaminophen", "500mg"))
	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "please diagnose me")
	require.NoError(t, err)
	assert.True(t, res.ReadyForDiagnosis)
	assert.Zero(t, rig.assistant.calls)
	assert.Equal(t, 1, rig.diagnoser.calls)
}

func TestHandleTurnCheckoutSentinelResets(t *testing.T) {
	rig := newTestRig()
	rig.convos.Put("c1", pkg.ConversationState{
		Turns:               []pkg.ConversationTurn{{Role: pkg.RoleUser, Content: "hi"}},
		ConfirmationPending: true,
	})
	rig.pending.saved["c1"] = []pkg.MatchResult{{Directive: "x"}}

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", CheckoutCompleteSentinel)
	require.NoError(t, err)
	assert.Equal(t, CompletionMessage, res.Reply)
	assert.False(t, res.CheckoutReady)
	assert.Zero(t, rig.assistant.calls)

	_, ver := rig.convos.Get("c1")
	assert.Zero(t, ver)
	assert.Empty(t, rig.pending.saved)
}

func TestHandleTurnAssistantFailureApologizes(t *testing.T) {
	rig := newTestRig()
	rig.assistant.err = errors.New("upstream down")

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, res.Reply)
	assert.False(t, res.CheckoutReady)
	assert.False(t, res.ReadyForDiagnosis)

	// The conversation continues: both turns are on record.
	st, _ := rig.convos.Get("c1")
	require.Len(t, st.Turns, 2)
	assert.Equal(t, ApologyMessage, st.Turns[1].Content)
}

func TestHandleTurnDiagnoserFailureApologizes(t *testing.T) {
	rig := newTestRig()
	rig.diagnoser.err = errors.New("upstream down")
	rig.diagnoser.diag = nil
	rig.convos.Put("c1", pkg.ConversationState{ConfirmationPending: true})

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "no")
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, res.Reply)
	assert.False(t, res.CheckoutReady)
	assert.Nil(t, res.Resolution)
}

func TestHandleTurnMalformedDiagnosisClosesCheckout(t *testing.T) {
	rig := newTestRig(inStock("Acetaminophen", "500mg"))
	rig.diagnoser.diag = &pkg.Diagnosis{DiagnosisText: "free text with no prescriptions"}
	rig.convos.Put("c1", pkg.ConversationState{ConfirmationPending: true})

	res, err := rig.ctrl.HandleTurn(context.Background(), "c1", "no")
	require.NoError(t, err)
	require.NotNil(t, res.Resolution)
	assert.Empty(t, res.Resolution.Results)
	// A vacuously available report with nothing to buy never opens checkout.
	assert.False(t, res.CheckoutReady)
}

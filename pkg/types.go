package pkg

// TurnRole describes who authored a conversation turn. There are only two
// roles: the customer and the assistant.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one message in a dialogue.
type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

// ConversationState is the per-customer dialogue progress. It is the only
// mutable state in the core and lives behind the conversation store.
type ConversationState struct {
	Turns               []ConversationTurn `json:"turns"`
	ConfirmationPending bool               `json:"confirmation_pending"`
}

// LastAssistantReply returns the content of the most recent assistant turn,
// or the empty string when the assistant has not spoken yet.
func (s ConversationState) LastAssistantReply() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleAssistant {
			return s.Turns[i].Content
		}
	}
	return ""
}

// NormalizedDirective is the cleaned, structured view of one free-text drug
// instruction. CandidateNames keeps the original fragment order; that order
// becomes the catalog match-attempt order. Dosage is empty when no fragment
// carried one.
type NormalizedDirective struct {
	Raw            string   `json:"raw"`
	CandidateNames []string `json:"candidate_names"`
	Dosage         string   `json:"dosage,omitempty"`
}

// CatalogItem is an inventory entry. It is owned by the catalog store and
// read-only to this core.
type CatalogItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Dosage        string  `json:"dosage"`
	Form          string  `json:"form"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

// MatchQuality tags how well a directive resolved against the catalog.
type MatchQuality string

const (
	// MatchExact means both the candidate name and the requested dosage matched.
	MatchExact MatchQuality = "exact"
	// MatchPartial means the name matched but the requested dosage did not.
	MatchPartial MatchQuality = "partial"
	// MatchNameOnly means the name matched and no dosage was ever requested.
	MatchNameOnly MatchQuality = "name_only"
	// MatchNone means no candidate matched at any tier.
	MatchNone MatchQuality = "none"
)

// MatchResult is the outcome for one raw directive. Item is nil when the
// directive did not resolve. Unresolved marks a directive whose catalog
// lookup failed outright, as opposed to one that simply had no hit.
type MatchResult struct {
	Directive  string       `json:"directive"`
	Item       *CatalogItem `json:"matched_item,omitempty"`
	Quality    MatchQuality `json:"quality"`
	Unresolved bool         `json:"unresolved,omitempty"`
}

// ResolutionReport is the order-preserving outcome of matching every
// directive of a diagnosis. AllAvailable is derived from Results and must
// never be set independently; build reports with NewResolutionReport and
// call Recompute after any mutation.
type ResolutionReport struct {
	Results      []MatchResult `json:"results"`
	AllAvailable bool          `json:"all_available"`
}

// NewResolutionReport builds a report over results and derives AllAvailable.
func NewResolutionReport(results []MatchResult) *ResolutionReport {
	r := &ResolutionReport{Results: results}
	r.Recompute()
	return r
}

// Recompute rederives AllAvailable as the AND over matched items.
func (r *ResolutionReport) Recompute() {
	r.AllAvailable = true
	for _, res := range r.Results {
		if res.Item == nil {
			r.AllAvailable = false
			return
		}
	}
}

// Unmatched returns the subset of results with no catalog item. This is the
// part the client persists under its conversation key so a reload restores
// the checkout-disabled state without re-querying the catalog.
func (r *ResolutionReport) Unmatched() []MatchResult {
	var out []MatchResult
	for _, res := range r.Results {
		if res.Item == nil {
			out = append(out, res)
		}
	}
	return out
}

// Diagnosis is the structured payload produced by the diagnosis generator
// once a conversation is confirmed complete. Prescriptions holds the raw
// free-text directives, one per drug instruction, in generator order.
type Diagnosis struct {
	DiagnosisText string   `json:"diagnosis_text"`
	Prescriptions []string `json:"prescriptions"`
	FollowUp      string   `json:"follow_up,omitempty"`
}

// ChatRequest is the body of a posted customer message.
type ChatRequest struct {
	Content string `json:"content"`
}

// TurnResult is everything a single handled turn produced: the shaped reply
// plus, when the turn triggered the diagnosis handoff, the diagnosis and its
// catalog resolution. CheckoutReady is false whenever anything along the way
// failed; the core fails closed.
type TurnResult struct {
	Reply             string            `json:"reply"`
	ReadyForDiagnosis bool              `json:"ready_for_diagnosis"`
	CheckoutReady     bool              `json:"checkout_ready"`
	Diagnosis         *Diagnosis        `json:"diagnosis,omitempty"`
	Resolution        *ResolutionReport `json:"resolution,omitempty"`
}

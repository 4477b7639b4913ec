package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKey identifies a decision line within a proposal.
// Edits and removals address lines by this key, never by position.
type LineKey struct {
	ProjectID string `json:"project_id"`
	ItemCode  string `json:"item_code"`
}

// String returns the display form "project/item"
func (k LineKey) String() string {
	return k.ProjectID + "/" + k.ItemCode
}

// Installment is one slice of a supplier payment schedule
type Installment struct {
	Percent           decimal.Decimal `json:"percent"`
	DaysAfterPurchase int             `json:"days_after_purchase"`
}

// PaymentTerms describes how the purchase cost is paid out.
// No installments means the full cost is paid on the purchase date.
type PaymentTerms struct {
	Installments []Installment `json:"installments,omitempty"`
}

// DecisionLine is one candidate procurement decision inside a proposal
type DecisionLine struct {
	ProjectID           string          `json:"project_id"`
	ItemCode            string          `json:"item_code"`
	ProcurementOptionID int64           `json:"procurement_option_id"`
	SupplierName        string          `json:"supplier_name"`
	PurchaseDate        time.Time       `json:"purchase_date"`
	DeliveryDate        time.Time       `json:"delivery_date"`
	Quantity            int             `json:"quantity"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	FinalCost           decimal.Decimal `json:"final_cost"`
	PaymentTerms        PaymentTerms    `json:"payment_terms"`
}

// Key returns the line's composite identity
func (l DecisionLine) Key() LineKey {
	return LineKey{ProjectID: l.ProjectID, ItemCode: l.ItemCode}
}

// Proposal is one optimizer-generated bundle of decision lines.
// It is treated as immutable once received.
type Proposal struct {
	ProposalName string          `json:"proposal_name"`
	StrategyType string          `json:"strategy_type"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	WeightedCost decimal.Decimal `json:"weighted_cost"`
	Status       RunStatus       `json:"status"`
	Decisions    []DecisionLine  `json:"decisions"`
}

// Clone returns a deep copy so callers cannot mutate the received proposal
func (p Proposal) Clone() Proposal {
	out := p
	out.Decisions = make([]DecisionLine, len(p.Decisions))
	for i, line := range p.Decisions {
		out.Decisions[i] = line.clone()
	}
	return out
}

func (l DecisionLine) clone() DecisionLine {
	out := l
	if l.PaymentTerms.Installments != nil {
		out.PaymentTerms.Installments = append([]Installment(nil), l.PaymentTerms.Installments...)
	}
	return out
}

// OptimizationConfig is the input handed to the optimizer
type OptimizationConfig struct {
	MaxTimeSlots              int       `json:"max_time_slots"`
	TimeLimitSeconds          int       `json:"time_limit_seconds"`
	SolverType                string    `json:"solver_type"`
	GenerateMultipleProposals bool      `json:"generate_multiple_proposals"`
	Strategies                []string  `json:"strategies"` // empty = all
	ExcludedItems             []LineKey `json:"excluded_items"`
}

// OptimizationRun is the result of one optimizer invocation
type OptimizationRun struct {
	RunID     string          `json:"run_id"`
	Status    RunStatus       `json:"status"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Proposals []Proposal      `json:"proposals"`
	CreatedAt time.Time       `json:"created_at"`
}

// Proposal looks up a proposal by name
func (r *OptimizationRun) Proposal(name string) (Proposal, bool) {
	for _, p := range r.Proposals {
		if p.ProposalName == name {
			return p, true
		}
	}
	return Proposal{}, false
}

// SaveLine is a reconciled line in the shape the persistence layer accepts
type SaveLine struct {
	DecisionLine
	IsManualEdit bool `json:"is_manual_edit"`
}

// ProposalSavePayload is the request to persist a reconciled proposal
type ProposalSavePayload struct {
	RunID        string     `json:"run_id"`
	ProposalName string     `json:"proposal_name"`
	Decisions    []SaveLine `json:"decisions"`
}

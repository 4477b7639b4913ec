package event

// Type identifies the type of domain event
type Type string

const (
	TypeProposalSaved        Type = "proposal.saved"
	TypeDecisionFinalized    Type = "decision.finalized"
	TypeDecisionReverted     Type = "decision.reverted"
	TypeActualInvoiceEntered Type = "invoice.actual_entered"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeProposalSaved,
		TypeDecisionFinalized,
		TypeDecisionReverted,
		TypeActualInvoiceEntered:
		return true
	default:
		return false
	}
}

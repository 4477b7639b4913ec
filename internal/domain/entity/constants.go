package entity

// DecisionStatus is the lifecycle status of a persisted decision
type DecisionStatus string

// Status constants for Decision
const (
	DecisionStatusProposed DecisionStatus = "PROPOSED"
	DecisionStatusLocked   DecisionStatus = "LOCKED"
	DecisionStatusReverted DecisionStatus = "REVERTED"
)

// IsValid reports whether s is one of the lifecycle statuses
func (s DecisionStatus) IsValid() bool {
	switch s {
	case DecisionStatusProposed, DecisionStatusLocked, DecisionStatusReverted:
		return true
	}
	return false
}

// RunStatus is the solver-reported outcome of an optimization run.
// It is a separate enumeration from DecisionStatus and the two are never compared.
type RunStatus string

// Solver status constants
const (
	RunStatusOptimal      RunStatus = "OPTIMAL"
	RunStatusFeasible     RunStatus = "FEASIBLE"
	RunStatusInfeasible   RunStatus = "INFEASIBLE"
	RunStatusUnknown      RunStatus = "UNKNOWN"
	RunStatusModelInvalid RunStatus = "MODEL_INVALID"
)

// HasSolution reports whether the solver produced usable proposals
func (s RunStatus) HasSolution() bool {
	return s == RunStatusOptimal || s == RunStatusFeasible
}

// TimingType selects how an invoice date is determined
type TimingType string

// Invoice timing constants
const (
	TimingAbsolute TimingType = "ABSOLUTE" // literal issue date
	TimingRelative TimingType = "RELATIVE" // offset in days from delivery
)

// FlowType is the direction of a cash movement
type FlowType string

// Cash flow direction constants
const (
	FlowInflow  FlowType = "INFLOW"
	FlowOutflow FlowType = "OUTFLOW"
)

// Cash flow event status constants
const (
	CashFlowStatusActive    = "ACTIVE"
	CashFlowStatusCancelled = "CANCELLED"
)

// Cash flow event kind constants
const (
	CashFlowKindForecast = "FORECAST"
	CashFlowKindActual   = "ACTUAL"
)

// Role is a caller role as resolved by the authentication layer
type Role string

// Role constants
const (
	RolePM      Role = "pm"
	RoleFinance Role = "finance"
	RoleAdmin   Role = "admin"
	RoleViewer  Role = "viewer"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RolePM, RoleFinance, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// History action type constants
const (
	ActionTypeSaveProposal       = "SAVE_PROPOSAL"
	ActionTypeSetForecast        = "SET_FORECAST_INVOICE"
	ActionTypeFinalize           = "FINALIZE"
	ActionTypeRevert             = "REVERT"
	ActionTypeEnterActualInvoice = "ENTER_ACTUAL_INVOICE"
)

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceTiming describes when an invoice is issued.
// Only the field that matches TimingType carries meaning.
type InvoiceTiming struct {
	TimingType        TimingType `json:"timing_type"`
	IssueDate         *time.Time `json:"issue_date,omitempty"`
	DaysAfterDelivery *int       `json:"days_after_delivery,omitempty"`
}

// Normalized returns a copy with the field that does not belong to TimingType cleared
func (t InvoiceTiming) Normalized() InvoiceTiming {
	switch t.TimingType {
	case TimingAbsolute:
		return InvoiceTiming{TimingType: t.TimingType, IssueDate: t.IssueDate}
	case TimingRelative:
		return InvoiceTiming{TimingType: t.TimingType, DaysAfterDelivery: t.DaysAfterDelivery}
	default:
		return InvoiceTiming{TimingType: t.TimingType}
	}
}

// ActualInvoice is the invoice data entered by finance after the fact
type ActualInvoice struct {
	IssueDate    time.Time       `json:"issue_date"`
	Amount       decimal.Decimal `json:"amount"`
	ReceivedDate *time.Time      `json:"received_date,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// Decision is a persisted procurement decision with a lifecycle status
type Decision struct {
	ID                  int64           `json:"id"`
	RunID               string          `json:"run_id"`
	ProposalName        string          `json:"proposal_name"`
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
	Status              DecisionStatus  `json:"status"`
	IsManualEdit        bool            `json:"is_manual_edit"`

	ForecastInvoice       *InvoiceTiming      `json:"forecast_invoice,omitempty"`
	ForecastInvoiceAmount decimal.NullDecimal `json:"forecast_invoice_amount"`
	ActualInvoice         *ActualInvoice      `json:"actual_invoice,omitempty"`

	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
	FinalizedByID string     `json:"finalized_by_id,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Key returns the decision's (project, item) identity
func (d *Decision) Key() LineKey {
	return LineKey{ProjectID: d.ProjectID, ItemCode: d.ItemCode}
}

// DecisionFilter narrows a decision listing. Zero values match everything.
type DecisionFilter struct {
	RunID        string         `form:"run_id"`
	ProposalName string         `form:"proposal_name"`
	ProjectID    string         `form:"project_id"`
	Status       DecisionStatus `form:"status"`
	Limit        int            `form:"limit"`
	Offset       int            `form:"offset"`
}

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/pkg/utils"
)

// DateLayout is the calendar date format accepted by the API
const DateLayout = "2006-01-02"

// Date accepts either a calendar date or an RFC3339 timestamp
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// OpenSessionRequest starts editing a proposal of a stored run
type OpenSessionRequest struct {
	RunID        string `json:"run_id" binding:"required"`
	ProposalName string `json:"proposal_name" binding:"required"`
}

// LineRequest is a decision line as sent by clients
type LineRequest struct {
	ProjectID           string              `json:"project_id"`
	ItemCode            string              `json:"item_code"`
	ProcurementOptionID int64               `json:"procurement_option_id"`
	SupplierName        string              `json:"supplier_name"`
	PurchaseDate        Date                `json:"purchase_date"`
	DeliveryDate        Date                `json:"delivery_date"`
	Quantity            int                 `json:"quantity"`
	UnitCost            decimal.Decimal     `json:"unit_cost"`
	FinalCost           decimal.Decimal     `json:"final_cost"`
	PaymentTerms        entity.PaymentTerms `json:"payment_terms"`
}

func (r LineRequest) toLine() entity.DecisionLine {
	return entity.DecisionLine{
		ProjectID:           r.ProjectID,
		ItemCode:            r.ItemCode,
		ProcurementOptionID: r.ProcurementOptionID,
		SupplierName:        r.SupplierName,
		PurchaseDate:        r.PurchaseDate.Time,
		DeliveryDate:        r.DeliveryDate.Time,
		Quantity:            r.Quantity,
		UnitCost:            r.UnitCost,
		FinalCost:           r.FinalCost,
		PaymentTerms:        r.PaymentTerms,
	}
}

// TimingRequest describes forecast invoice timing
type TimingRequest struct {
	TimingType        entity.TimingType `json:"timing_type"`
	IssueDate         *Date             `json:"issue_date"`
	DaysAfterDelivery *int              `json:"days_after_delivery"`
}

func (r TimingRequest) toTiming() entity.InvoiceTiming {
	return entity.InvoiceTiming{
		TimingType:        r.TimingType,
		IssueDate:         r.IssueDate.ptr(),
		DaysAfterDelivery: r.DaysAfterDelivery,
	}
}

// ForecastInvoiceRequest sets a decision's forecast invoice
type ForecastInvoiceRequest struct {
	TimingRequest
	Amount decimal.Decimal `json:"amount"`
}

// IDsRequest selects decisions by id
type IDsRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

// RevertRequest carries the reason for a revert
type RevertRequest struct {
	Notes string `json:"notes"`
}

// BulkRevertRequest reverts several decisions with shared notes
type BulkRevertRequest struct {
	IDs   []int64 `json:"ids" binding:"required"`
	Notes string  `json:"notes"`
}

// ActualInvoiceRequest records the invoice finance received
type ActualInvoiceRequest struct {
	IssueDate    Date            `json:"issue_date"`
	Amount       decimal.Decimal `json:"amount"`
	ReceivedDate *Date           `json:"received_date"`
	Notes        string          `json:"notes"`
}

func (r ActualInvoiceRequest) toActual() entity.ActualInvoice {
	return entity.ActualInvoice{
		IssueDate:    r.IssueDate.Time,
		Amount:       r.Amount,
		ReceivedDate: r.ReceivedDate.ptr(),
		Notes:        utils.SanitizeString(r.Notes),
	}
}

// ListRunsRequest represents query parameters for listing runs
type ListRunsRequest struct {
	Limit int `form:"limit"`
}

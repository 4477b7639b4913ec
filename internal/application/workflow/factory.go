package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/invoice"
	domainwf "github.com/garyjia/procurement-decisions/internal/domain/workflow"
)

// BuildDecisionStateMachine creates a lifecycle machine positioned at d's
// status. Finalize is guarded on the decision carrying complete forecast
// invoice data.
func BuildDecisionStateMachine(d *entity.Decision) domainwf.StateMachine {
	guards := map[domainwf.Trigger]domainwf.GuardFunc{
		domainwf.TriggerFinalize: func(ctx context.Context) bool {
			return FinalizeReadiness(d) == nil
		},
	}
	return domainwf.ConfigureLifecycle(domainwf.NewBuilder(), guards).
		Build(domainwf.State(d.Status))
}

// FinalizeReadiness reports why d cannot be finalized yet, or nil.
// Missing invoice data is rejected, never defaulted.
func FinalizeReadiness(d *entity.Decision) error {
	if d.ForecastInvoice == nil || d.ForecastInvoice.TimingType == "" {
		return apperror.Validation("forecast_invoice", "decision %d has no invoice timing", d.ID)
	}
	if err := invoice.ValidateTiming(*d.ForecastInvoice); err != nil {
		return err
	}
	if !d.ForecastInvoiceAmount.Valid || !d.ForecastInvoiceAmount.Decimal.GreaterThan(decimal.Zero) {
		return apperror.Validation("forecast_invoice_amount", "decision %d needs a positive forecast invoice amount", d.ID)
	}
	return invoice.ValidateInstallments(d.PaymentTerms)
}

// Package invoice resolves invoice dates and payment schedules.
package invoice

import (
	"time"

	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// MaxDaysAfterDelivery bounds a relative invoice offset
const MaxDaysAfterDelivery = 365

// ValidateTiming checks that the field matching the timing type is usable.
// The other field is ignored whatever it holds.
func ValidateTiming(timing entity.InvoiceTiming) error {
	switch timing.TimingType {
	case entity.TimingAbsolute:
		if timing.IssueDate == nil || timing.IssueDate.IsZero() {
			return apperror.Validation("issue_date", "an issue date is required for ABSOLUTE timing")
		}
		return nil
	case entity.TimingRelative:
		if timing.DaysAfterDelivery == nil {
			return apperror.Validation("days_after_delivery", "an offset is required for RELATIVE timing")
		}
		if d := *timing.DaysAfterDelivery; d < 0 || d > MaxDaysAfterDelivery {
			return apperror.Validation("days_after_delivery", "must be between 0 and %d, got %d", MaxDaysAfterDelivery, d)
		}
		return nil
	default:
		return apperror.Validation("timing_type", "unknown timing type %q", timing.TimingType)
	}
}

// ResolveInvoiceDate computes the concrete invoice date. ABSOLUTE returns
// the issue date verbatim; RELATIVE adds whole calendar days to delivery.
func ResolveInvoiceDate(timing entity.InvoiceTiming, deliveryDate time.Time) (time.Time, error) {
	if err := ValidateTiming(timing); err != nil {
		return time.Time{}, err
	}
	if timing.TimingType == entity.TimingAbsolute {
		return *timing.IssueDate, nil
	}
	return deliveryDate.AddDate(0, 0, *timing.DaysAfterDelivery), nil
}

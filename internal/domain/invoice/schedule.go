package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Payment is one dated outflow derived from payment terms
type Payment struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ValidateInstallments requires non-negative offsets, positive percents,
// and percents summing to exactly 100. Empty terms are valid.
func ValidateInstallments(terms entity.PaymentTerms) error {
	if len(terms.Installments) == 0 {
		return nil
	}
	sum := decimal.Zero
	for i, inst := range terms.Installments {
		if !inst.Percent.IsPositive() {
			return apperror.Validation("payment_terms", "installment %d has non-positive percent %s", i+1, inst.Percent)
		}
		if inst.DaysAfterPurchase < 0 {
			return apperror.Validation("payment_terms", "installment %d has negative offset %d", i+1, inst.DaysAfterPurchase)
		}
		sum = sum.Add(inst.Percent)
	}
	if !sum.Equal(hundred) {
		return apperror.Validation("payment_terms", "installments must sum to 100%%, got %s%%", sum)
	}
	return nil
}

// Schedule splits total over the installments, rounding each to cents.
// The last installment absorbs the rounding remainder so amounts always
// sum to total. Empty terms pay everything on the purchase date.
func Schedule(terms entity.PaymentTerms, purchaseDate time.Time, total decimal.Decimal) ([]Payment, error) {
	if err := ValidateInstallments(terms); err != nil {
		return nil, err
	}
	if len(terms.Installments) == 0 {
		return []Payment{{Date: purchaseDate, Amount: total}}, nil
	}

	out := make([]Payment, 0, len(terms.Installments))
	allocated := decimal.Zero
	for i, inst := range terms.Installments {
		amount := total.Mul(inst.Percent).Div(hundred).Round(2)
		if i == len(terms.Installments)-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		out = append(out, Payment{
			Date:   purchaseDate.AddDate(0, 0, inst.DaysAfterPurchase),
			Amount: amount,
		})
	}
	return out, nil
}

package voucher

import (
	"math"

	"genfity-pricing-service/internal/utils"
)

// ComputeManual prices an operator discount against the whole subtotal.
// Percentages are clamped to 100 and every amount is capped at the subtotal.
func ComputeManual(subtotal float64, kind DiscountType, value float64, currency string) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, ValidationError(ErrManualDiscountInvalid, "Manual discount value must be greater than zero", map[string]any{
			"discountType": kind,
		})
	}
	amount := discountFor(kind, value, subtotal, nil, currency)
	if amount <= 0 {
		return 0, ValidationError(ErrVoucherDiscountZero, "Discount is zero", nil)
	}
	return amount, nil
}

// ApplyOverride reprices a resolved voucher with an operator chosen type and
// value. The template's max discount and the eligible subtotal still cap it.
func ApplyOverride(result *DiscountResult, kind DiscountType, value float64, currency string) (*DiscountResult, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return nil, ValidationError(ErrManualDiscountInvalid, "Discount value must be greater than zero", nil)
	}
	amount := discountFor(kind, value, result.EligibleSubtotal, result.MaxDiscountAmount, currency)
	if amount <= 0 {
		return nil, ValidationError(ErrVoucherDiscountZero, "Voucher discount is zero", nil)
	}

	out := *result
	out.DiscountType = kind
	out.DiscountValue = utils.Round2(value)
	out.DiscountAmount = amount
	return &out, nil
}

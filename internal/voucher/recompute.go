package voucher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"genfity-pricing-service/internal/utils"
)

// Policy decides what happens to a stored discount that no longer resolves
// after an order edit.
type Policy string

const (
	PolicyDrop Policy = "drop"
	PolicyFail Policy = "fail"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyFail:
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown discount revalidation policy %q", value)
	}
}

type RecomputeParams struct {
	MerchantID int64
	OrderID    int64
	Currency   string
	Timezone   string
	OrderType  string
	Subtotal   float64
	Items      []OrderItemInput
	CustomerID *int64
	Existing   []StoredDiscount
	Policy     Policy
}

type DroppedDiscount struct {
	Source  Source    `json:"source"`
	Label   string    `json:"label"`
	Reason  ErrorCode `json:"reason"`
	Message string    `json:"message"`
}

type Recomputed struct {
	Discounts []AppliedDiscount
	Total     float64
	Dropped   []DroppedDiscount
}

// Recompute re-resolves every stored discount of an order against its new
// items. Usage counts exclude the order itself so re-saving does not consume
// another use.
func (r *Resolver) Recompute(ctx context.Context, params RecomputeParams) (*Recomputed, error) {
	out := &Recomputed{}
	for _, row := range params.Existing {
		applied, err := r.recomputeRow(ctx, params, row)
		if err != nil {
			var verr *Error
			if !errors.As(err, &verr) {
				return nil, err
			}
			if params.Policy == PolicyFail {
				return nil, ValidationError(ErrDiscountNoLongerValid, fmt.Sprintf("Discount %q is no longer valid: %s", row.Label, verr.Message), map[string]any{
					"source": row.Source,
					"label":  row.Label,
					"reason": verr.Code,
				})
			}
			out.Dropped = append(out.Dropped, DroppedDiscount{Source: row.Source, Label: row.Label, Reason: verr.Code, Message: verr.Message})
			continue
		}
		out.Discounts = append(out.Discounts, applied)
	}
	out.Total = utils.RoundCurrency(SumAmounts(out.Discounts), params.Currency)
	return out, nil
}

func (r *Resolver) recomputeRow(ctx context.Context, params RecomputeParams, row StoredDiscount) (AppliedDiscount, error) {
	if row.Source == SourceManual {
		return recomputeManual(params, row)
	}

	customerID := row.AppliedByCustomerID
	if customerID == nil {
		customerID = params.CustomerID
	}
	orderID := params.OrderID
	resolveParams := ResolveParams{
		MerchantID:     params.MerchantID,
		Currency:       params.Currency,
		Timezone:       params.Timezone,
		Audience:       row.Source.Audience(),
		OrderType:      params.OrderType,
		Subtotal:       params.Subtotal,
		Items:          params.Items,
		TemplateID:     row.VoucherTemplateID,
		CustomerID:     customerID,
		ExcludeOrderID: &orderID,
	}
	if row.VoucherCode != nil {
		resolveParams.Code = *row.VoucherCode
	}

	result, err := r.Resolve(ctx, resolveParams)
	if err != nil {
		return AppliedDiscount{}, err
	}

	// A template voucher applied at the POS keeps the operator's stored
	// type and value.
	if row.Source == SourcePOSVoucher && row.VoucherCode == nil && row.DiscountValue != nil {
		result, err = ApplyOverride(result, row.DiscountType, *row.DiscountValue, params.Currency)
		if err != nil {
			return AppliedDiscount{}, err
		}
	}

	applied := FromResult(row.Source, result, row.AppliedByUserID, row.AppliedByCustomerID)
	return applied, nil
}

func recomputeManual(params RecomputeParams, row StoredDiscount) (AppliedDiscount, error) {
	applied := AppliedDiscount{
		Source:              SourceManual,
		Label:               row.Label,
		DiscountType:        row.DiscountType,
		DiscountValue:       row.DiscountValue,
		AppliedByUserID:     row.AppliedByUserID,
		AppliedByCustomerID: row.AppliedByCustomerID,
	}
	if applied.Label == "" {
		applied.Label = ManualDiscountLabel
	}

	if row.DiscountValue == nil {
		// Legacy rows without a value keep their amount, capped at the new subtotal.
		applied.DiscountAmount = utils.RoundCurrency(math.Min(row.DiscountAmount, params.Subtotal), params.Currency)
		if applied.DiscountAmount <= 0 {
			return AppliedDiscount{}, ValidationError(ErrVoucherDiscountZero, "Discount is zero", nil)
		}
		return applied, nil
	}

	amount, err := ComputeManual(params.Subtotal, row.DiscountType, *row.DiscountValue, params.Currency)
	if err != nil {
		return AppliedDiscount{}, err
	}
	applied.DiscountAmount = amount
	return applied, nil
}

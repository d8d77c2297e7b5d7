package voucher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"genfity-pricing-service/internal/utils"
)

type ResolveParams struct {
	MerchantID int64
	Currency   string
	Timezone   string
	Audience   Audience
	OrderType  string
	Subtotal   float64
	Items      []OrderItemInput
	Code       string
	TemplateID *int64
	CustomerID *int64
	// ExcludeOrderID keeps an order's own discount rows out of the usage
	// counts while that order is being edited.
	ExcludeOrderID *int64
	// OrderIDForStacking rejects the voucher when the order already carries
	// a voucher or manual discount.
	OrderIDForStacking *int64
}

type Resolver struct {
	store Store
	now   func() time.Time
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// WithClock returns a copy of the resolver that reads the time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	clone := *r
	clone.now = now
	return &clone
}

func (r *Resolver) Resolve(ctx context.Context, params ResolveParams) (*DiscountResult, error) {
	template, code, err := r.lookup(ctx, params.MerchantID, params.Audience, params.Code, params.TemplateID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if err := assertSchedule(template, now, params.Timezone); err != nil {
		return nil, err
	}
	if code != nil {
		if err := assertCodeWindow(code, now); err != nil {
			return nil, err
		}
	}
	if err := assertOrderType(template, params.OrderType); err != nil {
		return nil, err
	}

	if template.RequiresCustomerLogin && params.CustomerID == nil {
		return nil, ValidationError(ErrVoucherRequiresLogin, "Customer login is required to use this voucher", nil)
	}

	if template.MinOrderAmount != nil && params.Subtotal < *template.MinOrderAmount {
		return nil, ValidationError(ErrVoucherMinOrderNotMet, "Order does not meet minimum amount", map[string]any{
			"minOrderAmount": *template.MinOrderAmount,
			"subtotal":       params.Subtotal,
			"currency":       params.Currency,
		})
	}

	if err := r.assertUsageLimits(ctx, params.MerchantID, template, code, params.CustomerID, params.ExcludeOrderID); err != nil {
		return nil, err
	}

	if params.OrderIDForStacking != nil {
		if err := r.assertStacking(ctx, params.MerchantID, *params.OrderIDForStacking); err != nil {
			return nil, err
		}
	}

	eligible := EligibleSubtotal(template, params.Items)
	if eligible <= 0 {
		return nil, ValidationError(ErrVoucherNotApplicableItems, "Voucher is not applicable to selected items", map[string]any{
			"includeAllItems":  template.IncludeAllItems,
			"scopedMenus":      len(template.MenuScopes),
			"scopedCategories": len(template.CategoryScopes),
		})
	}

	amount := discountFor(template.DiscountType, template.DiscountValue, eligible, template.MaxDiscountAmount, params.Currency)
	if amount <= 0 {
		return nil, ValidationError(ErrVoucherDiscountZero, "Voucher discount is zero", nil)
	}

	result := &DiscountResult{
		TemplateID:        template.ID,
		Label:             template.Name,
		DiscountType:      template.DiscountType,
		DiscountValue:     template.DiscountValue,
		DiscountAmount:    amount,
		EligibleSubtotal:  utils.RoundCurrency(eligible, params.Currency),
		MaxDiscountAmount: template.MaxDiscountAmount,
	}
	if code != nil {
		codeID := code.ID
		result.CodeID = &codeID
		result.Code = code.Code
	}
	return result, nil
}

func (r *Resolver) lookup(ctx context.Context, merchantID int64, audience Audience, rawCode string, templateID *int64) (*Template, *Code, error) {
	var (
		template *Template
		code     *Code
		err      error
	)

	normalized := NormalizeCode(rawCode)
	switch {
	case normalized != "":
		template, code, err = r.store.CodeByValue(ctx, merchantID, normalized)
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ValidationError(ErrVoucherNotFound, "Invalid voucher code", nil)
		}
	case templateID != nil:
		template, err = r.store.TemplateByID(ctx, merchantID, *templateID)
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ValidationError(ErrVoucherNotFound, "Voucher template not found", nil)
		}
	default:
		return nil, nil, ValidationError(ErrVoucherTemplateRequired, "Voucher template is required", nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load voucher: %w", err)
	}

	if !template.IsActive {
		return nil, nil, ValidationError(ErrVoucherInactive, "Voucher is inactive", nil)
	}
	if !audienceApplicable(template.Audience, audience) {
		return nil, nil, ValidationError(ErrVoucherNotApplicable, "Voucher is not applicable", map[string]any{
			"audience": template.Audience,
		})
	}
	return template, code, nil
}

// assertUsageLimits counts prior discount rows. Template and code caps are
// independent: the template caps count every code of the template, the code
// caps only that code.
func (r *Resolver) assertUsageLimits(ctx context.Context, merchantID int64, template *Template, code *Code, customerID *int64, excludeOrderID *int64) error {
	base := UsageQuery{MerchantID: merchantID, TemplateID: template.ID, ExcludeOrderID: excludeOrderID}

	var codeQuery UsageQuery
	if code != nil {
		codeQuery = base
		codeQuery.CodeID = &code.ID
	}

	if err := r.assertCap(ctx, base, template.MaxUsesTotal, "maxUsesTotal"); err != nil {
		return err
	}
	if code != nil {
		if err := r.assertCap(ctx, codeQuery, code.MaxUsesTotal, "codeMaxUsesTotal"); err != nil {
			return err
		}
	}

	if customerID != nil {
		customerQuery := base
		customerQuery.CustomerID = customerID
		if err := r.assertCap(ctx, customerQuery, template.MaxUsesPerCustomer, "maxUsesPerCustomer"); err != nil {
			return err
		}
		if code != nil {
			customerCodeQuery := codeQuery
			customerCodeQuery.CustomerID = customerID
			if err := r.assertCap(ctx, customerCodeQuery, code.MaxUsesPerCustomer, "codeMaxUsesPerCustomer"); err != nil {
				return err
			}
		}
	}

	if template.TotalDiscountCap != nil {
		used, err := r.store.SumUsage(ctx, base)
		if err != nil {
			return fmt.Errorf("sum voucher usage: %w", err)
		}
		if used >= *template.TotalDiscountCap {
			return conflictError(ErrVoucherDiscountCapReached, "Voucher discount budget reached", map[string]any{
				"totalDiscountCap": *template.TotalDiscountCap,
				"used":             used,
			})
		}
	}
	return nil
}

func (r *Resolver) assertCap(ctx context.Context, q UsageQuery, limit *int32, name string) error {
	if limit == nil {
		return nil
	}
	used, err := r.store.CountUsage(ctx, q)
	if err != nil {
		return fmt.Errorf("count voucher usage: %w", err)
	}
	if used >= int64(*limit) {
		return conflictError(ErrVoucherUsageLimitReached, "Voucher usage limit reached", map[string]any{
			name:   *limit,
			"used": used,
		})
	}
	return nil
}

func (r *Resolver) assertStacking(ctx context.Context, merchantID int64, orderID int64) error {
	existing, err := r.store.OrderSources(ctx, merchantID, orderID)
	if err != nil {
		return fmt.Errorf("load order discounts: %w", err)
	}
	for _, row := range existing {
		details := map[string]any{"existingSource": row.Source, "existingLabel": row.Label}
		if row.Source == SourceManual {
			return ValidationError(ErrVoucherCannotStackManual, "Voucher cannot be combined with manual discount", details)
		}
		if row.Source.IsVoucher() {
			return ValidationError(ErrVoucherAlreadyApplied, "Only one voucher can be used per order", details)
		}
	}
	return nil
}

// EligibleSubtotal sums the lines a template applies to. A line matches when
// its menu or any of its categories is in scope.
func EligibleSubtotal(template *Template, items []OrderItemInput) float64 {
	var eligible float64
	if template.IncludeAllItems {
		for _, item := range items {
			eligible = utils.Round2(eligible + item.Subtotal)
		}
		return eligible
	}
	if len(template.MenuScopes) == 0 && len(template.CategoryScopes) == 0 {
		return 0
	}

	menus := toSet(template.MenuScopes)
	categories := toSet(template.CategoryScopes)
	for _, item := range items {
		if item.MenuID == 0 {
			continue
		}
		if _, ok := menus[item.MenuID]; ok || anyIn(item.CategoryIDs, categories) {
			eligible = utils.Round2(eligible + item.Subtotal)
		}
	}
	return eligible
}

// discountFor applies the percentage or fixed rule against base, caps it and
// rounds at the currency's minor unit.
func discountFor(kind DiscountType, value float64, base float64, maxDiscount *float64, currency string) float64 {
	if base <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	var amount float64
	if kind == DiscountPercentage {
		pct := math.Max(0, math.Min(value, 100))
		amount = utils.RoundCurrency(base*pct/100, currency)
		if maxDiscount != nil && *maxDiscount >= 0 {
			amount = math.Min(amount, *maxDiscount)
		}
	} else {
		amount = value
	}
	amount = math.Min(amount, base)
	return utils.RoundCurrency(math.Max(0, amount), currency)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func audienceApplicable(templateAudience string, requestAudience Audience) bool {
	if strings.EqualFold(templateAudience, string(AudienceBoth)) {
		return true
	}
	return strings.EqualFold(templateAudience, string(requestAudience))
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func anyIn(ids []int64, set map[int64]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

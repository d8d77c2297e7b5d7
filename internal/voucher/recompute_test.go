package voucher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recomputeParams(policy Policy, subtotal float64, rows ...StoredDiscount) RecomputeParams {
	return RecomputeParams{
		MerchantID: 7,
		OrderID:    321,
		Currency:   "AUD",
		Timezone:   "Australia/Sydney",
		OrderType:  "DINE_IN",
		Subtotal:   subtotal,
		Items:      []OrderItemInput{{MenuID: 1, CategoryIDs: []int64{10}, Subtotal: subtotal}},
		Existing:   rows,
		Policy:     policy,
	}
}

func TestRecomputeManualAgainstNewSubtotal(t *testing.T) {
	resolver := newTestResolver(newFakeStore())
	rows := []StoredDiscount{
		{Source: SourceManual, Label: ManualDiscountLabel, DiscountType: DiscountPercentage, DiscountValue: ptr(10.0), DiscountAmount: 5},
	}

	out, err := resolver.Recompute(context.Background(), recomputeParams(PolicyDrop, 80, rows...))
	require.NoError(t, err)
	require.Len(t, out.Discounts, 1)
	assert.Equal(t, 8.0, out.Discounts[0].DiscountAmount)
	assert.Equal(t, 8.0, out.Total)
	assert.Empty(t, out.Dropped)
}

func TestRecomputeFixedManualCappedAtSubtotal(t *testing.T) {
	resolver := newTestResolver(newFakeStore())
	rows := []StoredDiscount{
		{Source: SourceManual, DiscountType: DiscountFixed, DiscountValue: ptr(30.0), DiscountAmount: 30},
	}

	out, err := resolver.Recompute(context.Background(), recomputeParams(PolicyDrop, 12.5, rows...))
	require.NoError(t, err)
	assert.Equal(t, 12.5, out.Total)
	assert.Equal(t, ManualDiscountLabel, out.Discounts[0].Label)
}

func TestRecomputeVoucherExcludesOwnOrder(t *testing.T) {
	store := newFakeStore()
	tpl := store.addTemplate(percentTemplate(1, 10))
	tpl.MaxUsesTotal = ptr(int32(1))
	store.addCode(1, &Code{ID: 5, Code: "ONCE", IsActive: true})

	rows := []StoredDiscount{{
		Source:            SourcePOSVoucher,
		Label:             "Ten off",
		DiscountType:      DiscountPercentage,
		DiscountValue:     ptr(10.0),
		DiscountAmount:    10,
		VoucherTemplateID: ptr(int64(1)),
		VoucherCodeID:     ptr(int64(5)),
		VoucherCode:       ptr("ONCE"),
		AppliedByUserID:   ptr(int64(3)),
	}}

	out, err := newTestResolver(store).Recompute(context.Background(), recomputeParams(PolicyDrop, 60, rows...))
	require.NoError(t, err)
	require.Len(t, out.Discounts, 1)
	assert.Equal(t, 6.0, out.Total)
	assert.Equal(t, int64(5), *out.Discounts[0].VoucherCodeID)
	assert.Equal(t, int64(3), *out.Discounts[0].AppliedByUserID)
	require.NotEmpty(t, store.queries)
	assert.Equal(t, int64(321), *store.queries[0].ExcludeOrderID)
}

func TestRecomputeKeepsOperatorOverride(t *testing.T) {
	store := newFakeStore()
	tpl := store.addTemplate(percentTemplate(1, 10))
	tpl.MaxDiscountAmount = ptr(15.0)

	rows := []StoredDiscount{{
		Source:            SourcePOSVoucher,
		Label:             "Ten off",
		DiscountType:      DiscountPercentage,
		DiscountValue:     ptr(25.0),
		VoucherTemplateID: ptr(int64(1)),
	}}

	out, err := newTestResolver(store).Recompute(context.Background(), recomputeParams(PolicyDrop, 100, rows...))
	require.NoError(t, err)
	assert.Equal(t, 15.0, out.Total)
	assert.Equal(t, 25.0, *out.Discounts[0].DiscountValue)
}

func TestRecomputeDropPolicyReportsIneligible(t *testing.T) {
	store := newFakeStore()
	tpl := store.addTemplate(percentTemplate(1, 10))
	tpl.MinOrderAmount = ptr(50.0)

	rows := []StoredDiscount{
		{Source: SourceCustomerVoucher, Label: "Ten off", DiscountType: DiscountPercentage, DiscountValue: ptr(10.0), VoucherTemplateID: ptr(int64(1))},
		{Source: SourceManual, Label: "Staff", DiscountType: DiscountFixed, DiscountValue: ptr(2.0)},
	}

	out, err := newTestResolver(store).Recompute(context.Background(), recomputeParams(PolicyDrop, 30, rows...))
	require.NoError(t, err)
	require.Len(t, out.Discounts, 1)
	assert.Equal(t, SourceManual, out.Discounts[0].Source)
	assert.Equal(t, 2.0, out.Total)
	require.Len(t, out.Dropped, 1)
	assert.Equal(t, ErrVoucherMinOrderNotMet, out.Dropped[0].Reason)
}

func TestRecomputeFailPolicy(t *testing.T) {
	store := newFakeStore()
	tpl := store.addTemplate(percentTemplate(1, 10))
	tpl.MinOrderAmount = ptr(50.0)

	rows := []StoredDiscount{
		{Source: SourcePOSVoucher, Label: "Ten off", DiscountType: DiscountPercentage, DiscountValue: ptr(10.0), VoucherTemplateID: ptr(int64(1)), VoucherCode: ptr("TEN")},
	}
	store.addCode(1, &Code{ID: 8, Code: "TEN", IsActive: true})

	_, err := newTestResolver(store).Recompute(context.Background(), recomputeParams(PolicyFail, 30, rows...))
	require.Error(t, err)
	assert.Equal(t, ErrDiscountNoLongerValid, voucherCode(t, err))
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ErrVoucherMinOrderNotMet, verr.Details["reason"])
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDrop, p)

	p, err = ParsePolicy(" FAIL ")
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestComputeManual(t *testing.T) {
	amount, err := ComputeManual(40, DiscountPercentage, 150, "AUD")
	require.NoError(t, err)
	assert.Equal(t, 40.0, amount)

	amount, err = ComputeManual(33.33, DiscountPercentage, 10, "AUD")
	require.NoError(t, err)
	assert.Equal(t, 3.33, amount)

	_, err = ComputeManual(40, DiscountFixed, -1, "AUD")
	assert.Equal(t, ErrManualDiscountInvalid, voucherCode(t, err))
}

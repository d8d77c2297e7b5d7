package voucher

import (
	"context"
	"fmt"

	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/utils"
)

type ApplyParams struct {
	MerchantID     int64
	OrderID        int64
	Currency       string
	Discount       AppliedDiscount
	ReplaceSources []Source
}

// ApplyOrderDiscountTx writes one discount row, optionally replacing rows of
// the given sources first, and resyncs orders.discount_amount. It returns the
// order's new discount total.
func ApplyOrderDiscountTx(ctx context.Context, tx db.Querier, params ApplyParams) (float64, error) {
	if len(params.ReplaceSources) > 0 {
		sources := make([]string, 0, len(params.ReplaceSources))
		for _, s := range params.ReplaceSources {
			sources = append(sources, string(s))
		}
		if _, err := tx.Exec(ctx, `
			delete from order_discounts
			where merchant_id = $1 and order_id = $2 and source = any($3)
		`, params.MerchantID, params.OrderID, sources); err != nil {
			return 0, fmt.Errorf("delete order discounts: %w", err)
		}
	}

	if err := insertDiscount(ctx, tx, params.MerchantID, params.OrderID, params.Currency, params.Discount); err != nil {
		return 0, err
	}
	return SyncOrderDiscountAmountTx(ctx, tx, params.MerchantID, params.OrderID, params.Currency)
}

// ReplaceOrderDiscountsTx deletes every discount row of the order and inserts
// discounts in their place. The caller updates the order aggregates.
func ReplaceOrderDiscountsTx(ctx context.Context, tx db.Querier, merchantID, orderID int64, currency string, discounts []AppliedDiscount) error {
	if _, err := tx.Exec(ctx, `delete from order_discounts where merchant_id = $1 and order_id = $2`, merchantID, orderID); err != nil {
		return fmt.Errorf("delete order discounts: %w", err)
	}
	for _, d := range discounts {
		if err := insertDiscount(ctx, tx, merchantID, orderID, currency, d); err != nil {
			return err
		}
	}
	return nil
}

func SyncOrderDiscountAmountTx(ctx context.Context, tx db.Querier, merchantID, orderID int64, currency string) (float64, error) {
	var total float64
	if err := tx.QueryRow(ctx, `
		select coalesce(sum(discount_amount), 0) from order_discounts
		where merchant_id = $1 and order_id = $2
	`, merchantID, orderID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum order discounts: %w", err)
	}

	amount := utils.RoundCurrency(total, currency)
	if _, err := tx.Exec(ctx, `update orders set discount_amount = $1 where id = $2 and merchant_id = $3`, amount, orderID, merchantID); err != nil {
		return 0, fmt.Errorf("update order discount amount: %w", err)
	}
	return amount, nil
}

func insertDiscount(ctx context.Context, tx db.Querier, merchantID, orderID int64, currency string, d AppliedDiscount) error {
	_, err := tx.Exec(ctx, `
		insert into order_discounts (
			merchant_id, order_id, source, voucher_template_id, voucher_code_id,
			label, discount_type, discount_value, discount_amount,
			applied_by_user_id, applied_by_customer_id, metadata
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		merchantID,
		orderID,
		string(d.Source),
		d.VoucherTemplateID,
		d.VoucherCodeID,
		d.Label,
		string(d.DiscountType),
		d.DiscountValue,
		d.DiscountAmount,
		d.AppliedByUserID,
		d.AppliedByCustomerID,
		map[string]any{"currency": currency},
	)
	if err != nil {
		return fmt.Errorf("insert order discount: %w", err)
	}
	return nil
}

package orders

import (
	"context"

	"genfity-pricing-service/internal/events"
	"genfity-pricing-service/internal/fees"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/voucher"

	"go.uber.org/zap"
)

func assertEditableStatus(order *Order) error {
	if order.Status != StatusPending && order.Status != StatusAccepted {
		return badRequest(ErrOrderNotEditable, "Only PENDING or ACCEPTED orders can be edited.")
	}
	if order.OrderType != fees.OrderTypeDineIn && order.OrderType != fees.OrderTypeTakeaway {
		return badRequest(ErrOrderTypeNotSupported, "Only dine-in or takeaway orders can be edited in POS.")
	}
	return nil
}

func assertUnpaid(order *Order) error {
	if order.PaymentCompleted() {
		return badRequest(ErrOrderAlreadyPaid, "Paid orders cannot be edited.")
	}
	return nil
}

func assertEditable(order *Order) error {
	if err := assertEditableStatus(order); err != nil {
		return err
	}
	return assertUnpaid(order)
}

// sameDiscounts reports whether two reads of an order carry the same
// discount rows in the same order.
func sameDiscounts(a, b []voucher.StoredDiscount) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Source != y.Source || x.DiscountType != y.DiscountType || x.DiscountAmount != y.DiscountAmount {
			return false
		}
		if !samePtr(x.DiscountValue, y.DiscountValue) ||
			!samePtr(x.VoucherTemplateID, y.VoucherTemplateID) ||
			!samePtr(x.VoucherCodeID, y.VoucherCodeID) {
			return false
		}
	}
	return true
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// LoadForEdit returns an order for the POS edit screen, refusing the same
// orders EditPOSOrder would.
func (s *Service) LoadForEdit(ctx context.Context, merchantID, orderID int64) (*Order, error) {
	m, err := s.merchants.Load(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if !m.Features.EditOrderEnabled {
		return nil, badRequest(ErrEditOrderDisabled, "Edit order is disabled for this merchant.")
	}
	order, err := s.loadOrder(ctx, s.repo, m.ID, orderID, false)
	if err != nil {
		return nil, err
	}
	if err := assertEditable(order); err != nil {
		return nil, err
	}
	return order, nil
}

// EditPOSOrder replaces the lines of an open POS order, re-validates its
// discounts against the new lines, recomputes fees and totals, and moves
// stock by the difference between the old and new quantities.
//
// Everything that can be rejected is checked before the transaction opens.
// Inside it the order row is locked and re-read; if a payment, status change
// or another edit landed in between, the edit is refused rather than merged.
func (s *Service) EditPOSOrder(ctx context.Context, req EditRequest) (*Order, error) {
	m, err := s.merchants.Load(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	if !m.Features.EditOrderEnabled {
		return nil, badRequest(ErrEditOrderDisabled, "Edit order is disabled for this merchant.")
	}

	existing, err := s.loadOrder(ctx, s.repo, m.ID, req.OrderID, false)
	if err != nil {
		return nil, err
	}
	if err := assertEditableStatus(existing); err != nil {
		return nil, err
	}

	orderType := normalizeOrderType(req.OrderType)
	if orderType == "" {
		orderType = existing.OrderType
	}
	if err := assertPOSOrderType(orderType); err != nil {
		return nil, err
	}
	if orderType != existing.OrderType {
		return nil, badRequest(ErrOrderTypeMismatch, "Order type cannot be changed in edit mode.")
	}
	if err := assertUnpaid(existing); err != nil {
		return nil, err
	}
	if err := assertTableNumber(m, orderType, req.TableNumber); err != nil {
		return nil, err
	}

	priced, err := s.price(ctx, m, req.Items, true)
	if err != nil {
		return nil, err
	}

	customerID := existing.CustomerID
	if req.Customer != nil {
		resolved, err := s.repo.ResolveCustomer(ctx, *req.Customer)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			customerID = resolved
		}
	}

	// Orders without discount rows keep whatever discount they carry.
	discountAmount := existing.DiscountAmount
	var recomputed *voucher.Recomputed
	if len(existing.Discounts) > 0 {
		recomputed, err = s.resolver.Recompute(ctx, voucher.RecomputeParams{
			MerchantID: m.ID,
			OrderID:    existing.ID,
			Currency:   m.Currency,
			Timezone:   m.Timezone,
			OrderType:  orderType,
			Subtotal:   priced.Subtotal,
			Items:      priced.VoucherItems(),
			CustomerID: customerID,
			Existing:   existing.Discounts,
			Policy:     s.policy,
		})
		if err != nil {
			return nil, err
		}
		discountAmount = recomputed.Total
	}

	breakdown := fees.Calculate(priced.Subtotal, feeConfig(m, false), orderType)
	totalAmount := total(priced.Subtotal, breakdown, discountAmount, m.Currency)

	before := existing.StockQuantities()
	after := priced.StockQuantities()
	adjustStock := existing.StockDeducted()
	if adjustStock {
		if _, err := s.planStock(ctx, s.repo, m.ID, before, after); err != nil {
			return nil, err
		}
	}

	now := s.now()
	userID := req.UserID
	updated := *existing
	updated.CustomerID = customerID
	updated.TableNumber = req.TableNumber
	updated.Notes = req.Notes
	updated.Subtotal = priced.Subtotal
	updated.TaxAmount = breakdown.TaxAmount
	updated.ServiceChargeAmount = breakdown.ServiceChargeAmount
	updated.PackagingFeeAmount = breakdown.PackagingFeeAmount
	updated.DiscountAmount = discountAmount
	updated.TotalAmount = totalAmount
	updated.EditedAt = &now
	updated.EditedByUserID = &userID
	updated.Items = itemsFromPriced(priced.Items)

	var changes []stock.Change
	err = s.repo.InTx(ctx, func(tx Tx) error {
		locked, err := s.loadOrder(ctx, tx, m.ID, existing.ID, true)
		if err != nil {
			return err
		}
		if err := assertEditable(locked); err != nil {
			return err
		}
		if !locked.StockQuantities().Equal(before) || !sameDiscounts(locked.Discounts, existing.Discounts) {
			return conflictModified()
		}

		if adjustStock {
			plan, err := s.planStock(ctx, tx, m.ID, before, after)
			if err != nil {
				return err
			}
			if changes, err = tx.ApplyStock(ctx, plan, m.LowStockThreshold()); err != nil {
				return err
			}
		}

		placeholderID, err := s.placeholderFor(ctx, tx, m.ID, updated.Items, &userID)
		if err != nil {
			return err
		}
		if err := tx.ReplaceItems(ctx, existing.ID, updated.Items, placeholderID); err != nil {
			return err
		}
		if recomputed != nil {
			if err := tx.ReplaceDiscounts(ctx, m.ID, existing.ID, m.Currency, recomputed.Discounts); err != nil {
				return err
			}
		}
		if err := tx.UpdatePaymentAmount(ctx, existing.ID, totalAmount); err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	result, err := s.loadOrder(ctx, s.repo, m.ID, existing.ID, false)
	if err != nil {
		return nil, err
	}
	if recomputed != nil && len(recomputed.Dropped) > 0 {
		result.DroppedDiscounts = recomputed.Dropped
		s.log.Info("order discounts dropped on edit",
			zap.Int64("merchantId", m.ID),
			zap.Int64("orderId", existing.ID),
			zap.Int("dropped", len(recomputed.Dropped)))
	}
	s.publish(ctx, events.OrderUpdated, "POS_EDIT", result, changes)
	return result, nil
}

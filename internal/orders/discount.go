package orders

import (
	"context"

	"genfity-pricing-service/internal/events"
	"genfity-pricing-service/internal/fees"
	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/utils"
	"genfity-pricing-service/internal/voucher"
)

func assertDiscountsEnabled(m *merchant.Config, audience voucher.Audience) error {
	if audience == voucher.AudienceCustomer {
		if !m.Features.CustomerVouchersEnabled {
			return badRequest(ErrVouchersDisabled, "Customer vouchers are not enabled for this merchant")
		}
		return nil
	}
	if !m.Features.POSDiscountsEnabled {
		return badRequest(ErrVouchersDisabled, "POS discounts are not enabled for this merchant.")
	}
	return nil
}

func audienceOf(a voucher.Audience) voucher.Audience {
	if a == voucher.AudienceCustomer {
		return voucher.AudienceCustomer
	}
	return voucher.AudiencePOS
}

// Quote runs pricing, the optional discount and fees without writing
// anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	m, err := s.loadMerchant(ctx, req.MerchantID, req.MerchantCode)
	if err != nil {
		return nil, err
	}
	audience := audienceOf(req.Audience)
	if audience == voucher.AudienceCustomer {
		if err := m.AssertActive(); err != nil {
			return nil, err
		}
	}
	orderType := normalizeOrderType(req.OrderType)
	switch orderType {
	case fees.OrderTypeDineIn, fees.OrderTypeTakeaway:
	case fees.OrderTypeDelivery:
		if audience == voucher.AudiencePOS {
			return nil, assertPOSOrderType(orderType)
		}
	default:
		return nil, badRequest(ErrInvalidOrderType, "Invalid order type.")
	}
	if req.Discount != nil {
		if err := assertDiscountsEnabled(m, audience); err != nil {
			return nil, err
		}
	}

	priced, err := s.price(ctx, m, req.Items, audience == voucher.AudiencePOS)
	if err != nil {
		return nil, err
	}

	discounts := []voucher.AppliedDiscount{}
	if req.Discount != nil {
		d, err := s.resolveDiscount(ctx, discountScope{
			merchant:   m,
			audience:   audience,
			orderType:  orderType,
			subtotal:   priced.Subtotal,
			items:      priced.VoucherItems(),
			customerID: req.CustomerID,
			userID:     req.UserID,
		}, *req.Discount)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}

	breakdown := fees.Calculate(priced.Subtotal, feeConfig(m, audience == voucher.AudienceCustomer), orderType)
	discountAmount := utils.RoundCurrency(voucher.SumAmounts(discounts), m.Currency)
	return &Quote{
		Currency:       m.Currency,
		Items:          priced.Items,
		Subtotal:       priced.Subtotal,
		Fees:           breakdown,
		Discounts:      discounts,
		DiscountAmount: discountAmount,
		TotalAmount:    total(priced.Subtotal, breakdown, discountAmount, m.Currency),
	}, nil
}

// ValidateVoucher resolves a voucher against a cart that is not an order
// yet.
func (s *Service) ValidateVoucher(ctx context.Context, req VoucherCheck) (*voucher.DiscountResult, error) {
	m, err := s.loadMerchant(ctx, req.MerchantID, req.MerchantCode)
	if err != nil {
		return nil, err
	}
	audience := audienceOf(req.Audience)
	if err := assertDiscountsEnabled(m, audience); err != nil {
		return nil, err
	}
	priced, err := s.price(ctx, m, req.Items, audience == voucher.AudiencePOS)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, voucher.ResolveParams{
		MerchantID: m.ID,
		Currency:   m.Currency,
		Timezone:   m.Timezone,
		Audience:   audience,
		OrderType:  normalizeOrderType(req.OrderType),
		Subtotal:   priced.Subtotal,
		Items:      priced.VoucherItems(),
		Code:       req.Code,
		TemplateID: req.TemplateID,
		CustomerID: req.CustomerID,
	})
}

// ValidateVoucherForOrder resolves a POS voucher against a stored order. It
// is rejected when the order already carries a voucher or manual discount.
func (s *Service) ValidateVoucherForOrder(ctx context.Context, merchantID, orderID int64, code string, templateID *int64) (*voucher.DiscountResult, error) {
	m, err := s.merchants.Load(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if err := assertDiscountsEnabled(m, voucher.AudiencePOS); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, s.repo, m.ID, orderID, false)
	if err != nil {
		return nil, err
	}
	items, err := s.storedVoucherItems(ctx, m.ID, order)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, voucher.ResolveParams{
		MerchantID:         m.ID,
		Currency:           m.Currency,
		Timezone:           m.Timezone,
		Audience:           voucher.AudiencePOS,
		OrderType:          order.OrderType,
		Subtotal:           order.Subtotal,
		Items:              items,
		Code:               code,
		TemplateID:         templateID,
		CustomerID:         order.CustomerID,
		ExcludeOrderID:     &order.ID,
		OrderIDForStacking: &order.ID,
	})
}

func assertDiscountable(order *Order) error {
	if order.Status == StatusCompleted || order.Status == StatusCancelled {
		return badRequest(ErrOrderNotEditable, "Completed or cancelled orders cannot be discounted.")
	}
	if order.PaymentCompleted() {
		return badRequest(ErrOrderAlreadyPaid, "Paid orders cannot be discounted.")
	}
	return nil
}

// ApplyPOSDiscount puts a POS voucher or manual discount on an unpaid order.
// It replaces any POS voucher or manual row already there; customer vouchers
// stay.
func (s *Service) ApplyPOSDiscount(ctx context.Context, req ApplyDiscountRequest) (*Order, error) {
	m, err := s.merchants.Load(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	if err := assertDiscountsEnabled(m, voucher.AudiencePOS); err != nil {
		return nil, err
	}
	if req.Discount.Source != voucher.SourcePOSVoucher && req.Discount.Source != voucher.SourceManual {
		return nil, badRequest(ErrInvalidDiscount, "Discount source must be POS_VOUCHER or MANUAL.")
	}

	order, err := s.loadOrder(ctx, s.repo, m.ID, req.OrderID, false)
	if err != nil {
		return nil, err
	}
	if err := assertDiscountable(order); err != nil {
		return nil, err
	}
	items, err := s.storedVoucherItems(ctx, m.ID, order)
	if err != nil {
		return nil, err
	}

	userID := req.UserID
	applied, err := s.resolveDiscount(ctx, discountScope{
		merchant:       m,
		audience:       voucher.AudiencePOS,
		orderType:      order.OrderType,
		subtotal:       order.Subtotal,
		items:          items,
		customerID:     order.CustomerID,
		userID:         &userID,
		excludeOrderID: &order.ID,
	}, req.Discount)
	if err != nil {
		return nil, err
	}

	err = s.repo.InTx(ctx, func(tx Tx) error {
		locked, err := s.loadOrder(ctx, tx, m.ID, order.ID, true)
		if err != nil {
			return err
		}
		if err := assertDiscountable(locked); err != nil {
			return err
		}
		if locked.Subtotal != order.Subtotal || !locked.StockQuantities().Equal(order.StockQuantities()) {
			return conflictModified()
		}

		discountTotal, err := tx.ApplyDiscount(ctx, voucher.ApplyParams{
			MerchantID:     m.ID,
			OrderID:        locked.ID,
			Currency:       m.Currency,
			Discount:       applied,
			ReplaceSources: []voucher.Source{voucher.SourcePOSVoucher, voucher.SourceManual},
		})
		if err != nil {
			return err
		}
		locked.DiscountAmount = discountTotal
		locked.TotalAmount = total(locked.Subtotal, locked.Fees(), discountTotal, m.Currency)
		if err := tx.UpdatePaymentAmount(ctx, locked.ID, locked.TotalAmount); err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	result, err := s.loadOrder(ctx, s.repo, m.ID, order.ID, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderUpdated, "POS_DISCOUNT", result, nil)
	return result, nil
}

package orders

import (
	"context"
	"strings"

	"genfity-pricing-service/internal/events"
	"genfity-pricing-service/internal/fees"
	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/utils"
	"genfity-pricing-service/internal/voucher"
)

// CreatePOSOrder places an ACCEPTED counter order. Stock is taken inside the
// create transaction, so an order is never written for units that are gone.
func (s *Service) CreatePOSOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	m, err := s.merchants.Load(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	orderType := normalizeOrderType(req.OrderType)
	if err := assertPOSOrderType(orderType); err != nil {
		return nil, err
	}
	if err := assertTableNumber(m, orderType, req.TableNumber); err != nil {
		return nil, err
	}
	if req.Discount != nil && !m.Features.POSDiscountsEnabled {
		return nil, badRequest(ErrVouchersDisabled, "POS discounts are not enabled for this merchant.")
	}

	priced, err := s.price(ctx, m, req.Items, true)
	if err != nil {
		return nil, err
	}

	var customerID *int64
	if req.Customer != nil {
		if customerID, err = s.repo.ResolveCustomer(ctx, *req.Customer); err != nil {
			return nil, err
		}
	}

	userID := req.UserID
	var discounts []voucher.AppliedDiscount
	if req.Discount != nil {
		d, err := s.resolveDiscount(ctx, discountScope{
			merchant:   m,
			audience:   voucher.AudiencePOS,
			orderType:  orderType,
			subtotal:   priced.Subtotal,
			items:      priced.VoucherItems(),
			customerID: customerID,
			userID:     &userID,
		}, *req.Discount)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}

	now := s.now()
	order := &Order{
		MerchantID:      m.ID,
		OrderType:       orderType,
		Status:          StatusAccepted,
		TableNumber:     req.TableNumber,
		Notes:           req.Notes,
		CustomerID:      customerID,
		StockDeductedAt: &now,
		PlacedAt:        now,
		Items:           itemsFromPriced(priced.Items),
	}
	return s.place(ctx, m, order, priced, discounts, feeConfig(m, false), PaymentCashOnCounter, &userID, "POS")
}

// CreateCustomerOrder places a PENDING order from the public checkout.
// Scheduled orders hold no stock until they are released.
func (s *Service) CreateCustomerOrder(ctx context.Context, req CheckoutRequest) (*Order, error) {
	code := strings.TrimSpace(req.MerchantCode)
	if code == "" {
		return nil, badRequest(merchant.ErrMerchantNotFound, "Merchant code is required")
	}
	m, err := s.merchants.LoadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := m.AssertActive(); err != nil {
		return nil, err
	}

	orderType := normalizeOrderType(req.OrderType)
	switch orderType {
	case fees.OrderTypeDineIn, fees.OrderTypeTakeaway, fees.OrderTypeDelivery:
	default:
		return nil, badRequest(ErrInvalidOrderType, "Valid order type is required (DINE_IN, TAKEAWAY, or DELIVERY)")
	}
	if req.CustomerID == nil && (strings.TrimSpace(req.Customer.Name) == "" || strings.TrimSpace(req.Customer.Email) == "") {
		return nil, badRequest(ErrCustomerRequired, "Customer name and email are required")
	}
	if orderType == fees.OrderTypeDelivery && (req.DeliveryAddress == nil || strings.TrimSpace(*req.DeliveryAddress) == "") {
		return nil, badRequest(ErrDeliveryAddressMissing, "Delivery address is required")
	}
	if err := assertTableNumber(m, orderType, req.TableNumber); err != nil {
		return nil, err
	}

	now := s.now()
	scheduledTime := strings.TrimSpace(req.ScheduledTime)
	isScheduled := scheduledTime != ""
	if isScheduled {
		if !m.ScheduledOrdersEnabled {
			return nil, badRequest(ErrScheduledDisabled, "Scheduled orders are not enabled for this merchant.")
		}
		if !utils.IsValidHHMM(scheduledTime) {
			return nil, badRequest(ErrInvalidScheduledTime, "scheduledTime must be in HH:MM format")
		}
		if current := utils.ClockInTimezone(now, m.Timezone); scheduledTime < current {
			return nil, badRequest(ErrInvalidScheduledTime, "Scheduled time must be later than current time ("+current+")")
		}
	}

	paymentMethod := resolvePaymentMethod(orderType, req.PaymentMethod)
	if paymentMethod == "" {
		return nil, badRequest(ErrInvalidPaymentMethod, "Invalid payment method")
	}

	voucherCode := voucher.NormalizeCode(req.VoucherCode)
	if voucherCode != "" && !m.Features.CustomerVouchersEnabled {
		return nil, badRequest(ErrVouchersDisabled, "Customer vouchers are not enabled for this merchant")
	}

	priced, err := s.price(ctx, m, req.Items, false)
	if err != nil {
		return nil, err
	}

	customerID := req.CustomerID
	if customerID == nil {
		if customerID, err = s.repo.ResolveCustomer(ctx, req.Customer); err != nil {
			return nil, err
		}
	}

	var discounts []voucher.AppliedDiscount
	if voucherCode != "" {
		d, err := s.resolveDiscount(ctx, discountScope{
			merchant:   m,
			audience:   voucher.AudienceCustomer,
			orderType:  orderType,
			subtotal:   priced.Subtotal,
			items:      priced.VoucherItems(),
			customerID: customerID,
		}, DiscountInput{Source: voucher.SourceCustomerVoucher, Code: voucherCode})
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}

	order := &Order{
		MerchantID:      m.ID,
		OrderType:       orderType,
		Status:          StatusPending,
		TableNumber:     req.TableNumber,
		Notes:           req.Notes,
		DeliveryAddress: req.DeliveryAddress,
		CustomerID:      customerID,
		IsScheduled:     isScheduled,
		PlacedAt:        now,
		Items:           itemsFromPriced(priced.Items),
	}
	if isScheduled {
		date := utils.DateInTimezone(now, m.Timezone)
		order.ScheduledDate = &date
		order.ScheduledTime = &scheduledTime
	} else {
		order.StockDeductedAt = &now
	}

	placed, err := s.place(ctx, m, order, priced, discounts, feeConfig(m, true), paymentMethod, nil, "CHECKOUT")
	if err != nil {
		return nil, err
	}
	placed.TrackingToken = utils.CreateOrderTrackingToken(s.trackingSecret, m.Code, placed.OrderNumber)
	return placed, nil
}

// place prices fees and totals for a new order and writes it with its
// lines, discounts, payment and stock movement in one transaction.
func (s *Service) place(ctx context.Context, m *merchant.Config, order *Order, priced *pricing.Result, discounts []voucher.AppliedDiscount, feeCfg fees.Config, paymentMethod string, userID *int64, source string) (*Order, error) {
	breakdown := fees.Calculate(priced.Subtotal, feeCfg, order.OrderType)
	order.Subtotal = priced.Subtotal
	order.TaxAmount = breakdown.TaxAmount
	order.ServiceChargeAmount = breakdown.ServiceChargeAmount
	order.PackagingFeeAmount = breakdown.PackagingFeeAmount
	order.DiscountAmount = utils.RoundCurrency(voucher.SumAmounts(discounts), m.Currency)
	order.TotalAmount = total(order.Subtotal, breakdown, order.DiscountAmount, m.Currency)

	after := priced.StockQuantities()
	if order.StockDeducted() {
		if _, err := s.planStock(ctx, s.repo, m.ID, stock.NewQuantities(), after); err != nil {
			return nil, err
		}
	}

	var (
		orderID int64
		changes []stock.Change
	)
	err := s.repo.InTx(ctx, func(tx Tx) error {
		number, err := s.nextOrderNumber(ctx, tx, m.ID, m.Timezone, order.PlacedAt)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if order.StockDeducted() {
			plan, err := s.planStock(ctx, tx, m.ID, stock.NewQuantities(), after)
			if err != nil {
				return err
			}
			if changes, err = tx.ApplyStock(ctx, plan, m.LowStockThreshold()); err != nil {
				return err
			}
		}

		if orderID, err = tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		placeholderID, err := s.placeholderFor(ctx, tx, m.ID, order.Items, userID)
		if err != nil {
			return err
		}
		if err := tx.ReplaceItems(ctx, orderID, order.Items, placeholderID); err != nil {
			return err
		}
		if len(discounts) > 0 {
			if err := tx.ReplaceDiscounts(ctx, m.ID, orderID, m.Currency, discounts); err != nil {
				return err
			}
		}
		return tx.InsertPayment(ctx, orderID, order.TotalAmount, paymentMethod)
	})
	if err != nil {
		return nil, err
	}

	placed, err := s.loadOrder(ctx, s.repo, m.ID, orderID, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderCreated, source, placed, changes)
	return placed, nil
}

// resolvePaymentMethod returns the payment method for a checkout, or "" when
// the requested one is not offered for the order type.
func resolvePaymentMethod(orderType, requested string) string {
	method := strings.ToUpper(strings.TrimSpace(requested))
	if orderType == fees.OrderTypeDelivery {
		switch method {
		case "":
			return PaymentCashOnDelivery
		case PaymentCashOnDelivery, PaymentOnline:
			return method
		}
		return ""
	}
	switch method {
	case "":
		return PaymentCashOnCounter
	case PaymentCashOnCounter, PaymentCardOnCounter:
		return method
	}
	return ""
}

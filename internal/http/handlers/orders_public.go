package handlers

import (
	"net/http"

	"genfity-pricing-service/internal/middleware"
	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/voucher"
	"genfity-pricing-service/pkg/response"
)

func customerID(r *http.Request) *int64 {
	if c, ok := middleware.GetCustomerContext(r.Context()); ok {
		id := c.CustomerID
		return &id
	}
	return nil
}

func (h *Handler) PublicOrderCreate(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	order, err := h.Orders.CreateCustomerOrder(r.Context(), orders.CheckoutRequest{
		MerchantCode:    body.MerchantCode,
		CustomerID:      customerID(r),
		Customer:        orders.CustomerInput{Name: body.CustomerName, Email: body.CustomerEmail, Phone: body.CustomerPhone},
		OrderType:       body.OrderType,
		TableNumber:     body.TableNumber,
		Notes:           body.Notes,
		DeliveryAddress: body.DeliveryAddress,
		Items:           toItemRequests(body.Items),
		VoucherCode:     body.VoucherCode,
		PaymentMethod:   body.PaymentMethod,
		ScheduledTime:   body.ScheduledTime,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.SuccessStatus(w, http.StatusCreated, order, "Order created successfully")
}

func (h *Handler) PublicOrderQuote(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	req := orders.QuoteRequest{
		MerchantCode: body.MerchantCode,
		Audience:     voucher.AudienceCustomer,
		OrderType:    body.OrderType,
		Items:        toItemRequests(body.Items),
		CustomerID:   customerID(r),
	}
	if body.VoucherCode != "" {
		req.Discount = &orders.DiscountInput{Source: voucher.SourceCustomerVoucher, Code: body.VoucherCode}
	}
	quote, err := h.Orders.Quote(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.Success(w, quote)
}

func (h *Handler) PublicVoucherValidate(w http.ResponseWriter, r *http.Request) {
	var body voucherValidateRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if body.MerchantCode == "" || body.VoucherCode == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "merchantCode and voucherCode are required")
		return
	}

	result, err := h.Orders.ValidateVoucher(r.Context(), orders.VoucherCheck{
		MerchantCode: body.MerchantCode,
		Audience:     voucher.AudienceCustomer,
		OrderType:    body.OrderType,
		Items:        toItemRequests(body.Items),
		Code:         body.VoucherCode,
		CustomerID:   customerID(r),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.Success(w, result)
}

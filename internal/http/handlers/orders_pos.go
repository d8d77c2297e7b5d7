package handlers

import (
	"net/http"

	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/voucher"
	"genfity-pricing-service/pkg/response"
)

func (h *Handler) MerchantPOSOrderCreate(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}

	var body posOrderRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	order, err := h.Orders.CreatePOSOrder(r.Context(), orders.CreateRequest{
		MerchantID:  *authCtx.MerchantID,
		UserID:      authCtx.UserID,
		OrderType:   body.OrderType,
		TableNumber: body.TableNumber,
		Notes:       body.Notes,
		Customer:    body.Customer.input(),
		Items:       toItemRequests(body.Items),
		Discount:    body.Discount.input(),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.SuccessStatus(w, http.StatusCreated, order, "Order created successfully")
}

func (h *Handler) MerchantPOSOrderQuote(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}

	var body posOrderRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	userID := authCtx.UserID
	quote, err := h.Orders.Quote(r.Context(), orders.QuoteRequest{
		MerchantID: *authCtx.MerchantID,
		Audience:   voucher.AudiencePOS,
		OrderType:  body.OrderType,
		Items:      toItemRequests(body.Items),
		UserID:     &userID,
		Discount:   body.Discount.input(),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.Success(w, quote)
}

func (h *Handler) MerchantPOSOrderGet(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}
	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid orderId")
		return
	}

	order, err := h.Orders.LoadForEdit(r.Context(), *authCtx.MerchantID, orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.Success(w, order)
}

func (h *Handler) MerchantPOSOrderUpdate(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}
	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid orderId")
		return
	}

	var body posOrderRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	order, err := h.Orders.EditPOSOrder(r.Context(), orders.EditRequest{
		MerchantID:  *authCtx.MerchantID,
		OrderID:     orderID,
		UserID:      authCtx.UserID,
		OrderType:   body.OrderType,
		TableNumber: body.TableNumber,
		Notes:       body.Notes,
		Customer:    body.Customer.input(),
		Items:       toItemRequests(body.Items),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.SuccessStatus(w, http.StatusOK, order, "Order updated successfully")
}

func (h *Handler) MerchantPOSOrderDiscount(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}
	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid orderId")
		return
	}

	var body discountRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	order, err := h.Orders.ApplyPOSDiscount(r.Context(), orders.ApplyDiscountRequest{
		MerchantID: *authCtx.MerchantID,
		OrderID:    orderID,
		UserID:     authCtx.UserID,
		Discount:   *body.input(),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.SuccessStatus(w, http.StatusOK, order, "Discount applied")
}

// MerchantPOSVoucherValidate checks a voucher code either against a cart or,
// when orderId is given, against a stored order.
func (h *Handler) MerchantPOSVoucherValidate(w http.ResponseWriter, r *http.Request) {
	h.posVoucherValidate(w, r, false)
}

func (h *Handler) MerchantPOSVoucherValidateTemplate(w http.ResponseWriter, r *http.Request) {
	h.posVoucherValidate(w, r, true)
}

func (h *Handler) posVoucherValidate(w http.ResponseWriter, r *http.Request, byTemplate bool) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}

	var body voucherValidateRequest
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	code := body.VoucherCode
	templateID := optionalID(body.VoucherTemplateID)
	if byTemplate {
		if templateID == nil {
			response.Error(w, http.StatusBadRequest, string(voucher.ErrVoucherTemplateRequired), "voucherTemplateId is required")
			return
		}
		code = ""
	} else {
		templateID = nil
	}

	var (
		result *voucher.DiscountResult
		err    error
	)
	if orderID := optionalID(body.OrderID); orderID != nil {
		result, err = h.Orders.ValidateVoucherForOrder(r.Context(), *authCtx.MerchantID, *orderID, code, templateID)
	} else {
		result, err = h.Orders.ValidateVoucher(r.Context(), orders.VoucherCheck{
			MerchantID: *authCtx.MerchantID,
			Audience:   voucher.AudiencePOS,
			OrderType:  body.OrderType,
			Items:      toItemRequests(body.Items),
			Code:       code,
			TemplateID: templateID,
		})
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	response.Success(w, result)
}

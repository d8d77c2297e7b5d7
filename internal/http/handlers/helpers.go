package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/middleware"
	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/voucher"
	"genfity-pricing-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errMissingParam = errors.New("missing param")

func readPathInt64(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	if value == "" {
		return 0, errMissingParam
	}
	return strconv.ParseInt(value, 10, 64)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// merchantContext pulls the authenticated merchant and user or writes the
// error itself.
func merchantContext(w http.ResponseWriter, r *http.Request) (*middleware.AuthContext, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx.MerchantID == nil {
		response.Error(w, http.StatusBadRequest, merchant.ErrMerchantNotFound, "Merchant context not found")
		return nil, false
	}
	return authCtx, true
}

// writeDomainError maps the typed errors of the pricing pipeline to the
// response envelope. Anything else is logged and reported as a 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		orderErr    *orders.Error
		voucherErr  *voucher.Error
		pricingErr  *pricing.Error
		merchantErr *merchant.Error
		stockErr    *stock.InsufficientError
	)
	switch {
	case errors.As(err, &orderErr):
		response.ErrorDetails(w, orderErr.Status, orderErr.Code, orderErr.Message, orderErr.Details)
	case errors.As(err, &voucherErr):
		response.ErrorDetails(w, voucherErr.StatusCode, string(voucherErr.Code), voucherErr.Message, voucherErr.Details)
	case errors.As(err, &pricingErr):
		response.ErrorDetails(w, pricingErr.StatusCode, string(pricingErr.Code), pricingErr.Message, pricingErr.Details)
	case errors.As(err, &merchantErr):
		response.Error(w, merchantErr.Status, merchantErr.Code, merchantErr.Message)
	case errors.As(err, &stockErr):
		response.ErrorDetails(w, stockErr.StatusCode(), stockErr.Code(), stockErr.Error(), stockErr.Details())
	default:
		h.Logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong. Please try again.")
	}
}

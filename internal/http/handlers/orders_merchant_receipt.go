package handlers

import (
	"fmt"
	"net/http"

	"genfity-pricing-service/internal/receipt"
	"genfity-pricing-service/pkg/response"

	"go.uber.org/zap"
)

// MerchantOrderReceiptPDF renders the current price breakdown of an order.
// Archiving is best effort; the PDF is served even if the upload fails.
func (h *Handler) MerchantOrderReceiptPDF(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := merchantContext(w, r)
	if !ok {
		return
	}
	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid orderId")
		return
	}

	ctx := r.Context()
	m, err := h.Merchants.Load(ctx, *authCtx.MerchantID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	order, err := h.Orders.GetOrder(ctx, m.ID, orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	pdf, err := receipt.Render(receipt.Build(order, m))
	if err != nil {
		h.writeDomainError(w, r, fmt.Errorf("render receipt: %w", err))
		return
	}

	if h.Receipts != nil {
		url, err := receipt.Archive(ctx, h.Receipts, m.ID, order.OrderNumber, pdf.Bytes())
		if err != nil {
			h.Logger.Warn("receipt archive failed", zap.Int64("orderId", order.ID), zap.Error(err))
		} else {
			w.Header().Set("X-Receipt-Url", url)
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt-"+order.OrderNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf.Bytes())
}

package handlers

import (
	"context"

	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/receipt"
	"genfity-pricing-service/internal/voucher"

	"go.uber.org/zap"
)

// OrderService is the part of orders.Service the HTTP layer drives.
type OrderService interface {
	CreatePOSOrder(ctx context.Context, req orders.CreateRequest) (*orders.Order, error)
	CreateCustomerOrder(ctx context.Context, req orders.CheckoutRequest) (*orders.Order, error)
	EditPOSOrder(ctx context.Context, req orders.EditRequest) (*orders.Order, error)
	LoadForEdit(ctx context.Context, merchantID, orderID int64) (*orders.Order, error)
	GetOrder(ctx context.Context, merchantID, orderID int64) (*orders.Order, error)
	Quote(ctx context.Context, req orders.QuoteRequest) (*orders.Quote, error)
	ValidateVoucher(ctx context.Context, req orders.VoucherCheck) (*voucher.DiscountResult, error)
	ValidateVoucherForOrder(ctx context.Context, merchantID, orderID int64, code string, templateID *int64) (*voucher.DiscountResult, error)
	ApplyPOSDiscount(ctx context.Context, req orders.ApplyDiscountRequest) (*orders.Order, error)
}

type Handler struct {
	Orders    OrderService
	Merchants merchant.Loader
	// Receipts is nil when no object store is configured.
	Receipts receipt.Putter
	Logger   *zap.Logger
}

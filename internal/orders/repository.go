package orders

import (
	"context"
	"time"

	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/voucher"
)

// Tx is the set of reads and writes the service needs. Outside InTx the
// calls run on the pool; inside they share one transaction.
type Tx interface {
	// LoadOrder returns ErrNoOrder when the order is missing. forUpdate
	// locks the order row until the transaction ends.
	LoadOrder(ctx context.Context, merchantID, orderID int64, forUpdate bool) (*Order, error)
	StockEntities(ctx context.Context, merchantID int64, menuIDs, addonIDs []int64) ([]stock.Entity, error)
	ApplyStock(ctx context.Context, adjustments []stock.Adjustment, lowStockDefault *int32) ([]stock.Change, error)

	CustomItemPlaceholder(ctx context.Context, merchantID int64, userID *int64) (int64, error)
	ResolveCustomer(ctx context.Context, in CustomerInput) (*int64, error)
	OrderNumberTaken(ctx context.Context, merchantID int64, number string, from, to time.Time) (bool, error)

	InsertOrder(ctx context.Context, order *Order) (int64, error)
	ReplaceItems(ctx context.Context, orderID int64, items []Item, placeholderMenuID int64) error
	ReplaceDiscounts(ctx context.Context, merchantID, orderID int64, currency string, discounts []voucher.AppliedDiscount) error
	ApplyDiscount(ctx context.Context, params voucher.ApplyParams) (float64, error)
	UpdateOrder(ctx context.Context, order *Order) error
	InsertPayment(ctx context.Context, orderID int64, amount float64, method string) error
	UpdatePaymentAmount(ctx context.Context, orderID int64, amount float64) error
}

type Repository interface {
	Tx
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

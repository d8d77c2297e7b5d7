package stock

import (
	"context"
	"errors"
	"fmt"

	"genfity-pricing-service/internal/db"

	"github.com/jackc/pgx/v5"
)

// Change is the stock state of an entity after an adjustment.
type Change struct {
	Kind     Kind   `json:"kind"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	StockQty int32  `json:"stockQty"`
	IsActive bool   `json:"isActive"`
	LowStock bool   `json:"lowStock"`
}

type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

var tables = map[Kind]string{
	KindMenu:  "menus",
	KindAddon: "addon_items",
}

// Apply runs the adjustments on q, which must be the caller's transaction.
// A decrement only succeeds when enough stock remains at write time, so two
// orders racing for the last units cannot both win. The first failure is
// returned as *InsufficientError and the caller is expected to roll back.
func (r *Reconciler) Apply(ctx context.Context, q db.Querier, adjustments []Adjustment, lowStockDefault *int32) ([]Change, error) {
	changes := make([]Change, 0, len(adjustments))
	for _, adj := range adjustments {
		table, ok := tables[adj.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown stock kind %q", adj.Kind)
		}

		var (
			qty       int32
			threshold *int32
			err       error
		)
		if adj.Delta > 0 {
			err = q.QueryRow(ctx, `
				update `+table+`
				set stock_qty = stock_qty - $1, is_active = (stock_qty - $1) > 0
				where id = $2 and track_stock = true and stock_qty >= $1
				returning stock_qty, low_stock_threshold
			`, adj.Delta, adj.ID).Scan(&qty, &threshold)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &InsufficientError{Kind: adj.Kind, ID: adj.ID, Name: adj.Name, Requested: adj.Delta}
			}
		} else {
			err = q.QueryRow(ctx, `
				update `+table+`
				set stock_qty = stock_qty + $1, is_active = (stock_qty + $1) > 0
				where id = $2 and track_stock = true and stock_qty is not null
				returning stock_qty, low_stock_threshold
			`, -adj.Delta, adj.ID).Scan(&qty, &threshold)
			if errors.Is(err, pgx.ErrNoRows) {
				// tracking was switched off since the order was placed
				continue
			}
		}
		if err != nil {
			return nil, fmt.Errorf("adjust %s %d stock: %w", table, adj.ID, err)
		}

		changes = append(changes, Change{
			Kind:     adj.Kind,
			ID:       adj.ID,
			Name:     adj.Name,
			StockQty: qty,
			IsActive: qty > 0,
			LowStock: isLow(qty, threshold, lowStockDefault),
		})
	}
	return changes, nil
}

func isLow(qty int32, threshold, fallback *int32) bool {
	if threshold == nil {
		threshold = fallback
	}
	return threshold != nil && qty <= *threshold
}

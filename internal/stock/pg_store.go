package stock

import (
	"context"

	"genfity-pricing-service/internal/db"
)

type PGStore struct{}

// LoadEntities reads the stock records of the given menus and addons, scoped
// to the merchant.
func (PGStore) LoadEntities(ctx context.Context, q db.Querier, merchantID int64, menuIDs, addonIDs []int64) ([]Entity, error) {
	var entities []Entity
	if len(menuIDs) > 0 {
		menus, err := loadKind(ctx, q, KindMenu, `
			select id, name, track_stock, stock_qty, low_stock_threshold
			from menus
			where merchant_id = $1 and id = any($2)
		`, merchantID, menuIDs)
		if err != nil {
			return nil, err
		}
		entities = append(entities, menus...)
	}
	if len(addonIDs) > 0 {
		addons, err := loadKind(ctx, q, KindAddon, `
			select ai.id, ai.name, ai.track_stock, ai.stock_qty, ai.low_stock_threshold
			from addon_items ai
			join addon_categories ac on ac.id = ai.addon_category_id
			where ac.merchant_id = $1 and ai.id = any($2)
		`, merchantID, addonIDs)
		if err != nil {
			return nil, err
		}
		entities = append(entities, addons...)
	}
	return entities, nil
}

func loadKind(ctx context.Context, q db.Querier, kind Kind, query string, args ...any) ([]Entity, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e := Entity{Kind: kind}
		if err := rows.Scan(&e.ID, &e.Name, &e.TrackStock, &e.StockQty, &e.LowStockThreshold); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

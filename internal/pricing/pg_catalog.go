package pricing

import (
	"context"

	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/utils"

	"github.com/jackc/pgx/v5/pgtype"
)

type PGCatalog struct {
	DB db.Querier
}

func (c PGCatalog) Menus(ctx context.Context, merchantID int64, ids []int64) (map[int64]Menu, error) {
	rows, err := c.DB.Query(ctx, `
		select m.id, m.name, m.price, m.is_active, m.deleted_at is not null,
		       coalesce(array_agg(mci.category_id) filter (where mci.category_id is not null), '{}')
		from menus m
		left join menu_category_items mci on mci.menu_id = m.id
		where m.id = any($1) and m.merchant_id = $2
		group by m.id
	`, ids, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menus := make(map[int64]Menu, len(ids))
	for rows.Next() {
		var (
			menu  Menu
			price pgtype.Numeric
		)
		if err := rows.Scan(&menu.ID, &menu.Name, &price, &menu.IsActive, &menu.Deleted, &menu.CategoryIDs); err != nil {
			return nil, err
		}
		menu.Price = utils.NumericToFloat64(price)
		menus[menu.ID] = menu
	}
	return menus, rows.Err()
}

func (c PGCatalog) Addons(ctx context.Context, merchantID int64, ids []int64) (map[int64]Addon, error) {
	rows, err := c.DB.Query(ctx, `
		select ai.id, ai.name, ai.price, ai.is_active, ai.deleted_at is not null
		from addon_items ai
		join addon_categories ac on ac.id = ai.addon_category_id
		where ai.id = any($1) and ac.merchant_id = $2
	`, ids, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addons := make(map[int64]Addon, len(ids))
	for rows.Next() {
		var (
			addon Addon
			price pgtype.Numeric
		)
		if err := rows.Scan(&addon.ID, &addon.Name, &price, &addon.IsActive, &addon.Deleted); err != nil {
			return nil, err
		}
		addon.Price = utils.NumericToFloat64(price)
		addons[addon.ID] = addon
	}
	return addons, rows.Err()
}

// PromoPrices returns the lowest active special price per menu for the given
// merchant-local date.
func (c PGCatalog) PromoPrices(ctx context.Context, merchantID int64, menuIDs []int64, date string) (map[int64]float64, error) {
	rows, err := c.DB.Query(ctx, `
		select spi.menu_id, min(spi.promo_price)
		from special_price_items spi
		join special_prices sp on sp.id = spi.special_price_id
		where spi.menu_id = any($1)
		  and sp.merchant_id = $2
		  and sp.is_active = true
		  and sp.start_date <= $3::date
		  and sp.end_date >= $3::date
		group by spi.menu_id
	`, menuIDs, merchantID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make(map[int64]float64)
	for rows.Next() {
		var (
			menuID int64
			price  pgtype.Numeric
		)
		if err := rows.Scan(&menuID, &price); err != nil {
			return nil, err
		}
		if price.Valid {
			promos[menuID] = utils.NumericToFloat64(price)
		}
	}
	return promos, rows.Err()
}

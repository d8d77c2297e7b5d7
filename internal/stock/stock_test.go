package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(v int32) *int32 { return &v }

func quantities(menus map[int64]int32, addons map[int64]int32) Quantities {
	q := NewQuantities()
	for id, n := range menus {
		q.AddMenu(id, n)
	}
	for id, n := range addons {
		q.AddAddon(id, n)
	}
	return q
}

func TestPlanRestoresReducedQuantity(t *testing.T) {
	entities := []Entity{{Kind: KindMenu, ID: 1, Name: "Laksa", TrackStock: true, StockQty: qty(4)}}

	adj, err := Plan(quantities(map[int64]int32{1: 3}, nil), quantities(map[int64]int32{1: 1}, nil), entities)
	require.NoError(t, err)
	require.Len(t, adj, 1)
	assert.Equal(t, int32(-2), adj[0].Delta)
}

func TestPlanRejectsIncreaseBeyondStock(t *testing.T) {
	entities := []Entity{{Kind: KindMenu, ID: 1, Name: "Laksa", TrackStock: true, StockQty: qty(2)}}

	_, err := Plan(quantities(map[int64]int32{1: 1}, nil), quantities(map[int64]int32{1: 5}, nil), entities)
	var insufficient *InsufficientError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(1), insufficient.ID)
	assert.Equal(t, int32(2), insufficient.Available)
	assert.Equal(t, int32(4), insufficient.Requested)
	assert.Equal(t, `Insufficient stock for "Laksa".`, err.Error())
	assert.Equal(t, ErrInsufficientStock, insufficient.Code())
}

func TestPlanSkipsUntrackedAndUnchanged(t *testing.T) {
	entities := []Entity{
		{Kind: KindMenu, ID: 1, Name: "Laksa", TrackStock: false, StockQty: qty(0)},
		{Kind: KindMenu, ID: 2, Name: "Satay", TrackStock: true, StockQty: nil},
		{Kind: KindMenu, ID: 3, Name: "Rice", TrackStock: true, StockQty: qty(10)},
		{Kind: KindAddon, ID: 3, Name: "Egg", TrackStock: true, StockQty: qty(1)},
	}
	before := quantities(map[int64]int32{3: 2}, map[int64]int32{3: 1})
	after := quantities(map[int64]int32{1: 9, 2: 9, 3: 2}, map[int64]int32{3: 2})

	adj, err := Plan(before, after, entities)
	require.NoError(t, err)
	require.Len(t, adj, 1)
	assert.Equal(t, Adjustment{Kind: KindAddon, ID: 3, Name: "Egg", Delta: 1}, adj[0])
}

func TestPlanHandlesRemovedAndAddedLines(t *testing.T) {
	entities := []Entity{
		{Kind: KindMenu, ID: 1, Name: "Laksa", TrackStock: true, StockQty: qty(0)},
		{Kind: KindMenu, ID: 2, Name: "Satay", TrackStock: true, StockQty: qty(3)},
	}
	adj, err := Plan(quantities(map[int64]int32{1: 2}, nil), quantities(map[int64]int32{2: 3}, nil), entities)
	require.NoError(t, err)
	assert.Equal(t, []Adjustment{
		{Kind: KindMenu, ID: 1, Name: "Laksa", Delta: -2},
		{Kind: KindMenu, ID: 2, Name: "Satay", Delta: 3},
	}, adj)
}

func TestApplyGuardedDecrementAndIncrement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("update menus\\s+set stock_qty = stock_qty - \\$1").
		WithArgs(int32(3), int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty", "low_stock_threshold"}).AddRow(int32(0), qty(2)))
	mock.ExpectQuery("update addon_items\\s+set stock_qty = stock_qty \\+ \\$1").
		WithArgs(int32(2), int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty", "low_stock_threshold"}).AddRow(int32(12), (*int32)(nil)))

	changes, err := NewReconciler().Apply(context.Background(), mock, []Adjustment{
		{Kind: KindMenu, ID: 2, Name: "Satay", Delta: 3},
		{Kind: KindAddon, ID: 9, Name: "Egg", Delta: -2},
	}, qty(5))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, int32(0), changes[0].StockQty)
	assert.False(t, changes[0].IsActive)
	assert.True(t, changes[0].LowStock)

	assert.Equal(t, int32(12), changes[1].StockQty)
	assert.True(t, changes[1].IsActive)
	assert.False(t, changes[1].LowStock)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFailsWhenStockRanOut(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("update menus").
		WithArgs(int32(4), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"stock_qty", "low_stock_threshold"}))

	_, err = NewReconciler().Apply(context.Background(), mock, []Adjustment{
		{Kind: KindMenu, ID: 1, Name: "Laksa", Delta: 4},
		{Kind: KindMenu, ID: 2, Name: "Satay", Delta: 1},
	}, nil)

	var insufficient *InsufficientError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "Laksa", insufficient.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEntitiesScopesByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("from menus\\s+where merchant_id = \\$1").
		WithArgs(int64(7), []int64{1}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "track_stock", "stock_qty", "low_stock_threshold"}).
			AddRow(int64(1), "Laksa", true, qty(4), (*int32)(nil)))
	mock.ExpectQuery("join addon_categories ac").
		WithArgs(int64(7), []int64{9}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "track_stock", "stock_qty", "low_stock_threshold"}).
			AddRow(int64(9), "Egg", false, (*int32)(nil), (*int32)(nil)))

	entities, err := PGStore{}.LoadEntities(context.Background(), mock, 7, []int64{1}, []int64{9})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, KindMenu, entities[0].Kind)
	assert.Equal(t, int32(4), *entities[0].StockQty)
	assert.Equal(t, KindAddon, entities[1].Kind)
	assert.Nil(t, entities[1].StockQty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchedAndEqual(t *testing.T) {
	before := NewQuantities()
	before.AddMenu(3, 1)
	before.AddAddon(9, 2)
	after := NewQuantities()
	after.AddMenu(1, 2)
	after.AddMenu(3, 1)

	menus, addons := Touched(before, after)
	assert.Equal(t, []int64{1, 3}, menus)
	assert.Equal(t, []int64{9}, addons)

	assert.False(t, before.Equal(after))
	same := NewQuantities()
	same.AddMenu(3, 1)
	same.AddAddon(9, 2)
	assert.True(t, before.Equal(same))
}

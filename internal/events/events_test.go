package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"genfity-pricing-service/internal/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	var got []StockEvent
	bus.Subscribe(StockChanged, func(_ context.Context, body []byte) error {
		var ev StockEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return err
		}
		got = append(got, ev)
		return nil
	})

	err := bus.Publish(context.Background(), StockChanged, StockEvent{
		Type:       StockChanged,
		MerchantID: 7,
		Changes:    []stock.Change{{Kind: stock.KindMenu, ID: 1, StockQty: 4, IsActive: true}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].MerchantID)
	assert.Equal(t, int32(4), got[0].Changes[0].StockQty)

	require.NoError(t, bus.Publish(context.Background(), OrderUpdated, OrderEvent{}))
}

func TestBusRunsEveryHandlerAndReturnsFirstError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	calls := 0
	bus.Subscribe(OrderCreated, func(context.Context, []byte) error { calls++; return boom })
	bus.Subscribe(OrderCreated, func(context.Context, []byte) error { calls++; return nil })

	err := bus.Publish(context.Background(), OrderCreated, OrderEvent{OrderID: 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestEventIDs(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	var identified interface{ EventID() string } = StockEvent{ID: a}
	assert.Equal(t, a, identified.EventID())
	identified = OrderEvent{ID: b}
	assert.Equal(t, b, identified.EventID())
}

package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"genfity-pricing-service/internal/events"
	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/voucher"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Monday 2 March 2026, 12:30 in Sydney.
var testNow = time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC)

const (
	merchantID int64 = 1
	cashierID  int64 = 7

	burgerID int64 = 11
	friesID  int64 = 12
	shakeID  int64 = 13
	cheeseID int64 = 21

	tenOffID    int64 = 31
	sixtyOffID  int64 = 32
	burgerWkID  int64 = 34
	bigSpendID  int64 = 35
	posOnlyID   int64 = 36
	burgerCatID int64 = 7
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	w   *world
	svc *Service
	m   *merchant.Config

	mu     sync.Mutex
	events map[string][]json.RawMessage
	seq    int
}

func newFixture(t *testing.T, policy voucher.Policy) *fixture {
	t.Helper()
	w := newWorld()
	m := w.addMerchant(merchant.Config{
		ID:                     merchantID,
		Code:                   "BURGER",
		Name:                   "Burger Bar",
		IsActive:               true,
		ScheduledOrdersEnabled: true,
		EnableTax:              true,
		TaxPercentage:          10,
		EnableServiceCharge:    true,
		ServiceChargePercent:   5,
		Features: merchant.Features{
			CustomItems:             pricing.CustomItemSettings{Enabled: true, MaxNameLength: 80, MaxPrice: 5000},
			EditOrderEnabled:        true,
			POSDiscountsEnabled:     true,
			CustomerVouchersEnabled: true,
		},
	})

	w.addMenu(merchantID, pricing.Menu{ID: burgerID, Name: "Burger", Price: 50, CategoryIDs: []int64{burgerCatID}}, ptr[int32](10))
	w.addMenu(merchantID, pricing.Menu{ID: friesID, Name: "Fries", Price: 10, CategoryIDs: []int64{8}}, nil)
	w.addMenu(merchantID, pricing.Menu{ID: shakeID, Name: "Shake", Price: 20}, ptr[int32](2))
	w.addAddon(merchantID, pricing.Addon{ID: cheeseID, Name: "Cheese", Price: 2}, ptr[int32](5))

	w.addTemplate(voucher.Template{ID: tenOffID, Name: "Ten off", DiscountType: voucher.DiscountPercentage, DiscountValue: 10, IncludeAllItems: true})
	w.addCode(tenOffID, 41, "TEN10")
	w.addTemplate(voucher.Template{ID: sixtyOffID, Name: "Sixty off", DiscountType: voucher.DiscountFixed, DiscountValue: 60, IncludeAllItems: true})
	w.addCode(sixtyOffID, 42, "SIXTY")
	w.addTemplate(voucher.Template{ID: burgerWkID, Name: "Burger week", DiscountType: voucher.DiscountPercentage, DiscountValue: 20, CategoryScopes: []int64{burgerCatID}})
	w.addCode(burgerWkID, 44, "BURGER20")
	w.addTemplate(voucher.Template{ID: bigSpendID, Name: "Big spender", DiscountType: voucher.DiscountFixed, DiscountValue: 5, MinOrderAmount: ptr(80.0), IncludeAllItems: true})
	w.addCode(bigSpendID, 45, "BIG5")
	w.addTemplate(voucher.Template{ID: posOnlyID, Name: "Staff meal", Audience: string(voucher.AudiencePOS), DiscountType: voucher.DiscountPercentage, DiscountValue: 50, IncludeAllItems: true})
	w.addCode(posOnlyID, 46, "STAFF")

	f := &fixture{w: w, m: m, events: map[string][]json.RawMessage{}}
	bus := events.NewBus()
	for _, key := range []string{events.OrderCreated, events.OrderUpdated, events.StockChanged} {
		key := key
		bus.Subscribe(key, func(_ context.Context, body []byte) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events[key] = append(f.events[key], json.RawMessage(body))
			return nil
		})
	}

	f.svc = NewService(w, w, w, w, bus, zap.NewNop(), Options{
		Policy:         policy,
		TrackingSecret: "tracking-secret",
		Now:            func() time.Time { return testNow },
	})
	f.svc.codes = func() string {
		f.seq++
		return fmt.Sprintf("T%03d", f.seq)
	}
	return f
}

func (f *fixture) eventCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[key])
}

func (f *fixture) lastStockEvent(t *testing.T) events.StockEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.events[events.StockChanged]
	require.NotEmpty(t, list)
	var ev events.StockEvent
	require.NoError(t, json.Unmarshal(list[len(list)-1], &ev))
	return ev
}

// posOrder places a DINE_IN counter order through the service.
func (f *fixture) posOrder(t *testing.T, discount *DiscountInput, items ...pricing.ItemRequest) *Order {
	t.Helper()
	order, err := f.svc.CreatePOSOrder(context.Background(), CreateRequest{
		MerchantID:  merchantID,
		UserID:      cashierID,
		OrderType:   "DINE_IN",
		TableNumber: ptr("4"),
		Items:       items,
		Discount:    discount,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) edit(orderID int64, items ...pricing.ItemRequest) (*Order, error) {
	return f.svc.EditPOSOrder(context.Background(), EditRequest{
		MerchantID:  merchantID,
		OrderID:     orderID,
		UserID:      cashierID,
		TableNumber: ptr("4"),
		Items:       items,
	})
}

func posVoucher(code string) *DiscountInput {
	return &DiscountInput{Source: voucher.SourcePOSVoucher, Code: code}
}

// errCode extracts the machine readable code from any of the domain errors.
func errCode(err error) string {
	var (
		oerr *Error
		verr *voucher.Error
		perr *pricing.Error
		merr *merchant.Error
		serr *stock.InsufficientError
	)
	switch {
	case errors.As(err, &oerr):
		return oerr.Code
	case errors.As(err, &verr):
		return string(verr.Code)
	case errors.As(err, &perr):
		return string(perr.Code)
	case errors.As(err, &merr):
		return merr.Code
	case errors.As(err, &serr):
		return serr.Code()
	}
	return ""
}

package orders

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/utils"
	"genfity-pricing-service/internal/voucher"
)

// world is an in-memory merchant database. It implements Repository,
// merchant.Loader, pricing.Catalog and voucher.Store so the service can be
// driven end to end. InTx restores the previous state when fn fails.
type world struct {
	merchants map[int64]*merchant.Config
	menus     map[int64]pricing.Menu
	addons    map[int64]pricing.Addon
	promos    map[int64]float64
	owner     map[string]int64

	menuStock  map[int64]*stockRow
	addonStock map[int64]*stockRow

	templates map[int64]*voucher.Template
	codes     map[string]codeRow

	orders    map[int64]*Order
	customers map[string]int64

	placeholderID int64
	nextID        int64

	// onLock runs when an order is read for update, before it is returned.
	onLock func(w *world, orderID int64)

	txCount  int
	rollback int
}

type stockRow struct {
	name   string
	track  bool
	qty    *int32
	low    *int32
	active bool
}

type codeRow struct {
	templateID int64
	code       voucher.Code
}

func newWorld() *world {
	return &world{
		merchants:  map[int64]*merchant.Config{},
		menus:      map[int64]pricing.Menu{},
		addons:     map[int64]pricing.Addon{},
		promos:     map[int64]float64{},
		owner:      map[string]int64{},
		menuStock:  map[int64]*stockRow{},
		addonStock: map[int64]*stockRow{},
		templates:  map[int64]*voucher.Template{},
		codes:      map[string]codeRow{},
		orders:     map[int64]*Order{},
		customers:  map[string]int64{},
		nextID:     1000,
	}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

func ownerKey(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

func (w *world) addMerchant(m merchant.Config) *merchant.Config {
	if m.Currency == "" {
		m.Currency = "AUD"
	}
	if m.Timezone == "" {
		m.Timezone = "Australia/Sydney"
	}
	w.merchants[m.ID] = &m
	return w.merchants[m.ID]
}

func (w *world) addMenu(merchantID int64, menu pricing.Menu, stockQty *int32) {
	menu.IsActive = true
	w.menus[menu.ID] = menu
	w.owner[ownerKey("menu", menu.ID)] = merchantID
	w.menuStock[menu.ID] = &stockRow{name: menu.Name, track: stockQty != nil, qty: stockQty, active: true}
}

func (w *world) addAddon(merchantID int64, addon pricing.Addon, stockQty *int32) {
	addon.IsActive = true
	w.addons[addon.ID] = addon
	w.owner[ownerKey("addon", addon.ID)] = merchantID
	w.addonStock[addon.ID] = &stockRow{name: addon.Name, track: stockQty != nil, qty: stockQty, active: true}
}

func (w *world) addTemplate(t voucher.Template) *voucher.Template {
	t.IsActive = true
	if t.Audience == "" {
		t.Audience = string(voucher.AudienceBoth)
	}
	w.templates[t.ID] = &t
	return w.templates[t.ID]
}

func (w *world) addCode(templateID, codeID int64, code string) {
	w.codes[voucher.NormalizeCode(code)] = codeRow{templateID: templateID, code: voucher.Code{ID: codeID, Code: voucher.NormalizeCode(code), IsActive: true}}
}

// putOrder stores an order as if it had been placed earlier.
func (w *world) putOrder(o Order) *Order {
	if o.ID == 0 {
		o.ID = w.id()
	}
	for i := range o.Items {
		if o.Items[i].ID == 0 {
			o.Items[i].ID = w.id()
		}
		if o.Items[i].Addons == nil {
			o.Items[i].Addons = []ItemAddon{}
		}
	}
	if o.Discounts == nil {
		o.Discounts = []voucher.StoredDiscount{}
	}
	stored := cloneOrder(&o)
	w.orders[o.ID] = stored
	return stored
}

func (w *world) menuQty(id int64) int32  { return *w.menuStock[id].qty }
func (w *world) addonQty(id int64) int32 { return *w.addonStock[id].qty }

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = make([]Item, len(o.Items))
	for i, item := range o.Items {
		item.Addons = slices.Clone(item.Addons)
		if item.Addons == nil {
			item.Addons = []ItemAddon{}
		}
		c.Items[i] = item
	}
	c.Discounts = slices.Clone(o.Discounts)
	if c.Discounts == nil {
		c.Discounts = []voucher.StoredDiscount{}
	}
	if o.Payment != nil {
		p := *o.Payment
		c.Payment = &p
	}
	c.DroppedDiscounts = nil
	c.TrackingToken = ""
	return &c
}

func cloneStock(rows map[int64]*stockRow) map[int64]*stockRow {
	out := make(map[int64]*stockRow, len(rows))
	for id, row := range rows {
		r := *row
		if row.qty != nil {
			q := *row.qty
			r.qty = &q
		}
		out[id] = &r
	}
	return out
}

type snapshot struct {
	menuStock     map[int64]*stockRow
	addonStock    map[int64]*stockRow
	orders        map[int64]*Order
	customers     map[string]int64
	placeholderID int64
	nextID        int64
}

func (w *world) snapshot() snapshot {
	orders := make(map[int64]*Order, len(w.orders))
	for id, o := range w.orders {
		orders[id] = cloneOrder(o)
	}
	customers := make(map[string]int64, len(w.customers))
	for k, v := range w.customers {
		customers[k] = v
	}
	return snapshot{
		menuStock:     cloneStock(w.menuStock),
		addonStock:    cloneStock(w.addonStock),
		orders:        orders,
		customers:     customers,
		placeholderID: w.placeholderID,
		nextID:        w.nextID,
	}
}

func (w *world) restore(s snapshot) {
	w.menuStock = s.menuStock
	w.addonStock = s.addonStock
	w.orders = s.orders
	w.customers = s.customers
	w.placeholderID = s.placeholderID
	w.nextID = s.nextID
}

// Repository

func (w *world) InTx(_ context.Context, fn func(tx Tx) error) error {
	w.txCount++
	saved := w.snapshot()
	if err := fn(w); err != nil {
		w.rollback++
		w.restore(saved)
		return err
	}
	return nil
}

func (w *world) LoadOrder(_ context.Context, merchantID, orderID int64, forUpdate bool) (*Order, error) {
	if forUpdate && w.onLock != nil {
		w.onLock(w, orderID)
	}
	o, ok := w.orders[orderID]
	if !ok || o.MerchantID != merchantID {
		return nil, ErrNoOrder
	}
	return cloneOrder(o), nil
}

func (w *world) StockEntities(_ context.Context, merchantID int64, menuIDs, addonIDs []int64) ([]stock.Entity, error) {
	var out []stock.Entity
	collect := func(kind stock.Kind, prefix string, rows map[int64]*stockRow, ids []int64) {
		for _, id := range ids {
			row, ok := rows[id]
			if !ok || w.owner[ownerKey(prefix, id)] != merchantID {
				continue
			}
			e := stock.Entity{Kind: kind, ID: id, Name: row.name, TrackStock: row.track, LowStockThreshold: row.low}
			if row.qty != nil {
				q := *row.qty
				e.StockQty = &q
			}
			out = append(out, e)
		}
	}
	collect(stock.KindMenu, "menu", w.menuStock, menuIDs)
	collect(stock.KindAddon, "addon", w.addonStock, addonIDs)
	return out, nil
}

func (w *world) ApplyStock(_ context.Context, adjustments []stock.Adjustment, lowStockDefault *int32) ([]stock.Change, error) {
	changes := make([]stock.Change, 0, len(adjustments))
	for _, adj := range adjustments {
		rows := w.menuStock
		if adj.Kind == stock.KindAddon {
			rows = w.addonStock
		}
		row := rows[adj.ID]
		if row == nil || !row.track || row.qty == nil {
			if adj.Delta > 0 {
				return nil, &stock.InsufficientError{Kind: adj.Kind, ID: adj.ID, Name: adj.Name, Requested: adj.Delta}
			}
			continue
		}
		if adj.Delta > 0 && *row.qty < adj.Delta {
			return nil, &stock.InsufficientError{Kind: adj.Kind, ID: adj.ID, Name: adj.Name, Requested: adj.Delta}
		}
		next := *row.qty - adj.Delta
		row.qty = &next
		row.active = next > 0
		threshold := row.low
		if threshold == nil {
			threshold = lowStockDefault
		}
		changes = append(changes, stock.Change{
			Kind:     adj.Kind,
			ID:       adj.ID,
			Name:     adj.Name,
			StockQty: next,
			IsActive: next > 0,
			LowStock: threshold != nil && next <= *threshold,
		})
	}
	return changes, nil
}

func (w *world) CustomItemPlaceholder(context.Context, int64, *int64) (int64, error) {
	if w.placeholderID == 0 {
		w.placeholderID = w.id()
	}
	return w.placeholderID, nil
}

func (w *world) ResolveCustomer(_ context.Context, in CustomerInput) (*int64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, nil
	}
	if id, ok := w.customers[email]; ok {
		return &id, nil
	}
	id := w.id()
	w.customers[email] = id
	return &id, nil
}

func (w *world) OrderNumberTaken(_ context.Context, merchantID int64, number string, _, _ time.Time) (bool, error) {
	for _, o := range w.orders {
		if o.MerchantID == merchantID && o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (w *world) InsertOrder(_ context.Context, o *Order) (int64, error) {
	stored := cloneOrder(o)
	stored.ID = w.id()
	stored.Items = []Item{}
	stored.Discounts = []voucher.StoredDiscount{}
	stored.Payment = nil
	w.orders[stored.ID] = stored
	return stored.ID, nil
}

func (w *world) ReplaceItems(_ context.Context, orderID int64, items []Item, placeholderMenuID int64) error {
	o := w.orders[orderID]
	o.Items = make([]Item, 0, len(items))
	for _, item := range items {
		if item.IsCustom && placeholderMenuID <= 0 {
			return errTest("custom item without placeholder")
		}
		item.ID = w.id()
		item.Addons = slices.Clone(item.Addons)
		if item.Addons == nil {
			item.Addons = []ItemAddon{}
		}
		o.Items = append(o.Items, item)
	}
	return nil
}

func (w *world) codeValue(id *int64) *string {
	if id == nil {
		return nil
	}
	for value, row := range w.codes {
		if row.code.ID == *id {
			v := value
			return &v
		}
	}
	return nil
}

func (w *world) stored(d voucher.AppliedDiscount) voucher.StoredDiscount {
	s := d.Stored()
	s.VoucherCode = w.codeValue(d.VoucherCodeID)
	return s
}

func (w *world) ReplaceDiscounts(_ context.Context, _ int64, orderID int64, currency string, discounts []voucher.AppliedDiscount) error {
	o := w.orders[orderID]
	o.Discounts = make([]voucher.StoredDiscount, 0, len(discounts))
	for _, d := range discounts {
		o.Discounts = append(o.Discounts, w.stored(d))
	}
	o.DiscountAmount = utils.RoundCurrency(voucher.SumAmounts(discounts), currency)
	return nil
}

func (w *world) ApplyDiscount(_ context.Context, p voucher.ApplyParams) (float64, error) {
	o := w.orders[p.OrderID]
	kept := o.Discounts[:0:0]
	for _, d := range o.Discounts {
		if !slices.Contains(p.ReplaceSources, d.Source) {
			kept = append(kept, d)
		}
	}
	o.Discounts = append(kept, w.stored(p.Discount))
	var sum float64
	for _, d := range o.Discounts {
		sum += d.DiscountAmount
	}
	o.DiscountAmount = utils.RoundCurrency(sum, p.Currency)
	return o.DiscountAmount, nil
}

func (w *world) UpdateOrder(_ context.Context, u *Order) error {
	o := w.orders[u.ID]
	o.CustomerID = u.CustomerID
	o.TableNumber = u.TableNumber
	o.Notes = u.Notes
	o.Subtotal = u.Subtotal
	o.TaxAmount = u.TaxAmount
	o.ServiceChargeAmount = u.ServiceChargeAmount
	o.PackagingFeeAmount = u.PackagingFeeAmount
	o.DiscountAmount = u.DiscountAmount
	o.TotalAmount = u.TotalAmount
	o.EditedAt = u.EditedAt
	o.EditedByUserID = u.EditedByUserID
	return nil
}

func (w *world) InsertPayment(_ context.Context, orderID int64, amount float64, method string) error {
	w.orders[orderID].Payment = &Payment{Status: PaymentPending, Method: method, Amount: amount}
	return nil
}

func (w *world) UpdatePaymentAmount(_ context.Context, orderID int64, amount float64) error {
	if p := w.orders[orderID].Payment; p != nil {
		p.Amount = amount
	}
	return nil
}

// merchant.Loader

func (w *world) Load(_ context.Context, id int64) (*merchant.Config, error) {
	m, ok := w.merchants[id]
	if !ok {
		return nil, &merchant.Error{Code: merchant.ErrMerchantNotFound, Message: "Merchant not found", Status: http.StatusNotFound}
	}
	c := *m
	return &c, nil
}

func (w *world) LoadByCode(_ context.Context, code string) (*merchant.Config, error) {
	for _, m := range w.merchants {
		if strings.EqualFold(m.Code, code) {
			c := *m
			return &c, nil
		}
	}
	return nil, &merchant.Error{Code: merchant.ErrMerchantNotFound, Message: "Merchant not found", Status: http.StatusNotFound}
}

// pricing.Catalog

func (w *world) Menus(_ context.Context, merchantID int64, ids []int64) (map[int64]pricing.Menu, error) {
	out := map[int64]pricing.Menu{}
	for _, id := range ids {
		if menu, ok := w.menus[id]; ok && w.owner[ownerKey("menu", id)] == merchantID {
			out[id] = menu
		}
	}
	return out, nil
}

func (w *world) Addons(_ context.Context, merchantID int64, ids []int64) (map[int64]pricing.Addon, error) {
	out := map[int64]pricing.Addon{}
	for _, id := range ids {
		if addon, ok := w.addons[id]; ok && w.owner[ownerKey("addon", id)] == merchantID {
			out[id] = addon
		}
	}
	return out, nil
}

func (w *world) PromoPrices(_ context.Context, merchantID int64, ids []int64, _ string) (map[int64]float64, error) {
	out := map[int64]float64{}
	for _, id := range ids {
		if price, ok := w.promos[id]; ok && w.owner[ownerKey("menu", id)] == merchantID {
			out[id] = price
		}
	}
	return out, nil
}

// voucher.Store

func (w *world) TemplateByID(_ context.Context, _ int64, templateID int64) (*voucher.Template, error) {
	t, ok := w.templates[templateID]
	if !ok {
		return nil, voucher.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (w *world) CodeByValue(_ context.Context, _ int64, code string) (*voucher.Template, *voucher.Code, error) {
	row, ok := w.codes[code]
	if !ok {
		return nil, nil, voucher.ErrNotFound
	}
	t := *w.templates[row.templateID]
	c := row.code
	return &t, &c, nil
}

func (w *world) usageRows(q voucher.UsageQuery, withCode bool) []voucher.StoredDiscount {
	var rows []voucher.StoredDiscount
	for id, o := range w.orders {
		if o.MerchantID != q.MerchantID {
			continue
		}
		if q.ExcludeOrderID != nil && *q.ExcludeOrderID == id {
			continue
		}
		for _, d := range o.Discounts {
			if withCode && q.CodeID != nil {
				if d.VoucherCodeID == nil || *d.VoucherCodeID != *q.CodeID {
					continue
				}
			} else if d.VoucherTemplateID == nil || *d.VoucherTemplateID != q.TemplateID {
				continue
			}
			rows = append(rows, d)
		}
	}
	return rows
}

func (w *world) CountUsage(_ context.Context, q voucher.UsageQuery) (int64, error) {
	var n int64
	for _, d := range w.usageRows(q, true) {
		if q.CustomerID != nil && (d.AppliedByCustomerID == nil || *d.AppliedByCustomerID != *q.CustomerID) {
			continue
		}
		n++
	}
	return n, nil
}

func (w *world) SumUsage(_ context.Context, q voucher.UsageQuery) (float64, error) {
	var sum float64
	for _, d := range w.usageRows(q, false) {
		sum += d.DiscountAmount
	}
	return sum, nil
}

func (w *world) OrderSources(_ context.Context, merchantID, orderID int64) ([]voucher.SourceLabel, error) {
	o, ok := w.orders[orderID]
	if !ok || o.MerchantID != merchantID {
		return nil, nil
	}
	out := make([]voucher.SourceLabel, 0, len(o.Discounts))
	for _, d := range o.Discounts {
		out = append(out, voucher.SourceLabel{Source: d.Source, Label: d.Label})
	}
	return out, nil
}

type errTest string

func (e errTest) Error() string { return string(e) }

package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/utils"
	"genfity-pricing-service/internal/voucher"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type PGRepository struct {
	pgOps
	pool db.Pool
}

func NewPGRepository(pool db.Pool) *PGRepository {
	return &PGRepository{pgOps: newPGOps(pool), pool: pool}
}

func (r *PGRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(newPGOps(tx))
	})
}

type pgOps struct {
	q          db.Querier
	reconciler *stock.Reconciler
	stocks     stock.PGStore
}

func newPGOps(q db.Querier) pgOps {
	return pgOps{q: q, reconciler: stock.NewReconciler()}
}

const orderColumns = `
	o.id, o.merchant_id, o.order_number, o.order_type, o.status, o.table_number, o.notes, o.delivery_address,
	o.customer_id, o.subtotal, o.tax_amount, o.service_charge_amount, o.packaging_fee, o.discount_amount,
	o.total_amount, o.is_scheduled, o.scheduled_date::text, o.scheduled_time, o.stock_deducted_at,
	o.placed_at, o.edited_at, o.edited_by_user_id,
	p.status, p.payment_method, p.amount`

func (o pgOps) LoadOrder(ctx context.Context, merchantID, orderID int64, forUpdate bool) (*Order, error) {
	query := `select ` + orderColumns + `
		from orders o
		left join payments p on p.order_id = o.id
		where o.id = $1 and o.merchant_id = $2`
	if forUpdate {
		query += ` for update of o`
	}

	var (
		order           Order
		tableNumber     pgtype.Text
		notes           pgtype.Text
		deliveryAddress pgtype.Text
		customerID      pgtype.Int8
		subtotal        pgtype.Numeric
		taxAmount       pgtype.Numeric
		serviceAmount   pgtype.Numeric
		packagingFee    pgtype.Numeric
		discountAmount  pgtype.Numeric
		totalAmount     pgtype.Numeric
		scheduledDate   pgtype.Text
		scheduledTime   pgtype.Text
		stockDeductedAt pgtype.Timestamptz
		editedAt        pgtype.Timestamptz
		editedBy        pgtype.Int8
		paymentStatus   pgtype.Text
		paymentMethod   pgtype.Text
		paymentAmount   pgtype.Numeric
	)
	err := o.q.QueryRow(ctx, query, orderID, merchantID).Scan(
		&order.ID, &order.MerchantID, &order.OrderNumber, &order.OrderType, &order.Status,
		&tableNumber, &notes, &deliveryAddress,
		&customerID, &subtotal, &taxAmount, &serviceAmount, &packagingFee, &discountAmount,
		&totalAmount, &order.IsScheduled, &scheduledDate, &scheduledTime, &stockDeductedAt,
		&order.PlacedAt, &editedAt, &editedBy,
		&paymentStatus, &paymentMethod, &paymentAmount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOrder
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	order.TableNumber = textPtr(tableNumber)
	order.Notes = textPtr(notes)
	order.DeliveryAddress = textPtr(deliveryAddress)
	order.CustomerID = int8Ptr(customerID)
	order.Subtotal = utils.NumericToFloat64(subtotal)
	order.TaxAmount = utils.NumericToFloat64(taxAmount)
	order.ServiceChargeAmount = utils.NumericToFloat64(serviceAmount)
	order.PackagingFeeAmount = utils.NumericToFloat64(packagingFee)
	order.DiscountAmount = utils.NumericToFloat64(discountAmount)
	order.TotalAmount = utils.NumericToFloat64(totalAmount)
	order.ScheduledDate = textPtr(scheduledDate)
	order.ScheduledTime = textPtr(scheduledTime)
	order.StockDeductedAt = timePtr(stockDeductedAt)
	order.EditedAt = timePtr(editedAt)
	order.EditedByUserID = int8Ptr(editedBy)
	if paymentStatus.Valid {
		order.Payment = &Payment{
			Status: paymentStatus.String,
			Method: paymentMethod.String,
			Amount: utils.NumericToFloat64(paymentAmount),
		}
	}

	if order.Items, err = o.loadItems(ctx, order.ID); err != nil {
		return nil, err
	}
	if order.Discounts, err = o.loadDiscounts(ctx, order.ID); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o pgOps) loadItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := o.q.Query(ctx, `
		select oi.id, oi.menu_id, oi.menu_name, oi.menu_price, oi.quantity, oi.subtotal, oi.notes, m.name
		from order_items oi
		left join menus m on m.id = oi.menu_id
		where oi.order_id = $1
		order by oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	items := make([]Item, 0)
	index := map[int64]int{}
	for rows.Next() {
		var (
			item       Item
			price      pgtype.Numeric
			subtotal   pgtype.Numeric
			note       pgtype.Text
			recordName pgtype.Text
		)
		if err := rows.Scan(&item.ID, &item.MenuID, &item.Name, &price, &item.Quantity, &subtotal, &note, &recordName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPrice = utils.NumericToFloat64(price)
		item.Subtotal = utils.NumericToFloat64(subtotal)
		item.Notes = textPtr(note)
		item.IsCustom = recordName.Valid && recordName.String == CustomItemPlaceholderName
		if item.IsCustom {
			item.MenuID = 0
		}
		item.Addons = []ItemAddon{}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	addonRows, err := o.q.Query(ctx, `
		select a.order_item_id, a.addon_item_id, a.addon_name, a.addon_price, a.quantity, a.subtotal
		from order_item_addons a
		join order_items oi on oi.id = a.order_item_id
		where oi.order_id = $1
		order by a.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order item addons: %w", err)
	}
	defer addonRows.Close()
	for addonRows.Next() {
		var (
			itemID   int64
			addon    ItemAddon
			price    pgtype.Numeric
			subtotal pgtype.Numeric
		)
		if err := addonRows.Scan(&itemID, &addon.AddonID, &addon.Name, &price, &addon.Quantity, &subtotal); err != nil {
			return nil, fmt.Errorf("scan order item addon: %w", err)
		}
		addon.UnitPrice = utils.NumericToFloat64(price)
		addon.Subtotal = utils.NumericToFloat64(subtotal)
		if i, ok := index[itemID]; ok {
			items[i].Addons = append(items[i].Addons, addon)
		}
	}
	return items, addonRows.Err()
}

func (o pgOps) loadDiscounts(ctx context.Context, orderID int64) ([]voucher.StoredDiscount, error) {
	rows, err := o.q.Query(ctx, `
		select d.source, d.label, d.discount_type, d.discount_value, d.discount_amount,
		       d.voucher_template_id, d.voucher_code_id, d.applied_by_user_id, d.applied_by_customer_id,
		       vc.code
		from order_discounts d
		left join order_voucher_codes vc on vc.id = d.voucher_code_id
		where d.order_id = $1
		order by d.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order discounts: %w", err)
	}
	defer rows.Close()

	discounts := make([]voucher.StoredDiscount, 0)
	for rows.Next() {
		var (
			source       string
			discountType string
			d            voucher.StoredDiscount
			value        pgtype.Numeric
			amount       pgtype.Numeric
			templateID   pgtype.Int8
			codeID       pgtype.Int8
			userID       pgtype.Int8
			customerID   pgtype.Int8
			code         pgtype.Text
		)
		if err := rows.Scan(&source, &d.Label, &discountType, &value, &amount, &templateID, &codeID, &userID, &customerID, &code); err != nil {
			return nil, fmt.Errorf("scan order discount: %w", err)
		}
		d.Source = voucher.Source(source)
		d.DiscountType = voucher.ParseDiscountType(discountType)
		if value.Valid {
			v := utils.NumericToFloat64(value)
			d.DiscountValue = &v
		}
		d.DiscountAmount = utils.NumericToFloat64(amount)
		d.VoucherTemplateID = int8Ptr(templateID)
		d.VoucherCodeID = int8Ptr(codeID)
		d.AppliedByUserID = int8Ptr(userID)
		d.AppliedByCustomerID = int8Ptr(customerID)
		d.VoucherCode = textPtr(code)
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

func (o pgOps) StockEntities(ctx context.Context, merchantID int64, menuIDs, addonIDs []int64) ([]stock.Entity, error) {
	return o.stocks.LoadEntities(ctx, o.q, merchantID, menuIDs, addonIDs)
}

func (o pgOps) ApplyStock(ctx context.Context, adjustments []stock.Adjustment, lowStockDefault *int32) ([]stock.Change, error) {
	return o.reconciler.Apply(ctx, o.q, adjustments, lowStockDefault)
}

func (o pgOps) CustomItemPlaceholder(ctx context.Context, merchantID int64, userID *int64) (int64, error) {
	var id int64
	err := o.q.QueryRow(ctx, `
		select id from menus where merchant_id = $1 and name = $2 and deleted_at is not null limit 1
	`, merchantID, CustomItemPlaceholderName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find custom item placeholder: %w", err)
	}

	if err := o.q.QueryRow(ctx, `
		insert into menus (merchant_id, name, description, price, is_active, track_stock, stock_qty, deleted_at, deleted_by_user_id, created_by_user_id, updated_at)
		values ($1,$2,$3,0,false,false,null,now(),$4,$4, now())
		returning id
	`, merchantID, CustomItemPlaceholderName, "Internal placeholder for POS custom items", userID).Scan(&id); err != nil {
		return 0, fmt.Errorf("create custom item placeholder: %w", err)
	}
	return id, nil
}

// ResolveCustomer finds a customer by email, then by phone, refreshing the
// stored name and phone. A new customer is only created when an email is
// given. All-blank input resolves to no customer.
func (o pgOps) ResolveCustomer(ctx context.Context, in CustomerInput) (*int64, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" && phone == "" && email == "" {
		return nil, nil
	}

	var id int64
	if email != "" {
		err := o.q.QueryRow(ctx, `select id from customers where email = $1`, email).Scan(&id)
		switch {
		case err == nil:
			if name != "" || phone != "" {
				if _, err := o.q.Exec(ctx, `
					update customers set name = coalesce(nullif($1,''), name), phone = coalesce(nullif($2,''), phone)
					where id = $3
				`, name, phone, id); err != nil {
					return nil, fmt.Errorf("update customer: %w", err)
				}
			}
			return &id, nil
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("find customer: %w", err)
		}

		if name == "" {
			name = "Walk-in Customer"
		}
		if err := o.q.QueryRow(ctx, `
			insert into customers (name, email, phone, updated_at) values ($1,$2,$3, now()) returning id
		`, name, email, nullIfBlank(phone)).Scan(&id); err != nil {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		return &id, nil
	}

	if phone == "" {
		return nil, nil
	}
	err := o.q.QueryRow(ctx, `select id from customers where phone = $1`, phone).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if name != "" {
		if _, err := o.q.Exec(ctx, `update customers set name = $1 where id = $2`, name, id); err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
	}
	return &id, nil
}

func (o pgOps) OrderNumberTaken(ctx context.Context, merchantID int64, number string, from, to time.Time) (bool, error) {
	var exists bool
	err := o.q.QueryRow(ctx, `
		select exists(
			select 1 from orders where merchant_id = $1 and order_number = $2 and placed_at >= $3 and placed_at <= $4
		)
	`, merchantID, number, from, to).Scan(&exists)
	return exists, err
}

func (o pgOps) InsertOrder(ctx context.Context, order *Order) (int64, error) {
	var id int64
	err := o.q.QueryRow(ctx, `
		insert into orders (
			merchant_id, customer_id, order_number, order_type, table_number, status,
			subtotal, tax_amount, service_charge_amount, packaging_fee, discount_amount, total_amount,
			notes, delivery_address, is_scheduled, scheduled_date, scheduled_time, stock_deducted_at,
			placed_at, updated_at
		)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16::date,$17,$18,$19, now())
		returning id
	`,
		order.MerchantID, order.CustomerID, order.OrderNumber, order.OrderType, nullIfBlankPtr(order.TableNumber), order.Status,
		order.Subtotal, order.TaxAmount, order.ServiceChargeAmount, order.PackagingFeeAmount, order.DiscountAmount, order.TotalAmount,
		nullIfBlankPtr(order.Notes), nullIfBlankPtr(order.DeliveryAddress), order.IsScheduled, order.ScheduledDate, order.ScheduledTime, order.StockDeductedAt,
		order.PlacedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// ReplaceItems deletes the order's lines and writes items in their place.
// Custom lines are stored against placeholderMenuID.
func (o pgOps) ReplaceItems(ctx context.Context, orderID int64, items []Item, placeholderMenuID int64) error {
	if _, err := o.q.Exec(ctx, `delete from order_item_addons where order_item_id in (select id from order_items where order_id = $1)`, orderID); err != nil {
		return fmt.Errorf("delete order item addons: %w", err)
	}
	if _, err := o.q.Exec(ctx, `delete from order_items where order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	for _, item := range items {
		menuID := item.MenuID
		if item.IsCustom {
			if placeholderMenuID <= 0 {
				return fmt.Errorf("custom item %q without placeholder menu", item.Name)
			}
			menuID = placeholderMenuID
		}
		var itemID int64
		if err := o.q.QueryRow(ctx, `
			insert into order_items (order_id, menu_id, menu_name, menu_price, quantity, subtotal, notes, updated_at)
			values ($1,$2,$3,$4,$5,$6,$7, now())
			returning id
		`, orderID, menuID, item.Name, item.UnitPrice, item.Quantity, item.Subtotal, nullIfBlankPtr(item.Notes)).Scan(&itemID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		for _, addon := range item.Addons {
			if _, err := o.q.Exec(ctx, `
				insert into order_item_addons (order_item_id, addon_item_id, addon_name, addon_price, quantity, subtotal, updated_at)
				values ($1,$2,$3,$4,$5,$6, now())
			`, itemID, addon.AddonID, addon.Name, addon.UnitPrice, addon.Quantity, addon.Subtotal); err != nil {
				return fmt.Errorf("insert order item addon: %w", err)
			}
		}
	}
	return nil
}

func (o pgOps) ReplaceDiscounts(ctx context.Context, merchantID, orderID int64, currency string, discounts []voucher.AppliedDiscount) error {
	return voucher.ReplaceOrderDiscountsTx(ctx, o.q, merchantID, orderID, currency, discounts)
}

func (o pgOps) ApplyDiscount(ctx context.Context, params voucher.ApplyParams) (float64, error) {
	return voucher.ApplyOrderDiscountTx(ctx, o.q, params)
}

func (o pgOps) UpdateOrder(ctx context.Context, order *Order) error {
	_, err := o.q.Exec(ctx, `
		update orders
		set customer_id = $1, table_number = $2, notes = $3, subtotal = $4, tax_amount = $5,
		    service_charge_amount = $6, packaging_fee = $7, discount_amount = $8, total_amount = $9,
		    edited_at = $10, edited_by_user_id = $11, updated_at = now()
		where id = $12 and merchant_id = $13
	`, order.CustomerID, nullIfBlankPtr(order.TableNumber), nullIfBlankPtr(order.Notes), order.Subtotal, order.TaxAmount,
		order.ServiceChargeAmount, order.PackagingFeeAmount, order.DiscountAmount, order.TotalAmount,
		order.EditedAt, order.EditedByUserID, order.ID, order.MerchantID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (o pgOps) InsertPayment(ctx context.Context, orderID int64, amount float64, method string) error {
	if _, err := o.q.Exec(ctx, `
		insert into payments (order_id, amount, payment_method, status, updated_at)
		values ($1,$2,$3,'PENDING', now())
	`, orderID, amount, method); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (o pgOps) UpdatePaymentAmount(ctx context.Context, orderID int64, amount float64) error {
	if _, err := o.q.Exec(ctx, `update payments set amount = $1, updated_at = now() where order_id = $2`, amount, orderID); err != nil {
		return fmt.Errorf("update payment amount: %w", err)
	}
	return nil
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func timePtr(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullIfBlank(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullIfBlankPtr(s *string) any {
	if s == nil {
		return nil
	}
	return nullIfBlank(*s)
}

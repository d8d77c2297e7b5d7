package voucher

import (
	"context"
	"errors"
	"strconv"
	"time"

	"genfity-pricing-service/internal/db"
	"genfity-pricing-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type PGStore struct {
	DB db.Querier
}

const templateColumns = `
	t.id, t.name, t.audience, t.discount_type, t.discount_value, t.max_discount_amount, t.min_order_amount,
	t.max_uses_total, t.max_uses_per_customer, t.max_uses_per_order, t.total_discount_cap,
	t.requires_customer_login, t.allowed_order_types, t.valid_from, t.valid_until, t.days_of_week,
	t.start_time, t.end_time, t.include_all_items, t.report_category, t.is_active`

// templateRow holds the nullable scan targets for templateColumns.
type templateRow struct {
	id                 int64
	name               string
	audience           string
	discountType       string
	discountValue      pgtype.Numeric
	maxDiscount        pgtype.Numeric
	minOrder           pgtype.Numeric
	maxUsesTotal       pgtype.Int4
	maxUsesPerCustomer pgtype.Int4
	maxUsesPerOrder    pgtype.Int4
	totalDiscountCap   pgtype.Numeric
	requiresLogin      bool
	allowedOrderTypes  []string
	validFrom          pgtype.Timestamptz
	validUntil         pgtype.Timestamptz
	daysOfWeek         []int32
	startTime          pgtype.Text
	endTime            pgtype.Text
	includeAll         bool
	reportCategory     pgtype.Text
	isActive           bool
}

func (r *templateRow) targets() []any {
	return []any{
		&r.id, &r.name, &r.audience, &r.discountType, &r.discountValue, &r.maxDiscount, &r.minOrder,
		&r.maxUsesTotal, &r.maxUsesPerCustomer, &r.maxUsesPerOrder, &r.totalDiscountCap,
		&r.requiresLogin, &r.allowedOrderTypes, &r.validFrom, &r.validUntil, &r.daysOfWeek,
		&r.startTime, &r.endTime, &r.includeAll, &r.reportCategory, &r.isActive,
	}
}

func (r *templateRow) template() *Template {
	t := &Template{
		ID:                    r.id,
		Name:                  r.name,
		Audience:              r.audience,
		DiscountType:          ParseDiscountType(r.discountType),
		DiscountValue:         utils.NumericToFloat64(r.discountValue),
		MaxDiscountAmount:     utils.OptionalNumeric(r.maxDiscount),
		MinOrderAmount:        utils.OptionalNumeric(r.minOrder),
		MaxUsesTotal:          optionalInt(r.maxUsesTotal),
		MaxUsesPerCustomer:    optionalInt(r.maxUsesPerCustomer),
		TotalDiscountCap:      utils.OptionalNumeric(r.totalDiscountCap),
		RequiresCustomerLogin: r.requiresLogin,
		ValidFrom:             optionalTime(r.validFrom),
		ValidUntil:            optionalTime(r.validUntil),
		StartTime:             optionalText(r.startTime),
		EndTime:               optionalText(r.endTime),
		IncludeAllItems:       r.includeAll,
		ReportCategory:        optionalText(r.reportCategory),
		IsActive:              r.isActive,
	}
	if r.maxUsesPerOrder.Valid {
		t.MaxUsesPerOrder = r.maxUsesPerOrder.Int32
	}
	if len(r.allowedOrderTypes) > 0 {
		t.AllowedOrderTypes = r.allowedOrderTypes
	}
	for _, d := range r.daysOfWeek {
		t.DaysOfWeek = append(t.DaysOfWeek, int(d))
	}
	return t
}

func (s PGStore) TemplateByID(ctx context.Context, merchantID, templateID int64) (*Template, error) {
	var row templateRow
	err := s.DB.QueryRow(ctx, `
		select `+templateColumns+`
		from order_voucher_templates t
		where t.merchant_id = $1 and t.id = $2
	`, merchantID, templateID).Scan(row.targets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tpl := row.template()
	if err := s.loadScopes(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s PGStore) CodeByValue(ctx context.Context, merchantID int64, code string) (*Template, *Code, error) {
	var (
		row                templateRow
		c                  Code
		codeMaxUses        pgtype.Int4
		codeMaxPerCustomer pgtype.Int4
		codeValidFrom      pgtype.Timestamptz
		codeValidUntil     pgtype.Timestamptz
	)
	targets := append([]any{&c.ID, &c.Code, &c.IsActive, &codeMaxUses, &codeMaxPerCustomer, &codeValidFrom, &codeValidUntil}, row.targets()...)

	err := s.DB.QueryRow(ctx, `
		select c.id, c.code, c.is_active, c.max_uses_total, c.max_uses_per_customer, c.valid_from, c.valid_until,
		       `+templateColumns+`
		from order_voucher_codes c
		join order_voucher_templates t on t.id = c.template_id
		where c.merchant_id = $1 and c.code = $2
	`, merchantID, code).Scan(targets...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	c.MaxUsesTotal = optionalInt(codeMaxUses)
	c.MaxUsesPerCustomer = optionalInt(codeMaxPerCustomer)
	c.ValidFrom = optionalTime(codeValidFrom)
	c.ValidUntil = optionalTime(codeValidUntil)

	tpl := row.template()
	if err := s.loadScopes(ctx, tpl); err != nil {
		return nil, nil, err
	}
	return tpl, &c, nil
}

func (s PGStore) loadScopes(ctx context.Context, tpl *Template) error {
	menus, err := s.int64Column(ctx, `select menu_id from order_voucher_template_menus where template_id = $1`, tpl.ID)
	if err != nil {
		return err
	}
	categories, err := s.int64Column(ctx, `select category_id from order_voucher_template_categories where template_id = $1`, tpl.ID)
	if err != nil {
		return err
	}
	tpl.MenuScopes = menus
	tpl.CategoryScopes = categories
	return nil
}

func (s PGStore) int64Column(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s PGStore) CountUsage(ctx context.Context, q UsageQuery) (int64, error) {
	query, args := usageFilter("select count(*) from order_discounts", q, true)
	var count int64
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s PGStore) SumUsage(ctx context.Context, q UsageQuery) (float64, error) {
	query, args := usageFilter("select coalesce(sum(discount_amount), 0) from order_discounts", q, false)
	var total pgtype.Numeric
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return utils.NumericToFloat64(total), nil
}

// usageFilter builds the where clause shared by the usage queries. The sum
// always spans the whole template budget.
func usageFilter(base string, q UsageQuery, allowCode bool) (string, []any) {
	query := base + " where merchant_id = $1"
	args := []any{q.MerchantID}
	add := func(clause string, value any) {
		args = append(args, value)
		query += " and " + clause + " $" + strconv.Itoa(len(args))
	}

	if allowCode && q.CodeID != nil {
		add("voucher_code_id =", *q.CodeID)
	} else {
		add("voucher_template_id =", q.TemplateID)
	}
	if q.ExcludeOrderID != nil {
		add("order_id <>", *q.ExcludeOrderID)
	}
	if allowCode && q.CustomerID != nil {
		add("applied_by_customer_id =", *q.CustomerID)
	}
	return query, args
}

func (s PGStore) OrderSources(ctx context.Context, merchantID, orderID int64) ([]SourceLabel, error) {
	rows, err := s.DB.Query(ctx, `
		select source, label
		from order_discounts
		where merchant_id = $1 and order_id = $2
		order by created_at asc
	`, merchantID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceLabel
	for rows.Next() {
		var (
			source string
			label  string
		)
		if err := rows.Scan(&source, &label); err != nil {
			return nil, err
		}
		out = append(out, SourceLabel{Source: Source(source), Label: label})
	}
	return out, rows.Err()
}

func optionalInt(value pgtype.Int4) *int32 {
	if !value.Valid {
		return nil
	}
	v := value.Int32
	return &v
}

func optionalTime(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func optionalText(value pgtype.Text) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

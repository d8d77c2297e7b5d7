// Package orders is the order mutation pipeline. Every create and edit runs
// the same steps: validate, price, discount, fees, stock, then persist in
// one transaction.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"genfity-pricing-service/internal/events"
	"genfity-pricing-service/internal/fees"
	"genfity-pricing-service/internal/merchant"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/utils"
	"genfity-pricing-service/internal/voucher"

	"go.uber.org/zap"
)

type Options struct {
	Policy         voucher.Policy
	TrackingSecret string
	Now            func() time.Time
}

type Service struct {
	repo      Repository
	merchants merchant.Loader
	catalog   pricing.Catalog
	engine    *pricing.Engine
	resolver  *voucher.Resolver
	publisher events.Publisher
	log       *zap.Logger

	now            func() time.Time
	codes          func() string
	policy         voucher.Policy
	trackingSecret string
}

func NewService(repo Repository, merchants merchant.Loader, catalog pricing.Catalog, vouchers voucher.Store, publisher events.Publisher, log *zap.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	policy := opts.Policy
	if policy == "" {
		policy = voucher.PolicyDrop
	}
	return &Service{
		repo:           repo,
		merchants:      merchants,
		catalog:        catalog,
		engine:         pricing.NewEngine(catalog),
		resolver:       voucher.NewResolver(vouchers).WithClock(now),
		publisher:      publisher,
		log:            log,
		now:            now,
		policy:         policy,
		trackingSecret: opts.TrackingSecret,
	}
}

func (s *Service) Policy() voucher.Policy { return s.policy }

func (s *Service) GetOrder(ctx context.Context, merchantID, orderID int64) (*Order, error) {
	return s.loadOrder(ctx, s.repo, merchantID, orderID, false)
}

func (s *Service) loadOrder(ctx context.Context, tx Tx, merchantID, orderID int64, forUpdate bool) (*Order, error) {
	order, err := tx.LoadOrder(ctx, merchantID, orderID, forUpdate)
	if errors.Is(err, ErrNoOrder) {
		return nil, notFound()
	}
	return order, err
}

func (s *Service) loadMerchant(ctx context.Context, merchantID int64, code string) (*merchant.Config, error) {
	if merchantID > 0 {
		return s.merchants.Load(ctx, merchantID)
	}
	return s.merchants.LoadByCode(ctx, code)
}

func (s *Service) price(ctx context.Context, m *merchant.Config, items []pricing.ItemRequest, allowCustom bool) (*pricing.Result, error) {
	settings := m.Features.CustomItems
	if !allowCustom {
		settings.Enabled = false
	}
	return s.engine.Price(ctx, pricing.PriceParams{
		MerchantID:  m.ID,
		Timezone:    m.Timezone,
		CustomItems: settings,
		Items:       items,
		At:          s.now(),
	})
}

// planStock prechecks the move from before to after against current stock.
// Nothing is written.
func (s *Service) planStock(ctx context.Context, tx Tx, merchantID int64, before, after stock.Quantities) ([]stock.Adjustment, error) {
	menuIDs, addonIDs := stock.Touched(before, after)
	if len(menuIDs) == 0 && len(addonIDs) == 0 {
		return nil, nil
	}
	entities, err := tx.StockEntities(ctx, merchantID, menuIDs, addonIDs)
	if err != nil {
		return nil, err
	}
	return stock.Plan(before, after, entities)
}

func feeConfig(m *merchant.Config, checkout bool) fees.Config {
	cfg := m.FeeConfig()
	cfg.PackagingOnDelivery = checkout
	return cfg
}

func normalizeOrderType(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func assertPOSOrderType(orderType string) error {
	if orderType != fees.OrderTypeDineIn && orderType != fees.OrderTypeTakeaway {
		return badRequest(ErrInvalidOrderType, "Invalid order type. Must be DINE_IN or TAKEAWAY.")
	}
	return nil
}

func assertTableNumber(m *merchant.Config, orderType string, tableNumber *string) error {
	if orderType != fees.OrderTypeDineIn || !m.RequireTableNumberForDineIn {
		return nil
	}
	if tableNumber == nil || strings.TrimSpace(*tableNumber) == "" {
		return badRequest(ErrTableNumberRequired, "Table number is required for dine-in orders.")
	}
	return nil
}

type discountScope struct {
	merchant       *merchant.Config
	audience       voucher.Audience
	orderType      string
	subtotal       float64
	items          []voucher.OrderItemInput
	customerID     *int64
	userID         *int64
	excludeOrderID *int64
}

// resolveDiscount turns a discount request into a row ready to be written.
func (s *Service) resolveDiscount(ctx context.Context, scope discountScope, in DiscountInput) (voucher.AppliedDiscount, error) {
	m := scope.merchant
	switch in.Source {
	case voucher.SourceManual:
		if scope.audience != voucher.AudiencePOS {
			return voucher.AppliedDiscount{}, badRequest(ErrInvalidDiscount, "Manual discounts are only available in POS.")
		}
		if in.Value == nil {
			return voucher.AppliedDiscount{}, voucher.ValidationError(voucher.ErrManualDiscountInvalid, "Manual discount value is required.", nil)
		}
		kind := voucher.ParseDiscountType(string(in.Type))
		amount, err := voucher.ComputeManual(scope.subtotal, kind, *in.Value, m.Currency)
		if err != nil {
			return voucher.AppliedDiscount{}, err
		}
		label := strings.TrimSpace(in.Label)
		if label == "" {
			label = voucher.ManualDiscountLabel
		}
		value := *in.Value
		return voucher.AppliedDiscount{
			Source:          voucher.SourceManual,
			Label:           label,
			DiscountType:    kind,
			DiscountValue:   &value,
			DiscountAmount:  amount,
			AppliedByUserID: scope.userID,
		}, nil

	case voucher.SourcePOSVoucher, voucher.SourceCustomerVoucher:
		if in.Source.Audience() != scope.audience {
			return voucher.AppliedDiscount{}, badRequest(ErrInvalidDiscount, "Discount source does not match the order channel.")
		}
		result, err := s.resolver.Resolve(ctx, voucher.ResolveParams{
			MerchantID:     m.ID,
			Currency:       m.Currency,
			Timezone:       m.Timezone,
			Audience:       scope.audience,
			OrderType:      scope.orderType,
			Subtotal:       scope.subtotal,
			Items:          scope.items,
			Code:           in.Code,
			TemplateID:     in.TemplateID,
			CustomerID:     scope.customerID,
			ExcludeOrderID: scope.excludeOrderID,
		})
		if err != nil {
			return voucher.AppliedDiscount{}, err
		}
		if in.Source == voucher.SourcePOSVoucher && in.TemplateID != nil && strings.TrimSpace(in.Code) == "" && in.Value != nil {
			if result, err = voucher.ApplyOverride(result, voucher.ParseDiscountType(string(in.Type)), *in.Value, m.Currency); err != nil {
				return voucher.AppliedDiscount{}, err
			}
		}
		var customerID *int64
		if in.Source == voucher.SourceCustomerVoucher {
			customerID = scope.customerID
		}
		return voucher.FromResult(in.Source, result, scope.userID, customerID), nil
	}
	return voucher.AppliedDiscount{}, badRequest(ErrInvalidDiscount, "Unknown discount source.")
}

// storedVoucherItems rebuilds the resolver's view of persisted lines. Menu
// categories are read fresh since order_items does not keep them.
func (s *Service) storedVoucherItems(ctx context.Context, merchantID int64, order *Order) ([]voucher.OrderItemInput, error) {
	menuIDs := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		if !item.IsCustom && item.MenuID > 0 {
			menuIDs = append(menuIDs, item.MenuID)
		}
	}
	menus := map[int64]pricing.Menu{}
	if len(menuIDs) > 0 {
		var err error
		if menus, err = s.catalog.Menus(ctx, merchantID, menuIDs); err != nil {
			return nil, err
		}
	}
	items := make([]voucher.OrderItemInput, 0, len(order.Items))
	for _, item := range order.Items {
		if item.IsCustom {
			items = append(items, voucher.OrderItemInput{Subtotal: item.Subtotal})
			continue
		}
		items = append(items, voucher.OrderItemInput{
			MenuID:      item.MenuID,
			CategoryIDs: menus[item.MenuID].CategoryIDs,
			Subtotal:    item.Subtotal,
		})
	}
	return items, nil
}

func hasCustomItems(items []Item) bool {
	for _, item := range items {
		if item.IsCustom {
			return true
		}
	}
	return false
}

func (s *Service) placeholderFor(ctx context.Context, tx Tx, merchantID int64, items []Item, userID *int64) (int64, error) {
	if !hasCustomItems(items) {
		return 0, nil
	}
	return tx.CustomItemPlaceholder(ctx, merchantID, userID)
}

func (s *Service) publish(ctx context.Context, routingKey, source string, order *Order, changes []stock.Change) {
	at := s.now()
	if err := s.publisher.Publish(ctx, routingKey, events.OrderEvent{
		ID:             events.NewID(),
		Type:           routingKey,
		MerchantID:     order.MerchantID,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		Source:         source,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		At:             at,
	}); err != nil {
		s.log.Warn("publish order event failed", zap.String("routingKey", routingKey), zap.Int64("orderId", order.ID), zap.Error(err))
	}

	if len(changes) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events.StockChanged, events.StockEvent{
		ID:         events.NewID(),
		Type:       events.StockChanged,
		MerchantID: order.MerchantID,
		OrderID:    order.ID,
		Changes:    changes,
		At:         at,
	}); err != nil {
		s.log.Warn("publish stock event failed", zap.Int64("orderId", order.ID), zap.Int("changes", len(changes)), zap.Error(err))
	}
}

func total(subtotal float64, breakdown fees.Breakdown, discount float64, currency string) float64 {
	return utils.RoundCurrency(fees.Total(subtotal, breakdown, discount), currency)
}

package orders

import (
	"time"

	"genfity-pricing-service/internal/fees"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/voucher"
)

const (
	StatusPending    = "PENDING"
	StatusAccepted   = "ACCEPTED"
	StatusInProgress = "IN_PROGRESS"
	StatusReady      = "READY"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"

	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"

	PaymentCashOnCounter  = "CASH_ON_COUNTER"
	PaymentCardOnCounter  = "CARD_ON_COUNTER"
	PaymentCashOnDelivery = "CASH_ON_DELIVERY"
	PaymentOnline         = "ONLINE"
)

// CustomItemPlaceholderName is the hidden, soft-deleted menu row that POS
// custom lines point at so order_items.menu_id stays set.
const CustomItemPlaceholderName = "[POS] __CUSTOM_ITEM_PLACEHOLDER__"

type Payment struct {
	Status string  `json:"status"`
	Method string  `json:"paymentMethod"`
	Amount float64 `json:"amount"`
}

type ItemAddon struct {
	AddonID   int64   `json:"addonItemId"`
	Name      string  `json:"addonName"`
	UnitPrice float64 `json:"addonPrice"`
	Quantity  int32   `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type Item struct {
	ID        int64       `json:"id"`
	MenuID    int64       `json:"menuId,omitempty"`
	Name      string      `json:"menuName"`
	UnitPrice float64     `json:"menuPrice"`
	Quantity  int32       `json:"quantity"`
	Subtotal  float64     `json:"subtotal"`
	Notes     *string     `json:"notes,omitempty"`
	IsCustom  bool        `json:"isCustom"`
	Addons    []ItemAddon `json:"addons"`
}

type Order struct {
	ID                  int64                    `json:"id"`
	MerchantID          int64                    `json:"merchantId"`
	OrderNumber         string                   `json:"orderNumber"`
	OrderType           string                   `json:"orderType"`
	Status              string                   `json:"status"`
	TableNumber         *string                  `json:"tableNumber"`
	Notes               *string                  `json:"notes"`
	DeliveryAddress     *string                  `json:"deliveryAddress,omitempty"`
	CustomerID          *int64                   `json:"customerId"`
	Subtotal            float64                  `json:"subtotal"`
	TaxAmount           float64                  `json:"taxAmount"`
	ServiceChargeAmount float64                  `json:"serviceChargeAmount"`
	PackagingFeeAmount  float64                  `json:"packagingFeeAmount"`
	DiscountAmount      float64                  `json:"discountAmount"`
	TotalAmount         float64                  `json:"totalAmount"`
	IsScheduled         bool                     `json:"isScheduled"`
	ScheduledDate       *string                  `json:"scheduledDate,omitempty"`
	ScheduledTime       *string                  `json:"scheduledTime,omitempty"`
	StockDeductedAt     *time.Time               `json:"stockDeductedAt,omitempty"`
	PlacedAt            time.Time                `json:"placedAt"`
	EditedAt            *time.Time               `json:"editedAt,omitempty"`
	EditedByUserID      *int64                   `json:"editedByUserId,omitempty"`
	Payment             *Payment                 `json:"payment"`
	Items               []Item                   `json:"items"`
	Discounts           []voucher.StoredDiscount `json:"discounts"`

	// Set on the order returned from an edit or checkout only.
	DroppedDiscounts []voucher.DroppedDiscount `json:"droppedDiscounts,omitempty"`
	TrackingToken    string                    `json:"trackingToken,omitempty"`
}

func (o *Order) Fees() fees.Breakdown {
	return fees.Breakdown{
		TaxAmount:           o.TaxAmount,
		ServiceChargeAmount: o.ServiceChargeAmount,
		PackagingFeeAmount:  o.PackagingFeeAmount,
	}
}

func (o *Order) PaymentCompleted() bool {
	return o.Payment != nil && o.Payment.Status == PaymentCompleted
}

// StockDeducted reports whether the order's lines are currently held out of
// stock. Scheduled orders only deduct once they are released.
func (o *Order) StockDeducted() bool {
	return !o.IsScheduled || o.StockDeductedAt != nil
}

// StockQuantities is what the stored lines consume. Addon quantities are
// per line and not multiplied by the item quantity.
func (o *Order) StockQuantities() stock.Quantities {
	q := stock.NewQuantities()
	for _, item := range o.Items {
		if item.IsCustom {
			continue
		}
		q.AddMenu(item.MenuID, item.Quantity)
		for _, addon := range item.Addons {
			q.AddAddon(addon.AddonID, addon.Quantity)
		}
	}
	return q
}

func itemsFromPriced(priced []pricing.PricedItem) []Item {
	items := make([]Item, 0, len(priced))
	for _, p := range priced {
		item := Item{
			MenuID:    p.MenuID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Quantity:  p.Quantity,
			Subtotal:  p.Subtotal,
			Notes:     p.Notes,
			IsCustom:  p.IsCustom,
			Addons:    make([]ItemAddon, 0, len(p.Addons)),
		}
		for _, a := range p.Addons {
			item.Addons = append(item.Addons, ItemAddon{
				AddonID:   a.AddonID,
				Name:      a.Name,
				UnitPrice: a.UnitPrice,
				Quantity:  a.Quantity,
				Subtotal:  a.Subtotal,
			})
		}
		items = append(items, item)
	}
	return items
}

func storedDiscounts(applied []voucher.AppliedDiscount) []voucher.StoredDiscount {
	out := make([]voucher.StoredDiscount, 0, len(applied))
	for _, d := range applied {
		out = append(out, d.Stored())
	}
	return out
}

type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// DiscountInput asks for one POS discount. Source MANUAL uses Type and
// Value; POS_VOUCHER uses Code or TemplateID, and with TemplateID the
// operator may override Type and Value.
type DiscountInput struct {
	Source     voucher.Source
	Code       string
	TemplateID *int64
	Type       voucher.DiscountType
	Value      *float64
	Label      string
}

type EditRequest struct {
	MerchantID  int64
	OrderID     int64
	UserID      int64
	OrderType   string
	TableNumber *string
	Notes       *string
	Customer    *CustomerInput
	Items       []pricing.ItemRequest
}

type CreateRequest struct {
	MerchantID  int64
	UserID      int64
	OrderType   string
	TableNumber *string
	Notes       *string
	Customer    *CustomerInput
	Items       []pricing.ItemRequest
	Discount    *DiscountInput
}

type CheckoutRequest struct {
	MerchantCode    string
	CustomerID      *int64
	Customer        CustomerInput
	OrderType       string
	TableNumber     *string
	Notes           *string
	DeliveryAddress *string
	Items           []pricing.ItemRequest
	VoucherCode     string
	PaymentMethod   string
	ScheduledTime   string
}

type QuoteRequest struct {
	MerchantID   int64
	MerchantCode string
	Audience     voucher.Audience
	OrderType    string
	Items        []pricing.ItemRequest
	CustomerID   *int64
	UserID       *int64
	Discount     *DiscountInput
}

type Quote struct {
	Currency       string                    `json:"currency"`
	Items          []pricing.PricedItem      `json:"items"`
	Subtotal       float64                   `json:"subtotal"`
	Fees           fees.Breakdown            `json:"fees"`
	Discounts      []voucher.AppliedDiscount `json:"discounts"`
	DiscountAmount float64                   `json:"discountAmount"`
	TotalAmount    float64                   `json:"totalAmount"`
}

type VoucherCheck struct {
	MerchantID   int64
	MerchantCode string
	Audience     voucher.Audience
	OrderType    string
	Items        []pricing.ItemRequest
	Code         string
	TemplateID   *int64
	CustomerID   *int64
}

type ApplyDiscountRequest struct {
	MerchantID int64
	OrderID    int64
	UserID     int64
	Discount   DiscountInput
}

package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"genfity-pricing-service/internal/orders"
	"genfity-pricing-service/internal/pricing"
	"genfity-pricing-service/internal/voucher"
)

// flexID accepts ids sent either as JSON numbers or as strings, since
// bigint ids are serialised as strings by the dashboards.
type flexID int64

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*id = 0
		return nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	*id = flexID(parsed)
	return nil
}

func optionalID(id *flexID) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	v := int64(*id)
	return &v
}

type orderItemRequest struct {
	Type        string              `json:"type"`
	MenuID      flexID              `json:"menuId"`
	CustomName  string              `json:"customName"`
	CustomPrice *float64            `json:"customPrice"`
	Quantity    int32               `json:"quantity"`
	Notes       *string             `json:"notes"`
	Addons      []orderAddonRequest `json:"addons"`
}

type orderAddonRequest struct {
	AddonItemID flexID `json:"addonItemId"`
	Quantity    int32  `json:"quantity"`
}

type customerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type discountRequest struct {
	Source            string   `json:"source"`
	VoucherCode       string   `json:"voucherCode"`
	VoucherTemplateID *flexID  `json:"voucherTemplateId"`
	Type              string   `json:"type"`
	Value             *float64 `json:"value"`
	Label             string   `json:"label"`
}

type posOrderRequest struct {
	OrderType   string             `json:"orderType"`
	TableNumber *string            `json:"tableNumber"`
	Notes       *string            `json:"notes"`
	Items       []orderItemRequest `json:"items"`
	Customer    *customerRequest   `json:"customer"`
	Discount    *discountRequest   `json:"discount"`
}

type checkoutRequest struct {
	MerchantCode    string             `json:"merchantCode"`
	OrderType       string             `json:"orderType"`
	TableNumber     *string            `json:"tableNumber"`
	Notes           *string            `json:"notes"`
	DeliveryAddress *string            `json:"deliveryAddress"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone"`
	Items           []orderItemRequest `json:"items"`
	VoucherCode     string             `json:"voucherCode"`
	PaymentMethod   string             `json:"paymentMethod"`
	ScheduledTime   string             `json:"scheduledTime"`
}

type voucherValidateRequest struct {
	MerchantCode      string             `json:"merchantCode"`
	OrderType         string             `json:"orderType"`
	VoucherCode       string             `json:"voucherCode"`
	VoucherTemplateID *flexID            `json:"voucherTemplateId"`
	OrderID           *flexID            `json:"orderId"`
	Items             []orderItemRequest `json:"items"`
}

func toItemRequests(items []orderItemRequest) []pricing.ItemRequest {
	out := make([]pricing.ItemRequest, 0, len(items))
	for _, item := range items {
		kind := pricing.ItemKind(strings.ToUpper(strings.TrimSpace(item.Type)))
		if kind == pricing.KindCustom {
			price := 0.0
			if item.CustomPrice != nil {
				price = *item.CustomPrice
			}
			custom := pricing.CustomItem(item.CustomName, price, item.Quantity)
			custom.Notes = item.Notes
			for _, addon := range item.Addons {
				custom.Addons = append(custom.Addons, pricing.AddonRequest{AddonID: int64(addon.AddonItemID), Quantity: addon.Quantity})
			}
			out = append(out, custom)
			continue
		}
		addons := make([]pricing.AddonRequest, 0, len(item.Addons))
		for _, addon := range item.Addons {
			addons = append(addons, pricing.AddonRequest{AddonID: int64(addon.AddonItemID), Quantity: addon.Quantity})
		}
		menu := pricing.MenuItem(int64(item.MenuID), item.Quantity, addons...)
		menu.Notes = item.Notes
		// Missing type means MENU; anything else unknown is left for the
		// engine to reject.
		if kind != "" {
			menu.Kind = kind
		}
		out = append(out, menu)
	}
	return out
}

func (c *customerRequest) input() *orders.CustomerInput {
	if c == nil {
		return nil
	}
	return &orders.CustomerInput{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

// input converts a wire discount. An unknown source is passed through and
// rejected by the service.
func (d *discountRequest) input() *orders.DiscountInput {
	if d == nil {
		return nil
	}
	source := voucher.Source(strings.ToUpper(strings.TrimSpace(d.Source)))
	if source == "" {
		source = voucher.SourceManual
		if strings.TrimSpace(d.VoucherCode) != "" || optionalID(d.VoucherTemplateID) != nil {
			source = voucher.SourcePOSVoucher
		}
	}
	in := &orders.DiscountInput{
		Source:     source,
		Code:       d.VoucherCode,
		TemplateID: optionalID(d.VoucherTemplateID),
		Value:      d.Value,
		Label:      d.Label,
	}
	if strings.TrimSpace(d.Type) != "" {
		in.Type = voucher.ParseDiscountType(d.Type)
	}
	return in
}


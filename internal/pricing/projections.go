package pricing

import (
	"genfity-pricing-service/internal/stock"
	"genfity-pricing-service/internal/voucher"
)

// VoucherItems projects the priced lines onto what voucher scoping needs.
func (r *Result) VoucherItems() []voucher.OrderItemInput {
	out := make([]voucher.OrderItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, voucher.OrderItemInput{
			MenuID:      item.MenuID,
			CategoryIDs: item.CategoryIDs,
			Subtotal:    item.Subtotal,
		})
	}
	return out
}

// StockQuantities totals consumption per menu and addon. An addon consumes
// its own quantity, which is not multiplied by the line quantity. Custom
// lines do not consume stock.
func (r *Result) StockQuantities() stock.Quantities {
	q := stock.NewQuantities()
	for _, item := range r.Items {
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

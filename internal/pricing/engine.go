// Package pricing turns a validated item list into priced order lines.
//
// Every multiplication and running sum is rounded to cents as it happens, so
// a stored line subtotal always equals what a customer sees on the receipt.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"genfity-pricing-service/internal/utils"
)

const DefaultCustomItemNameLength = 80

type ItemKind string

const (
	KindMenu   ItemKind = "MENU"
	KindCustom ItemKind = "CUSTOM"
)

type AddonRequest struct {
	AddonID  int64
	Quantity int32
}

// ItemRequest is a single requested line. MENU lines carry MenuID and may
// carry addons; CUSTOM lines carry CustomName and CustomPrice only.
type ItemRequest struct {
	Kind        ItemKind
	MenuID      int64
	CustomName  string
	CustomPrice float64
	Quantity    int32
	Notes       *string
	Addons      []AddonRequest
}

func MenuItem(menuID int64, quantity int32, addons ...AddonRequest) ItemRequest {
	return ItemRequest{Kind: KindMenu, MenuID: menuID, Quantity: quantity, Addons: addons}
}

func CustomItem(name string, price float64, quantity int32) ItemRequest {
	return ItemRequest{Kind: KindCustom, CustomName: name, CustomPrice: price, Quantity: quantity}
}

type CustomItemSettings struct {
	Enabled       bool
	MaxNameLength int
	MaxPrice      float64
}

func DefaultCustomItemSettings(currency string) CustomItemSettings {
	return CustomItemSettings{MaxNameLength: DefaultCustomItemNameLength, MaxPrice: DefaultMaxCustomPrice(currency)}
}

func DefaultMaxCustomPrice(currency string) float64 {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "AUD", "USD", "SGD":
		return 5000
	case "MYR":
		return 10000
	default:
		return 10000000
	}
}

type Menu struct {
	ID          int64
	Name        string
	Price       float64
	IsActive    bool
	Deleted     bool
	CategoryIDs []int64
}

type Addon struct {
	ID       int64
	Name     string
	Price    float64
	IsActive bool
	Deleted  bool
}

// Catalog reads merchant-scoped menu data. Rows that belong to another
// merchant must not be returned.
type Catalog interface {
	Menus(ctx context.Context, merchantID int64, ids []int64) (map[int64]Menu, error)
	Addons(ctx context.Context, merchantID int64, ids []int64) (map[int64]Addon, error)
	PromoPrices(ctx context.Context, merchantID int64, menuIDs []int64, date string) (map[int64]float64, error)
}

type PricedAddon struct {
	AddonID   int64   `json:"addonItemId"`
	Name      string  `json:"addonName"`
	UnitPrice float64 `json:"addonPrice"`
	Quantity  int32   `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type PricedItem struct {
	MenuID       int64         `json:"menuId,omitempty"`
	Name         string        `json:"menuName"`
	UnitPrice    float64       `json:"menuPrice"`
	ListPrice    float64       `json:"listPrice"`
	PromoApplied bool          `json:"promoApplied"`
	Quantity     int32         `json:"quantity"`
	Subtotal     float64       `json:"subtotal"`
	Notes        *string       `json:"notes,omitempty"`
	IsCustom     bool          `json:"isCustom"`
	CategoryIDs  []int64       `json:"-"`
	Addons       []PricedAddon `json:"addons"`
}

type Result struct {
	Items    []PricedItem `json:"items"`
	Subtotal float64      `json:"subtotal"`
}

type PriceParams struct {
	MerchantID  int64
	Timezone    string
	CustomItems CustomItemSettings
	Items       []ItemRequest
	At          time.Time
}

type Engine struct {
	catalog Catalog
}

func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

func (e *Engine) Price(ctx context.Context, params PriceParams) (*Result, error) {
	if len(params.Items) == 0 {
		return nil, validationError(ErrEmptyItems, "Order must have at least one item.", nil)
	}

	menuIDs, addonIDs, err := collectIDs(params.Items)
	if err != nil {
		return nil, err
	}

	menus := map[int64]Menu{}
	addons := map[int64]Addon{}
	promos := map[int64]float64{}
	if len(menuIDs) > 0 {
		if menus, err = e.catalog.Menus(ctx, params.MerchantID, menuIDs); err != nil {
			return nil, fmt.Errorf("load menus: %w", err)
		}
		at := params.At
		if at.IsZero() {
			at = time.Now()
		}
		date := utils.DateInTimezone(at, params.Timezone)
		if promos, err = e.catalog.PromoPrices(ctx, params.MerchantID, menuIDs, date); err != nil {
			return nil, fmt.Errorf("load promo prices: %w", err)
		}
	}
	if len(addonIDs) > 0 {
		if addons, err = e.catalog.Addons(ctx, params.MerchantID, addonIDs); err != nil {
			return nil, fmt.Errorf("load addons: %w", err)
		}
	}

	settings := params.CustomItems
	if settings.MaxNameLength <= 0 {
		settings.MaxNameLength = DefaultCustomItemNameLength
	}

	result := &Result{Items: make([]PricedItem, 0, len(params.Items))}
	for i, item := range params.Items {
		var priced PricedItem
		switch item.Kind {
		case KindCustom:
			priced, err = priceCustomItem(i, item, settings)
		default:
			priced, err = priceMenuItem(i, item, menus, addons, promos)
		}
		if err != nil {
			return nil, err
		}
		result.Subtotal = utils.Round2(result.Subtotal + priced.Subtotal)
		result.Items = append(result.Items, priced)
	}

	return result, nil
}

func collectIDs(items []ItemRequest) ([]int64, []int64, error) {
	menuIDs := make([]int64, 0, len(items))
	addonIDs := make([]int64, 0)
	seenMenu := map[int64]struct{}{}
	seenAddon := map[int64]struct{}{}
	for i, item := range items {
		switch item.Kind {
		case KindCustom:
			continue
		case KindMenu:
		default:
			return nil, nil, validationError(ErrInvalidItemType, "Item type must be MENU or CUSTOM.", map[string]any{"index": i})
		}
		if item.MenuID <= 0 {
			return nil, nil, validationError(ErrMenuNotFound, "Invalid menuId", map[string]any{"index": i})
		}
		if _, ok := seenMenu[item.MenuID]; !ok {
			seenMenu[item.MenuID] = struct{}{}
			menuIDs = append(menuIDs, item.MenuID)
		}
		for _, addon := range item.Addons {
			if _, ok := seenAddon[addon.AddonID]; !ok {
				seenAddon[addon.AddonID] = struct{}{}
				addonIDs = append(addonIDs, addon.AddonID)
			}
		}
	}
	return menuIDs, addonIDs, nil
}

func priceCustomItem(index int, item ItemRequest, settings CustomItemSettings) (PricedItem, error) {
	details := map[string]any{"index": index}
	if !settings.Enabled {
		return PricedItem{}, validationError(ErrCustomItemsDisabled, "Custom items are disabled for this merchant.", details)
	}
	if len(item.Addons) > 0 {
		return PricedItem{}, validationError(ErrCustomItemAddonsNotAllowed, "Custom items do not support addons.", details)
	}
	name := strings.TrimSpace(item.CustomName)
	if name == "" {
		return PricedItem{}, validationError(ErrCustomItemNameRequired, "Custom item name is required.", details)
	}
	if utf8.RuneCountInString(name) > settings.MaxNameLength {
		details["maxNameLength"] = settings.MaxNameLength
		return PricedItem{}, validationError(ErrCustomItemNameTooLong, "Custom item name is too long.", details)
	}
	if !utils.IsFinitePositive(item.CustomPrice) {
		return PricedItem{}, validationError(ErrCustomItemPriceInvalid, "Custom item price must be a valid number.", details)
	}
	if settings.MaxPrice > 0 && item.CustomPrice > settings.MaxPrice {
		details["maxPrice"] = settings.MaxPrice
		return PricedItem{}, validationError(ErrCustomItemPriceTooHigh, "Custom item price is too high.", details)
	}
	if item.Quantity <= 0 {
		return PricedItem{}, validationError(ErrInvalidQuantity, "Invalid quantity.", details)
	}

	price := utils.Round2(item.CustomPrice)
	return PricedItem{
		Name:      name,
		UnitPrice: price,
		ListPrice: price,
		Quantity:  item.Quantity,
		Subtotal:  utils.Round2(price * float64(item.Quantity)),
		Notes:     item.Notes,
		IsCustom:  true,
		Addons:    []PricedAddon{},
	}, nil
}

func priceMenuItem(index int, item ItemRequest, menus map[int64]Menu, addons map[int64]Addon, promos map[int64]float64) (PricedItem, error) {
	details := map[string]any{"index": index, "menuId": item.MenuID}
	menu, ok := menus[item.MenuID]
	if !ok {
		return PricedItem{}, validationError(ErrMenuNotFound, "Menu item not found", details)
	}
	if !menu.IsActive || menu.Deleted {
		details["menuName"] = menu.Name
		return PricedItem{}, validationError(ErrMenuNotAvailable, "Menu item is not available", details)
	}
	if item.Quantity <= 0 {
		return PricedItem{}, validationError(ErrInvalidQuantity, "Invalid quantity.", details)
	}

	listPrice := utils.Round2(menu.Price)
	unitPrice := listPrice
	promo, hasPromo := promos[menu.ID]
	if hasPromo {
		unitPrice = utils.Round2(promo)
	}
	itemTotal := utils.Round2(unitPrice * float64(item.Quantity))

	pricedAddons := make([]PricedAddon, 0, len(item.Addons))
	for _, req := range item.Addons {
		addon, ok := addons[req.AddonID]
		if !ok {
			return PricedItem{}, validationError(ErrAddonNotFound, "Addon item not found", map[string]any{"index": index, "addonItemId": req.AddonID})
		}
		if !addon.IsActive || addon.Deleted {
			return PricedItem{}, validationError(ErrAddonNotAvailable, "Addon item is not available", map[string]any{"index": index, "addonItemId": req.AddonID, "addonName": addon.Name})
		}
		qty := req.Quantity
		if qty <= 0 {
			qty = 1
		}
		addonPrice := utils.Round2(addon.Price)
		addonSubtotal := utils.Round2(addonPrice * float64(qty))
		itemTotal = utils.Round2(itemTotal + addonSubtotal)
		pricedAddons = append(pricedAddons, PricedAddon{
			AddonID:   addon.ID,
			Name:      addon.Name,
			UnitPrice: addonPrice,
			Quantity:  qty,
			Subtotal:  addonSubtotal,
		})
	}

	return PricedItem{
		MenuID:       menu.ID,
		Name:         menu.Name,
		UnitPrice:    unitPrice,
		ListPrice:    listPrice,
		PromoApplied: hasPromo,
		Quantity:     item.Quantity,
		Subtotal:     itemTotal,
		Notes:        item.Notes,
		CategoryIDs:  menu.CategoryIDs,
		Addons:       pricedAddons,
	}, nil
}
